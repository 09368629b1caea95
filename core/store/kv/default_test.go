package kv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestBoltDB_UpdateAndView(t *testing.T) {
	db, clean := makeDB(t)
	defer clean()

	ch := make(chan struct{})

	err := db.Update(func(txn WritableTx) error {
		bucket, err := txn.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		txn.OnCommit(func() {
			close(ch)
		})

		return bucket.Set([]byte("ping"), []byte("pong"))
	})
	require.NoError(t, err)

	<-ch

	err = db.View(func(txn ReadableTx) error {
		bucket := txn.GetBucket([]byte("bucket"))
		require.NotNil(t, bucket)

		value := bucket.Get([]byte("ping"))
		require.Equal(t, []byte("pong"), value)

		require.Nil(t, txn.GetBucket([]byte("unknown")))

		return nil
	})
	require.NoError(t, err)

	err = db.Update(func(txn WritableTx) error {
		_, err := txn.GetBucketOrCreate(nil)
		return err
	})
	require.EqualError(t, err, "failed to create bucket: bucket name required")
}

func TestBoltDB_Rollback(t *testing.T) {
	db, clean := makeDB(t)
	defer clean()

	err := db.Update(func(txn WritableTx) error {
		bucket, err := txn.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		require.NoError(t, bucket.Set([]byte("ping"), []byte("pong")))

		return xerrors.New("oops")
	})
	require.EqualError(t, err, "oops")

	err = db.View(func(txn ReadableTx) error {
		require.Nil(t, txn.GetBucket([]byte("bucket")))
		return nil
	})
	require.NoError(t, err)
}

func TestBoltBucket_Get_Set_Delete(t *testing.T) {
	db, clean := makeDB(t)
	defer clean()

	err := db.Update(func(txn WritableTx) error {
		b, err := txn.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		require.NoError(t, b.Set([]byte("ping"), []byte("pong")))

		value := b.Get([]byte("ping"))
		require.Equal(t, []byte("pong"), value)

		value = b.Get([]byte("pong"))
		require.Nil(t, value)

		require.NoError(t, b.Delete([]byte("ping")))

		value = b.Get([]byte("ping"))
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)
}

func TestBoltBucket_ForEach(t *testing.T) {
	db, clean := makeDB(t)
	defer clean()

	err := db.Update(func(txn WritableTx) error {
		b, err := txn.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		require.NoError(t, b.Set([]byte{2}, []byte{2}))
		require.NoError(t, b.Set([]byte{1}, []byte{1}))
		require.NoError(t, b.Set([]byte{0}, []byte{0}))

		var i byte = 0
		return b.ForEach(func(k, v []byte) error {
			require.Equal(t, []byte{i}, k)
			require.Equal(t, []byte{i}, v)
			i++
			return nil
		})
	})
	require.NoError(t, err)
}

func TestBoltBucket_Scan(t *testing.T) {
	db, clean := makeDB(t)
	defer clean()

	err := db.Update(func(txn WritableTx) error {
		b, err := txn.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		require.NoError(t, b.Set([]byte{7}, []byte{7}))
		require.NoError(t, b.Set([]byte{0}, []byte{0}))

		var i byte = 0
		err = b.Scan(nil, func(k, v []byte) error {
			require.Equal(t, []byte{i}, k)
			require.Equal(t, []byte{i}, v)
			i += 7
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, byte(14), i)

		err = b.Scan([]byte{1}, func(k, v []byte) error {
			return xerrors.New("oops")
		})
		require.NoError(t, err)

		err = b.Scan([]byte{}, func(k, v []byte) error {
			return xerrors.New("oops")
		})
		require.EqualError(t, err, "callback failed: oops")

		return nil
	})
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeDB(t *testing.T) (DB, func()) {
	dir, err := os.MkdirTemp(os.TempDir(), "tokenlock-core-kv")
	require.NoError(t, err)

	db, err := New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)

	return db, func() {
		db.Close()
		os.RemoveAll(dir)
	}
}
