// Package sqlite implements the key/value database abstraction on top of a
// SQLite file, using the pure Go driver (modernc.org/sqlite).
//
// Buckets are rows of a dedicated table and every pair is stored with its
// bucket name so that a scan follows the same byte ordering as bbolt.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"

	"go.dedis.ch/tokenlock"
	"go.dedis.ch/tokenlock/core/store/kv"
	"golang.org/x/xerrors"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS buckets (
	name BLOB PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS pairs (
	bucket BLOB NOT NULL,
	key    BLOB NOT NULL,
	value  BLOB NOT NULL,
	PRIMARY KEY (bucket, key)
);`

// DB is an adapter of the KV store using SQLite.
//
// - implements kv.DB
type DB struct {
	db *sql.DB
}

// New opens or creates the database at the given path.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	// A single connection serializes the writers the same way bbolt does.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("failed to create schema: %v", err)
	}

	return &DB{db: db}, nil
}

// View implements kv.DB. It executes the read-only function in the context of
// a transaction that is always rolled back.
func (d *DB) View(fn func(kv.ReadableTx) error) error {
	txn, err := d.db.BeginTx(context.Background(), nil)
	if err != nil {
		return xerrors.Errorf("failed to begin: %v", err)
	}

	defer txn.Rollback()

	return fn(&sqlTx{txn: txn})
}

// Update implements kv.DB. It executes the writable function in the context of
// a transaction. The transaction is committed only if the function succeeds.
func (d *DB) Update(fn func(kv.WritableTx) error) error {
	txn, err := d.db.BeginTx(context.Background(), nil)
	if err != nil {
		return xerrors.Errorf("failed to begin: %v", err)
	}

	tx := &sqlTx{txn: txn}

	err = fn(tx)
	if err != nil {
		txn.Rollback()
		return err
	}

	err = txn.Commit()
	if err != nil {
		return xerrors.Errorf("failed to commit: %v", err)
	}

	for _, cb := range tx.callbacks {
		cb()
	}

	return nil
}

// Close implements kv.DB. It closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// sqlTx is the adapter of a SQL transaction.
//
// - implements kv.ReadableTx
// - implements kv.WritableTx
type sqlTx struct {
	txn       *sql.Tx
	callbacks []func()
}

// GetBucket implements kv.ReadableTx. It returns the bucket if it exists,
// otherwise nil.
func (tx *sqlTx) GetBucket(name []byte) kv.Bucket {
	var found int

	err := tx.txn.QueryRow("SELECT 1 FROM buckets WHERE name = ?", name).Scan(&found)
	if err != nil {
		if err != sql.ErrNoRows {
			tokenlock.Logger.Warn().Err(err).Msg("failed to read bucket")
		}

		return nil
	}

	return sqlBucket{txn: tx.txn, name: append([]byte{}, name...)}
}

// GetBucketOrCreate implements kv.WritableTx. It creates the bucket if it does
// not exist yet.
func (tx *sqlTx) GetBucketOrCreate(name []byte) (kv.Bucket, error) {
	if len(name) == 0 {
		return nil, xerrors.New("failed to create bucket: bucket name required")
	}

	_, err := tx.txn.Exec("INSERT OR IGNORE INTO buckets (name) VALUES (?)", name)
	if err != nil {
		return nil, xerrors.Errorf("failed to create bucket: %v", err)
	}

	return sqlBucket{txn: tx.txn, name: append([]byte{}, name...)}, nil
}

// OnCommit implements store.Transaction. The callback is called after the
// transaction is successfully committed.
func (tx *sqlTx) OnCommit(fn func()) {
	tx.callbacks = append(tx.callbacks, fn)
}

// sqlBucket is a view of the pairs table restricted to one bucket.
//
// - implements kv.Bucket
type sqlBucket struct {
	txn  *sql.Tx
	name []byte
}

// Get implements kv.Bucket. It returns the value associated to the key, or nil
// if it does not exist.
func (b sqlBucket) Get(key []byte) []byte {
	var value []byte

	err := b.txn.QueryRow("SELECT value FROM pairs WHERE bucket = ? AND key = ?",
		b.name, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			tokenlock.Logger.Warn().Err(err).Msgf("failed to read key %x", key)
		}

		return nil
	}

	return value
}

// Set implements kv.Bucket. It sets or replaces the value of the key.
func (b sqlBucket) Set(key, value []byte) error {
	if len(key) == 0 {
		return xerrors.New("key required")
	}

	_, err := b.txn.Exec(`INSERT INTO pairs (bucket, key, value) VALUES (?, ?, ?)
		ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value`,
		b.name, key, append([]byte{}, value...))
	if err != nil {
		return xerrors.Errorf("failed to write: %v", err)
	}

	return nil
}

// Delete implements kv.Bucket. It removes the key, if any.
func (b sqlBucket) Delete(key []byte) error {
	_, err := b.txn.Exec("DELETE FROM pairs WHERE bucket = ? AND key = ?", b.name, key)
	if err != nil {
		return xerrors.Errorf("failed to delete: %v", err)
	}

	return nil
}

// ForEach implements kv.Bucket. It iterates over the bucket in key order.
func (b sqlBucket) ForEach(fn func(k, v []byte) error) error {
	return b.Scan(nil, fn)
}

// Scan implements kv.Bucket. It iterates over the keys matching the prefix in
// key order.
func (b sqlBucket) Scan(prefix []byte, fn func(k, v []byte) error) error {
	pairs, err := b.load(prefix)
	if err != nil {
		return err
	}

	for _, pair := range pairs {
		err := fn(pair[0], pair[1])
		if err != nil {
			return xerrors.Errorf("callback failed: %v", err)
		}
	}

	return nil
}

// load reads the matching pairs before the callbacks run, so that a callback
// is free to write in the same transaction.
func (b sqlBucket) load(prefix []byte) ([][2][]byte, error) {
	rows, err := b.txn.Query(
		"SELECT key, value FROM pairs WHERE bucket = ? AND key >= ? ORDER BY key",
		b.name, append([]byte{}, prefix...))
	if err != nil {
		return nil, xerrors.Errorf("failed to query: %v", err)
	}

	defer rows.Close()

	var pairs [][2][]byte

	for rows.Next() {
		var k, v []byte

		err = rows.Scan(&k, &v)
		if err != nil {
			return nil, xerrors.Errorf("failed to scan: %v", err)
		}

		if !bytes.HasPrefix(k, prefix) {
			break
		}

		pairs = append(pairs, [2][]byte{k, v})
	}

	err = rows.Err()
	if err != nil {
		return nil, xerrors.Errorf("failed to iterate: %v", err)
	}

	return pairs, nil
}
