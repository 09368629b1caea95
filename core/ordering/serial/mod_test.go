package serial

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/tokenlock"
	"go.dedis.ch/tokenlock/core/execution"
	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/core/ordering"
	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/core/store/kv"
	"go.dedis.ch/tokenlock/core/store/kv/sqlite"
	"go.dedis.ch/tokenlock/core/txn"
	"go.dedis.ch/tokenlock/core/txn/signed"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/ed25519"
	"go.dedis.ch/tokenlock/testing/fake"
	"golang.org/x/xerrors"
)

func TestService_Process(t *testing.T) {
	srvc := makeService(t, makeBolt(t))
	signer := ed25519.NewSigner()

	accepted := testutil.ToFloat64(promTxs.WithLabelValues(statusAccepted))

	tx := makeTx(t, signer, 0, "A", "1")

	var before, after []byte
	inspect := func(b, a store.Readable) error {
		before, _ = b.Get([]byte("A"))
		after, _ = a.Get([]byte("A"))
		return nil
	}

	receipt, err := srvc.Process(context.Background(), tx, inspect)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)
	require.NoError(t, receipt.Err)
	require.Equal(t, tx.GetID(), receipt.TxID)
	require.Nil(t, before)
	require.Equal(t, []byte("1"), after)
	require.Equal(t, accepted+1, testutil.ToFloat64(promTxs.WithLabelValues(statusAccepted)))

	require.Equal(t, []byte("1"), readKey(t, srvc, "A"))

	nonce, err := srvc.GetNonce(signer.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	stored, err := srvc.GetTransaction(tx.GetID())
	require.NoError(t, err)
	require.Equal(t, tx.GetID(), stored.GetID())
	require.Equal(t, []byte("1"), stored.GetArg("value"))
}

func TestService_ProcessRefused(t *testing.T) {
	srvc := makeService(t, makeBolt(t))
	signer := ed25519.NewSigner()

	rejected := testutil.ToFloat64(promTxs.WithLabelValues(statusRejected))

	logger, check := fake.CheckLog("transaction refused")

	defer func(l zerolog.Logger) { tokenlock.Logger = l }(tokenlock.Logger)
	tokenlock.Logger = logger

	receipt, err := srvc.Process(context.Background(), makeTx(t, signer, 0, "A", "1"))
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	// The contract writes before failing, which must not reach the state.
	tx := makeTx(t, signer, 1, "A", "fail")

	var after []byte
	receipt, err = srvc.Process(context.Background(), tx, func(b, a store.Readable) error {
		after, _ = a.Get([]byte("A"))
		return nil
	})
	require.NoError(t, err)
	require.False(t, receipt.Accepted)
	require.ErrorIs(t, receipt.Err, errContract)
	require.Equal(t, []byte("1"), after)
	require.Equal(t, rejected+1, testutil.ToFloat64(promTxs.WithLabelValues(statusRejected)))
	check(t)

	require.Equal(t, []byte("1"), readKey(t, srvc, "A"))

	nonce, err := srvc.GetNonce(signer.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	_, err = srvc.GetTransaction(tx.GetID())
	require.EqualError(t, err, fmt.Sprintf("transaction %#x not found", tx.GetID()))
}

func TestService_ProcessRefusedInspector(t *testing.T) {
	srvc := makeService(t, makeBolt(t))
	signer := ed25519.NewSigner()

	logger, check := fake.CheckLog("inspector failed on a refused transaction")

	defer func(l zerolog.Logger) { tokenlock.Logger = l }(tokenlock.Logger)
	tokenlock.Logger = logger

	receipt, err := srvc.Process(context.Background(), makeTx(t, signer, 0, "A", "fail"),
		func(before, after store.Readable) error {
			return fake.GetError()
		})
	require.NoError(t, err)
	require.False(t, receipt.Accepted)
	require.ErrorIs(t, receipt.Err, errContract)
	check(t)

	nonce, err := srvc.GetNonce(signer.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)
}

func TestService_ProcessNonce(t *testing.T) {
	srvc := makeService(t, makeBolt(t))
	signer := ed25519.NewSigner()

	receipt, err := srvc.Process(context.Background(), makeTx(t, signer, 1, "A", "1"))
	require.NoError(t, err)
	require.False(t, receipt.Accepted)
	require.ErrorIs(t, receipt.Err, ordering.ErrNonceMismatch)
	require.EqualError(t, receipt.Err, "got 1, expected 0: nonce mismatch")

	tx := makeTx(t, signer, 0, "A", "1")

	receipt, err = srvc.Process(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	// Replay of the same transaction.
	receipt, err = srvc.Process(context.Background(), tx)
	require.NoError(t, err)
	require.False(t, receipt.Accepted)
	require.ErrorIs(t, receipt.Err, ordering.ErrNonceMismatch)

	// Nonces are per identity.
	receipt, err = srvc.Process(context.Background(), makeTx(t, ed25519.NewSigner(), 0, "B", "2"))
	require.NoError(t, err)
	require.True(t, receipt.Accepted)
}

func TestService_ProcessSignature(t *testing.T) {
	srvc := makeService(t, makeBolt(t))
	signer := ed25519.NewSigner()

	tx, err := signed.NewTransaction(0, signer.GetPublicKey(),
		signed.WithArg(native.ContractArg, []byte(testContract)))
	require.NoError(t, err)

	receipt, err := srvc.Process(context.Background(), tx)
	require.NoError(t, err)
	require.False(t, receipt.Accepted)
	require.ErrorIs(t, receipt.Err, ordering.ErrInvalidSignature)

	_, err = srvc.Process(context.Background(), fakeTx{})
	require.EqualError(t, err,
		"failed to process tx: transaction of type 'serial.fakeTx' is not verifiable")
}

func TestService_ProcessFailures(t *testing.T) {
	srvc := makeService(t, makeBolt(t))
	signer := ed25519.NewSigner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := srvc.Process(ctx, makeTx(t, signer, 0, "A", "1"))
	require.ErrorIs(t, err, context.Canceled)

	failed := testutil.ToFloat64(promTxs.WithLabelValues(statusFailed))

	tx, err := signed.NewTransaction(0, signer.GetPublicKey(),
		signed.WithArg(native.ContractArg, []byte("unknown")))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(signer))

	_, err = srvc.Process(context.Background(), tx)
	require.EqualError(t, err,
		"failed to process tx: failed to execute tx: unknown contract 'unknown'")
	require.Equal(t, failed+1, testutil.ToFloat64(promTxs.WithLabelValues(statusFailed)))

	_, err = srvc.Process(context.Background(), makeTx(t, signer, 0, "A", "1"),
		func(before, after store.Readable) error {
			return fake.GetError()
		})
	require.EqualError(t, err, fake.Err("failed to process tx: inspector failed"))
	require.Nil(t, readKey(t, srvc, "A"))
}

func TestService_SQLite(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	srvc := makeService(t, db, WithBucket([]byte("custom")))
	signer := ed25519.NewSigner()

	receipt, err := srvc.Process(context.Background(), makeTx(t, signer, 0, "A", "1"))
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	receipt, err = srvc.Process(context.Background(), makeTx(t, signer, 1, "A", "fail"))
	require.NoError(t, err)
	require.False(t, receipt.Accepted)

	require.Equal(t, []byte("1"), readKey(t, srvc, "A"))
}

func TestService_ViewEmpty(t *testing.T) {
	srvc := makeService(t, makeBolt(t))

	require.Nil(t, readKey(t, srvc, "A"))

	nonce, err := srvc.GetNonce(fake.PublicKey{})
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)

	_, err = srvc.GetNonce(fake.NewBadPublicKey())
	require.EqualError(t, err,
		fake.Err("failed to read nonce: failed to marshal identity"))

	err = srvc.View(func(r store.Readable) error {
		return r.(store.Snapshot).Set([]byte("A"), []byte("1"))
	})
	require.EqualError(t, err, "read-only store")
}

// -----------------------------------------------------------------------------
// Utility functions

const testContract = "test"

var errContract = xerrors.New("contract failed")

// testExec writes the value argument to the key argument, and fails after the
// write when the value is "fail".
type testExec struct{}

func (testExec) UID() string {
	return "TEST"
}

func (testExec) Execute(snap store.Snapshot, step execution.Step) error {
	value := step.Current.GetArg("value")

	err := snap.Set(step.Current.GetArg("key"), value)
	if err != nil {
		return err
	}

	if string(value) == "fail" {
		return xerrors.Errorf("value rejected: %w", errContract)
	}

	return nil
}

func makeBolt(t *testing.T) kv.DB {
	db, err := kv.New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func makeService(t *testing.T, db kv.DB, opts ...ServiceOption) *Service {
	exec := native.NewExecution()
	exec.Set(testContract, testExec{})

	return NewService(db, exec, opts...)
}

func makeTx(t *testing.T, signer crypto.Signer, nonce uint64, key, value string) txn.Transaction {
	tx, err := signed.NewTransaction(nonce, signer.GetPublicKey(),
		signed.WithArg(native.ContractArg, []byte(testContract)),
		signed.WithArg("key", []byte(key)),
		signed.WithArg("value", []byte(value)),
	)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(signer))

	return tx
}

func readKey(t *testing.T, srvc *Service, key string) []byte {
	var value []byte

	err := srvc.View(func(r store.Readable) error {
		var err error
		value, err = r.Get([]byte(key))
		return err
	})
	require.NoError(t, err)

	return value
}

type fakeTx struct {
	txn.Transaction
}

func (fakeTx) GetID() []byte {
	return []byte{0xaa}
}

func (fakeTx) GetNonce() uint64 {
	return 0
}
