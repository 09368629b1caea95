// Package serial implements an ordering service that applies the transactions
// one at a time on a key/value database.
//
// Each transaction is executed on a staging snapshot inside a single writable
// transaction of the database. The staged changes are flushed only when the
// transaction is accepted so that a refused transaction leaves the state
// untouched. The nonce of an identity is consumed only on acceptance.
package serial

import (
	"context"
	"encoding/binary"
	"sync"

	"go.dedis.ch/tokenlock"
	"go.dedis.ch/tokenlock/core/access"
	"go.dedis.ch/tokenlock/core/execution"
	"go.dedis.ch/tokenlock/core/ordering"
	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/core/store/kv"
	"go.dedis.ch/tokenlock/core/store/mem"
	"go.dedis.ch/tokenlock/core/store/prefixed"
	"go.dedis.ch/tokenlock/core/txn"
	"go.dedis.ch/tokenlock/core/txn/signed"
	_ "go.dedis.ch/tokenlock/core/txn/signed/json"
	_ "go.dedis.ch/tokenlock/crypto/ed25519/json"
	"go.dedis.ch/tokenlock/serde"
	"go.dedis.ch/tokenlock/serde/json"
	"golang.org/x/xerrors"
)

const (
	nonceNamespace = "nonce"
	txNamespace    = "txs"
)

// DefaultBucket is the name of the database bucket used to store the state.
var DefaultBucket = []byte("tokenlock")

// Service is a serial ordering service.
//
// - implements ordering.Service
type Service struct {
	sync.Mutex

	db        kv.DB
	bucket    []byte
	execution execution.Service
	context   serde.Context
	txFac     txn.Factory
}

// ServiceOption is the type of option to set some fields of the service.
type ServiceOption func(*Service)

// WithBucket is an option to set the name of the bucket.
func WithBucket(name []byte) ServiceOption {
	return func(s *Service) {
		s.bucket = name
	}
}

// NewService creates a new service that stores the state in the database and
// runs the transactions with the execution service.
func NewService(db kv.DB, exec execution.Service, opts ...ServiceOption) *Service {
	s := &Service{
		db:        db,
		bucket:    DefaultBucket,
		execution: exec,
		context:   json.NewContext(),
		txFac:     signed.NewTransactionFactory(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Process implements ordering.Service. It verifies the signature and the nonce
// of the transaction before executing it.
func (s *Service) Process(ctx context.Context, tx txn.Transaction,
	inspectors ...ordering.Inspector) (ordering.Receipt, error) {

	s.Lock()
	defer s.Unlock()

	err := ctx.Err()
	if err != nil {
		return ordering.Receipt{}, xerrors.Errorf("context: %w", err)
	}

	receipt := ordering.Receipt{
		TxID:  tx.GetID(),
		Nonce: tx.GetNonce(),
	}

	err = s.db.Update(func(wtx kv.WritableTx) error {
		bucket, err := wtx.GetBucketOrCreate(s.bucket)
		if err != nil {
			return xerrors.Errorf("bucket: %v", err)
		}

		base := bucketStore{bucket: bucket}
		staging := mem.NewSnapshot(base)

		res, err := s.execute(staging, tx)
		if err != nil {
			return err
		}

		receipt.Accepted = res.Accepted
		receipt.Err = res.Err

		var after store.Readable = base
		if res.Accepted {
			err = s.record(staging, tx)
			if err != nil {
				return err
			}

			after = staging
		}

		// A failing inspector aborts an accepted transaction, but the
		// reason of a refusal is always returned unchanged.
		for _, inspect := range inspectors {
			err = inspect(base, after)
			if err != nil && res.Accepted {
				return xerrors.Errorf("inspector failed: %v", err)
			}

			if err != nil {
				tokenlock.Logger.Warn().Err(err).
					Hex("id", receipt.TxID).
					Msg("inspector failed on a refused transaction")
			}
		}

		if !res.Accepted {
			return nil
		}

		err = staging.Commit(base)
		if err != nil {
			return xerrors.Errorf("failed to commit: %v", err)
		}

		return nil
	})
	if err != nil {
		promTxs.WithLabelValues(statusFailed).Inc()
		return ordering.Receipt{}, xerrors.Errorf("failed to process tx: %v", err)
	}

	if receipt.Accepted {
		promTxs.WithLabelValues(statusAccepted).Inc()

		tokenlock.Logger.Debug().
			Hex("id", receipt.TxID).
			Uint64("nonce", receipt.Nonce).
			Msg("transaction accepted")
	} else {
		promTxs.WithLabelValues(statusRejected).Inc()

		tokenlock.Logger.Info().
			Hex("id", receipt.TxID).
			Uint64("nonce", receipt.Nonce).
			Str("reason", receipt.Err.Error()).
			Msg("transaction refused")
	}

	return receipt, nil
}

// View implements ordering.Service. It executes the callback with a read-only
// access to the state.
func (s *Service) View(fn func(store.Readable) error) error {
	return s.db.View(func(rtx kv.ReadableTx) error {
		return fn(bucketStore{bucket: rtx.GetBucket(s.bucket)})
	})
}

// GetNonce returns the nonce expected for the next transaction of the
// identity.
//
// - implements signed.Client
func (s *Service) GetNonce(ident access.Identity) (uint64, error) {
	var nonce uint64

	err := s.View(func(r store.Readable) error {
		var err error
		nonce, err = readNonce(r, ident)
		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

// GetTransaction returns the accepted transaction with the given identifier.
func (s *Service) GetTransaction(id []byte) (txn.Transaction, error) {
	var data []byte

	err := s.View(func(r store.Readable) error {
		value, err := prefixed.NewReadable(txNamespace, r).Get(id)
		if err != nil {
			return err
		}

		data = value
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read tx: %v", err)
	}

	if data == nil {
		return nil, xerrors.Errorf("transaction %#x not found", id)
	}

	tx, err := s.txFac.TransactionOf(s.context, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode tx: %v", err)
	}

	return tx, nil
}

func (s *Service) execute(snap store.Snapshot, tx txn.Transaction) (execution.Result, error) {
	verifiable, ok := tx.(interface{ Verify() error })
	if !ok {
		return execution.Result{}, xerrors.Errorf("transaction of type '%T' is not verifiable", tx)
	}

	err := verifiable.Verify()
	if err != nil {
		return refuse(xerrors.Errorf("%v: %w", err, ordering.ErrInvalidSignature)), nil
	}

	expected, err := readNonce(snap, tx.GetIdentity())
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to read nonce: %v", err)
	}

	if tx.GetNonce() != expected {
		return refuse(xerrors.Errorf("got %d, expected %d: %w",
			tx.GetNonce(), expected, ordering.ErrNonceMismatch)), nil
	}

	step := execution.Step{Current: tx}

	res, err := s.execution.Execute(snap, step)
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to execute tx: %v", err)
	}

	if !res.Accepted && res.Err == nil {
		res.Err = xerrors.New(res.Message)
	}

	return res, nil
}

// record consumes the nonce of the identity and stores the transaction.
func (s *Service) record(snap store.Snapshot, tx txn.Transaction) error {
	key, err := tx.GetIdentity().MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, tx.GetNonce()+1)

	err = prefixed.NewSnapshot(nonceNamespace, snap).Set(key, buffer)
	if err != nil {
		return xerrors.Errorf("failed to store nonce: %v", err)
	}

	data, err := tx.Serialize(s.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize tx: %v", err)
	}

	err = prefixed.NewSnapshot(txNamespace, snap).Set(tx.GetID(), data)
	if err != nil {
		return xerrors.Errorf("failed to store tx: %v", err)
	}

	return nil
}

func readNonce(r store.Readable, ident access.Identity) (uint64, error) {
	key, err := ident.MarshalBinary()
	if err != nil {
		return 0, xerrors.Errorf("failed to marshal identity: %v", err)
	}

	value, err := prefixed.NewReadable(nonceNamespace, r).Get(key)
	if err != nil {
		return 0, err
	}

	if len(value) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(value), nil
}

func refuse(err error) execution.Result {
	return execution.Result{
		Message: err.Error(),
		Err:     err,
	}
}

// bucketStore is a store adapter over a database bucket. A nil bucket is an
// empty store.
//
// - implements store.Snapshot
type bucketStore struct {
	bucket kv.Bucket
}

// Get implements store.Readable. It returns a copy of the value.
func (s bucketStore) Get(key []byte) ([]byte, error) {
	if s.bucket == nil {
		return nil, nil
	}

	value := s.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	return append([]byte{}, value...), nil
}

// Set implements store.Writable.
func (s bucketStore) Set(key, value []byte) error {
	if s.bucket == nil {
		return xerrors.New("read-only store")
	}

	return s.bucket.Set(key, value)
}

// Delete implements store.Writable.
func (s bucketStore) Delete(key []byte) error {
	if s.bucket == nil {
		return xerrors.New("read-only store")
	}

	return s.bucket.Delete(key)
}
