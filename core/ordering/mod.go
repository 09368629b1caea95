// Package ordering defines the interface of the ordering service. The
// high-level purpose of this service is to apply transactions one after the
// other on the state, each of them atomically.
package ordering

import (
	"context"

	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/core/txn"
	"golang.org/x/xerrors"
)

var (
	// ErrInvalidSignature is the reason of a refusal when the transaction is
	// not signed by its identity.
	ErrInvalidSignature = xerrors.New("invalid signature")

	// ErrNonceMismatch is the reason of a refusal when the nonce of the
	// transaction is not the next one of its identity.
	ErrNonceMismatch = xerrors.New("nonce mismatch")
)

// Receipt is the outcome of a transaction.
type Receipt struct {
	// TxID is the identifier of the transaction.
	TxID []byte

	// Nonce is the nonce of the transaction.
	Nonce uint64

	// Accepted is true when the changes of the transaction have been applied.
	Accepted bool

	// Err is the reason of the refusal, or nil when accepted.
	Err error
}

// Inspector is called with the state before and after a transaction, inside
// the same storage transaction. After is the same as before when the
// transaction is refused.
type Inspector func(before, after store.Readable) error

// Service is the interface of an ordering service.
type Service interface {
	// Process applies the transaction to the state and returns its receipt. A
	// refused transaction does not change the state and is not an error.
	Process(ctx context.Context, tx txn.Transaction, inspectors ...Inspector) (Receipt, error)

	// View executes the callback with a read access to the current state.
	View(fn func(store.Readable) error) error
}
