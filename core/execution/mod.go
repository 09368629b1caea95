// Package execution defines the service that applies a transaction to a store
// snapshot.
package execution

import (
	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/core/txn"
)

// Step is a context of execution. It contains the transaction to execute and
// the transactions already applied in the same batch.
type Step struct {
	Previous []txn.Transaction
	Current  txn.Transaction
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string

	// Err is the reason of a refusal. It keeps the wrapped errors so that the
	// caller can inspect them.
	Err error
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
