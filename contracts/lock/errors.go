package lock

import (
	"go.dedis.ch/tokenlock/contracts/bank"
	"golang.org/x/xerrors"
)

// Kind is the category of a refusal.
type Kind int

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	// KindValidation is the kind of malformed or out of range inputs.
	KindValidation
	// KindState is the kind of errors due to the current state of the
	// ledger account.
	KindState
	// KindAuthorization is the kind of errors due to the signer.
	KindAuthorization
	// KindResource is the kind of errors due to the amounts or the capacity.
	KindResource
	// KindInternal is the kind of any other error, like a storage failure.
	KindInternal
)

var (
	// ErrInvalidAmount is returned when an amount is zero.
	ErrInvalidAmount = xerrors.New("invalid amount")

	// ErrInvalidIndex is returned when an index does not designate an entry.
	ErrInvalidIndex = xerrors.New("invalid index")

	// ErrMalformed is returned when an argument or a stored account cannot be
	// decoded.
	ErrMalformed = xerrors.New("malformed input")

	// ErrNoLedger is returned when no ledger account exists for the owner.
	ErrNoLedger = xerrors.New("ledger account not found")

	// ErrAlreadyExists is returned when a ledger account is initialized twice.
	ErrAlreadyExists = xerrors.New("ledger account already exists")

	// ErrAddressCollision is returned when the account stored at the derived
	// address belongs to another owner.
	ErrAddressCollision = xerrors.New("address collision")

	// ErrUnauthorized is returned when the signer is not the owner.
	ErrUnauthorized = xerrors.New("unauthorized")

	// ErrCapacityExceeded is returned when the account has no free slot.
	ErrCapacityExceeded = xerrors.New("capacity exceeded")

	// ErrInsufficientLocked is returned when an unlock exceeds the amount of
	// the entry.
	ErrInsufficientLocked = xerrors.New("insufficient locked amount")

	// ErrInsufficientBalance is returned when the owner cannot afford a lock.
	ErrInsufficientBalance = bank.ErrInsufficientBalance

	// ErrOverflow is returned when an amount would exceed the maximum value.
	ErrOverflow = bank.ErrOverflow
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidAmount, KindValidation},
	{bank.ErrInvalidAmount, KindValidation},
	{ErrInvalidIndex, KindValidation},
	{ErrMalformed, KindValidation},
	{ErrNoLedger, KindState},
	{ErrAlreadyExists, KindState},
	{ErrAddressCollision, KindState},
	{ErrUnauthorized, KindAuthorization},
	{ErrCapacityExceeded, KindResource},
	{ErrInsufficientLocked, KindResource},
	{ErrInsufficientBalance, KindResource},
	{ErrOverflow, KindResource},
}

// KindOf returns the kind of the error, wrapped or not.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	for _, k := range kinds {
		if xerrors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindInternal
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindAuthorization:
		return "authorization"
	case KindResource:
		return "resource"
	default:
		return "internal"
	}
}
