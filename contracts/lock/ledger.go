package lock

import (
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/serde"
	"go.dedis.ch/tokenlock/serde/registry"
	"golang.org/x/xerrors"
)

var accountFormats = registry.NewSimpleRegistry()

// RegisterAccountFormat registers the engine for the provided format.
func RegisterAccountFormat(f serde.Format, e serde.FormatEngine) {
	accountFormats.Register(f, e)
}

// Lock is an entry of a ledger account.
type Lock struct {
	// Amount is the locked amount in the smallest unit.
	Amount uint64

	// Timestamp is the time of the lock in unix seconds.
	Timestamp int64
}

// Entry is a lock with its stable index in the account.
type Entry struct {
	Index int
	Lock
}

// LedgerAccount is the record of the locks of an owner. An entry unlocked down
// to zero stays in place so that the indices never change.
//
// - implements serde.Message
type LedgerAccount struct {
	owner    crypto.PublicKey
	bump     uint8
	capacity int
	locks    []Lock
}

// NewLedgerAccount returns a new ledger account.
func NewLedgerAccount(owner crypto.PublicKey, bump uint8, capacity int, locks ...Lock) LedgerAccount {
	return LedgerAccount{
		owner:    owner,
		bump:     bump,
		capacity: capacity,
		locks:    append([]Lock{}, locks...),
	}
}

// GetOwner returns the owner of the account.
func (a LedgerAccount) GetOwner() crypto.PublicKey {
	return a.owner
}

// GetBump returns the bump of the address of the account.
func (a LedgerAccount) GetBump() uint8 {
	return a.bump
}

// GetCapacity returns the maximum number of entries.
func (a LedgerAccount) GetCapacity() int {
	return a.capacity
}

// GetLocks returns a copy of the entries, emptied ones included.
func (a LedgerAccount) GetLocks() []Lock {
	return append([]Lock{}, a.locks...)
}

// Len returns the number of entries, emptied ones included.
func (a LedgerAccount) Len() int {
	return len(a.locks)
}

// Active returns the entries with a positive amount with their index.
func (a LedgerAccount) Active() []Entry {
	entries := []Entry{}
	for i, l := range a.locks {
		if l.Amount > 0 {
			entries = append(entries, Entry{Index: i, Lock: l})
		}
	}

	return entries
}

// Total returns the sum of the amounts of the entries.
func (a LedgerAccount) Total() uint64 {
	total := uint64(0)
	for _, l := range a.locks {
		total += l.Amount
	}

	return total
}

// LastTimestamp returns the timestamp of the latest entry, or zero.
func (a LedgerAccount) LastTimestamp() int64 {
	if len(a.locks) == 0 {
		return 0
	}

	return a.locks[len(a.locks)-1].Timestamp
}

// Serialize implements serde.Message. It returns the serialized data of the
// account.
func (a LedgerAccount) Serialize(ctx serde.Context) ([]byte, error) {
	format := accountFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, a)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode account: %v", err)
	}

	return data, nil
}

// append adds the lock at the end of the entries.
func (a *LedgerAccount) append(l Lock) error {
	if len(a.locks) >= a.capacity {
		return xerrors.Errorf("%d entries out of %d: %w", len(a.locks), a.capacity,
			ErrCapacityExceeded)
	}

	a.locks = append(a.locks, l)

	return nil
}

// withdraw removes the amount from the entry at the index.
func (a *LedgerAccount) withdraw(index uint64, amount uint64) error {
	if index >= uint64(len(a.locks)) {
		return xerrors.Errorf("index %d out of %d entries: %w", index, len(a.locks),
			ErrInvalidIndex)
	}

	locked := a.locks[index].Amount
	if amount > locked {
		return xerrors.Errorf("%d > %d at index %d: %w", amount, locked, index,
			ErrInsufficientLocked)
	}

	a.locks[index].Amount = locked - amount

	return nil
}

// OwnerFac is the key of the public key factory for the owner.
type OwnerFac struct{}

// AccountFactory is a factory to deserialize ledger accounts.
//
// - implements serde.Factory
type AccountFactory struct {
	ownerFac crypto.PublicKeyFactory
}

// NewAccountFactory returns a new factory with the public key factory of the
// owners.
func NewAccountFactory(f crypto.PublicKeyFactory) AccountFactory {
	return AccountFactory{ownerFac: f}
}

// Deserialize implements serde.Factory.
func (f AccountFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.AccountOf(ctx, data)
}

// AccountOf returns the ledger account of the data if appropriate, otherwise
// an error.
func (f AccountFactory) AccountOf(ctx serde.Context, data []byte) (LedgerAccount, error) {
	format := accountFormats.Get(ctx.GetFormat())

	ctx = serde.WithFactory(ctx, OwnerFac{}, f.ownerFac)

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return LedgerAccount{}, xerrors.Errorf("failed to decode: %v", err)
	}

	account, ok := msg.(LedgerAccount)
	if !ok {
		return LedgerAccount{}, xerrors.Errorf("invalid account of type '%T'", msg)
	}

	return account, nil
}
