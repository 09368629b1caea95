// Package lock implements a native contract that keeps a ledger of locked
// funds for each owner.
//
// The ledger account of an owner is stored at an address derived from the
// public key of the owner and a tag. Locking appends a time-stamped entry to
// the account and moves the funds from the spendable balance of the owner to
// the custody of the address. Unlocking withdraws from a single entry and moves
// the funds back. An entry withdrawn down to zero keeps its slot so that the
// indices are stable.
package lock

import (
	"encoding/binary"
	"math"

	"go.dedis.ch/tokenlock"
	"go.dedis.ch/tokenlock/contracts/bank"
	"go.dedis.ch/tokenlock/core/access"
	"go.dedis.ch/tokenlock/core/clock"
	"go.dedis.ch/tokenlock/core/execution"
	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/core/store/prefixed"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/ed25519"
	_ "go.dedis.ch/tokenlock/crypto/ed25519/json"
	"go.dedis.ch/tokenlock/crypto/pda"
	"go.dedis.ch/tokenlock/serde"
	"go.dedis.ch/tokenlock/serde/json"
	"golang.org/x/xerrors"
)

// commands defines the commands of the lock contract. This interface helps in
// testing the contract.
type commands interface {
	init(snap store.Snapshot, step execution.Step) error
	lock(snap store.Snapshot, step execution.Step) error
	unlock(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract. It is also the program
	// identifier of the derived addresses.
	ContractName = "go.dedis.ch/tokenlock.Lock"

	// ContractUID is the unique identifier of the contract.
	ContractUID = "LOCK"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "lock:command"

	// OwnerArg is the argument's name in the transaction that contains the
	// binary public key of the owner. The signer is the owner when it is
	// missing.
	OwnerArg = "lock:owner"

	// AmountArg is the argument's name in the transaction that contains the
	// amount as a little-endian unsigned 64-bits integer.
	AmountArg = "lock:amount"

	// IndexArg is the argument's name in the transaction that contains the
	// index of the entry as a little-endian unsigned 64-bits integer.
	IndexArg = "lock:index"

	// DefaultCapacity is the default maximum number of entries of an account.
	DefaultCapacity = 32

	// DefaultTag is the default tag of the address derivation.
	DefaultTag = "_"

	namespace       = "lock"
	globalNamespace = "lock:global"
)

var totalKey = []byte("total")

// Command defines a type of command for the lock contract.
type Command string

const (
	// CmdInit defines the command to create the ledger account.
	CmdInit Command = "INIT"

	// CmdLock defines the command to lock an amount in a new entry.
	CmdLock Command = "LOCK"

	// CmdUnlock defines the command to unlock an amount from an entry.
	CmdUnlock Command = "UNLOCK"
)

// RegisterContract registers the lock contract to the given execution service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the lock contract.
//
// - implements native.Contract
type Contract struct {
	access   access.Service
	clock    clock.Clock
	deriver  pda.Deriver
	capacity int
	tag      []byte
	context  serde.Context
	ownerFac crypto.PublicKeyFactory
	factory  AccountFactory

	// cmd provides the commands executions
	cmd commands
}

// ContractOption is the type of option to set some fields of the contract.
type ContractOption func(*Contract)

// WithCapacity is an option to set the maximum number of entries of the new
// accounts. A capacity of 1 is the single-slot shape.
func WithCapacity(capacity int) ContractOption {
	return func(c *Contract) {
		c.capacity = capacity
	}
}

// WithTag is an option to set the tag of the address derivation.
func WithTag(tag string) ContractOption {
	return func(c *Contract) {
		c.tag = []byte(tag)
	}
}

// WithClock is an option to set the time source of the entries.
func WithClock(clock clock.Clock) ContractOption {
	return func(c *Contract) {
		c.clock = clock
	}
}

// WithDeriver is an option to set the address deriver.
func WithDeriver(d pda.Deriver) ContractOption {
	return func(c *Contract) {
		c.deriver = d
	}
}

// NewContract creates a new lock contract that authorizes the commands with
// the access service.
func NewContract(srvc access.Service, opts ...ContractOption) Contract {
	contract := Contract{
		access:   srvc,
		clock:    clock.NewMonotonic(),
		deriver:  pda.NewDeriver(),
		capacity: DefaultCapacity,
		tag:      []byte(DefaultTag),
		context:  json.NewContext(),
		ownerFac: ed25519.NewPublicKeyFactory(),
	}

	for _, opt := range opts {
		opt(&contract)
	}

	contract.factory = NewAccountFactory(contract.ownerFac)
	contract.cmd = lockCommand{Contract: &contract}

	return contract
}

// UID implements native.Contract.
func (c Contract) UID() string {
	return ContractUID
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	err := c.execute(snap, step)
	if err != nil {
		promRejections.WithLabelValues(KindOf(err).String()).Inc()
		return err
	}

	return nil
}

func (c Contract) execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg: %w", CmdArg, ErrMalformed)
	}

	switch Command(cmd) {
	case CmdInit:
		err := c.cmd.init(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to INIT: %w", err)
		}
	case CmdLock:
		err := c.cmd.lock(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to LOCK: %w", err)
		}
	case CmdUnlock:
		err := c.cmd.unlock(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to UNLOCK: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command %s: %w", cmd, ErrMalformed)
	}

	return nil
}

// Address returns the address of the ledger account of the owner and the bump
// that produced it.
func (c Contract) Address(owner crypto.PublicKey) (pda.Address, uint8, error) {
	key, err := owner.MarshalBinary()
	if err != nil {
		return pda.Address{}, 0, xerrors.Errorf("failed to marshal owner: %v", err)
	}

	addr, bump, err := c.deriver.Find([]byte(ContractName), key, c.tag)
	if err != nil {
		return pda.Address{}, 0, xerrors.Errorf("failed to derive address: %w", err)
	}

	return addr, bump, nil
}

// Query returns the ledger account of the owner.
func (c Contract) Query(r store.Readable, owner crypto.PublicKey) (LedgerAccount, error) {
	addr, _, err := c.Address(owner)
	if err != nil {
		return LedgerAccount{}, err
	}

	account, found, err := c.load(r, addr, owner)
	if err != nil {
		return LedgerAccount{}, err
	}

	if !found {
		return LedgerAccount{}, xerrors.Errorf("no account at %v: %w", addr, ErrNoLedger)
	}

	return account, nil
}

// TotalLocked returns the sum of the locked amounts of every account.
func TotalLocked(r store.Readable) (uint64, error) {
	value, err := prefixed.NewReadable(globalNamespace, r).Get(totalKey)
	if err != nil {
		return 0, xerrors.Errorf("failed to read total: %v", err)
	}

	if value == nil {
		return 0, nil
	}

	if len(value) != 8 {
		return 0, xerrors.Errorf("total of length %d: %w", len(value), ErrMalformed)
	}

	return binary.LittleEndian.Uint64(value), nil
}

// load returns the account at the address if it exists. The account must
// belong to the owner.
func (c Contract) load(r store.Readable, addr pda.Address, owner crypto.PublicKey) (LedgerAccount, bool, error) {
	data, err := prefixed.NewReadable(namespace, r).Get(addr[:])
	if err != nil {
		return LedgerAccount{}, false, xerrors.Errorf("failed to read account: %v", err)
	}

	if data == nil {
		return LedgerAccount{}, false, nil
	}

	account, err := c.factory.AccountOf(c.context, data)
	if err != nil {
		return LedgerAccount{}, false,
			xerrors.Errorf("account at %v is unreadable (%v): %w", addr, err, ErrMalformed)
	}

	if !account.GetOwner().Equal(owner) {
		return LedgerAccount{}, false,
			xerrors.Errorf("account at %v belongs to %v: %w", addr, account.GetOwner(),
				ErrAddressCollision)
	}

	return account, true, nil
}

func (c Contract) save(snap store.Snapshot, addr pda.Address, account LedgerAccount) error {
	data, err := account.Serialize(c.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize account: %v", err)
	}

	err = prefixed.NewSnapshot(namespace, snap).Set(addr[:], data)
	if err != nil {
		return xerrors.Errorf("failed to write account: %v", err)
	}

	return nil
}

// owner returns the owner designated by the transaction.
func (c Contract) owner(step execution.Step) (crypto.PublicKey, error) {
	data := step.Current.GetArg(OwnerArg)
	if len(data) > 0 {
		owner, err := c.ownerFac.FromBytes(data)
		if err != nil {
			return nil, xerrors.Errorf("invalid owner (%v): %w", err, ErrMalformed)
		}

		return owner, nil
	}

	owner, ok := step.Current.GetIdentity().(crypto.PublicKey)
	if !ok {
		return nil, xerrors.Errorf("identity of type '%T' is not a public key: %w",
			step.Current.GetIdentity(), ErrMalformed)
	}

	return owner, nil
}

func (c Contract) authorize(snap store.Readable, owner crypto.PublicKey,
	cmd Command, step execution.Step) error {

	key, err := owner.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal owner: %v", err)
	}

	creds := access.NewContractCreds(key, namespace, string(cmd))

	err = c.access.Match(snap, creds, step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("%v: %w", err, ErrUnauthorized)
	}

	return nil
}

// lockCommand implements the commands of the lock contract
//
// - implements commands
type lockCommand struct {
	*Contract
}

// init implements commands. It creates the account of the owner.
func (c lockCommand) init(snap store.Snapshot, step execution.Step) error {
	owner, err := c.owner(step)
	if err != nil {
		return err
	}

	err = c.authorize(snap, owner, CmdInit, step)
	if err != nil {
		return err
	}

	addr, bump, err := c.Address(owner)
	if err != nil {
		return err
	}

	_, found, err := c.load(snap, addr, owner)
	if err != nil {
		return err
	}

	if found {
		return xerrors.Errorf("account at %v: %w", addr, ErrAlreadyExists)
	}

	err = c.save(snap, addr, NewLedgerAccount(owner, bump, c.capacity))
	if err != nil {
		return err
	}

	tokenlock.Logger.Info().Str("contract", "lock").
		Msgf("created account %v for %v", addr, owner)

	return nil
}

// lock implements commands. It creates the account if necessary and appends
// a new entry.
func (c lockCommand) lock(snap store.Snapshot, step execution.Step) error {
	amount, err := readUint64(step, AmountArg)
	if err != nil {
		return err
	}

	if amount == 0 {
		return xerrors.Errorf("zero amount: %w", ErrInvalidAmount)
	}

	owner, err := c.owner(step)
	if err != nil {
		return err
	}

	err = c.authorize(snap, owner, CmdLock, step)
	if err != nil {
		return err
	}

	addr, bump, err := c.Address(owner)
	if err != nil {
		return err
	}

	account, found, err := c.load(snap, addr, owner)
	if err != nil {
		return err
	}

	if !found {
		account = NewLedgerAccount(owner, bump, c.capacity)
	}

	now := c.clock.Now()
	if last := account.LastTimestamp(); last > now {
		now = last
	}

	err = account.append(Lock{Amount: amount, Timestamp: now})
	if err != nil {
		return err
	}

	key, err := owner.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal owner: %v", err)
	}

	err = bank.Transfer(snap, key, addr[:], amount)
	if err != nil {
		return xerrors.Errorf("failed to transfer to custody: %w", err)
	}

	err = addTotal(snap, amount)
	if err != nil {
		return err
	}

	err = c.save(snap, addr, account)
	if err != nil {
		return err
	}

	promLocked.Add(float64(amount))

	tokenlock.Logger.Info().Str("contract", "lock").
		Msgf("locked %d at index %d of %v", amount, account.Len()-1, addr)

	return nil
}

// unlock implements commands. It withdraws the amount from an entry.
func (c lockCommand) unlock(snap store.Snapshot, step execution.Step) error {
	amount, err := readUint64(step, AmountArg)
	if err != nil {
		return err
	}

	if amount == 0 {
		return xerrors.Errorf("zero amount: %w", ErrInvalidAmount)
	}

	index, err := readUint64(step, IndexArg)
	if err != nil {
		return err
	}

	owner, err := c.owner(step)
	if err != nil {
		return err
	}

	addr, _, err := c.Address(owner)
	if err != nil {
		return err
	}

	account, found, err := c.load(snap, addr, owner)
	if err != nil {
		return err
	}

	if !found {
		return xerrors.Errorf("no account at %v: %w", addr, ErrNoLedger)
	}

	err = c.authorize(snap, owner, CmdUnlock, step)
	if err != nil {
		return err
	}

	err = account.withdraw(index, amount)
	if err != nil {
		return err
	}

	key, err := owner.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal owner: %v", err)
	}

	err = bank.Transfer(snap, addr[:], key, amount)
	if err != nil {
		return xerrors.Errorf("failed to transfer from custody: %w", err)
	}

	err = subTotal(snap, amount)
	if err != nil {
		return err
	}

	err = c.save(snap, addr, account)
	if err != nil {
		return err
	}

	promUnlocked.Add(float64(amount))

	tokenlock.Logger.Info().Str("contract", "lock").
		Msgf("unlocked %d at index %d of %v", amount, index, addr)

	return nil
}

func readUint64(step execution.Step, arg string) (uint64, error) {
	value := step.Current.GetArg(arg)
	if len(value) != 8 {
		return 0, xerrors.Errorf("'%s' must be 8 bytes: %w", arg, ErrMalformed)
	}

	return binary.LittleEndian.Uint64(value), nil
}

func addTotal(snap store.Snapshot, amount uint64) error {
	total, err := TotalLocked(snap)
	if err != nil {
		return err
	}

	if total > math.MaxUint64-amount {
		return xerrors.Errorf("total %d + %d: %w", total, amount, ErrOverflow)
	}

	return setTotal(snap, total+amount)
}

func subTotal(snap store.Snapshot, amount uint64) error {
	total, err := TotalLocked(snap)
	if err != nil {
		return err
	}

	if total < amount {
		return xerrors.Errorf("total %d < %d: %w", total, amount, ErrMalformed)
	}

	return setTotal(snap, total-amount)
}

func setTotal(snap store.Snapshot, total uint64) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, total)

	err := prefixed.NewSnapshot(globalNamespace, snap).Set(totalKey, buffer)
	if err != nil {
		return xerrors.Errorf("failed to write total: %v", err)
	}

	return nil
}
