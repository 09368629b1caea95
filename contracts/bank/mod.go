// Package bank implements a native contract that keeps the spendable balances
// of the accounts.
//
// An account is either the binary form of a public key or a derived address.
// Other contracts move funds with the functions of the package in the same
// snapshot as their own changes, which makes the transfers atomic with them.
package bank

import (
	"encoding/binary"
	"math"

	"go.dedis.ch/tokenlock"
	"go.dedis.ch/tokenlock/core/execution"
	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/core/store/prefixed"
	"go.dedis.ch/tokenlock/crypto/pda"
	"golang.org/x/xerrors"
)

// commands defines the commands of the bank contract. This interface helps in
// testing the contract.
type commands interface {
	airdrop(snap store.Snapshot, step execution.Step) error
	transfer(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/tokenlock.Bank"

	// ContractUID is the unique identifier of the contract.
	ContractUID = "BANK"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "bank:command"

	// AmountArg is the argument's name in the transaction that contains the
	// amount as a little-endian unsigned 64-bits integer.
	AmountArg = "bank:amount"

	// ToArg is the argument's name in the transaction that contains the
	// account receiving a transfer.
	ToArg = "bank:to"

	// DefaultAirdropLimit is the maximum amount of a single airdrop by
	// default.
	DefaultAirdropLimit uint64 = 2_000_000_000

	namespace = "bank"
)

// Command defines a type of command for the bank contract.
type Command string

const (
	// CmdAirdrop defines the command to credit the signer with new funds.
	CmdAirdrop Command = "AIRDROP"

	// CmdTransfer defines the command to move funds from the signer to
	// another account.
	CmdTransfer Command = "TRANSFER"
)

var (
	// ErrInsufficientBalance is returned when an account does not hold enough
	// funds.
	ErrInsufficientBalance = xerrors.New("insufficient balance")

	// ErrOverflow is returned when a balance would exceed the maximum value.
	ErrOverflow = xerrors.New("balance overflow")

	// ErrInvalidAmount is returned when an amount is zero or malformed.
	ErrInvalidAmount = xerrors.New("invalid amount")

	// ErrAirdropLimit is returned when an airdrop exceeds the limit.
	ErrAirdropLimit = xerrors.New("airdrop limit exceeded")

	// ErrInvalidRecipient is returned when a transfer targets an account that
	// is not a public key, like a derived address held by a contract.
	ErrInvalidRecipient = xerrors.New("invalid recipient")
)

// RegisterContract registers the bank contract to the given execution service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the bank contract.
//
// - implements native.Contract
type Contract struct {
	// limit is the maximum amount of a single airdrop
	limit uint64

	// cmd provides the commands executions
	cmd commands
}

// NewContract creates a new bank contract with the given airdrop limit.
func NewContract(limit uint64) Contract {
	contract := Contract{
		limit: limit,
	}

	contract.cmd = bankCommand{Contract: &contract}

	return contract
}

// UID implements native.Contract.
func (c Contract) UID() string {
	return ContractUID
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdAirdrop:
		err := c.cmd.airdrop(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to AIRDROP: %w", err)
		}
	case CmdTransfer:
		err := c.cmd.transfer(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to TRANSFER: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// bankCommand implements the commands of the bank contract
//
// - implements commands
type bankCommand struct {
	*Contract
}

// airdrop implements commands. It credits the signer with the amount.
func (c bankCommand) airdrop(snap store.Snapshot, step execution.Step) error {
	amount, err := readAmount(step)
	if err != nil {
		return err
	}

	if amount > c.limit {
		return xerrors.Errorf("%d > %d: %w", amount, c.limit, ErrAirdropLimit)
	}

	account, err := step.Current.GetIdentity().MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	err = Credit(snap, account, amount)
	if err != nil {
		return err
	}

	tokenlock.Logger.Info().Str("contract", "bank").
		Msgf("airdrop of %d to %x", amount, account)

	return nil
}

// transfer implements commands. It moves the amount from the signer to the
// account in argument. Derived addresses are refused so that only their
// contract moves funds in and out of them.
func (c bankCommand) transfer(snap store.Snapshot, step execution.Step) error {
	amount, err := readAmount(step)
	if err != nil {
		return err
	}

	to := step.Current.GetArg(ToArg)
	if len(to) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", ToArg)
	}

	if !pda.IsOnCurve(to) {
		return xerrors.Errorf("%x is not a public key: %w", to, ErrInvalidRecipient)
	}

	from, err := step.Current.GetIdentity().MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	return Transfer(snap, from, to, amount)
}

// BalanceOf returns the spendable balance of the account. An unknown account
// has a zero balance.
func BalanceOf(r store.Readable, account []byte) (uint64, error) {
	value, err := prefixed.NewReadable(namespace, r).Get(account)
	if err != nil {
		return 0, xerrors.Errorf("failed to read balance: %v", err)
	}

	if value == nil {
		return 0, nil
	}

	if len(value) != 8 {
		return 0, xerrors.Errorf("malformed balance of length %d", len(value))
	}

	return binary.LittleEndian.Uint64(value), nil
}

// Credit adds the amount to the balance of the account.
func Credit(snap store.Snapshot, account []byte, amount uint64) error {
	balance, err := BalanceOf(snap, account)
	if err != nil {
		return err
	}

	if balance > math.MaxUint64-amount {
		return xerrors.Errorf("%d + %d: %w", balance, amount, ErrOverflow)
	}

	return setBalance(snap, account, balance+amount)
}

// Debit removes the amount from the balance of the account.
func Debit(snap store.Snapshot, account []byte, amount uint64) error {
	balance, err := BalanceOf(snap, account)
	if err != nil {
		return err
	}

	if balance < amount {
		return xerrors.Errorf("%d < %d: %w", balance, amount, ErrInsufficientBalance)
	}

	return setBalance(snap, account, balance-amount)
}

// Transfer moves the amount from an account to another.
func Transfer(snap store.Snapshot, from, to []byte, amount uint64) error {
	err := Debit(snap, from, amount)
	if err != nil {
		return err
	}

	err = Credit(snap, to, amount)
	if err != nil {
		return err
	}

	return nil
}

func setBalance(snap store.Snapshot, account []byte, balance uint64) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, balance)

	err := prefixed.NewSnapshot(namespace, snap).Set(account, buffer)
	if err != nil {
		return xerrors.Errorf("failed to write balance: %v", err)
	}

	return nil
}

func readAmount(step execution.Step) (uint64, error) {
	value := step.Current.GetArg(AmountArg)
	if len(value) != 8 {
		return 0, xerrors.Errorf("'%s' must be 8 bytes: %w", AmountArg, ErrInvalidAmount)
	}

	amount := binary.LittleEndian.Uint64(value)
	if amount == 0 {
		return 0, xerrors.Errorf("zero amount: %w", ErrInvalidAmount)
	}

	return amount, nil
}
