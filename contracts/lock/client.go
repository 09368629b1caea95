package lock

import (
	"context"

	"go.dedis.ch/tokenlock/contracts/bank"
	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/core/ordering"
	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/core/txn"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/pda"
	"golang.org/x/xerrors"
)

// Receipt is the outcome of a command of the lock contract.
type Receipt struct {
	ordering.Receipt

	// Ledger is the account of the signer after the transaction. It is empty
	// when the signer has no account.
	Ledger LedgerAccount

	// BalanceBefore is the spendable balance of the signer before the
	// transaction.
	BalanceBefore uint64

	// BalanceAfter is the spendable balance of the signer after the
	// transaction. It is the same as before when the transaction is refused.
	BalanceAfter uint64
}

// Client submits the commands of the lock contract on behalf of a signer.
type Client struct {
	srvc     ordering.Service
	mgr      txn.Manager
	signer   crypto.Signer
	contract Contract
}

// NewClient returns a new client. The contract must be configured the same
// way as the one registered to the ordering service.
func NewClient(srvc ordering.Service, mgr txn.Manager, signer crypto.Signer, c Contract) Client {
	return Client{
		srvc:     srvc,
		mgr:      mgr,
		signer:   signer,
		contract: c,
	}
}

// Initialize creates the ledger account of the signer.
func (c Client) Initialize(ctx context.Context) (Receipt, error) {
	return c.submit(ctx, txn.Arg{Key: CmdArg, Value: []byte(CmdInit)})
}

// Lock locks the amount in a new entry of the account of the signer. The
// account is created when necessary.
func (c Client) Lock(ctx context.Context, amount uint64) (Receipt, error) {
	return c.submit(ctx,
		txn.Arg{Key: CmdArg, Value: []byte(CmdLock)},
		txn.Arg{Key: AmountArg, Value: bank.EncodeAmount(amount)},
	)
}

// Unlock unlocks the amount from the entry at the index.
func (c Client) Unlock(ctx context.Context, index int, amount uint64) (Receipt, error) {
	return c.submit(ctx,
		txn.Arg{Key: CmdArg, Value: []byte(CmdUnlock)},
		txn.Arg{Key: IndexArg, Value: bank.EncodeAmount(uint64(index))},
		txn.Arg{Key: AmountArg, Value: bank.EncodeAmount(amount)},
	)
}

// Query returns the current ledger account of the owner.
func (c Client) Query(owner crypto.PublicKey) (LedgerAccount, error) {
	var account LedgerAccount

	err := c.srvc.View(func(r store.Readable) error {
		var err error
		account, err = c.contract.Query(r, owner)
		return err
	})
	if err != nil {
		return LedgerAccount{}, xerrors.Errorf("failed to query: %w", err)
	}

	return account, nil
}

// Address returns the address of the ledger account of the owner.
func (c Client) Address(owner crypto.PublicKey) (pda.Address, error) {
	addr, _, err := c.contract.Address(owner)
	if err != nil {
		return pda.Address{}, err
	}

	return addr, nil
}

// Balance returns the current spendable balance of the owner.
func (c Client) Balance(owner crypto.PublicKey) (uint64, error) {
	key, err := owner.MarshalBinary()
	if err != nil {
		return 0, xerrors.Errorf("failed to marshal owner: %v", err)
	}

	return c.read(func(r store.Readable) (uint64, error) {
		return bank.BalanceOf(r, key)
	})
}

// Custody returns the amount held by the address of the owner.
func (c Client) Custody(owner crypto.PublicKey) (uint64, error) {
	addr, err := c.Address(owner)
	if err != nil {
		return 0, err
	}

	return c.read(func(r store.Readable) (uint64, error) {
		return bank.BalanceOf(r, addr[:])
	})
}

// TotalLocked returns the sum of the locked amounts of every account.
func (c Client) TotalLocked() (uint64, error) {
	return c.read(TotalLocked)
}

func (c Client) read(fn func(store.Readable) (uint64, error)) (uint64, error) {
	var value uint64

	err := c.srvc.View(func(r store.Readable) error {
		var err error
		value, err = fn(r)
		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read: %v", err)
	}

	return value, nil
}

func (c Client) submit(ctx context.Context, args ...txn.Arg) (Receipt, error) {
	owner := c.signer.GetPublicKey()

	key, err := owner.MarshalBinary()
	if err != nil {
		return Receipt{}, xerrors.Errorf("failed to marshal owner: %v", err)
	}

	args = append([]txn.Arg{{Key: native.ContractArg, Value: []byte(ContractName)}}, args...)

	tx, err := c.mgr.Make(args...)
	if err != nil {
		return Receipt{}, xerrors.Errorf("failed to make tx: %v", err)
	}

	receipt := Receipt{}

	inspect := func(before, after store.Readable) error {
		receipt.BalanceBefore, err = bank.BalanceOf(before, key)
		if err != nil {
			return err
		}

		receipt.BalanceAfter, err = bank.BalanceOf(after, key)
		if err != nil {
			return err
		}

		account, err := c.contract.Query(after, owner)
		if err != nil && !xerrors.Is(err, ErrNoLedger) {
			return err
		}

		receipt.Ledger = account

		return nil
	}

	res, err := c.srvc.Process(ctx, tx, inspect)
	if err != nil {
		syncErr := c.mgr.Sync()
		if syncErr != nil {
			return Receipt{}, xerrors.Errorf("failed to sync: %v", syncErr)
		}

		return Receipt{}, xerrors.Errorf("failed to process: %v", err)
	}

	receipt.Receipt = res

	if !res.Accepted {
		err = c.mgr.Sync()
		if err != nil {
			return receipt, xerrors.Errorf("failed to sync: %v", err)
		}

		return receipt, res.Err
	}

	return receipt, nil
}
