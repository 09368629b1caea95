package controller

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/contracts/lock"
	"go.dedis.ch/tokenlock/core/ordering/serial"
	"go.dedis.ch/tokenlock/core/txn/signed"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/ed25519"
	"golang.org/x/xerrors"
)

// action provides the common helpers of the ledger actions.
type action struct {
	loadSigner func(cli.Flags) (crypto.Signer, error)
}

// resolve returns the ordering service and the registered contract.
func (a action) resolve(ctx node.Context) (*serial.Service, lock.Contract, error) {
	var srvc *serial.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return nil, lock.Contract{}, xerrors.Errorf("injector: %v", err)
	}

	var contract lock.Contract
	err = ctx.Injector.Resolve(&contract)
	if err != nil {
		return nil, lock.Contract{}, xerrors.Errorf("injector: %v", err)
	}

	return srvc, contract, nil
}

// makeClient returns a client that signs with the signer of the config
// folder. The nonce is synchronized with the state first.
func (a action) makeClient(ctx node.Context) (lock.Client, error) {
	srvc, contract, err := a.resolve(ctx)
	if err != nil {
		return lock.Client{}, err
	}

	signer, err := a.loadSigner(ctx.Flags)
	if err != nil {
		return lock.Client{}, err
	}

	mgr := signed.NewManager(signer, srvc)

	err = mgr.Sync()
	if err != nil {
		return lock.Client{}, xerrors.Errorf("failed to sync manager: %v", err)
	}

	return lock.NewClient(srvc, mgr, signer, contract), nil
}

// readClient returns a client that only reads the state, and the owner
// either from the flag or the signer.
func (a action) readClient(ctx node.Context) (lock.Client, crypto.PublicKey, error) {
	srvc, contract, err := a.resolve(ctx)
	if err != nil {
		return lock.Client{}, nil, err
	}

	client := lock.NewClient(srvc, nil, nil, contract)

	text := ctx.Flags.String(flagOwner)
	if text != "" {
		data, err := hex.DecodeString(text)
		if err != nil {
			return lock.Client{}, nil, xerrors.Errorf("invalid owner: %v", err)
		}

		owner, err := ed25519.NewPublicKey(data)
		if err != nil {
			return lock.Client{}, nil, xerrors.Errorf("invalid owner: %v", err)
		}

		return client, owner, nil
	}

	signer, err := a.loadSigner(ctx.Flags)
	if err != nil {
		return lock.Client{}, nil, err
	}

	return client, signer.GetPublicKey(), nil
}

// initAction creates the ledger account of the signer.
//
// - implements node.ActionTemplate
type initAction struct {
	action
}

// Execute implements node.ActionTemplate.
func (a initAction) Execute(ctx node.Context) error {
	client, err := a.makeClient(ctx)
	if err != nil {
		return err
	}

	receipt, err := client.Initialize(context.Background())
	if err != nil {
		return xerrors.Errorf("failed to initialize: %w", err)
	}

	printReceipt(ctx.Out, receipt)

	return nil
}

// lockAction locks an amount for the signer.
//
// - implements node.ActionTemplate
type lockAction struct {
	action
}

// Execute implements node.ActionTemplate.
func (a lockAction) Execute(ctx node.Context) error {
	client, err := a.makeClient(ctx)
	if err != nil {
		return err
	}

	receipt, err := client.Lock(context.Background(), ctx.Flags.Uint64(flagAmount))
	if err != nil {
		return xerrors.Errorf("failed to lock: %w", err)
	}

	printReceipt(ctx.Out, receipt)

	return nil
}

// unlockAction unlocks an amount from an entry of the signer.
//
// - implements node.ActionTemplate
type unlockAction struct {
	action
}

// Execute implements node.ActionTemplate.
func (a unlockAction) Execute(ctx node.Context) error {
	index := ctx.Flags.Int(flagIndex)
	if index < 0 {
		return xerrors.Errorf("negative index %d: %w", index, lock.ErrInvalidIndex)
	}

	client, err := a.makeClient(ctx)
	if err != nil {
		return err
	}

	receipt, err := client.Unlock(context.Background(), index, ctx.Flags.Uint64(flagAmount))
	if err != nil {
		return xerrors.Errorf("failed to unlock: %w", err)
	}

	printReceipt(ctx.Out, receipt)

	return nil
}

// showAction prints the ledger account of an owner.
//
// - implements node.ActionTemplate
type showAction struct {
	action
}

// Execute implements node.ActionTemplate.
func (a showAction) Execute(ctx node.Context) error {
	client, owner, err := a.readClient(ctx)
	if err != nil {
		return err
	}

	account, err := client.Query(owner)
	if err != nil {
		return err
	}

	addr, err := client.Address(owner)
	if err != nil {
		return err
	}

	custody, err := client.Custody(owner)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "address: %v\n", addr)
	fmt.Fprintf(ctx.Out, "custody: %d\n", custody)
	printLedger(ctx.Out, account)

	return nil
}

// addressAction prints the address of the ledger account of an owner.
//
// - implements node.ActionTemplate
type addressAction struct {
	action
}

// Execute implements node.ActionTemplate.
func (a addressAction) Execute(ctx node.Context) error {
	client, owner, err := a.readClient(ctx)
	if err != nil {
		return err
	}

	addr, err := client.Address(owner)
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.Out, addr)

	return nil
}

// totalAction prints the amount locked in every account.
//
// - implements node.ActionTemplate
type totalAction struct {
	action
}

// Execute implements node.ActionTemplate.
func (a totalAction) Execute(ctx node.Context) error {
	srvc, contract, err := a.resolve(ctx)
	if err != nil {
		return err
	}

	total, err := lock.NewClient(srvc, nil, nil, contract).TotalLocked()
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "%d\n", total)

	return nil
}

func printReceipt(out io.Writer, receipt lock.Receipt) {
	fmt.Fprintf(out, "transaction %x accepted\n", receipt.TxID)
	fmt.Fprintf(out, "balance: %d -> %d\n", receipt.BalanceBefore, receipt.BalanceAfter)
	printLedger(out, receipt.Ledger)
}

// printLedger prints the number of used slots followed by the entries that
// still hold tokens. Emptied entries keep their slot but are not listed.
func printLedger(out io.Writer, account lock.LedgerAccount) {
	fmt.Fprintf(out, "entries: %d/%d\n", account.Len(), account.GetCapacity())

	for _, entry := range account.Active() {
		ts := time.Unix(entry.Timestamp, 0).UTC().Format(time.RFC3339)

		fmt.Fprintf(out, "[%d] %d at %s\n", entry.Index, entry.Amount, ts)
	}
}
