package controller

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/contracts/bank"
	"go.dedis.ch/tokenlock/core/ordering/serial"
	"go.dedis.ch/tokenlock/core/txn/signed"
	"go.dedis.ch/tokenlock/crypto"
	"golang.org/x/xerrors"
)

// airdropAction credits the signer.
//
// - implements node.ActionTemplate
type airdropAction struct {
	loadSigner func(cli.Flags) (crypto.Signer, error)
}

// Execute implements node.ActionTemplate.
func (a airdropAction) Execute(ctx node.Context) error {
	var srvc *serial.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	signer, err := a.loadSigner(ctx.Flags)
	if err != nil {
		return err
	}

	mgr := signed.NewManager(signer, srvc)

	err = mgr.Sync()
	if err != nil {
		return xerrors.Errorf("failed to sync manager: %v", err)
	}

	receipt, err := bank.NewClient(srvc, mgr).Airdrop(context.Background(), ctx.Flags.Uint64("amount"))
	if err != nil {
		return xerrors.Errorf("failed to airdrop: %w", err)
	}

	fmt.Fprintf(ctx.Out, "transaction %x accepted\n", receipt.TxID)

	return nil
}

// balanceAction prints the balance of an account.
//
// - implements node.ActionTemplate
type balanceAction struct {
	loadSigner func(cli.Flags) (crypto.Signer, error)
}

// Execute implements node.ActionTemplate.
func (a balanceAction) Execute(ctx node.Context) error {
	var srvc *serial.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var account []byte

	if ctx.Flags.String("account") != "" {
		account, err = hex.DecodeString(ctx.Flags.String("account"))
		if err != nil {
			return xerrors.Errorf("invalid account: %v", err)
		}
	} else {
		signer, err := a.loadSigner(ctx.Flags)
		if err != nil {
			return err
		}

		account, err = signer.GetPublicKey().MarshalBinary()
		if err != nil {
			return xerrors.Errorf("failed to marshal public key: %v", err)
		}
	}

	// The balance is read without a manager as nothing is submitted.
	balance, err := bank.NewClient(srvc, nil).Balance(account)
	if err != nil {
		return xerrors.Errorf("failed to read balance: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%d\n", balance)

	return nil
}
