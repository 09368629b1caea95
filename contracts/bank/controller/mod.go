// Package controller implements a CLI initializer that registers the bank
// contract and defines the commands to fund and inspect the accounts.
package controller

import (
	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/config"
	"go.dedis.ch/tokenlock/contracts/bank"
	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/crypto/ed25519/command"
	"golang.org/x/xerrors"
)

// miniController is a CLI initializer to register the bank contract.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new minimal controller for the bank contract.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer.
func (miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("airdrop")
	cmd.SetDescription("credit the signer with new funds")
	cmd.SetFlags(cli.Uint64Flag{
		Name:     "amount",
		Usage:    "amount in the smallest unit",
		Required: true,
	})
	cmd.SetAction(builder.MakeAction(airdropAction{loadSigner: command.LoadSigner}))

	cmd = builder.SetCommand("balance")
	cmd.SetDescription("print the spendable balance of an account")
	cmd.SetFlags(cli.StringFlag{
		Name:  "account",
		Usage: "hexadecimal account, the signer by default",
	})
	cmd.SetAction(builder.MakeAction(balanceAction{loadSigner: command.LoadSigner}))
}

// OnStart implements node.Initializer. It registers the bank contract.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var cfg config.Config
	err := inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("failed to resolve config: %v", err)
	}

	var exec *native.Service
	err = inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	bank.RegisterContract(exec, bank.NewContract(cfg.AirdropLimit))

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(inj node.Injector) error {
	return nil
}
