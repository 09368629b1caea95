// Package controller implements a CLI initializer that registers the lock
// contract and defines the commands to manage a ledger account.
package controller

import (
	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/config"
	"go.dedis.ch/tokenlock/contracts/lock"
	"go.dedis.ch/tokenlock/core/access"
	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/ed25519/command"
	"go.dedis.ch/tokenlock/crypto/pda"
	"golang.org/x/xerrors"
)

const (
	flagOwner  = "owner"
	flagAmount = "amount"
	flagIndex  = "index"
)

// miniController is a CLI initializer to register the lock contract.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new minimal controller for the lock contract.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer.
func (miniController) SetCommands(builder node.Builder) {
	base := action{loadSigner: command.LoadSigner}

	ownerFlag := cli.StringFlag{
		Name:  flagOwner,
		Usage: "hexadecimal public key of the owner, the signer by default",
	}

	cmd := builder.SetCommand("ledger")
	cmd.SetDescription("manage the ledger account of the signer")

	sub := cmd.SetSubCommand("init")
	sub.SetDescription("create the ledger account")
	sub.SetAction(builder.MakeAction(initAction{base}))

	sub = cmd.SetSubCommand("lock")
	sub.SetDescription("lock an amount in a new entry")
	sub.SetFlags(cli.Uint64Flag{
		Name:     flagAmount,
		Usage:    "amount in the smallest unit",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(lockAction{base}))

	sub = cmd.SetSubCommand("unlock")
	sub.SetDescription("unlock an amount from an entry")
	sub.SetFlags(
		cli.IntFlag{
			Name:     flagIndex,
			Usage:    "index of the entry",
			Required: true,
		},
		cli.Uint64Flag{
			Name:     flagAmount,
			Usage:    "amount in the smallest unit",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(unlockAction{base}))

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print the entries of a ledger account")
	sub.SetFlags(ownerFlag)
	sub.SetAction(builder.MakeAction(showAction{base}))

	sub = cmd.SetSubCommand("address")
	sub.SetDescription("print the address of a ledger account")
	sub.SetFlags(ownerFlag)
	sub.SetAction(builder.MakeAction(addressAction{base}))

	sub = cmd.SetSubCommand("total")
	sub.SetDescription("print the amount locked in every account")
	sub.SetAction(builder.MakeAction(totalAction{base}))
}

// OnStart implements node.Initializer. It registers the lock contract
// configured after the configuration and injects it.
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

	contract, err := newContract(cfg)
	if err != nil {
		return err
	}

	lock.RegisterContract(exec, contract)

	inj.Inject(contract)

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(inj node.Injector) error {
	return nil
}

func newContract(cfg config.Config) (lock.Contract, error) {
	alg, err := crypto.ParseHashAlgorithm(cfg.Hash)
	if err != nil {
		return lock.Contract{}, xerrors.Errorf("invalid hash: %v", err)
	}

	deriver := pda.NewDeriver(pda.WithHashFactory(crypto.NewHashFactory(alg)))

	contract := lock.NewContract(access.NewOwnerService(),
		lock.WithCapacity(cfg.Capacity),
		lock.WithTag(cfg.Tag),
		lock.WithDeriver(deriver),
	)

	return contract, nil
}
