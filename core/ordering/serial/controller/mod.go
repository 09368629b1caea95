// Package controller implements a CLI initializer that starts the serial
// ordering service on top of the database.
package controller

import (
	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/core/ordering/serial"
	"go.dedis.ch/tokenlock/core/store/kv"
	"golang.org/x/xerrors"
)

// minimal is a CLI initializer that injects the native execution service and
// the ordering service. The contracts are registered to the execution service
// by the controllers that follow.
//
// - implements node.Initializer
type minimal struct{}

// NewMinimal returns a new initializer of the ordering service.
func NewMinimal() node.Initializer {
	return minimal{}
}

// SetCommands implements node.Initializer. It defines the command to show a
// transaction.
func (m minimal) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("tx")
	cmd.SetDescription("inspect the transactions")

	sub := cmd.SetSubCommand("show")
	sub.SetDescription("print an accepted transaction")
	sub.SetFlags(cli.StringFlag{
		Name:     "id",
		Usage:    "hexadecimal identifier of the transaction",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(showTxAction{}))
}

// OnStart implements node.Initializer.
func (m minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	exec := native.NewExecution()

	inj.Inject(exec)
	inj.Inject(serial.NewService(db, exec))

	return nil
}

// OnStop implements node.Initializer.
func (m minimal) OnStop(node.Injector) error {
	return nil
}
