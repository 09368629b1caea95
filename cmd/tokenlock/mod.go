// Package main implements the tokenlock application on a local database.
//
//  go run mod.go keys new
//  go run mod.go airdrop --amount 2000000000
//  go run mod.go ledger lock --amount 1350000000
//  go run mod.go ledger unlock --index 0 --amount 500000000
//  go run mod.go ledger show
//  go run mod.go --store sqlite --metrics /tmp/tokenlock.prom ledger total
//
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/config"
	bank "go.dedis.ch/tokenlock/contracts/bank/controller"
	lock "go.dedis.ch/tokenlock/contracts/lock/controller"
	serial "go.dedis.ch/tokenlock/core/ordering/serial/controller"
	kv "go.dedis.ch/tokenlock/core/store/kv/controller"
	"go.dedis.ch/tokenlock/crypto/ed25519/command"
)

func main() {
	err := run(os.Args, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	builder := node.NewBuilderWithCfg(out, config.Flags(),
		config.NewController(),
		kv.NewMinimal(),
		serial.NewMinimal(),
		bank.NewController(),
		lock.NewController(),
		command.Initializer{},
	)

	app := builder.Build()

	return app.Run(args)
}
