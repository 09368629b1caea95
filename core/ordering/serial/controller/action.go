package controller

import (
	"encoding/hex"
	"fmt"

	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/core/ordering/serial"
	"golang.org/x/xerrors"
)

// showTxAction prints the nonce, the identity and the arguments of a
// transaction.
//
// - implements node.ActionTemplate
type showTxAction struct{}

// Execute implements node.ActionTemplate.
func (showTxAction) Execute(ctx node.Context) error {
	var srvc *serial.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	id, err := hex.DecodeString(ctx.Flags.String("id"))
	if err != nil {
		return xerrors.Errorf("invalid id: %v", err)
	}

	tx, err := srvc.GetTransaction(id)
	if err != nil {
		return xerrors.Errorf("failed to get transaction: %v", err)
	}

	ident, err := tx.GetIdentity().MarshalText()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	fmt.Fprintf(ctx.Out, "id: %x\nnonce: %d\nidentity: %s\n", tx.GetID(), tx.GetNonce(), ident)

	args, ok := tx.(interface{ GetArgs() []string })
	if ok {
		for _, key := range args.GetArgs() {
			fmt.Fprintf(ctx.Out, "%s: %x\n", key, tx.GetArg(key))
		}
	}

	return nil
}
