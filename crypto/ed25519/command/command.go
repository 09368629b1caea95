// Package command defines the cli commands to manage the Ed25519 signer of the
// config folder.
package command

import (
	"path/filepath"

	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/loader"
	"golang.org/x/xerrors"
)

// KeyFile is the name of the file of the private key in the config folder.
const KeyFile = "private.key"

// Initializer implements the keys commands.
//
// - implements node.Initializer
type Initializer struct{}

// SetCommands implements node.Initializer.
func (i Initializer) SetCommands(builder node.Builder) {
	action := newAction()

	cmd := builder.SetCommand("keys")
	cmd.SetDescription("manage the signer")

	sub := cmd.SetSubCommand("new")
	sub.SetDescription("create a new signer in the config folder")
	sub.SetFlags(cli.BoolFlag{
		Name:  "force",
		Usage: "overwrite the existing signer",
	})
	sub.SetAction(action.newSignerAction)

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print the public key of the signer")
	sub.SetFlags(cli.StringFlag{
		Name:  "format",
		Usage: "output format: [PUBKEY | HEX]",
		Value: Pubkey,
	})
	sub.SetAction(action.showAction)
}

// OnStart implements node.Initializer.
func (i Initializer) OnStart(cli.Flags, node.Injector) error {
	return nil
}

// OnStop implements node.Initializer.
func (i Initializer) OnStop(node.Injector) error {
	return nil
}

// KeyPath returns the path of the private key in the config folder.
func KeyPath(flags cli.Flags) string {
	return filepath.Join(flags.Path(node.FlagConfig), KeyFile)
}

// LoadSigner returns the signer of the config folder.
func LoadSigner(flags cli.Flags) (crypto.Signer, error) {
	signer, err := loader.LoadSigner(loader.NewFileLoader(KeyPath(flags)), false)
	if err != nil {
		return nil, xerrors.Errorf("no signer, use 'keys new' (%v)", err)
	}

	return signer, nil
}
