package command

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/loader"
	"golang.org/x/xerrors"
)

const (
	// Pubkey is the format of the text form of the public key.
	Pubkey = "PUBKEY"

	// Hex is the format of the hexadecimal binary form of the public key.
	Hex = "HEX"
)

// action defines the different cli actions of the keys commands. Defining
// functions and printer helps in testing the commands.
type action struct {
	printer io.Writer

	loadSigner func(cli.Flags) (crypto.Signer, error)
	remove     func(path string) error
}

func newAction() action {
	return action{
		printer:    os.Stdout,
		loadSigner: LoadSigner,
		remove:     os.Remove,
	}
}

func (a action) newSignerAction(flags cli.Flags) error {
	path := KeyPath(flags)

	if fileExist(path) {
		if !flags.Bool("force") {
			return xerrors.Errorf("file '%s' already exist, use --force if you "+
				"want to overwrite", path)
		}

		err := a.remove(path)
		if err != nil {
			return xerrors.Errorf("failed to remove file: %v", err)
		}
	}

	dir := flags.Path(node.FlagConfig)
	if dir != "" {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			return xerrors.Errorf("couldn't make path: %v", err)
		}
	}

	signer, err := loader.LoadSigner(loader.NewFileLoader(path), true)
	if err != nil {
		return xerrors.Errorf("failed to create signer: %v", err)
	}

	return a.print(signer.GetPublicKey(), Pubkey)
}

func (a action) showAction(flags cli.Flags) error {
	signer, err := a.loadSigner(flags)
	if err != nil {
		return err
	}

	return a.print(signer.GetPublicKey(), flags.String("format"))
}

func (a action) print(pubkey crypto.PublicKey, format string) error {
	var out []byte
	var err error

	switch format {
	case Pubkey:
		out, err = pubkey.MarshalText()
		if err != nil {
			return xerrors.Errorf("failed to marshal pubkey: %v", err)
		}
	case Hex:
		buf, err := pubkey.MarshalBinary()
		if err != nil {
			return xerrors.Errorf("failed to marshal pubkey: %v", err)
		}

		out = []byte(hex.EncodeToString(buf))
	default:
		return xerrors.Errorf("unknown format '%s'", format)
	}

	fmt.Fprintln(a.printer, string(out))

	return nil
}

func fileExist(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
