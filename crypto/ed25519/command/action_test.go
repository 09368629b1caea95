package command

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/testing/fake"
)

func TestAction_NewSigner(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "config")
	out := new(bytes.Buffer)

	action := action{
		printer:    out,
		loadSigner: LoadSigner,
		remove:     os.Remove,
	}

	flags := node.FlagSet{node.FlagConfig: dir}

	err := action.newSignerAction(flags)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, KeyFile))
	require.Regexp(t, "^schnorr:[0-9a-f]{64}\n$", out.String())

	signer, err := LoadSigner(flags)
	require.NoError(t, err)

	err = action.newSignerAction(flags)
	require.EqualError(t, err, "file '"+filepath.Join(dir, KeyFile)+
		"' already exist, use --force if you want to overwrite")

	flags["force"] = true

	action.remove = func(string) error { return fake.GetError() }

	err = action.newSignerAction(flags)
	require.EqualError(t, err, fake.Err("failed to remove file"))

	action.remove = os.Remove

	err = action.newSignerAction(flags)
	require.NoError(t, err)

	other, err := LoadSigner(flags)
	require.NoError(t, err)
	require.False(t, signer.GetPublicKey().Equal(other.GetPublicKey()))
}

func TestAction_Show(t *testing.T) {
	out := new(bytes.Buffer)

	action := action{
		printer: out,
		loadSigner: func(cli.Flags) (crypto.Signer, error) {
			return nil, fake.GetError()
		},
	}

	err := action.showAction(node.FlagSet{})
	require.EqualError(t, err, fake.GetError().Error())

	action.loadSigner = func(cli.Flags) (crypto.Signer, error) {
		return fake.NewSigner(), nil
	}

	err = action.showAction(node.FlagSet{"format": Pubkey})
	require.NoError(t, err)
	require.Equal(t, "fake.PublicKey\n", out.String())

	out.Reset()

	err = action.showAction(node.FlagSet{"format": Hex})
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString([]byte("PK"))+"\n", out.String())

	err = action.showAction(node.FlagSet{"format": "BASE64"})
	require.EqualError(t, err, "unknown format 'BASE64'")

	err = action.print(fake.NewBadPublicKey(), Pubkey)
	require.EqualError(t, err, fake.Err("failed to marshal pubkey"))

	err = action.print(fake.NewBadPublicKey(), Hex)
	require.EqualError(t, err, fake.Err("failed to marshal pubkey"))
}

func TestLoadSigner(t *testing.T) {
	_, err := LoadSigner(node.FlagSet{node.FlagConfig: t.TempDir()})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no signer, use 'keys new' (failed to load signer: ")
}

func TestInitializer(t *testing.T) {
	init := Initializer{}

	builder := node.NewBuilder(init)
	require.NotNil(t, builder.Build())

	require.NoError(t, init.OnStart(node.FlagSet{}, nil))
	require.NoError(t, init.OnStop(nil))
}
