package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/crypto/pda"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	writeFile(t, dir, "store: sqlite\ncapacity: 1\n")

	cfg, err = Load(dir)
	require.NoError(t, err)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.Equal(t, 1, cfg.Capacity)
	require.Equal(t, "_", cfg.Tag)
	require.Equal(t, uint64(2_000_000_000), cfg.AirdropLimit)

	writeFile(t, dir, "unknown: 1\n")

	_, err = Load(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal: ")

	_, err = Load(filepath.Join(dir, FileName))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read file: ")
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Tag = "vault"
	cfg.Hash = "sha3-256"

	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	err = cfg.Save(filepath.Join(dir, "unknown"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to write file: ")
}

func TestConfig_Override(t *testing.T) {
	cfg := Default().Override(node.FlagSet{})
	require.Equal(t, Default(), cfg)

	cfg = Default().Override(node.FlagSet{
		FlagStore:        StoreSQLite,
		FlagCapacity:     1,
		FlagTag:          "",
		FlagHash:         "sha3-256",
		FlagAirdropLimit: uint64(5),
	})

	require.Equal(t, Config{
		Store:        StoreSQLite,
		Capacity:     1,
		Tag:          "",
		Hash:         "sha3-256",
		AirdropLimit: 5,
	}, cfg)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, Default().Validate())

	cfg := Default()
	cfg.Store = "mysql"
	require.EqualError(t, cfg.Validate(), "unknown store 'mysql'")

	cfg = Default()
	cfg.Capacity = 0
	require.EqualError(t, cfg.Validate(), "capacity must be positive: 0")

	cfg = Default()
	cfg.Hash = "md5"
	require.EqualError(t, cfg.Validate(), "invalid hash: unknown hash algorithm 'md5'")

	cfg = Default()
	cfg.Hash = "sha3-224"
	require.EqualError(t, cfg.Validate(),
		"invalid hash: digest of sha3-224 has 28 bytes, expected 32")

	cfg = Default()
	cfg.Hash = "sha3-256"
	require.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Tag = strings.Repeat("a", pda.MaxSeedLength)
	require.NoError(t, cfg.Validate())

	cfg.Tag += "a"
	require.EqualError(t, cfg.Validate(), "tag is too long: 33 > 32")
}

func TestFlags(t *testing.T) {
	require.Len(t, Flags(), 5)
}

// -----------------------------------------------------------------------------
// Utility functions

func writeFile(t *testing.T, dir, content string) {
	err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600)
	require.NoError(t, err)
}
