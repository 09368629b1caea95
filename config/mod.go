// Package config defines the configuration of the tokenlock application.
//
// The configuration is read from an optional YAML file in the configuration
// folder. Flags that are explicitly set on the command line override the
// values of the file, and the defaults apply when neither is set.
package config

import (
	"os"
	"path/filepath"

	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/pda"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

const (
	// FileName is the name of the configuration file in the configuration
	// folder.
	FileName = "tokenlock.yaml"

	// StoreBolt is the name of the bbolt database backend.
	StoreBolt = "bolt"

	// StoreSQLite is the name of the SQLite database backend.
	StoreSQLite = "sqlite"

	// FlagStore is the name of the flag that overrides the store.
	FlagStore = "store"

	// FlagCapacity is the name of the flag that overrides the capacity.
	FlagCapacity = "capacity"

	// FlagTag is the name of the flag that overrides the tag.
	FlagTag = "tag"

	// FlagHash is the name of the flag that overrides the hash algorithm.
	FlagHash = "hash"

	// FlagAirdropLimit is the name of the flag that overrides the airdrop
	// limit.
	FlagAirdropLimit = "airdrop-limit"
)

// Config is the configuration of the application.
type Config struct {
	Store        string `yaml:"store"`
	Capacity     int    `yaml:"capacity"`
	Tag          string `yaml:"tag"`
	Hash         string `yaml:"hash"`
	AirdropLimit uint64 `yaml:"airdrop_limit"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Store:        StoreBolt,
		Capacity:     32,
		Tag:          "_",
		Hash:         "sha256",
		AirdropLimit: 2_000_000_000,
	}
}

// Load returns the configuration of the file in the folder on top of the
// defaults. A missing file is not an error.
func Load(dir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return cfg, nil
	}

	if err != nil {
		return cfg, xerrors.Errorf("failed to read file: %v", err)
	}

	err = yaml.UnmarshalStrict(data, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	return cfg, nil
}

// Save writes the configuration to the file in the folder.
func (c Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return xerrors.Errorf("failed to marshal: %v", err)
	}

	err = os.WriteFile(filepath.Join(dir, FileName), data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write file: %v", err)
	}

	return nil
}

// Override returns the configuration with the values of the flags that are
// explicitly set.
func (c Config) Override(flags cli.Flags) Config {
	if flags.IsSet(FlagStore) {
		c.Store = flags.String(FlagStore)
	}

	if flags.IsSet(FlagCapacity) {
		c.Capacity = flags.Int(FlagCapacity)
	}

	if flags.IsSet(FlagTag) {
		c.Tag = flags.String(FlagTag)
	}

	if flags.IsSet(FlagHash) {
		c.Hash = flags.String(FlagHash)
	}

	if flags.IsSet(FlagAirdropLimit) {
		c.AirdropLimit = flags.Uint64(FlagAirdropLimit)
	}

	return c
}

// Validate returns an error if a value of the configuration is not supported.
func (c Config) Validate() error {
	switch c.Store {
	case StoreBolt, StoreSQLite:
	default:
		return xerrors.Errorf("unknown store '%s'", c.Store)
	}

	if c.Capacity <= 0 {
		return xerrors.Errorf("capacity must be positive: %d", c.Capacity)
	}

	alg, err := crypto.ParseHashAlgorithm(c.Hash)
	if err != nil {
		return xerrors.Errorf("invalid hash: %v", err)
	}

	size := crypto.NewHashFactory(alg).New().Size()
	if size != pda.AddressSize {
		return xerrors.Errorf("invalid hash: digest of %s has %d bytes, expected %d",
			c.Hash, size, pda.AddressSize)
	}

	if len(c.Tag) > pda.MaxSeedLength {
		return xerrors.Errorf("tag is too long: %d > %d", len(c.Tag), pda.MaxSeedLength)
	}

	return nil
}

// Flags returns the definitions of the flags that override the
// configuration.
func Flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  FlagStore,
			Usage: "database backend: bolt or sqlite",
		},
		cli.IntFlag{
			Name:  FlagCapacity,
			Usage: "maximum number of entries of a new ledger account",
		},
		cli.StringFlag{
			Name:  FlagTag,
			Usage: "tag of the derivation of the ledger addresses",
		},
		cli.StringFlag{
			Name:  FlagHash,
			Usage: "hash algorithm of the derivation: sha256 or sha3-256",
		},
		cli.Uint64Flag{
			Name:  FlagAirdropLimit,
			Usage: "maximum amount of a single airdrop",
		},
	}
}
