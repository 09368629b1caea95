// Package controller implements a CLI initializer that opens the database of
// the config folder.
package controller

import (
	"path/filepath"

	"go.dedis.ch/tokenlock/cli"
	"go.dedis.ch/tokenlock/cli/node"
	"go.dedis.ch/tokenlock/config"
	"go.dedis.ch/tokenlock/core/store/kv"
	"go.dedis.ch/tokenlock/core/store/kv/sqlite"
	"golang.org/x/xerrors"
)

const (
	// BoltFile is the name of the bbolt database in the config folder.
	BoltFile = "tokenlock.db"

	// SQLiteFile is the name of the SQLite database in the config folder.
	SQLiteFile = "tokenlock.sqlite"
)

// minimal is a CLI initializer that injects the database.
//
// - implements node.Initializer
type minimal struct{}

// NewMinimal returns a new initializer of the database.
func NewMinimal() node.Initializer {
	return minimal{}
}

// SetCommands implements node.Initializer.
func (m minimal) SetCommands(builder node.Builder) {}

// OnStart implements node.Initializer. It opens the database of the store of
// the configuration.
func (m minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	var cfg config.Config
	err := inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	dir := flags.Path(node.FlagConfig)

	var db kv.DB

	switch cfg.Store {
	case config.StoreSQLite:
		db, err = sqlite.New(filepath.Join(dir, SQLiteFile))
	default:
		db, err = kv.New(filepath.Join(dir, BoltFile))
	}

	if err != nil {
		return xerrors.Errorf("db: %v", err)
	}

	inj.Inject(db)

	return nil
}

// OnStop implements node.Initializer. It closes the database.
func (m minimal) OnStop(inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("while closing db: %v", err)
	}

	return nil
}
