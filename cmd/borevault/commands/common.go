// Package commands holds the CLI subcommands.
package commands

import (
	"context"
	"fmt"

	"github.com/strataworks/borevault/internal/config"
	"github.com/strataworks/borevault/internal/engine"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/observability"
	"github.com/strataworks/borevault/internal/versioned"
)

// CLI is the root command definition.
type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:""`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve  ServeCmd  `cmd:"" help:"Run the storage daemon: upload consumer, inbox watcher, scheduled sweep, metrics"`
	Ingest IngestCmd `cmd:"" help:"Bulk-load a CSV file into a table or versioned record"`
	Parse  ParseCmd  `cmd:"" help:"Parse a borelog document and print the extracted strata"`
	Sweep  SweepCmd  `cmd:"" help:"Check record layout integrity and report findings"`
	Call   CallCmd   `cmd:"" help:"Send one request envelope to the dispatcher and print the response"`
	Legacy LegacyCmd `cmd:"" help:"Operate on the pre-records borelog layout"`
}

// loadConfig loads the configuration and installs logging for a subcommand.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if root.Verbose {
		cfg.Logging.Level = "debug"
	}
	observability.SetupLogging(cfg.Logging)
	return cfg, nil
}

// openStore builds the object store backend selected by the config.
func openStore(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (objectstore.Store, error) {
	var store objectstore.Store
	var backend string
	var err error
	switch cfg.Storage.Mode {
	case config.StorageModeS3:
		backend = "s3"
		store, err = objectstore.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.AWSRegion)
	case config.StorageModeLocal:
		backend = "fs"
		store, err = objectstore.NewFSStore(cfg.Storage.LocalRoot)
	case config.StorageModeMock:
		backend = "mock"
		store = objectstore.NewMockStore()
	default:
		err = fmt.Errorf("unknown storage mode %q", cfg.Storage.Mode)
	}
	if err != nil {
		return nil, err
	}
	return objectstore.WithMetrics(store, backend, metrics), nil
}

// openStorage builds the engine and versioned storage over the store.
func openStorage(store objectstore.Store, cfg *config.Config, metrics *observability.Metrics) (*engine.Engine, *versioned.Storage) {
	eng := engine.New(store, cfg.Storage.BasePath, metrics)
	return eng, versioned.New(eng)
}
