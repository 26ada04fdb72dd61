// cmd/ormgraph/setup.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/driver/mysql"
	"github.com/chmenegatti/ormgraph/driver/postgres"
	"github.com/chmenegatti/ormgraph/driver/sqlbase"
	"github.com/chmenegatti/ormgraph/driver/sqlite"
	"github.com/chmenegatti/ormgraph/driver/sqlserver"
	"github.com/chmenegatti/ormgraph/metadata"
	"github.com/chmenegatti/ormgraph/pkg/config"
	"github.com/chmenegatti/ormgraph/pkg/logging"
	"github.com/chmenegatti/ormgraph/pkg/schemafile"
)

var dialects = map[string]sqlbase.Dialect{
	"sqlite":    sqlite.Dialect{},
	"postgres":  postgres.Dialect{},
	"mysql":     mysql.Dialect{},
	"sqlserver": sqlserver.Dialect{},
}

func dialectNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dialectFor(name string) (sqlbase.Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q (expected one of %v)", name, dialectNames())
	}
	return d, nil
}

// loadSchema reads the schema named by --schema, falling back to the file
// in the configuration. The configuration is only loaded when needed.
func loadSchema(opts *rootOptions) (*metadata.Registry, error) {
	path := opts.schemaFile
	if path == "" {
		cfg, err := config.LoadConfig(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("error loading configuration: %w", err)
		}
		path = cfg.Schema.File
	}
	return schemafile.Load(path, nil)
}

// schemaDataSource is a connected driver able to create tables.
type schemaDataSource interface {
	ormgraph.DataSource
	SetLogger(*slog.Logger)
	CreateTables(ctx context.Context, reg *metadata.Registry) error
}

// openDataSource connects the driver selected by cfg.Dialect.
func openDataSource(cfg config.DatabaseConfig, logger *slog.Logger) (schemaDataSource, error) {
	pool := sqlbase.Pool{
		MaxOpenConns:    cfg.Pool.MaxOpenConns,
		MaxIdleConns:    cfg.Pool.MaxIdleConns,
		ConnMaxLifetime: cfg.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Pool.ConnMaxIdleTime,
	}

	var (
		ds      schemaDataSource
		options ormgraph.Config
	)
	switch cfg.Dialect {
	case "sqlite":
		ds, options = sqlite.NewDataSource(), sqlite.Config{Database: cfg.DSN, Pool: pool}
	case "postgres":
		ds, options = postgres.NewDataSource(), postgres.Config{DSN: cfg.DSN, Pool: pool}
	case "mysql":
		ds, options = mysql.NewDataSource(), mysql.Config{DSN: cfg.DSN, Pool: pool}
	case "sqlserver":
		ds, options = sqlserver.NewDataSource(), sqlserver.Config{DSN: cfg.DSN, Pool: pool}
	default:
		return nil, fmt.Errorf("unknown dialect %q", cfg.Dialect)
	}
	ds.SetLogger(logger)
	if err := ds.Connect(options); err != nil {
		return nil, err
	}
	return ds, nil
}

func newLogger(w io.Writer, cfg config.LoggingConfig) (*slog.Logger, error) {
	logger, err := logging.New(w, cfg)
	if err != nil {
		return nil, fmt.Errorf("error configuring logging: %w", err)
	}
	return logger, nil
}
