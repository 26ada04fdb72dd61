// driver/sqlite/sqlite.go
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/driver/sqlbase"
)

// Config describes a SQLite database file.
type Config struct {
	Database string            `json:"database" yaml:"database"`
	Options  map[string]string `json:"options" yaml:"options"` // go-sqlite3 DSN parameters, e.g. _journal=WAL
	Pool     sqlbase.Pool      `json:"pool" yaml:"pool"`
}

// GetType implements ormgraph.DriverTyper.
func (c Config) GetType() ormgraph.DriverType { return ormgraph.SQLite }

var (
	_ ormgraph.DataSource  = (*DataSource)(nil)
	_ ormgraph.DriverTyper = Config{}
)

// DataSource is the SQLite implementation of ormgraph.DataSource.
type DataSource struct {
	*sqlbase.Base
	config Config
}

func init() {
	ormgraph.RegisterDriver(ormgraph.SQLite, func() ormgraph.DataSource { return NewDataSource() })
}

// NewDataSource returns an unconnected SQLite data source.
func NewDataSource() *DataSource {
	return &DataSource{Base: sqlbase.NewBase(Dialect{})}
}

// DSN assembles the go-sqlite3 connection string. Foreign keys are enforced
// and LIKE is case sensitive unless the options say otherwise. A "file:"
// prefix on Database is accepted.
func (c Config) DSN() string {
	params := url.Values{}
	params.Set("_foreign_keys", "true")
	params.Set("_cslike", "true")
	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params.Set(k, c.Options[k])
	}
	return "file:" + strings.TrimPrefix(c.Database, "file:") + "?" + params.Encode()
}

// Connect implements ormgraph.DataSource.
func (s *DataSource) Connect(cfg ormgraph.Config) error {
	var ok bool
	switch c := cfg.(type) {
	case Config:
		s.config, ok = c, true
	case *Config:
		if c != nil {
			s.config, ok = *c, true
		}
	}
	if !ok {
		return fmt.Errorf("sqlite: invalid configuration %T, expected sqlite.Config", cfg)
	}
	if s.config.Database == "" {
		return errors.New("sqlite: database path (Database) cannot be empty in config")
	}

	db, err := sql.Open("sqlite3", s.config.DSN())
	if err != nil {
		return fmt.Errorf("sqlite: failed to prepare connection: %w", err)
	}
	// a single writer avoids SQLITE_BUSY on file databases
	db.SetMaxOpenConns(1)
	s.config.Pool.Apply(db)

	if err := s.Attach(db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// GetDriverType implements ormgraph.DataSource.
func (s *DataSource) GetDriverType() ormgraph.DriverType { return ormgraph.SQLite }
