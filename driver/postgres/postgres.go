// driver/postgres/postgres.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/driver/sqlbase"
)

// Config holds the PostgreSQL connection parameters. DSN, when set, is used
// as is and the discrete fields are ignored.
type Config struct {
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"sslmode" yaml:"sslmode"` // disable, require, verify-full
	// Extra query-string parameters, e.g. application_name.
	Params map[string]string `json:"params" yaml:"params"`
	Pool   sqlbase.Pool      `json:"pool" yaml:"pool"`
}

// GetType implements ormgraph.DriverTyper.
func (c Config) GetType() ormgraph.DriverType { return ormgraph.Postgres }

var (
	_ ormgraph.DataSource  = (*DataSource)(nil)
	_ ormgraph.DriverTyper = Config{}
)

// DataSource is the PostgreSQL implementation of ormgraph.DataSource, backed
// by pgx through database/sql.
type DataSource struct {
	*sqlbase.Base
	config Config
}

func init() {
	ormgraph.RegisterDriver(ormgraph.Postgres, func() ormgraph.DataSource { return NewDataSource() })
}

// NewDataSource returns an unconnected PostgreSQL data source.
func NewDataSource() *DataSource {
	return &DataSource{Base: sqlbase.NewBase(Dialect{})}
}

// ConnString returns the postgresql:// URL for c.
func (c Config) ConnString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Host == "" || c.Username == "" || c.Database == "" {
		return "", errors.New("postgres: Host, Username and Database are required in config")
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	dsn := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, port),
		Path:   c.Database,
	}
	query := dsn.Query()
	if c.SSLMode != "" {
		query.Set("sslmode", c.SSLMode)
	} else {
		query.Set("sslmode", "disable")
	}
	for k, v := range c.Params {
		query.Set(k, v)
	}
	dsn.RawQuery = query.Encode()
	return dsn.String(), nil
}

// Connect implements ormgraph.DataSource. The connection is verified with a
// ping before Connect returns.
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
		return fmt.Errorf("postgres: invalid configuration %T, expected postgres.Config", cfg)
	}
	dsn, err := s.config.ConnString()
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres: failed to prepare connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	s.config.Pool.Apply(db)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("postgres: failed to verify connection (%s:%d): %w", s.config.Host, s.config.Port, err)
	}
	if err := s.Attach(db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// GetDriverType implements ormgraph.DataSource.
func (s *DataSource) GetDriverType() ormgraph.DriverType { return ormgraph.Postgres }
