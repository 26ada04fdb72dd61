// driver/sqlserver/sqlserver.go
package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/driver/sqlbase"
)

// Config holds the SQL Server connection parameters. DSN, when set, is used
// as is and the discrete fields are ignored.
type Config struct {
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`         // default 1433
	Username string `json:"username" yaml:"username"` // empty for integrated auth
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	// Extra connection-string parameters, e.g. encrypt=disable.
	Params map[string]string `json:"params" yaml:"params"`
	Pool   sqlbase.Pool      `json:"pool" yaml:"pool"`
}

// GetType implements ormgraph.DriverTyper.
func (c Config) GetType() ormgraph.DriverType { return ormgraph.SQLServer }

var (
	_ ormgraph.DataSource  = (*DataSource)(nil)
	_ ormgraph.DriverTyper = Config{}
)

// DataSource is the SQL Server implementation of ormgraph.DataSource.
type DataSource struct {
	*sqlbase.Base
	config Config
}

func init() {
	ormgraph.RegisterDriver(ormgraph.SQLServer, func() ormgraph.DataSource { return NewDataSource() })
}

// NewDataSource returns an unconnected SQL Server data source.
func NewDataSource() *DataSource {
	return &DataSource{Base: sqlbase.NewBase(Dialect{})}
}

// ConnString returns the sqlserver:// URL for c.
func (c Config) ConnString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Host == "" {
		return "", errors.New("sqlserver: Host is required in config")
	}
	port := c.Port
	if port == 0 {
		port = 1433
	}
	connURL := &url.URL{
		Scheme: "sqlserver",
		Host:   fmt.Sprintf("%s:%d", c.Host, port),
	}
	if c.Username != "" {
		if c.Password != "" {
			connURL.User = url.UserPassword(c.Username, c.Password)
		} else {
			connURL.User = url.User(c.Username)
		}
	}
	query := url.Values{}
	if c.Database != "" {
		query.Set("database", c.Database)
	}
	if _, ok := c.Params["encrypt"]; !ok {
		query.Set("encrypt", "disable")
	}
	for k, v := range c.Params {
		query.Set(k, v)
	}
	connURL.RawQuery = query.Encode()
	return connURL.String(), nil
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
		return fmt.Errorf("sqlserver: invalid configuration %T, expected sqlserver.Config", cfg)
	}
	connStr, err := s.config.ConnString()
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("sqlserver: failed to prepare connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	s.config.Pool.Apply(db)

	pingCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("sqlserver: failed to verify connection (%s:%d): %w", s.config.Host, s.config.Port, err)
	}
	if err := s.Attach(db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// GetDriverType implements ormgraph.DataSource.
func (s *DataSource) GetDriverType() ormgraph.DriverType { return ormgraph.SQLServer }
