// driver/mysql/mysql.go
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/driver/sqlbase"
)

// Config holds the MySQL/MariaDB connection parameters. DSN, when set, is
// used as is and the discrete fields are ignored.
type Config struct {
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"` // default localhost
	Port     int    `json:"port" yaml:"port"` // default 3306
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	// Extra DSN parameters, e.g. loc=UTC.
	Params map[string]string `json:"params" yaml:"params"`
	Pool   sqlbase.Pool      `json:"pool" yaml:"pool"`
}

// GetType implements ormgraph.DriverTyper.
func (c Config) GetType() ormgraph.DriverType { return ormgraph.MySQL }

var (
	_ ormgraph.DataSource  = (*DataSource)(nil)
	_ ormgraph.DriverTyper = Config{}
)

// DataSource is the MySQL/MariaDB implementation of ormgraph.DataSource.
type DataSource struct {
	*sqlbase.Base
	config Config
}

func init() {
	ormgraph.RegisterDriver(ormgraph.MySQL, func() ormgraph.DataSource { return NewDataSource() })
}

// NewDataSource returns an unconnected MySQL data source.
func NewDataSource() *DataSource {
	return &DataSource{Base: sqlbase.NewBase(Dialect{})}
}

// FormatDSN renders c in go-sql-driver/mysql syntax. parseTime is always
// enabled so DATETIME columns scan into time.Time.
func (c Config) FormatDSN() (string, error) {
	if c.DSN != "" {
		parsed, err := gomysql.ParseDSN(c.DSN)
		if err != nil {
			return "", fmt.Errorf("mysql: invalid DSN: %w", err)
		}
		parsed.ParseTime = true
		return parsed.FormatDSN(), nil
	}
	if c.Username == "" || c.Database == "" {
		return "", errors.New("mysql: Username and Database are required in config")
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}

	mc := gomysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", host, port)
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range c.Params {
		mc.Params[k] = v
	}
	return mc.FormatDSN(), nil
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
		return fmt.Errorf("mysql: invalid configuration %T, expected mysql.Config", cfg)
	}
	dsn, err := s.config.FormatDSN()
	if err != nil {
		return err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("mysql: failed to prepare connection: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	s.config.Pool.Apply(db)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("mysql: failed to verify connection: %w", err)
	}
	if err := s.Attach(db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// GetDriverType implements ormgraph.DataSource.
func (s *DataSource) GetDriverType() ormgraph.DriverType { return ormgraph.MySQL }
