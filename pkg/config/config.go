// pkg/config/config.go
package config

import "time"

// PoolConfig holds connection-pool settings.
type PoolConfig struct {
	MaxIdleConns    int           `mapstructure:"maxIdleConns"    validate:"gte=0"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // e.g. "1h", "30m"
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"`
}

// DatabaseConfig selects the driver and the database it connects to.
type DatabaseConfig struct {
	Dialect string     `mapstructure:"dialect" validate:"required,oneof=sqlite postgres mysql sqlserver"`
	DSN     string     `mapstructure:"dsn"     validate:"required"` // driver-specific; a file path for sqlite
	Pool    PoolConfig `mapstructure:"pool"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// SchemaConfig points at the declarative model file.
type SchemaConfig struct {
	File string `mapstructure:"file"`
}

// Config aggregates every setting.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Schema   SchemaConfig   `mapstructure:"schema"`
}

// NewDefaultConfig returns the defaults. Dialect and DSN have none.
func NewDefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Pool: PoolConfig{
				MaxIdleConns:    5,
				MaxOpenConns:    10,
				ConnMaxLifetime: time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Schema: SchemaConfig{
			File: "models.yaml",
		},
	}
}
