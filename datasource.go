package ormgraph

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DriverType names a storage driver.
type DriverType string

const (
	MySQL     DriverType = "mysql"
	Postgres  DriverType = "postgres"
	SQLite    DriverType = "sqlite"
	SQLServer DriverType = "sqlserver"
)

// Config is a driver-specific configuration struct. Each driver package
// defines its own and makes it implement DriverTyper so Connect can find the
// driver.
type Config interface{}

// DriverTyper is implemented by driver configs.
type DriverTyper interface {
	GetType() DriverType
}

// Row is one flat result row keyed by qualified column name ("t1.name").
type Row map[string]any

// InsertStatement is the abstract form of a single-row insert.
type InsertStatement struct {
	Table   string
	Columns []string
	Values  []any
	// Returning names the generated key column to hand back, if any.
	Returning string
}

// DataSource is the storage-driver collaborator. It executes plans built by
// the query layer and returns flat rows; it owns connections, transactions
// and the SQL dialect.
type DataSource interface {
	// Connect opens the connection described by cfg.
	Connect(cfg Config) error
	Close() error
	Ping(ctx context.Context) error
	GetDriverType() DriverType

	// Fetch runs the join described by plan. Row keys are PlanNode.Key values.
	Fetch(ctx context.Context, plan *Plan) ([]Row, error)

	// Insert stores one row and returns the generated key when the statement
	// asks for one (nil otherwise).
	Insert(ctx context.Context, stmt InsertStatement) (any, error)
}

// DriverFactory creates an unconnected DataSource.
type DriverFactory func() DataSource

var (
	driversMu sync.RWMutex
	drivers   = make(map[DriverType]DriverFactory)
)

// RegisterDriver makes a driver available to Connect. Driver packages call
// it from init; registering the same type twice panics.
func RegisterDriver(name DriverType, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if factory == nil {
		panic("ormgraph: RegisterDriver factory is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("ormgraph: RegisterDriver called twice for driver " + string(name))
	}
	drivers[name] = factory
}

// Drivers returns the registered driver types, sorted.
func Drivers() []DriverType {
	driversMu.RLock()
	defer driversMu.RUnlock()
	out := make([]DriverType, 0, len(drivers))
	for name := range drivers {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Connect creates a DataSource for cfg's driver and connects it. The driver
// package must be imported (usually for side effects) so it is registered.
func Connect(cfg Config) (DataSource, error) {
	typer, ok := cfg.(DriverTyper)
	if !ok {
		return nil, fmt.Errorf("ormgraph.Connect: config %T does not implement DriverTyper", cfg)
	}
	name := typer.GetType()

	driversMu.RLock()
	factory, found := drivers[name]
	driversMu.RUnlock()
	if !found {
		return nil, fmt.Errorf("ormgraph.Connect: driver %q is not registered (forgot to import it?)", name)
	}

	ds := factory()
	if err := ds.Connect(cfg); err != nil {
		return nil, fmt.Errorf("ormgraph.Connect: %s: %w", name, err)
	}
	return ds, nil
}
