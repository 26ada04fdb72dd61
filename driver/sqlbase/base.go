package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/metadata"
)

// ErrNotConnected is returned by Base methods called before Attach or after Close.
var ErrNotConnected = errors.New("sqlbase: connection not established")

// Base implements the query side of ormgraph.DataSource on a *sql.DB.
// Drivers embed it and add Connect and GetDriverType.
type Base struct {
	dialect Dialect
	logger  *slog.Logger

	connMu sync.RWMutex
	db     *sql.DB
}

// NewBase returns an unconnected Base for dialect d.
func NewBase(d Dialect) *Base {
	return &Base{dialect: d}
}

// Dialect returns the SQL dialect used to compile statements.
func (b *Base) Dialect() Dialect { return b.dialect }

// SetLogger replaces the logger; nil restores slog.Default().
func (b *Base) SetLogger(l *slog.Logger) { b.logger = l }

func (b *Base) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}

// Attach takes ownership of an opened *sql.DB.
func (b *Base) Attach(db *sql.DB) error {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.db != nil {
		return fmt.Errorf("%s: connection already established", b.dialect.Name())
	}
	b.db = db
	b.log().Debug("connection attached", "dialect", b.dialect.Name())
	return nil
}

// DB returns the underlying pool.
func (b *Base) DB() (*sql.DB, error) {
	b.connMu.RLock()
	defer b.connMu.RUnlock()
	if b.db == nil {
		return nil, ErrNotConnected
	}
	return b.db, nil
}

// Close closes the pool.
func (b *Base) Close() error {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.db == nil {
		return ErrNotConnected
	}
	err := b.db.Close()
	b.db = nil
	if err != nil {
		return fmt.Errorf("%s: closing connection: %w", b.dialect.Name(), err)
	}
	b.log().Debug("connection closed", "dialect", b.dialect.Name())
	return nil
}

// Ping verifies the connection.
func (b *Base) Ping(ctx context.Context) error {
	db, err := b.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Fetch compiles plan, runs it and returns the decoded rows.
func (b *Base) Fetch(ctx context.Context, plan *ormgraph.Plan) ([]ormgraph.Row, error) {
	db, err := b.DB()
	if err != nil {
		return nil, err
	}
	query, args, err := Compile(b.dialect, plan)
	if err != nil {
		return nil, err
	}
	b.log().Debug("fetch", "dialect", b.dialect.Name(), "model", plan.Root.Model.Name, "sql", query, "args", len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query %s: %w", b.dialect.Name(), plan.Root.Model.TableName, err)
	}
	return scanRows(b.dialect, plan, rows)
}

// Insert stores one row and returns the generated key when stmt.Returning is set.
func (b *Base) Insert(ctx context.Context, stmt ormgraph.InsertStatement) (any, error) {
	db, err := b.DB()
	if err != nil {
		return nil, err
	}
	if len(stmt.Columns) != len(stmt.Values) {
		return nil, fmt.Errorf("sqlbase: insert into %s: %d columns but %d values", stmt.Table, len(stmt.Columns), len(stmt.Values))
	}
	args := make([]any, len(stmt.Values))
	for i, v := range stmt.Values {
		args[i] = encodeValue(v)
	}
	query, scansKey := b.dialect.Insert(stmt.Table, stmt.Columns, stmt.Returning)
	b.log().Debug("insert", "dialect", b.dialect.Name(), "table", stmt.Table, "sql", query)

	if stmt.Returning != "" && scansKey {
		var id any
		if err := db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: insert into %s: %w", b.dialect.Name(), stmt.Table, err)
		}
		if raw, ok := id.([]byte); ok {
			id = string(raw)
		}
		return id, nil
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: insert into %s: %w", b.dialect.Name(), stmt.Table, err)
	}
	if stmt.Returning == "" {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: insert into %s: reading generated key: %w", b.dialect.Name(), stmt.Table, err)
	}
	return id, nil
}

// CreateTables creates the tables and indexes of every model in reg.
func (b *Base) CreateTables(ctx context.Context, reg *metadata.Registry) error {
	db, err := b.DB()
	if err != nil {
		return err
	}
	stmts, err := SchemaSQL(b.dialect, reg)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		b.log().Debug("ddl", "dialect", b.dialect.Name(), "sql", stmt)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: executing %q: %w", b.dialect.Name(), stmt, err)
		}
	}
	b.log().Info("schema created", "dialect", b.dialect.Name(), "statements", len(stmts))
	return nil
}
