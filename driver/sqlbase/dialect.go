// Package sqlbase compiles join plans to SQL and executes them through
// database/sql. Concrete drivers supply a Dialect and open the *sql.DB.
package sqlbase

import (
	"database/sql"
	"strings"
	"time"

	"github.com/chmenegatti/ormgraph/metadata"
)

// Dialect captures the syntax and type differences between SQL databases.
type Dialect interface {
	// Name is the dialect name, e.g. "postgres".
	Name() string

	// Quote wraps an identifier (table, column, alias) in the dialect's quotes.
	Quote(identifier string) string

	// BindVar returns the placeholder for the i-th parameter (1-based).
	BindVar(i int) string

	// ColumnType maps an abstract column type to the dialect's SQL type.
	ColumnType(ct metadata.ColumnType) (string, error)

	// AutoIncrementColumn renders the complete definition of an
	// autoincrement primary-key column, name included.
	AutoIncrementColumn(f *metadata.Field) (string, error)

	// BoolLiteral renders a boolean constant for DEFAULT clauses.
	BoolLiteral(b bool) string

	// CreateTable wraps a rendered column list in the dialect's CREATE TABLE
	// statement, skipping existing tables where the dialect allows it.
	CreateTable(table, body string) string

	// CreateIndex returns the statement creating a non-unique index.
	CreateIndex(name, table, column string) string

	// Insert returns the single-row insert statement. When returning is set
	// and scansKey is true the statement yields the generated key as a row;
	// otherwise the key is read from sql.Result.LastInsertId.
	Insert(table string, columns []string, returning string) (query string, scansKey bool)

	// LikeEscape is appended after a LIKE pattern, e.g. ` ESCAPE '\'`.
	LikeEscape() string
}

// Decoder is implemented by dialects whose driver returns values that need
// more than the generic conversion (for example byte-swapped GUIDs).
type Decoder interface {
	// Decode converts a raw value for f. ok is false when the generic
	// conversion should be used instead.
	Decode(f *metadata.Field, raw any) (value any, ok bool, err error)
}

// Pool holds the connection-pool settings applied after sql.Open.
type Pool struct {
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime" yaml:"connMaxIdleTime"`
}

// Apply sets the non-zero settings on db.
func (p Pool) Apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
	if p.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(p.ConnMaxIdleTime)
	}
}

// QuoteWith doubles any right quote inside identifier and wraps it.
func QuoteWith(left, right, identifier string) string {
	return left + strings.ReplaceAll(identifier, right, right+right) + right
}

// ColumnList quotes and joins column names.
func ColumnList(d Dialect, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

// ValuesList renders n placeholders starting at parameter 1.
func ValuesList(d Dialect, n int) string {
	binds := make([]string, n)
	for i := range binds {
		binds[i] = d.BindVar(i + 1)
	}
	return strings.Join(binds, ", ")
}
