package sqlite

import (
	"fmt"

	"github.com/chmenegatti/ormgraph/driver/sqlbase"
	"github.com/chmenegatti/ormgraph/metadata"
)

// Dialect is the SQLite SQL dialect.
type Dialect struct{}

var _ sqlbase.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Quote(identifier string) string { return sqlbase.QuoteWith(`"`, `"`, identifier) }

func (Dialect) BindVar(int) string { return "?" }

// ColumnType keeps declared types recognizable to go-sqlite3, which decodes
// DATETIME, DATE and BOOLEAN columns into Go values.
func (Dialect) ColumnType(ct metadata.ColumnType) (string, error) {
	switch ct.Kind {
	case metadata.ColumnVarchar:
		return fmt.Sprintf("VARCHAR(%d)", ct.Length), nil
	case metadata.ColumnText, metadata.ColumnJSON:
		return "TEXT", nil
	case metadata.ColumnInteger:
		return "INTEGER", nil
	case metadata.ColumnBigInteger:
		return "BIGINT", nil
	case metadata.ColumnFloat:
		return "REAL", nil
	case metadata.ColumnDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", ct.Precision, ct.Scale), nil
	case metadata.ColumnBoolean:
		return "BOOLEAN", nil
	case metadata.ColumnDateTime:
		return "DATETIME", nil
	case metadata.ColumnDate:
		return "DATE", nil
	case metadata.ColumnTime:
		return "TIME", nil
	case metadata.ColumnUUID:
		return "CHAR(36)", nil
	}
	return "", fmt.Errorf("sqlite: unsupported column type %s", ct)
}

// AutoIncrementColumn uses a rowid alias, which SQLite only grants to INTEGER keys.
func (d Dialect) AutoIncrementColumn(f *metadata.Field) (string, error) {
	return d.Quote(f.Column) + " INTEGER PRIMARY KEY AUTOINCREMENT", nil
}

func (Dialect) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d Dialect) CreateTable(table, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", d.Quote(table), body)
}

func (d Dialect) CreateIndex(name, table, column string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", d.Quote(name), d.Quote(table), d.Quote(column))
}

func (d Dialect) Insert(table string, columns []string, _ string) (string, bool) {
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", d.Quote(table)), false
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), sqlbase.ColumnList(d, columns), sqlbase.ValuesList(d, len(columns))), false
}

func (Dialect) LikeEscape() string { return ` ESCAPE '\'` }
