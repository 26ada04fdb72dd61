package postgres

import (
	"fmt"
	"strconv"

	"github.com/chmenegatti/ormgraph/driver/sqlbase"
	"github.com/chmenegatti/ormgraph/metadata"
)

// Dialect is the PostgreSQL SQL dialect.
type Dialect struct{}

var _ sqlbase.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Quote(identifier string) string { return sqlbase.QuoteWith(`"`, `"`, identifier) }

func (Dialect) BindVar(i int) string { return "$" + strconv.Itoa(i) }

func (Dialect) ColumnType(ct metadata.ColumnType) (string, error) {
	switch ct.Kind {
	case metadata.ColumnVarchar:
		return fmt.Sprintf("VARCHAR(%d)", ct.Length), nil
	case metadata.ColumnText:
		return "TEXT", nil
	case metadata.ColumnInteger:
		return "INTEGER", nil
	case metadata.ColumnBigInteger:
		return "BIGINT", nil
	case metadata.ColumnFloat:
		return "DOUBLE PRECISION", nil
	case metadata.ColumnDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", ct.Precision, ct.Scale), nil
	case metadata.ColumnBoolean:
		return "BOOLEAN", nil
	case metadata.ColumnDateTime:
		return "TIMESTAMPTZ", nil
	case metadata.ColumnDate:
		return "DATE", nil
	case metadata.ColumnTime:
		return "TIME", nil
	case metadata.ColumnJSON:
		return "JSONB", nil
	case metadata.ColumnUUID:
		return "UUID", nil
	}
	return "", fmt.Errorf("postgres: unsupported column type %s", ct)
}

func (d Dialect) AutoIncrementColumn(f *metadata.Field) (string, error) {
	serial := "SERIAL"
	if f.ColumnType.Kind == metadata.ColumnBigInteger {
		serial = "BIGSERIAL"
	}
	return d.Quote(f.Column) + " " + serial + " PRIMARY KEY", nil
}

func (Dialect) BoolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (d Dialect) CreateTable(table, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", d.Quote(table), body)
}

func (d Dialect) CreateIndex(name, table, column string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", d.Quote(name), d.Quote(table), d.Quote(column))
}

// Insert appends RETURNING so the generated key comes back as a row.
func (d Dialect) Insert(table string, columns []string, returning string) (string, bool) {
	var query string
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", d.Quote(table))
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			d.Quote(table), sqlbase.ColumnList(d, columns), sqlbase.ValuesList(d, len(columns)))
	}
	if returning == "" {
		return query, false
	}
	return query + " RETURNING " + d.Quote(returning), true
}

func (Dialect) LikeEscape() string { return ` ESCAPE '\'` }
