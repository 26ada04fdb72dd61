package mysql

import (
	"fmt"

	"github.com/chmenegatti/ormgraph/driver/sqlbase"
	"github.com/chmenegatti/ormgraph/metadata"
)

// Dialect is the MySQL/MariaDB SQL dialect.
type Dialect struct{}

var _ sqlbase.Dialect = Dialect{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) Quote(identifier string) string { return sqlbase.QuoteWith("`", "`", identifier) }

func (Dialect) BindVar(int) string { return "?" }

func (Dialect) ColumnType(ct metadata.ColumnType) (string, error) {
	switch ct.Kind {
	case metadata.ColumnVarchar:
		return fmt.Sprintf("VARCHAR(%d)", ct.Length), nil
	case metadata.ColumnText:
		return "TEXT", nil
	case metadata.ColumnInteger:
		return "INT", nil
	case metadata.ColumnBigInteger:
		return "BIGINT", nil
	case metadata.ColumnFloat:
		return "DOUBLE", nil
	case metadata.ColumnDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", ct.Precision, ct.Scale), nil
	case metadata.ColumnBoolean:
		return "TINYINT(1)", nil
	case metadata.ColumnDateTime:
		return "DATETIME(6)", nil
	case metadata.ColumnDate:
		return "DATE", nil
	case metadata.ColumnTime:
		return "TIME", nil
	case metadata.ColumnJSON:
		return "JSON", nil
	case metadata.ColumnUUID:
		return "CHAR(36)", nil
	}
	return "", fmt.Errorf("mysql: unsupported column type %s", ct)
}

func (d Dialect) AutoIncrementColumn(f *metadata.Field) (string, error) {
	sqlType := "INT"
	if f.ColumnType.Kind == metadata.ColumnBigInteger {
		sqlType = "BIGINT"
	}
	return d.Quote(f.Column) + " " + sqlType + " NOT NULL AUTO_INCREMENT PRIMARY KEY", nil
}

func (Dialect) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d Dialect) CreateTable(table, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", d.Quote(table), body)
}

// CreateIndex has no IF NOT EXISTS form in MySQL.
func (d Dialect) CreateIndex(name, table, column string) string {
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", d.Quote(name), d.Quote(table), d.Quote(column))
}

// Insert relies on LastInsertId for generated keys.
func (d Dialect) Insert(table string, columns []string, _ string) (string, bool) {
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s () VALUES ()", d.Quote(table)), false
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), sqlbase.ColumnList(d, columns), sqlbase.ValuesList(d, len(columns))), false
}

// LikeEscape is empty: backslash is already MySQL's default LIKE escape.
func (Dialect) LikeEscape() string { return "" }
