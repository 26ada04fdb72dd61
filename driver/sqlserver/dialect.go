package sqlserver

import (
	"fmt"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/google/uuid"

	"github.com/chmenegatti/ormgraph/driver/sqlbase"
	"github.com/chmenegatti/ormgraph/metadata"
)

// Dialect is the Microsoft SQL Server dialect.
type Dialect struct{}

var (
	_ sqlbase.Dialect = Dialect{}
	_ sqlbase.Decoder = Dialect{}
)

func (Dialect) Name() string { return "sqlserver" }

func (Dialect) Quote(identifier string) string { return sqlbase.QuoteWith("[", "]", identifier) }

func (Dialect) BindVar(i int) string { return "@p" + strconv.Itoa(i) }

func (Dialect) ColumnType(ct metadata.ColumnType) (string, error) {
	switch ct.Kind {
	case metadata.ColumnVarchar:
		return fmt.Sprintf("NVARCHAR(%d)", ct.Length), nil
	case metadata.ColumnText, metadata.ColumnJSON:
		return "NVARCHAR(MAX)", nil
	case metadata.ColumnInteger:
		return "INT", nil
	case metadata.ColumnBigInteger:
		return "BIGINT", nil
	case metadata.ColumnFloat:
		return "FLOAT", nil
	case metadata.ColumnDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", ct.Precision, ct.Scale), nil
	case metadata.ColumnBoolean:
		return "BIT", nil
	case metadata.ColumnDateTime:
		return "DATETIME2", nil
	case metadata.ColumnDate:
		return "DATE", nil
	case metadata.ColumnTime:
		return "TIME", nil
	case metadata.ColumnUUID:
		return "UNIQUEIDENTIFIER", nil
	}
	return "", fmt.Errorf("sqlserver: unsupported column type %s", ct)
}

func (d Dialect) AutoIncrementColumn(f *metadata.Field) (string, error) {
	sqlType := "INT"
	if f.ColumnType.Kind == metadata.ColumnBigInteger {
		sqlType = "BIGINT"
	}
	return d.Quote(f.Column) + " " + sqlType + " IDENTITY(1,1) PRIMARY KEY", nil
}

func (Dialect) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func literal(s string) string { return "N'" + strings.ReplaceAll(s, "'", "''") + "'" }

func (d Dialect) CreateTable(table, body string) string {
	return fmt.Sprintf("IF OBJECT_ID(%s, N'U') IS NULL CREATE TABLE %s (\n%s\n)",
		literal(d.Quote(table)), d.Quote(table), body)
}

func (d Dialect) CreateIndex(name, table, column string) string {
	return fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = %s) CREATE INDEX %s ON %s (%s)",
		literal(name), d.Quote(name), d.Quote(table), d.Quote(column))
}

// Insert uses an OUTPUT clause; the driver does not implement LastInsertId.
func (d Dialect) Insert(table string, columns []string, returning string) (string, bool) {
	output := ""
	if returning != "" {
		output = " OUTPUT INSERTED." + d.Quote(returning)
	}
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s%s DEFAULT VALUES", d.Quote(table), output), returning != ""
	}
	return fmt.Sprintf("INSERT INTO %s (%s)%s VALUES (%s)",
		d.Quote(table), sqlbase.ColumnList(d, columns), output, sqlbase.ValuesList(d, len(columns))), returning != ""
}

func (Dialect) LikeEscape() string { return ` ESCAPE '\'` }

// Decode handles UNIQUEIDENTIFIER columns, which the driver returns as
// 16 bytes with the first three groups little-endian.
func (Dialect) Decode(f *metadata.Field, raw any) (any, bool, error) {
	if f.Kind == metadata.KindForeignKey {
		if pk := f.Relation.TargetPK(); pk != nil {
			f = pk
		}
	}
	b, ok := raw.([]byte)
	if f.Kind != metadata.KindUUID || !ok || len(b) != 16 {
		return nil, false, nil
	}
	var id mssql.UniqueIdentifier
	if err := id.Scan(b); err != nil {
		return nil, true, fmt.Errorf("sqlserver: decoding uniqueidentifier: %w", err)
	}
	u, err := uuid.Parse(id.String())
	return u, true, err
}
