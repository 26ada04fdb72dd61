package sqlbase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chmenegatti/ormgraph/metadata"
)

// SchemaSQL returns the DDL statements creating every model of reg: one
// CREATE TABLE per model, dependencies first, followed by its indexes.
// Foreign-key constraints are emitted inline when the referenced table is
// created earlier (or is the table itself); references inside a dependency
// cycle stay plain columns.
func SchemaSQL(d Dialect, reg *metadata.Registry) ([]string, error) {
	var (
		stmts   []string
		errs    []error
		created = make(map[*metadata.Model]bool)
	)
	for _, m := range createOrder(reg.Models()) {
		table, err := createTableSQL(d, m, created)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		created[m] = true
		stmts = append(stmts, table)
		stmts = append(stmts, indexSQL(d, m)...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return stmts, nil
}

// CreateTableSQL renders the CREATE TABLE statement of a single model with
// every foreign-key constraint inline.
func CreateTableSQL(d Dialect, m *metadata.Model) (string, error) {
	return createTableSQL(d, m, nil)
}

func createTableSQL(d Dialect, m *metadata.Model, created map[*metadata.Model]bool) (string, error) {
	if m.PrimaryKey() == nil {
		return "", fmt.Errorf("sqlbase: model %s has no primary key", m.Name)
	}
	var (
		lines []string
		fks   []string
	)
	for _, f := range m.Columns() {
		def, err := columnDefinition(d, f)
		if err != nil {
			return "", fmt.Errorf("sqlbase: %s.%s: %w", m.Name, f.Name, err)
		}
		lines = append(lines, def)

		if f.Kind != metadata.KindForeignKey {
			continue
		}
		target := f.Relation.Target()
		if target == nil {
			return "", &metadata.ResolutionError{Model: m.Name, Field: f.Name, Target: f.Relation.TargetName()}
		}
		if created == nil || created[target] || target == m {
			fks = append(fks, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
				d.Quote(f.Column), d.Quote(target.TableName), d.Quote(target.PrimaryKey().Column)))
		}
	}
	if m.IsAssociation() {
		var pair []string
		for _, f := range m.Columns() {
			if f.Kind == metadata.KindForeignKey {
				pair = append(pair, f.Column)
			}
		}
		if len(pair) == 2 {
			lines = append(lines, "UNIQUE ("+ColumnList(d, pair)+")")
		}
	}
	lines = append(lines, fks...)
	return d.CreateTable(m.TableName, "  "+strings.Join(lines, ",\n  ")), nil
}

func columnDefinition(d Dialect, f *metadata.Field) (string, error) {
	if f.PrimaryKey && f.Autoincrement {
		return d.AutoIncrementColumn(f)
	}
	sqlType, err := d.ColumnType(f.ColumnType)
	if err != nil {
		return "", err
	}
	parts := []string{d.Quote(f.Column), sqlType}
	if !f.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else if f.Unique {
		parts = append(parts, "UNIQUE")
	}
	if f.ServerDefault != nil {
		parts = append(parts, "DEFAULT "+defaultLiteral(d, f.ServerDefault))
	}
	return strings.Join(parts, " "), nil
}

// defaultLiteral renders a server default. Strings are SQL expressions and
// are emitted as written.
func defaultLiteral(d Dialect, v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return d.BoolLiteral(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func indexSQL(d Dialect, m *metadata.Model) []string {
	var out []string
	for _, f := range m.Columns() {
		if !f.Index || f.Unique || f.PrimaryKey {
			continue
		}
		name := "idx_" + m.TableName + "_" + f.Column
		out = append(out, d.CreateIndex(name, m.TableName, f.Column))
	}
	return out
}

// createOrder sorts models so that foreign-key targets come before the
// models referencing them, keeping declaration order otherwise.
func createOrder(models []*metadata.Model) []*metadata.Model {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*metadata.Model]int, len(models))
	out := make([]*metadata.Model, 0, len(models))

	var visit func(m *metadata.Model)
	visit = func(m *metadata.Model) {
		if state[m] != 0 {
			return
		}
		state[m] = visiting
		for _, f := range m.Columns() {
			if f.Kind != metadata.KindForeignKey {
				continue
			}
			if target := f.Relation.Target(); target != nil && target != m {
				visit(target)
			}
		}
		state[m] = done
		out = append(out, m)
	}
	for _, m := range models {
		visit(m)
	}
	return out
}

// Script joins statements into a runnable SQL script.
func Script(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, ";\n\n") + ";\n"
}
