package ormgraph

import (
	"context"
	"fmt"

	"github.com/chmenegatti/ormgraph/metadata"
)

// Save inserts inst into its model's table. When the primary key is an
// autoincrement column left unset, the generated key is stored back on inst.
func Save(ctx context.Context, ds DataSource, inst *Instance) error {
	if ds == nil {
		return ErrNoDataSource
	}
	stmt, autoKey, err := buildInsert(inst)
	if err != nil {
		return fmt.Errorf("ormgraph.Save: %w", err)
	}
	id, err := ds.Insert(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ormgraph.Save: insert into %s: %w", stmt.Table, err)
	}
	if autoKey != nil {
		if id == nil {
			return fmt.Errorf("ormgraph.Save: %s: driver returned no generated key", inst.model.Name)
		}
		if err := inst.Set(autoKey.Name, id); err != nil {
			return fmt.Errorf("ormgraph.Save: generated key: %w", err)
		}
	}
	return nil
}

// buildInsert lists the stored columns of inst. An unset autoincrement key
// is left to the database and returned as autoKey; unset columns with a
// server default are omitted.
func buildInsert(inst *Instance) (stmt InsertStatement, autoKey *metadata.Field, err error) {
	if inst == nil {
		return stmt, nil, fmt.Errorf("instance is nil")
	}
	m := inst.model
	stmt.Table = m.TableName
	for _, f := range m.Columns() {
		v := inst.values[f.Name]
		if f.PrimaryKey && f.Autoincrement && v == nil {
			autoKey = f
			stmt.Returning = f.Column
			continue
		}
		if v == nil && f.ServerDefault != nil {
			continue
		}
		stmt.Columns = append(stmt.Columns, f.Column)
		stmt.Values = append(stmt.Values, v)
	}
	if len(stmt.Columns) == 0 && autoKey == nil {
		return stmt, nil, fmt.Errorf("%s has no stored columns", m.Name)
	}
	return stmt, autoKey, nil
}

// AddRelated links other to inst through a many-to-many relation (declared
// or reverse) by inserting an association row, then records the link in
// memory on both sides. Both instances must be saved.
func AddRelated(ctx context.Context, ds DataSource, inst *Instance, relation string, other *Instance) error {
	if ds == nil {
		return ErrNoDataSource
	}
	if inst == nil || other == nil {
		return fmt.Errorf("ormgraph.AddRelated: instances must not be nil")
	}
	edge, ok := inst.model.Edge(relation)
	if !ok {
		return &PathError{Path: relation, Segment: relation, Model: inst.model.Name, Reason: "relation"}
	}
	if edge.Through == nil {
		return fmt.Errorf("ormgraph.AddRelated: %s.%s is not a many-to-many relation", inst.model.Name, relation)
	}
	if other.model != edge.To {
		return fmt.Errorf("ormgraph.AddRelated: %s.%s expects %s, got %s", inst.model.Name, relation, edge.To.Name, other.model.Name)
	}
	if inst.PK() == nil || other.PK() == nil {
		return fmt.Errorf("ormgraph.AddRelated: both instances must be saved first")
	}

	row := InsertStatement{
		Table:   edge.Through.TableName,
		Columns: []string{edge.ThroughFromColumn, edge.ThroughToColumn},
		Values:  []any{inst.PK(), other.PK()},
	}
	if pk := edge.Through.PrimaryKey(); pk != nil && pk.Autoincrement {
		row.Returning = pk.Column
	}
	if _, err := ds.Insert(ctx, row); err != nil {
		return fmt.Errorf("ormgraph.AddRelated: insert into %s: %w", row.Table, err)
	}

	inst.link(relation, other)
	if back := edge.Reverse(); back != nil {
		other.link(back.Name, inst)
	}
	return nil
}
