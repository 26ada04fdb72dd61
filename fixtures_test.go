package ormgraph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/metadata"
)

// campus declares:
//
//	Classroom 1-n Student (reverse accessor "students")
//	Student n-n Course (reverse accessor "students", table students_courses)
//	Person n-n Person as "friends" (reverse accessor "friend_of")
func campus(t *testing.T) *metadata.Registry {
	t.Helper()
	reg := metadata.NewRegistry(nil)

	classroom, err := reg.Model("Classroom").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("name", metadata.KindString, metadata.MaxLength(50)).
		Build()
	require.NoError(t, err)

	course, err := reg.Model("Course").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("title", metadata.KindString, metadata.MaxLength(80)).
		Build()
	require.NoError(t, err)

	_, err = reg.Model("Student").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("name", metadata.KindString, metadata.MaxLength(50)).
		Field("nickname", metadata.KindString, metadata.MaxLength(50), metadata.Nullable(true)).
		Field("active", metadata.KindBoolean, metadata.Default(true)).
		ForeignKey("classroom", classroom).
		ManyToMany("courses", course).
		Build()
	require.NoError(t, err)

	_, err = reg.Model("Person").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("name", metadata.KindString, metadata.MaxLength(50)).
		ManyToMany("friends", metadata.Ref("Person"), metadata.RelatedName("friend_of")).
		Build()
	require.NoError(t, err)

	require.NoError(t, reg.Seal())
	return reg
}

func model(t *testing.T, reg *metadata.Registry, name string) *metadata.Model {
	t.Helper()
	m, ok := reg.Get(name)
	require.True(t, ok, "model %s", name)
	return m
}

// cols holds the column values of one plan node in a row.
type cols map[string]any

// rowOf builds a flat row for plan from per-path column values. Nodes that
// are not listed get a NULL primary key, as an unmatched LEFT join would.
func rowOf(t *testing.T, plan *ormgraph.Plan, byPath map[string]cols) ormgraph.Row {
	t.Helper()
	row := ormgraph.Row{}
	for _, n := range plan.Nodes {
		row[n.PrimaryKeyKey()] = nil
	}
	for path, values := range byPath {
		node, ok := plan.Node(path)
		require.True(t, ok, "plan has no node for %q", path)
		for column, v := range values {
			row[node.Key(column)] = v
		}
	}
	return row
}

func names(list []*ormgraph.Instance) []string {
	out := make([]string, 0, len(list))
	for _, inst := range list {
		v, _ := inst.Get("name")
		s, _ := v.(string)
		out = append(out, s)
	}
	return out
}

// fakeDataSource answers Fetch with rows built from the plan it receives and
// records inserts.
type fakeDataSource struct {
	rows     func(plan *ormgraph.Plan) []ormgraph.Row
	fetchErr error
	plans    []*ormgraph.Plan

	inserts []ormgraph.InsertStatement
	nextID  int64
}

var _ ormgraph.DataSource = (*fakeDataSource)(nil)

func (f *fakeDataSource) Connect(ormgraph.Config) error      { return nil }
func (f *fakeDataSource) Close() error                       { return nil }
func (f *fakeDataSource) Ping(context.Context) error         { return nil }
func (f *fakeDataSource) GetDriverType() ormgraph.DriverType { return ormgraph.SQLite }

func (f *fakeDataSource) Fetch(_ context.Context, plan *ormgraph.Plan) ([]ormgraph.Row, error) {
	f.plans = append(f.plans, plan)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.rows == nil {
		return nil, nil
	}
	return f.rows(plan), nil
}

func (f *fakeDataSource) Insert(_ context.Context, stmt ormgraph.InsertStatement) (any, error) {
	f.inserts = append(f.inserts, stmt)
	if stmt.Returning == "" {
		return nil, nil
	}
	f.nextID++
	return f.nextID, nil
}
