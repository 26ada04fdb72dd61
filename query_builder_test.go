package ormgraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmenegatti/ormgraph"
)

// --- Test Functions ---

func TestQueryBuilder_All(t *testing.T) {
	reg := campus(t)
	ds := &fakeDataSource{}
	ds.rows = func(plan *ormgraph.Plan) []ormgraph.Row {
		return []ormgraph.Row{
			rowOf(t, plan, map[string]cols{"": {"id": int64(1), "name": "Lab"}, "students": {"id": int64(1), "name": "Kate"}}),
			rowOf(t, plan, map[string]cols{"": {"id": int64(1), "name": "Lab"}, "students": {"id": int64(2), "name": "Kevin"}}),
			rowOf(t, plan, map[string]cols{"": {"id": int64(1), "name": "Lab"}, "students": {"id": int64(3), "name": "Anna"}}),
		}
	}

	rooms, err := ormgraph.NewQuery(context.Background(), ds).
		Model(model(t, reg, "Classroom")).
		SelectRelated("students").
		Filter("students__name__icontains", "A").
		OrderBy("-students__name").
		All()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, []string{"Kate", "Anna"}, names(rooms[0].Related("students")))

	require.Len(t, ds.plans, 1)
	assert.Len(t, ds.plans[0].Nodes, 2)
	assert.Len(t, ds.plans[0].Order, 1)
}

func TestQueryBuilder_Get(t *testing.T) {
	reg := campus(t)
	ctx := context.Background()
	classroom := model(t, reg, "Classroom")

	rowsOf := func(ids ...int64) func(*ormgraph.Plan) []ormgraph.Row {
		return func(plan *ormgraph.Plan) []ormgraph.Row {
			var rows []ormgraph.Row
			for _, id := range ids {
				rows = append(rows, rowOf(t, plan, map[string]cols{"": {"id": id, "name": "Lab"}}))
			}
			return rows
		}
	}

	_, err := ormgraph.NewQuery(ctx, &fakeDataSource{rows: rowsOf()}).Model(classroom).Get()
	assert.ErrorIs(t, err, ormgraph.ErrNotFound)

	_, err = ormgraph.NewQuery(ctx, &fakeDataSource{rows: rowsOf(1, 2)}).Model(classroom).Get()
	assert.ErrorIs(t, err, ormgraph.ErrNotSingular)

	room, err := ormgraph.NewQuery(ctx, &fakeDataSource{rows: rowsOf(1, 1)}).Model(classroom).Get()
	require.NoError(t, err)
	assert.Equal(t, int64(1), room.PK())

	n, err := ormgraph.NewQuery(ctx, &fakeDataSource{rows: rowsOf(1, 2, 3)}).Model(classroom).Limit(2).Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestQueryBuilder_BuildErrors(t *testing.T) {
	reg := campus(t)
	ctx := context.Background()
	classroom := model(t, reg, "Classroom")

	tests := []struct {
		name  string
		query *ormgraph.QueryBuilder
		want  string
	}{
		{"no data source", ormgraph.NewQuery(ctx, nil).Model(classroom), "data source is nil"},
		{"no model", ormgraph.NewQuery(ctx, &fakeDataSource{}), "Model() must be called first"},
		{"nil model", ormgraph.NewQuery(ctx, &fakeDataSource{}).Model(nil), "model must not be nil"},
		{"negative limit", ormgraph.NewQuery(ctx, &fakeDataSource{}).Model(classroom).Limit(-1), "Limit: value must not be negative"},
		{"zero limit", ormgraph.NewQuery(ctx, &fakeDataSource{}).Model(classroom).Limit(0), "Limit(0) selects nothing"},
		{"negative offset", ormgraph.NewQuery(ctx, &fakeDataSource{}).Model(classroom).Offset(-2), "Offset: value must not be negative"},
		{"empty filter", ormgraph.NewQuery(ctx, &fakeDataSource{}).Model(classroom).Filter(" ", 1), "Filter: empty path"},
		{"empty order", ormgraph.NewQuery(ctx, &fakeDataSource{}).Model(classroom).OrderBy("-"), "OrderBy: empty path"},
		{"empty related", ormgraph.NewQuery(ctx, &fakeDataSource{}).Model(classroom).SelectRelated(""), "SelectRelated: empty relation path"},
		{"bad path", ormgraph.NewQuery(ctx, &fakeDataSource{}).Model(classroom).Filter("teachers__name", "x"), `Classroom has no relation "teachers"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.query.All()
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := ormgraph.NewQuery(ctx, nil).Model(classroom).All()
	assert.ErrorIs(t, err, ormgraph.ErrNoDataSource)
}

func TestQueryBuilder_FetchError(t *testing.T) {
	reg := campus(t)
	boom := errors.New("connection reset")
	_, err := ormgraph.NewQuery(context.Background(), &fakeDataSource{fetchErr: boom}).
		Model(model(t, reg, "Classroom")).
		All()
	assert.ErrorIs(t, err, boom)
}
