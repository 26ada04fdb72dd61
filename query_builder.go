package ormgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chmenegatti/ormgraph/metadata"
)

// QueryBuilder accumulates a query against one model. Construction errors
// are stored and reported by the terminal methods, so calls can be chained.
type QueryBuilder struct {
	ctx        context.Context
	dataSource DataSource
	model      *metadata.Model

	related []string
	filters []Filter
	order   []string
	limit   int
	offset  int

	buildErr error
}

// NewQuery starts a query executed through ds.
func NewQuery(ctx context.Context, ds DataSource) *QueryBuilder {
	qb := &QueryBuilder{ctx: ctx, dataSource: ds, limit: -1, offset: -1}
	if ds == nil {
		qb.buildErr = ErrNoDataSource
	}
	return qb
}

// Model sets the root model. It must be called before the terminal methods.
func (qb *QueryBuilder) Model(m *metadata.Model) *QueryBuilder {
	if qb.buildErr != nil {
		return qb
	}
	if m == nil {
		qb.buildErr = errors.New("Model: model must not be nil")
		return qb
	}
	qb.model = m
	return qb
}

// SelectRelated eagerly loads relation paths such as "students" or
// "students__courses".
func (qb *QueryBuilder) SelectRelated(paths ...string) *QueryBuilder {
	if qb.buildErr != nil {
		return qb
	}
	for _, p := range paths {
		if p = strings.TrimSpace(p); p == "" {
			qb.buildErr = errors.New("SelectRelated: empty relation path")
			return qb
		}
		qb.related = append(qb.related, p)
	}
	return qb
}

// Filter adds a condition. The path is relation__...__field with an optional
// trailing operator ("students__name__icontains"); the default is exact.
// Conditions are combined with AND.
func (qb *QueryBuilder) Filter(path string, value any) *QueryBuilder {
	if qb.buildErr != nil {
		return qb
	}
	if strings.TrimSpace(path) == "" {
		qb.buildErr = errors.New("Filter: empty path")
		return qb
	}
	qb.filters = append(qb.filters, Filter{Path: strings.TrimSpace(path), Value: value})
	return qb
}

// OrderBy sorts by field paths; a leading "-" sorts descending. Nested paths
// sort the related collection on each parent.
func (qb *QueryBuilder) OrderBy(paths ...string) *QueryBuilder {
	if qb.buildErr != nil {
		return qb
	}
	for _, p := range paths {
		if strings.TrimSpace(strings.TrimPrefix(p, "-")) == "" {
			qb.buildErr = errors.New("OrderBy: empty path")
			return qb
		}
		qb.order = append(qb.order, p)
	}
	return qb
}

// Limit caps the number of root instances returned.
func (qb *QueryBuilder) Limit(limit int) *QueryBuilder {
	if qb.buildErr != nil {
		return qb
	}
	if limit < 0 {
		qb.buildErr = fmt.Errorf("Limit: value must not be negative (got %d)", limit)
		return qb
	}
	qb.limit = limit
	return qb
}

// Offset skips root instances.
func (qb *QueryBuilder) Offset(offset int) *QueryBuilder {
	if qb.buildErr != nil {
		return qb
	}
	if offset < 0 {
		qb.buildErr = fmt.Errorf("Offset: value must not be negative (got %d)", offset)
		return qb
	}
	qb.offset = offset
	return qb
}

// Plan resolves the query into a join plan without running it.
func (qb *QueryBuilder) Plan() (*Plan, error) {
	if qb.buildErr != nil {
		return nil, fmt.Errorf("query build error: %w", qb.buildErr)
	}
	if qb.model == nil {
		return nil, errors.New("query build error: Model() must be called first")
	}
	limit := qb.limit
	if limit == 0 {
		return nil, errors.New("query build error: Limit(0) selects nothing")
	}
	return BuildPlan(qb.model, PlanOptions{
		Related: qb.related,
		Filters: qb.filters,
		Order:   qb.order,
		Limit:   limit,
		Offset:  qb.offset,
	})
}

// All runs the query and returns the assembled root instances.
func (qb *QueryBuilder) All() ([]*Instance, error) {
	plan, err := qb.Plan()
	if err != nil {
		return nil, err
	}
	rows, err := qb.dataSource.Fetch(qb.ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", qb.model.Name, err)
	}
	return Assemble(plan, rows)
}

// Get runs the query and returns its only root instance.
func (qb *QueryBuilder) Get() (*Instance, error) {
	found, err := qb.All()
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%w: %d %s instances", ErrNotSingular, len(found), qb.model.Name)
}

// Count runs the query and returns the number of root instances.
func (qb *QueryBuilder) Count() (int, error) {
	found, err := qb.All()
	if err != nil {
		return 0, err
	}
	return len(found), nil
}
