package ormgraph

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the query matches no root instance.
	ErrNotFound = errors.New("ormgraph: no matching instance")
	// ErrNotSingular is returned by Get when the query matches several roots.
	ErrNotSingular = errors.New("ormgraph: more than one matching instance")
	// ErrNoDataSource is returned by queries and persistence helpers called without a DataSource.
	ErrNoDataSource = errors.New("ormgraph: data source is nil")
)

// PathError reports a filter, order or select_related path that does not
// name a field or relation of the model it is applied to.
type PathError struct {
	Path    string
	Segment string
	Model   string
	Reason  string
}

func (e *PathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("ormgraph: path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("ormgraph: path %q: %s has no %s %q", e.Path, e.Model, e.Reason, e.Segment)
}

// AssemblyError reports a row set the assembler cannot turn into instances,
// such as a joined relation whose primary-key column is missing.
type AssemblyError struct {
	Row    int
	Alias  string
	Column string
	Reason string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("ormgraph: row %d: %s.%s: %s", e.Row, e.Alias, e.Column, e.Reason)
}
