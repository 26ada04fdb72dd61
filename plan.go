package ormgraph

import (
	"fmt"
	"strings"

	"github.com/chmenegatti/ormgraph/metadata"
)

// PathSeparator separates the segments of relation, filter and order paths.
const PathSeparator = "__"

// Plan is the abstract join plan handed to the storage driver and then to
// Assemble. Every node is joined with a LEFT join.
type Plan struct {
	Root  *PlanNode
	Nodes []*PlanNode // join order, root first

	// Where holds the conditions restricting the row set. Nested filters are
	// added here as well when the query has no root-level filter.
	Where []Predicate
	// Order lists every ordering term, root and nested, in request order.
	Order []OrderTerm

	Limit  int // -1 when unset; applies to distinct roots
	Offset int // -1 when unset

	nextThrough int
}

// PlanNode is one joined model occurrence. The same model may appear in
// several nodes (self-references, cycles); instances are still shared across
// them by primary key.
type PlanNode struct {
	Alias string // t0 for the root, t1.. for joins
	Path  string // relation path from the root, "" for the root
	Model *metadata.Model

	Parent *PlanNode
	Edge   *metadata.Edge // edge from Parent; nil for the root
	// ThroughAlias is the alias of the association table joined before this
	// node for many-to-many edges.
	ThroughAlias string

	Children []*PlanNode
	// Filters are join conditions: rows failing them do not attach this
	// node's instance to its parent.
	Filters []Predicate
}

// Key returns the row key under which the driver reports column of this node.
func (n *PlanNode) Key(column string) string { return n.Alias + "." + column }

// PrimaryKeyKey is the row key of the node's primary-key column.
func (n *PlanNode) PrimaryKeyKey() string { return n.Key(n.Model.PrimaryKey().Column) }

// Columns are the stored fields selected for the node.
func (n *PlanNode) Columns() []*metadata.Field { return n.Model.Columns() }

// OrderTerm sorts by a field of a plan node.
type OrderTerm struct {
	Path       string
	Node       *PlanNode
	Field      *metadata.Field
	Descending bool
}

// Key is the row key of the ordered column.
func (o OrderTerm) Key() string { return o.Node.Key(o.Field.Column) }

// Filter is a requested filter before path resolution.
type Filter struct {
	Path  string // relation__field__operator
	Value any
}

// PlanOptions describes a query against one model.
type PlanOptions struct {
	Related []string // relation paths to load, e.g. "students__courses"
	Filters []Filter
	Order   []string // field paths, "-" prefix for descending
	Limit   int      // <= 0 means no limit
	Offset  int
}

// BuildPlan resolves the relation, filter and order paths of opts against
// model and returns the join plan. Every relation reached by a path is
// joined and loaded.
func BuildPlan(model *metadata.Model, opts PlanOptions) (*Plan, error) {
	if model == nil {
		return nil, fmt.Errorf("ormgraph: plan: model is nil")
	}
	if model.PrimaryKey() == nil {
		return nil, fmt.Errorf("ormgraph: plan: model %s has no primary key", model.Name)
	}
	root := &PlanNode{Alias: "t0", Model: model}
	p := &Plan{Root: root, Nodes: []*PlanNode{root}, Limit: -1, Offset: -1}
	if opts.Limit > 0 {
		p.Limit = opts.Limit
	}
	if opts.Offset > 0 {
		p.Offset = opts.Offset
	}

	for _, path := range opts.Related {
		if _, _, _, err := p.resolve(path, false); err != nil {
			return nil, err
		}
	}

	var nested []Predicate
	rootFiltered := false
	for _, f := range opts.Filters {
		node, field, op, err := p.resolve(f.Path, true)
		if err != nil {
			return nil, err
		}
		value, err := normalizeOperand(field, op, f.Value)
		if err != nil {
			return nil, &PathError{Path: f.Path, Reason: err.Error()}
		}
		pred := Predicate{Path: f.Path, Node: node, Field: field, Operator: op, Value: value}
		if node == root {
			rootFiltered = true
			p.Where = append(p.Where, pred)
			continue
		}
		node.Filters = append(node.Filters, pred)
		nested = append(nested, pred)
	}
	if !rootFiltered {
		p.Where = append(p.Where, nested...)
	}

	for _, raw := range opts.Order {
		path, desc := strings.CutPrefix(strings.TrimSpace(raw), "-")
		node, field, op, err := p.resolve(path, true)
		if err != nil {
			return nil, err
		}
		if op != OpExact || strings.HasSuffix(path, PathSeparator+string(OpExact)) {
			return nil, &PathError{Path: raw, Reason: "order paths take no operator"}
		}
		p.Order = append(p.Order, OrderTerm{Path: path, Node: node, Field: field, Descending: desc})
	}

	for _, n := range p.Nodes {
		if n.Model.PrimaryKey() == nil {
			return nil, fmt.Errorf("ormgraph: plan: model %s has no primary key", n.Model.Name)
		}
		if unresolved := n.Model.Unresolved(); len(unresolved) > 0 {
			f := unresolved[0]
			return nil, &metadata.ResolutionError{Model: n.Model.Name, Field: f.Name, Target: f.Relation.TargetName()}
		}
	}
	return p, nil
}

// resolve walks path from the root, joining every relation it crosses. When
// wantField is set the last segment (before an optional operator) must be a
// stored field; a path ending at a relation then targets that relation's
// primary key.
func (p *Plan) resolve(path string, wantField bool) (*PlanNode, *metadata.Field, Operator, error) {
	if path == "" {
		return nil, nil, "", &PathError{Path: path, Reason: "empty path"}
	}
	segments := strings.Split(path, PathSeparator)
	op := OpExact
	if wantField && len(segments) > 1 {
		if parsed, ok := ParseOperator(segments[len(segments)-1]); ok {
			op = parsed
			segments = segments[:len(segments)-1]
		}
	}

	node := p.Root
	for i, seg := range segments {
		last := i == len(segments)-1
		if wantField && last {
			if f, ok := node.Model.Field(seg); ok && f.HasColumn() {
				return node, f, op, nil
			}
			if e, ok := node.Model.Edge(seg); ok {
				joined := p.join(node, e)
				return joined, joined.Model.PrimaryKey(), op, nil
			}
			return nil, nil, "", &PathError{Path: path, Segment: seg, Model: node.Model.Name, Reason: "field"}
		}
		e, ok := node.Model.Edge(seg)
		if !ok {
			return nil, nil, "", &PathError{Path: path, Segment: seg, Model: node.Model.Name, Reason: "relation"}
		}
		node = p.join(node, e)
	}
	return node, nil, op, nil
}

// join returns the child of parent reached through e, adding it on first use.
func (p *Plan) join(parent *PlanNode, e *metadata.Edge) *PlanNode {
	for _, c := range parent.Children {
		if c.Edge == e {
			return c
		}
	}
	path := e.Name
	if parent.Path != "" {
		path = parent.Path + PathSeparator + e.Name
	}
	child := &PlanNode{
		Alias:  fmt.Sprintf("t%d", len(p.Nodes)),
		Path:   path,
		Model:  e.To,
		Parent: parent,
		Edge:   e,
	}
	if e.Through != nil {
		p.nextThrough++
		child.ThroughAlias = fmt.Sprintf("m%d", p.nextThrough)
	}
	parent.Children = append(parent.Children, child)
	p.Nodes = append(p.Nodes, child)
	return child
}

// Node returns the node loaded for a relation path ("" is the root).
func (p *Plan) Node(path string) (*PlanNode, bool) {
	for _, n := range p.Nodes {
		if n.Path == path {
			return n, true
		}
	}
	return nil, false
}

// HasCollections reports whether any join fans a root out over several rows.
func (p *Plan) HasCollections() bool {
	for _, n := range p.Nodes[1:] {
		if n.Edge.IsMany() {
			return true
		}
	}
	return false
}

// termsFor returns the order terms that sort the instances of node.
func (p *Plan) termsFor(node *PlanNode) []OrderTerm {
	var out []OrderTerm
	for _, t := range p.Order {
		if t.Node == node {
			out = append(out, t)
		}
	}
	return out
}
