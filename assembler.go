package ormgraph

import (
	"sort"
	"strconv"

	"github.com/chmenegatti/ormgraph/metadata"
)

// Assemble rebuilds the object graph of plan from flat rows.
//
// Rows sharing a primary key for a model yield one shared instance. Nested
// collections are deduplicated per parent, kept in row order unless the plan
// orders them, and only receive instances whose row passes the node's
// filters. Recursion follows the plan, not the instance graph, so cycles
// between instances terminate. Limit and offset apply to the distinct roots.
func Assemble(plan *Plan, rows []Row) ([]*Instance, error) {
	a := &assembler{
		plan:     plan,
		identity: make(map[*metadata.Model]map[string]*Instance),
	}

	var roots []*Instance
	seenRoots := make(map[*Instance]bool)
	for i, row := range rows {
		if !matchesAll(plan.Where, row) {
			continue
		}
		root, err := a.instance(plan.Root, row, i)
		if err != nil {
			return nil, err
		}
		if root == nil {
			return nil, &AssemblyError{Row: i, Alias: plan.Root.Alias, Column: plan.Root.Model.PrimaryKey().Column, Reason: "root primary key is NULL"}
		}
		if !seenRoots[root] {
			seenRoots[root] = true
			roots = append(roots, root)
		}
		if err := a.attach(plan.Root, root, row, i); err != nil {
			return nil, err
		}
	}

	for _, c := range a.collections {
		if terms := plan.termsFor(c.node); len(terms) > 0 {
			s := c.parent.relations[c.node.Edge.Name]
			sortInstances(s.many, terms)
		}
	}
	if terms := plan.termsFor(plan.Root); len(terms) > 0 {
		sortInstances(roots, terms)
	}
	return paginate(roots, plan.Limit, plan.Offset), nil
}

type assembler struct {
	plan        *Plan
	identity    map[*metadata.Model]map[string]*Instance
	collections []collection
	seen        map[collection]bool
}

type collection struct {
	parent *Instance
	node   *PlanNode
}

// instance returns the shared instance for node's columns in row, or nil when
// the row carries no entity for the node (an unmatched LEFT join).
func (a *assembler) instance(node *PlanNode, row Row, rowIndex int) (*Instance, error) {
	pk := node.Model.PrimaryKey()
	pkValue, present := row[node.PrimaryKeyKey()]
	if !present {
		return nil, &AssemblyError{Row: rowIndex, Alias: node.Alias, Column: pk.Column, Reason: "primary key column missing from row"}
	}
	if pkValue == nil {
		return nil, nil
	}

	byKey, ok := a.identity[node.Model]
	if !ok {
		byKey = make(map[string]*Instance)
		a.identity[node.Model] = byKey
	}
	key := identityKey(pkValue)
	if inst, found := byKey[key]; found {
		return inst, nil
	}

	inst := newInstance(node.Model)
	for _, f := range node.Columns() {
		if v, ok := row[node.Key(f.Column)]; ok {
			inst.values[f.Name] = v
		}
	}
	byKey[key] = inst
	return inst, nil
}

// attach links the children of node found in row to parent, depth first.
func (a *assembler) attach(node *PlanNode, parent *Instance, row Row, rowIndex int) error {
	for _, child := range node.Children {
		name := child.Edge.Name
		if child.Edge.IsMany() {
			a.markLoaded(parent, child)
		} else if _, loaded := parent.relations[name]; !loaded {
			parent.slot(name)
		}
		if !matchesAll(child.Filters, row) {
			continue
		}
		inst, err := a.instance(child, row, rowIndex)
		if err != nil {
			return err
		}
		if inst == nil {
			continue
		}
		if child.Edge.IsMany() {
			parent.link(name, inst)
		} else {
			parent.slot(name).one = inst
		}
		if err := a.attach(child, inst, row, rowIndex); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) markLoaded(parent *Instance, node *PlanNode) {
	c := collection{parent: parent, node: node}
	if a.seen == nil {
		a.seen = make(map[collection]bool)
	}
	if a.seen[c] {
		return
	}
	a.seen[c] = true
	a.collections = append(a.collections, c)
	parent.slot(node.Edge.Name)
}

func matchesAll(preds []Predicate, row Row) bool {
	for _, p := range preds {
		if !p.Matches(row) {
			return false
		}
	}
	return true
}

// identityKey folds driver-dependent primary-key types (int vs int64, []byte
// vs string) to one map key. Integers are keyed exactly.
func identityKey(v any) string {
	if i, ok := asBigInt(v); ok {
		return "n:" + i.String()
	}
	switch f := v.(type) {
	case float32:
		return "n:" + strconv.FormatFloat(float64(f), 'f', -1, 64)
	case float64:
		return "n:" + strconv.FormatFloat(f, 'f', -1, 64)
	}
	return "s:" + textOf(v)
}

func sortInstances(list []*Instance, terms []OrderTerm) {
	sort.SliceStable(list, func(i, j int) bool {
		for _, t := range terms {
			a, b := list[i].values[t.Field.Name], list[j].values[t.Field.Name]
			if t.Field.ValueKind() == metadata.KindDecimal {
				a, b = decimalValue(a), decimalValue(b)
			}
			c := compareNullable(a, b)
			if c == 0 {
				continue
			}
			if t.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareNullable orders NULL after any value; descending terms reverse that.
func compareNullable(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c, ok := compareValues(a, b)
	if !ok {
		return 0
	}
	return c
}

func paginate(roots []*Instance, limit, offset int) []*Instance {
	if offset > 0 {
		if offset >= len(roots) {
			return []*Instance{}
		}
		roots = roots[offset:]
	}
	if limit >= 0 && limit < len(roots) {
		roots = roots[:limit]
	}
	return roots
}
