package sqlbase

import (
	"fmt"
	"strings"

	"github.com/chmenegatti/ormgraph"
)

// Compile renders plan as one SELECT with a LEFT JOIN per plan node. Result
// columns are aliased "tN.column" so rows map directly onto plan keys.
// Nested filters become ON conditions; plan.Where becomes the WHERE clause.
// No LIMIT is emitted: a fanned-out join has more rows than roots, so
// pagination happens during assembly.
func Compile(d Dialect, plan *ormgraph.Plan) (string, []any, error) {
	c := &compiler{d: d}
	if err := c.compile(plan); err != nil {
		return "", nil, err
	}
	return c.b.String(), c.args, nil
}

type compiler struct {
	d    Dialect
	b    strings.Builder
	args []any
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, encodeValue(v))
	return c.d.BindVar(len(c.args))
}

func (c *compiler) col(alias, column string) string {
	return c.d.Quote(alias) + "." + c.d.Quote(column)
}

func (c *compiler) compile(plan *ormgraph.Plan) error {
	var selected []string
	for _, n := range plan.Nodes {
		for _, f := range n.Columns() {
			selected = append(selected, c.col(n.Alias, f.Column)+" AS "+c.d.Quote(n.Key(f.Column)))
		}
	}
	c.b.WriteString("SELECT ")
	c.b.WriteString(strings.Join(selected, ", "))
	fmt.Fprintf(&c.b, " FROM %s AS %s", c.d.Quote(plan.Root.Model.TableName), c.d.Quote(plan.Root.Alias))

	for _, n := range plan.Nodes[1:] {
		if err := c.join(n); err != nil {
			return err
		}
	}

	if len(plan.Where) > 0 {
		conds := make([]string, 0, len(plan.Where))
		for _, p := range plan.Where {
			cond, err := c.predicate(p)
			if err != nil {
				return err
			}
			conds = append(conds, cond)
		}
		c.b.WriteString(" WHERE ")
		c.b.WriteString(strings.Join(conds, " AND "))
	}

	var order []string
	for _, t := range plan.Order {
		dir := "ASC"
		if t.Descending {
			dir = "DESC"
		}
		order = append(order, c.col(t.Node.Alias, t.Field.Column)+" "+dir)
	}
	order = append(order, c.col(plan.Root.Alias, plan.Root.Model.PrimaryKey().Column)+" ASC")
	c.b.WriteString(" ORDER BY ")
	c.b.WriteString(strings.Join(order, ", "))
	return nil
}

func (c *compiler) join(n *ormgraph.PlanNode) error {
	e, parent := n.Edge, n.Parent
	on := c.col(parent.Alias, e.FromColumn) + " = "
	if e.Through != nil {
		fmt.Fprintf(&c.b, " LEFT JOIN %s AS %s ON %s%s",
			c.d.Quote(e.Through.TableName), c.d.Quote(n.ThroughAlias),
			on, c.col(n.ThroughAlias, e.ThroughFromColumn))
		on = c.col(n.ThroughAlias, e.ThroughToColumn) + " = "
	}
	fmt.Fprintf(&c.b, " LEFT JOIN %s AS %s ON %s%s",
		c.d.Quote(n.Model.TableName), c.d.Quote(n.Alias), on, c.col(n.Alias, e.ToColumn))
	for _, p := range n.Filters {
		cond, err := c.predicate(p)
		if err != nil {
			return err
		}
		c.b.WriteString(" AND ")
		c.b.WriteString(cond)
	}
	return nil
}

func (c *compiler) predicate(p ormgraph.Predicate) (string, error) {
	col := c.col(p.Node.Alias, p.Field.Column)
	switch p.Operator {
	case ormgraph.OpExact:
		if p.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + c.bind(p.Value), nil
	case ormgraph.OpIExact:
		return "LOWER(" + col + ") = LOWER(" + c.bind(p.Value) + ")", nil
	case ormgraph.OpIn:
		items, _ := p.Value.([]any)
		if len(items) == 0 {
			return "1 = 0", nil
		}
		binds := make([]string, len(items))
		for i, item := range items {
			binds[i] = c.bind(item)
		}
		return col + " IN (" + strings.Join(binds, ", ") + ")", nil
	case ormgraph.OpGT:
		return col + " > " + c.bind(p.Value), nil
	case ormgraph.OpGTE:
		return col + " >= " + c.bind(p.Value), nil
	case ormgraph.OpLT:
		return col + " < " + c.bind(p.Value), nil
	case ormgraph.OpLTE:
		return col + " <= " + c.bind(p.Value), nil
	case ormgraph.OpIsNull:
		if isNull, _ := p.Value.(bool); isNull {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	}

	if !p.Operator.IsPattern() {
		return "", fmt.Errorf("sqlbase: unsupported operator %q", p.Operator)
	}
	s, _ := p.Value.(string)
	pattern := escapeLike(s)
	switch p.Operator {
	case ormgraph.OpContains, ormgraph.OpIContains:
		pattern = "%" + pattern + "%"
	case ormgraph.OpStartsWith, ormgraph.OpIStartsWith:
		pattern += "%"
	default:
		pattern = "%" + pattern
	}
	if p.Operator.IsCaseInsensitive() {
		return "LOWER(" + col + ") LIKE LOWER(" + c.bind(pattern) + ")" + c.d.LikeEscape(), nil
	}
	return col + " LIKE " + c.bind(pattern) + c.d.LikeEscape(), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `[`, `\[`)

// escapeLike makes s match literally inside a LIKE pattern escaped with '\'.
func escapeLike(s string) string { return likeEscaper.Replace(s) }
