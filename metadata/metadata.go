// Package metadata declares models: field descriptors built from declarative
// options, model definitions, and the relation edges connecting them.
package metadata

import "fmt"

// Model is the definition of a declared model: its ordered fields, table and
// relation edges. A Model is created once by its ModelBuilder and only changes
// afterwards when forward references on it are resolved.
type Model struct {
	Name      string
	TableName string

	fields         []*Field
	fieldsByName   map[string]*Field
	fieldsByColumn map[string]*Field
	pk             *Field

	edges     map[string]*Edge
	edgeNames []string

	association bool
	registry    *Registry
}

func newModel(reg *Registry, name, table string) *Model {
	return &Model{
		Name:           name,
		TableName:      table,
		fieldsByName:   make(map[string]*Field),
		fieldsByColumn: make(map[string]*Field),
		edges:          make(map[string]*Edge),
		registry:       reg,
	}
}

func (m *Model) TargetName() string { return m.Name }

func (m *Model) String() string { return m.Name }

// Fields returns the fields in declaration order.
func (m *Model) Fields() []*Field { return append([]*Field(nil), m.fields...) }

// Field looks a field up by attribute name.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.fieldsByName[name]
	return f, ok
}

// FieldByColumn looks a field up by storage column name.
func (m *Model) FieldByColumn(column string) (*Field, bool) {
	f, ok := m.fieldsByColumn[column]
	return f, ok
}

// Columns returns the fields stored in the model's table, in declaration order.
func (m *Model) Columns() []*Field {
	out := make([]*Field, 0, len(m.fields))
	for _, f := range m.fields {
		if f.HasColumn() {
			out = append(out, f)
		}
	}
	return out
}

// PrimaryKey returns the primary-key field, or nil before one is declared.
func (m *Model) PrimaryKey() *Field { return m.pk }

// Edge looks up a relation accessor (declared or reverse) by name.
func (m *Model) Edge(name string) (*Edge, bool) {
	e, ok := m.edges[name]
	return e, ok
}

// Edges returns all relation accessors in the order they were created.
func (m *Model) Edges() []*Edge {
	out := make([]*Edge, 0, len(m.edgeNames))
	for _, name := range m.edgeNames {
		out = append(out, m.edges[name])
	}
	return out
}

// IsAssociation reports whether the model backs a many-to-many relation.
func (m *Model) IsAssociation() bool { return m.association }

// Unresolved lists relation fields still pointing at forward references.
func (m *Model) Unresolved() []*Field {
	var out []*Field
	for _, f := range m.fields {
		if f.Relation != nil && !f.Relation.IsResolved() {
			out = append(out, f)
		}
	}
	return out
}

// IsResolved reports whether every relation on the model has a concrete target.
func (m *Model) IsResolved() bool { return len(m.Unresolved()) == 0 }

func (m *Model) definitionError(field, format string, args ...any) *ModelDefinitionError {
	return &ModelDefinitionError{Model: m.Name, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (m *Model) addField(f *Field) error {
	if _, dup := m.fieldsByName[f.Name]; dup {
		return m.definitionError(f.Name, "duplicate field name")
	}
	if _, dup := m.edges[f.Name]; dup {
		return m.definitionError(f.Name, "field name clashes with relation accessor")
	}
	if f.HasColumn() {
		if existing, dup := m.fieldsByColumn[f.Column]; dup {
			return m.definitionError(f.Name, "duplicate column name %q (also used by %s)", f.Column, existing.Name)
		}
		m.fieldsByColumn[f.Column] = f
	}
	if f.PrimaryKey {
		if m.pk != nil {
			return m.definitionError(f.Name, "model already has primary key %s", m.pk.Name)
		}
		m.pk = f
	}
	f.model = m
	m.fields = append(m.fields, f)
	m.fieldsByName[f.Name] = f
	return nil
}

// replaceField swaps a field for its resolved copy, keeping declaration order.
func (m *Model) replaceField(f *Field) {
	for i, existing := range m.fields {
		if existing.Name == f.Name {
			m.fields[i] = f
		}
	}
	f.model = m
	m.fieldsByName[f.Name] = f
	if f.HasColumn() {
		m.fieldsByColumn[f.Column] = f
	}
}

func (m *Model) addEdge(e *Edge) error {
	own := e.Field != nil && e.Field.Name == e.Name && !e.IsReverse()
	if err := m.checkEdge(e.Name, own); err != nil {
		return err
	}
	m.edges[e.Name] = e
	m.edgeNames = append(m.edgeNames, e.Name)
	return nil
}

// checkEdge reports whether an accessor called name can be added to m. own
// is set for the forward accessor of a relation field, which shares the
// field's name.
func (m *Model) checkEdge(name string, own bool) error {
	if existing, dup := m.edges[name]; dup {
		return m.definitionError(name, "ambiguous reverse accessor %q: already used by relation %s.%s; set distinct related names",
			name, existing.Field.Model().Name, existing.Field.Name)
	}
	if _, dup := m.fieldsByName[name]; dup && !own {
		return m.definitionError(name, "reverse accessor %q clashes with a field of the same name", name)
	}
	return nil
}

// plannedEdge is an accessor that wiring the relation decl adds to a model.
type plannedEdge struct {
	on      *Model
	name    string
	decl    *Field
	forward bool
}

// checkEdges validates a batch of accessors before any of them is added.
func checkEdges(planned []plannedEdge) error {
	seen := make(map[*Model]map[string]*Field)
	for _, p := range planned {
		if err := p.on.checkEdge(p.name, p.forward); err != nil {
			return err
		}
		if prev, dup := seen[p.on][p.name]; dup {
			return p.on.definitionError(p.name, "ambiguous reverse accessor %q: already used by relation %s.%s; set distinct related names",
				p.name, prev.Model().Name, prev.Name)
		}
		if seen[p.on] == nil {
			seen[p.on] = make(map[string]*Field)
		}
		seen[p.on][p.name] = p.decl
	}
	return nil
}
