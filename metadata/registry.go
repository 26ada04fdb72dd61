package metadata

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/iancoleman/strcase"
)

// Registry holds the models declared by an application. It is open while
// models are declared and forward references resolved, and read-only once
// sealed. It is not safe for concurrent declaration; declare and seal at
// start-up, before queries run.
type Registry struct {
	naming NamingStrategy
	models map[string]*Model
	order  []*Model
	types  map[reflect.Type]*Model // models declared with Register
	sealed bool
}

// NewRegistry creates an empty registry. A nil naming strategy selects
// DefaultNamingStrategy.
func NewRegistry(naming NamingStrategy) *Registry {
	if naming == nil {
		naming = defaultNamingStrategy
	}
	return &Registry{
		naming: naming,
		models: make(map[string]*Model),
		types:  make(map[reflect.Type]*Model),
	}
}

func (r *Registry) Naming() NamingStrategy { return r.naming }

// Get returns a declared model by name.
func (r *Registry) Get(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Models returns declared models (generated association models included) in
// declaration order.
func (r *Registry) Models() []*Model { return append([]*Model(nil), r.order...) }

func (r *Registry) Sealed() bool { return r.sealed }

// ModelBuilder collects the fields of one model declaration. Errors from the
// field factory are accumulated and reported together by Build.
type ModelBuilder struct {
	reg   *Registry
	name  string
	table string
	decls []fieldDecl
	errs  []error
}

type fieldDecl struct {
	name  string
	field *Field
}

// Model starts the declaration of a model.
func (r *Registry) Model(name string) *ModelBuilder {
	return &ModelBuilder{reg: r, name: name}
}

// Table overrides the default table name.
func (b *ModelBuilder) Table(name string) *ModelBuilder {
	b.table = name
	return b
}

// Field declares a field built by the factory from kind and opts.
func (b *ModelBuilder) Field(name string, kind Kind, opts ...Option) *ModelBuilder {
	f, err := New(kind, opts...)
	if err != nil {
		b.fail(name, err)
		return b
	}
	return b.Add(name, f)
}

// Add declares a field from an already built descriptor. The descriptor is
// copied, so one descriptor may be shared by several models.
func (b *ModelBuilder) Add(name string, f *Field) *ModelBuilder {
	if f == nil {
		b.fail(name, definitionErrorf("nil field descriptor"))
		return b
	}
	b.decls = append(b.decls, fieldDecl{name: name, field: f})
	return b
}

// ForeignKey declares a many-to-one relation field.
func (b *ModelBuilder) ForeignKey(name string, target Target, opts ...Option) *ModelBuilder {
	return b.Field(name, KindForeignKey, append(opts, To(target))...)
}

// ManyToMany declares a many-to-many relation field.
func (b *ModelBuilder) ManyToMany(name string, target Target, opts ...Option) *ModelBuilder {
	return b.Field(name, KindManyToMany, append(opts, To(target))...)
}

func (b *ModelBuilder) fail(field string, err error) {
	var de *ModelDefinitionError
	if errors.As(err, &de) {
		withContext := *de
		withContext.Model, withContext.Field = b.name, field
		err = &withContext
	}
	b.errs = append(b.errs, err)
}

// Build registers the model. Relations whose targets are concrete models are
// resolved immediately; forward references wait for UpdateForwardRefs or Seal.
func (b *ModelBuilder) Build() (*Model, error) {
	r := b.reg
	if r.sealed {
		return nil, fmt.Errorf("%w: cannot declare model %s", ErrRegistrySealed, b.name)
	}
	if b.name == "" {
		return nil, definitionErrorf("model name is required")
	}
	if _, dup := r.models[b.name]; dup {
		return nil, &ModelDefinitionError{Model: b.name, Reason: "model is already declared"}
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	table := b.table
	if table == "" {
		table = r.naming.TableName(b.name)
	}
	m := newModel(r, b.name, table)

	var errs []error
	for _, d := range b.decls {
		f := d.field.clone()
		f.Name = d.name
		if f.HasColumn() && f.Column == "" {
			f.Column = r.naming.ColumnName(d.name)
		}
		if err := m.addField(f); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Relations to concrete models are checked before the model becomes
	// visible, so a failed Build leaves the registry untouched.
	pending, err := r.pending(m, false)
	if err != nil {
		return nil, err
	}
	if err := r.checkPending(m, pending); err != nil {
		return nil, err
	}

	r.models[m.Name] = m
	r.order = append(r.order, m)

	if err := r.wire(m, pending); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateForwardRefs resolves every forward reference on the named model and
// on the association models of its many-to-many fields. It fails with a
// *ResolutionError when a referenced model is not declared. Fields resolved
// earlier are left untouched.
func (r *Registry) UpdateForwardRefs(name string) error {
	m, ok := r.models[name]
	if !ok {
		return &ModelDefinitionError{Model: name, Reason: "model is not declared"}
	}
	if err := r.resolveModel(m, true); err != nil {
		return err
	}
	for _, f := range m.fields {
		if f.Kind != KindManyToMany {
			continue
		}
		if through := f.Relation.Through(); through != nil && through != m {
			if err := r.resolveModel(through, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// Seal resolves all remaining forward references, checks every model has a
// primary key and closes the registry to further declarations.
func (r *Registry) Seal() error {
	if r.sealed {
		return nil
	}
	for i := 0; i < len(r.order); i++ { // resolution may append association models
		if err := r.resolveModel(r.order[i], true); err != nil {
			return err
		}
	}
	var errs []error
	for _, m := range r.order {
		if m.pk == nil {
			errs = append(errs, &ModelDefinitionError{Model: m.Name, Reason: "model has no primary key"})
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.sealed = true
	return nil
}

func (r *Registry) lookup(t Target, followRefs bool) (*Model, bool) {
	switch t := t.(type) {
	case *Model:
		return t, true
	case ForwardRef:
		if !followRefs {
			return nil, false
		}
		m, ok := r.models[t.name]
		return m, ok
	}
	return nil, false
}

// pendingRelation is an unwired relation field whose target is known.
type pendingRelation struct {
	field   *Field
	target  *Model
	through *Model
}

// pending lists the unwired relation fields of m whose targets can be
// looked up. With strict set, an unknown forward reference is an error;
// otherwise the field is skipped.
func (r *Registry) pending(m *Model, strict bool) ([]pendingRelation, error) {
	var out []pendingRelation
	for _, f := range m.fields {
		rel := f.Relation
		if rel == nil || rel.wired {
			continue
		}
		target, ok := r.lookup(rel.target, strict)
		if !ok {
			if strict {
				return nil, &ResolutionError{Model: m.Name, Field: f.Name, Target: rel.TargetName()}
			}
			continue
		}
		var through *Model
		if rel.through != nil {
			if through, ok = r.lookup(rel.through, strict); !ok {
				if strict {
					return nil, &ResolutionError{Model: m.Name, Field: f.Name, Target: rel.through.TargetName()}
				}
				continue
			}
		}
		out = append(out, pendingRelation{field: f, target: target, through: through})
	}
	return out, nil
}

// checkPending verifies that every relation in pending can be wired: target
// primary keys exist and no accessor name clashes, neither with the models'
// current fields and accessors nor among the new accessors themselves.
func (r *Registry) checkPending(m *Model, pending []pendingRelation) error {
	var planned []plannedEdge
	for _, p := range pending {
		if p.target.pk == nil {
			return m.definitionError(p.field.Name, "target model %s has no primary key", p.target.Name)
		}
		if p.field.Kind == KindManyToMany && m.pk == nil {
			return m.definitionError(p.field.Name, "many-to-many owner has no primary key")
		}
		planned = append(planned, plannedEdge{on: m, name: p.field.Name, decl: p.field, forward: true})
		if !p.field.Relation.SkipReverse {
			planned = append(planned, plannedEdge{on: p.target, name: r.relatedName(m, p.field), decl: p.field})
		}
	}
	return checkEdges(planned)
}

func (r *Registry) wire(m *Model, pending []pendingRelation) error {
	for _, p := range pending {
		if err := r.resolveField(m, p.field, p.target, p.through); err != nil {
			return err
		}
	}
	return nil
}

// resolveModel wires the relation fields of m whose targets are known. All
// of them are checked before any is wired, so a failure leaves m unchanged
// and is reported again by the next resolution attempt.
func (r *Registry) resolveModel(m *Model, strict bool) error {
	pending, err := r.pending(m, strict)
	if err != nil {
		return err
	}
	if err := r.checkPending(m, pending); err != nil {
		return err
	}
	return r.wire(m, pending)
}

func (r *Registry) relatedName(owner *Model, f *Field) string {
	if f.Relation.RelatedName != "" {
		return f.Relation.RelatedName
	}
	return r.naming.RelatedName(owner.Name)
}

func (r *Registry) resolveField(m *Model, f *Field, target, through *Model) error {
	rf := f.clone()
	rf.Relation.target = target
	rf.Relation.wired = true

	switch rf.Kind {
	case KindForeignKey:
		rf.ColumnType = target.pk.ColumnType
		m.replaceField(rf)
		if err := m.addEdge(&Edge{
			Name: rf.Name, Kind: EdgeForeignKey, From: m, To: target, Field: rf,
			FromColumn: rf.Column, ToColumn: target.pk.Column,
		}); err != nil {
			return err
		}
		if rf.Relation.SkipReverse {
			return nil
		}
		return target.addEdge(&Edge{
			Name: r.relatedName(m, rf), Kind: EdgeReverseForeignKey, From: target, To: m, Field: rf,
			FromColumn: target.pk.Column, ToColumn: rf.Column,
		})

	case KindManyToMany:
		assoc, fromKey, toKey, err := r.association(m, rf, target, through)
		if err != nil {
			return err
		}
		rf.Relation.through = assoc
		m.replaceField(rf)
		if err := m.addEdge(&Edge{
			Name: rf.Name, Kind: EdgeManyToMany, From: m, To: target, Field: rf, Through: assoc,
			FromColumn: m.pk.Column, ThroughFromColumn: fromKey.Column,
			ThroughToColumn: toKey.Column, ToColumn: target.pk.Column,
		}); err != nil {
			return err
		}
		if rf.Relation.SkipReverse {
			return nil
		}
		return target.addEdge(&Edge{
			Name: r.relatedName(m, rf), Kind: EdgeReverseManyToMany, From: target, To: m, Field: rf, Through: assoc,
			FromColumn: target.pk.Column, ThroughFromColumn: toKey.Column,
			ThroughToColumn: fromKey.Column, ToColumn: m.pk.Column,
		})
	}
	return nil
}

// association returns the model backing a many-to-many field, generating it
// when no explicit through model was declared, and makes sure it holds a
// primary key plus one foreign key per endpoint.
func (r *Registry) association(owner *Model, f *Field, target, explicit *Model) (assoc *Model, fromKey, toKey *Field, err error) {
	fromName, toName := strcase.ToSnake(owner.Name), strcase.ToSnake(target.Name)
	if owner == target {
		fromName, toName = "from_"+fromName, "to_"+toName
	}

	assoc = explicit
	if assoc == nil {
		name := owner.Name + target.Name
		table := r.naming.ThroughTable(owner.TableName, target.TableName)
		if _, taken := r.models[name]; taken {
			name += strcase.ToCamel(f.Name)
			table += "_" + strcase.ToSnake(f.Name)
		}
		assoc = newModel(r, name, table)
		r.models[name] = assoc
		r.order = append(r.order, assoc)
	}
	assoc.association = true

	if assoc.pk == nil {
		id, err := Integer(PrimaryKey())
		if err != nil {
			return nil, nil, nil, err
		}
		id.Name, id.Column = "id", r.naming.ColumnName("id")
		if err := assoc.addField(id); err != nil {
			return nil, nil, nil, err
		}
	}
	if fromKey, err = r.associationKey(assoc, fromName, owner); err != nil {
		return nil, nil, nil, err
	}
	if toKey, err = r.associationKey(assoc, toName, target); err != nil {
		return nil, nil, nil, err
	}
	return assoc, fromKey, toKey, nil
}

func (r *Registry) associationKey(assoc *Model, name string, target *Model) (*Field, error) {
	if existing, ok := assoc.fieldsByName[name]; ok {
		// an explicit through model may still hold a forward reference here
		if existing.Kind == KindForeignKey && existing.Relation.TargetName() == target.Name {
			return existing, nil
		}
		return nil, assoc.definitionError(name, "association model already has a field named %s", name)
	}
	fk, err := ForeignKey(target, SkipReverse(), Nullable(false))
	if err != nil {
		return nil, err
	}
	fk.Name, fk.Column = name, r.naming.ColumnName(name)
	fk.ColumnType = target.pk.ColumnType
	fk.Relation.wired = true
	if err := assoc.addField(fk); err != nil {
		return nil, err
	}
	return fk, assoc.addEdge(&Edge{
		Name: name, Kind: EdgeForeignKey, From: assoc, To: target, Field: fk,
		FromColumn: fk.Column, ToColumn: target.pk.Column,
	})
}
