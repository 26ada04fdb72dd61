package ormgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chmenegatti/ormgraph/metadata"
)

// Instance is one realized row of a model. It owns its scalar values;
// relation slots hold shared references to instances owned by the result
// set they were assembled from, so cyclic graphs are fine.
type Instance struct {
	model     *metadata.Model
	values    map[string]any
	relations map[string]*relationSlot
}

type relationSlot struct {
	one   *Instance
	many  []*Instance
	index map[*Instance]bool
}

func newInstance(m *metadata.Model) *Instance {
	return &Instance{
		model:     m,
		values:    make(map[string]any),
		relations: make(map[string]*relationSlot),
	}
}

// NewInstance builds an instance of m from field values. Missing fields take
// their defaults; every value is validated against its field. A foreign key
// may be given as the related *Instance.
func NewInstance(m *metadata.Model, values map[string]any) (*Instance, error) {
	if m == nil {
		return nil, errors.New("ormgraph: NewInstance: model is nil")
	}
	inst := newInstance(m)

	var errs []error
	for name := range values {
		if _, ok := m.Field(name); !ok {
			errs = append(errs, fmt.Errorf("ormgraph: %s has no field %q", m.Name, name))
		}
	}
	for _, f := range m.Fields() {
		if f.Kind == metadata.KindManyToMany {
			if _, given := values[f.Name]; given {
				errs = append(errs, fmt.Errorf("ormgraph: %s.%s: many-to-many relations are set with AddRelated", m.Name, f.Name))
			}
			continue
		}
		v, given := values[f.Name]
		if !given {
			v = f.DefaultValue()
		}
		if err := inst.Set(f.Name, v); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return inst, nil
}

func (i *Instance) Model() *metadata.Model { return i.model }

// PK returns the primary-key value, nil while unsaved with an autoincrement key.
func (i *Instance) PK() any { return i.values[i.model.PrimaryKey().Name] }

// Get returns a field value. For a foreign key it is the target's primary key.
func (i *Instance) Get(name string) (any, bool) {
	v, ok := i.values[name]
	return v, ok
}

// Values returns a copy of the scalar values, keyed by field name.
func (i *Instance) Values() map[string]any {
	out := make(map[string]any, len(i.values))
	for k, v := range i.values {
		out[k] = v
	}
	return out
}

// Set validates and assigns a field value. Assigning an *Instance to a
// foreign key stores its primary key and links it.
func (i *Instance) Set(name string, v any) error {
	f, ok := i.model.Field(name)
	if !ok {
		return fmt.Errorf("ormgraph: %s has no field %q", i.model.Name, name)
	}
	if f.Kind == metadata.KindManyToMany {
		return fmt.Errorf("ormgraph: %s.%s: many-to-many relations are set with AddRelated", i.model.Name, name)
	}
	if other, isInstance := v.(*Instance); isInstance && f.Kind == metadata.KindForeignKey {
		if other != nil && other.model != f.Relation.Target() {
			return fmt.Errorf("ormgraph: %s.%s expects %s, got %s", i.model.Name, name, f.Relation.TargetName(), other.model.Name)
		}
		var pk any
		if other != nil {
			pk = other.PK()
		}
		normalized, err := f.Validate(pk)
		if err != nil {
			return err
		}
		i.values[name] = normalized
		i.slot(name).one = other
		return nil
	}
	normalized, err := f.Validate(v)
	if err != nil {
		return err
	}
	i.values[name] = normalized
	if f.Kind == metadata.KindForeignKey {
		if s, loaded := i.relations[name]; loaded && s.one != nil && !equalValues(s.one.PK(), normalized) {
			s.one = nil
		}
	}
	return nil
}

// Related returns a loaded collection relation (reverse foreign key or
// many-to-many, either direction). It is nil when the relation was not loaded.
func (i *Instance) Related(name string) []*Instance {
	s, ok := i.relations[name]
	if !ok {
		return nil
	}
	if s.many == nil {
		return []*Instance{}
	}
	return append([]*Instance(nil), s.many...)
}

// One returns the instance loaded for a foreign key, or nil.
func (i *Instance) One(name string) *Instance {
	if s, ok := i.relations[name]; ok {
		return s.one
	}
	return nil
}

// IsLoaded reports whether a relation was populated by a query or by linking.
func (i *Instance) IsLoaded(name string) bool {
	_, ok := i.relations[name]
	return ok
}

func (i *Instance) String() string {
	var b strings.Builder
	b.WriteString(i.model.Name)
	b.WriteByte('(')
	names := make([]string, 0, len(i.values))
	for k := range i.values {
		names = append(names, k)
	}
	sort.Strings(names)
	for n, k := range names {
		if n > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, i.values[k])
	}
	b.WriteByte(')')
	return b.String()
}

func (i *Instance) slot(name string) *relationSlot {
	s, ok := i.relations[name]
	if !ok {
		s = &relationSlot{}
		i.relations[name] = s
	}
	return s
}

// link appends other to a collection once.
func (i *Instance) link(name string, other *Instance) bool {
	s := i.slot(name)
	if s.index == nil {
		s.index = make(map[*Instance]bool)
	}
	if s.index[other] {
		return false
	}
	s.index[other] = true
	s.many = append(s.many, other)
	return true
}
