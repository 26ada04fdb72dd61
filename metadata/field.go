package metadata

// Field describes one model attribute: its kind, constraints and storage
// mapping. Fields are read-only once built; forward-reference resolution
// replaces a relation field with a resolved copy instead of mutating it.
type Field struct {
	Name   string // attribute name, set when the field is attached to a model
	Column string // storage column name; empty for fields without a column
	Kind   Kind

	PrimaryKey     bool
	Nullable       bool
	Index          bool
	Unique         bool
	ValidationOnly bool
	Autoincrement  bool

	Default       any // value or func() any
	ServerDefault any

	ColumnType  ColumnType
	Choices     []any
	Constraints Constraints

	Relation *Relation // set for foreign-key and many-to-many fields

	model *Model
}

// Model returns the model the field is attached to, or nil.
func (f *Field) Model() *Model { return f.model }

// HasColumn reports whether the field is stored in its model's table.
func (f *Field) HasColumn() bool {
	return !f.ValidationOnly && f.Kind != KindManyToMany
}

// HasDefault reports whether a client-side default is set.
func (f *Field) HasDefault() bool { return f.Default != nil }

// DefaultValue returns the default, calling it first when it is a generator.
func (f *Field) DefaultValue() any {
	switch d := f.Default.(type) {
	case func() any:
		return d()
	case nil:
		return nil
	}
	return f.Default
}

// Validate checks v against the field's nullability, type and constraints and
// returns the normalized value (whitespace stripped, text curtailed, numbers
// widened, strings parsed into UUIDs and times).
func (f *Field) Validate(v any) (any, error) {
	if v == nil {
		if f.Nullable || (f.PrimaryKey && f.Autoincrement) {
			return nil, nil
		}
		return nil, &ValidationError{Field: f.Name, Rule: "not null", Value: v}
	}
	switch f.Kind {
	case KindManyToMany:
		return nil, &ValidationError{Field: f.Name, Rule: "many-to-many fields hold no value", Value: v}
	case KindForeignKey:
		if pk := f.Relation.TargetPK(); pk != nil {
			return pk.Validate(v)
		}
		return v, nil
	}
	normalized, err := f.Constraints.normalize(f.Name, f.Kind, v)
	if err != nil {
		return nil, err
	}
	if err := f.Constraints.checkChoices(f.Name, normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// Coerce converts v to the Go type Validate produces for the field, without
// checking nullability, constraints or choices. Foreign keys coerce to the
// target primary key's type.
func (f *Field) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case KindManyToMany:
		return nil, &ValidationError{Field: f.Name, Rule: "many-to-many fields hold no value", Value: v}
	case KindForeignKey:
		if pk := f.Relation.TargetPK(); pk != nil {
			return pk.Coerce(v)
		}
		return v, nil
	}
	return Constraints{}.normalize(f.Name, f.Kind, v)
}

// ValueKind is the kind of the values the field holds: the target primary
// key's kind for foreign keys, the field's own kind otherwise.
func (f *Field) ValueKind() Kind {
	if f.Kind == KindForeignKey {
		if pk := f.Relation.TargetPK(); pk != nil {
			return pk.Kind
		}
	}
	return f.Kind
}

func (f *Field) clone() *Field {
	c := *f
	if f.Relation != nil {
		r := *f.Relation
		c.Relation = &r
	}
	return &c
}
