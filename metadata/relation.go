package metadata

// Target is the model a relation points at: either a declared *Model or a
// ForwardRef naming a model that may not be declared yet.
type Target interface {
	TargetName() string
}

// ForwardRef is a placeholder for a model identified by name only. It is
// replaced by the concrete model during forward-reference resolution.
type ForwardRef struct {
	name string
}

// Ref returns a forward placeholder for the named model.
func Ref(name string) ForwardRef { return ForwardRef{name: name} }

func (r ForwardRef) TargetName() string { return r.name }

// Cardinality of a relation field, seen from the model declaring it.
type Cardinality string

const (
	CardinalityManyToOne  Cardinality = "many_to_one"
	CardinalityManyToMany Cardinality = "many_to_many"
)

func cardinalityOf(k Kind) Cardinality {
	if k == KindManyToMany {
		return CardinalityManyToMany
	}
	return CardinalityManyToOne
}

// Relation is the relationship part of a foreign-key or many-to-many field.
type Relation struct {
	Cardinality Cardinality
	RelatedName string
	SkipReverse bool

	target  Target
	through Target
	// wired is set once the relation's edges exist. A concrete target alone
	// does not make a relation resolved.
	wired bool
}

// Target returns the resolved target model, or nil while it is a forward reference.
func (r *Relation) Target() *Model {
	m, _ := r.target.(*Model)
	return m
}

// TargetName is the name of the target model, resolved or not.
func (r *Relation) TargetName() string { return r.target.TargetName() }

// Through returns the association model of a many-to-many relation once it
// is known, explicit or generated.
func (r *Relation) Through() *Model {
	m, _ := r.through.(*Model)
	return m
}

// IsResolved reports whether the relation has been wired to its target:
// forward and reverse edges added and, for foreign keys, the column type
// copied from the target's primary key.
func (r *Relation) IsResolved() bool { return r.wired }

// TargetPK is the primary key of the resolved target, or nil.
func (r *Relation) TargetPK() *Field {
	if t := r.Target(); t != nil {
		return t.PrimaryKey()
	}
	return nil
}

// EdgeKind distinguishes declared relations from their generated back-references.
type EdgeKind string

const (
	EdgeForeignKey        EdgeKind = "foreign_key"
	EdgeReverseForeignKey EdgeKind = "reverse_foreign_key"
	EdgeManyToMany        EdgeKind = "many_to_many"
	EdgeReverseManyToMany EdgeKind = "reverse_many_to_many"
)

// Edge is a navigable link from one model to another under an accessor name.
//
// Join conditions:
//
//	foreign key / reverse foreign key: From.FromColumn = To.ToColumn
//	many-to-many (either direction):   From.FromColumn = Through.ThroughFromColumn
//	                                   Through.ThroughToColumn = To.ToColumn
type Edge struct {
	Name    string
	Kind    EdgeKind
	From    *Model
	To      *Model
	Field   *Field // declaring relation field
	Through *Model

	FromColumn        string
	ToColumn          string
	ThroughFromColumn string
	ThroughToColumn   string
}

// IsMany reports whether the accessor yields a collection.
func (e *Edge) IsMany() bool { return e.Kind != EdgeForeignKey }

// IsReverse reports whether the edge is a generated back-reference.
func (e *Edge) IsReverse() bool {
	return e.Kind == EdgeReverseForeignKey || e.Kind == EdgeReverseManyToMany
}

// Reverse returns the edge walking the same relation in the other direction,
// or nil when the back-reference was skipped.
func (e *Edge) Reverse() *Edge {
	for _, other := range e.To.Edges() {
		if other.Field == e.Field && other.Kind != e.Kind && other.To == e.From {
			return other
		}
	}
	return nil
}
