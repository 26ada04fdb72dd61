package metadata_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmenegatti/ormgraph/metadata"
)

// declareSchool declares Student before Teacher; Student refers to Teacher by
// name and Teacher refers to Student by model.
func declareSchool(t *testing.T) *metadata.Registry {
	t.Helper()
	reg := metadata.NewRegistry(nil)

	student, err := reg.Model("Student").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("name", metadata.KindString, metadata.MaxLength(100)).
		ForeignKey("primary_teacher", metadata.Ref("Teacher"), metadata.RelatedName("own_students")).
		Build()
	require.NoError(t, err)
	assert.False(t, student.IsResolved(), "forward reference stays pending until resolution")

	_, err = reg.Model("Teacher").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("name", metadata.KindString, metadata.MaxLength(100)).
		ManyToMany("students", student, metadata.RelatedName("teachers")).
		Build()
	require.NoError(t, err)

	require.NoError(t, reg.UpdateForwardRefs("Student"))
	require.NoError(t, reg.Seal())
	return reg
}

// --- Test Functions ---

func TestRegistry_ForwardReferences(t *testing.T) {
	reg := declareSchool(t)
	student, ok := reg.Get("Student")
	require.True(t, ok)
	teacher, ok := reg.Get("Teacher")
	require.True(t, ok)

	assert.Equal(t, "students", student.TableName)
	assert.Equal(t, "teachers", teacher.TableName)
	assert.True(t, student.IsResolved())

	fk, ok := student.Field("primary_teacher")
	require.True(t, ok)
	assert.Same(t, teacher, fk.Relation.Target())
	assert.Equal(t, "primary_teacher", fk.Column)
	assert.Equal(t, metadata.ColumnInteger, fk.ColumnType.Kind, "fk column copies the target pk type")
	assert.Same(t, student, fk.Model())

	forward, ok := student.Edge("primary_teacher")
	require.True(t, ok)
	assert.Equal(t, metadata.EdgeForeignKey, forward.Kind)
	assert.False(t, forward.IsMany())

	reverse, ok := teacher.Edge("own_students")
	require.True(t, ok)
	assert.Equal(t, metadata.EdgeReverseForeignKey, reverse.Kind)
	assert.Same(t, student, reverse.To)
	assert.Equal(t, "id", reverse.FromColumn)
	assert.Equal(t, "primary_teacher", reverse.ToColumn)
	assert.Same(t, reverse, forward.Reverse())
}

func TestRegistry_AutoAssociationModel(t *testing.T) {
	reg := declareSchool(t)
	teacher, _ := reg.Get("Teacher")
	student, _ := reg.Get("Student")

	edge, ok := teacher.Edge("students")
	require.True(t, ok)
	assert.Equal(t, metadata.EdgeManyToMany, edge.Kind)
	require.NotNil(t, edge.Through)

	assoc := edge.Through
	assert.Equal(t, "TeacherStudent", assoc.Name)
	assert.Equal(t, "teachers_students", assoc.TableName)
	assert.True(t, assoc.IsAssociation())

	var names []string
	for _, f := range assoc.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "teacher", "student"}, names)
	assert.True(t, assoc.PrimaryKey().Autoincrement)
	assert.Equal(t, "teacher", edge.ThroughFromColumn)
	assert.Equal(t, "student", edge.ThroughToColumn)

	back, ok := student.Edge("teachers")
	require.True(t, ok)
	assert.Equal(t, metadata.EdgeReverseManyToMany, back.Kind)
	assert.Same(t, assoc, back.Through)
	assert.Equal(t, "student", back.ThroughFromColumn)
	assert.Equal(t, "teacher", back.ThroughToColumn)

	m2m, _ := teacher.Field("students")
	assert.Same(t, assoc, m2m.Relation.Through())
	assert.Contains(t, reg.Models(), assoc)
}

func TestRegistry_ExplicitThroughModel(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	_, err := reg.Model("Enrollment").Table("enrollments").
		Field("grade", metadata.KindInteger, metadata.Nullable(true)).
		Build()
	require.NoError(t, err)
	course, err := reg.Model("Course").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Build()
	require.NoError(t, err)
	_, err = reg.Model("Pupil").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ManyToMany("courses", course, metadata.Through(metadata.Ref("Enrollment"))).
		Build()
	require.NoError(t, err)
	require.NoError(t, reg.Seal())

	enrollment, _ := reg.Get("Enrollment")
	assert.True(t, enrollment.IsAssociation())
	require.NotNil(t, enrollment.PrimaryKey(), "association models get a synthetic primary key")
	assert.Equal(t, "id", enrollment.PrimaryKey().Name)
	_, ok := enrollment.Field("pupil")
	assert.True(t, ok)
	_, ok = enrollment.Field("course")
	assert.True(t, ok)

	_, ok = course.Edge("pupils")
	assert.True(t, ok, "default related name is the pluralized source model")
}

func TestRegistry_SelfReferentialManyToMany(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	person, err := reg.Model("Person").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ManyToMany("friends", metadata.Ref("Person"), metadata.RelatedName("friend_of")).
		Build()
	require.NoError(t, err)
	require.NoError(t, reg.UpdateForwardRefs("Person"))

	edge, ok := person.Edge("friends")
	require.True(t, ok)
	assert.Same(t, person, edge.To)
	assert.Equal(t, "PersonPerson", edge.Through.Name)
	assert.Equal(t, "from_person", edge.ThroughFromColumn)
	assert.Equal(t, "to_person", edge.ThroughToColumn)

	back, ok := person.Edge("friend_of")
	require.True(t, ok)
	assert.Equal(t, "to_person", back.ThroughFromColumn)
	assert.Equal(t, "from_person", back.ThroughToColumn)
}

func TestRegistry_UnresolvedForwardReference(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	_, err := reg.Model("City").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ForeignKey("country", metadata.Ref("Country")).
		Build()
	require.NoError(t, err)

	err = reg.UpdateForwardRefs("City")
	var rerr *metadata.ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Country", rerr.Target)
	assert.Equal(t, "country", rerr.Field)

	require.ErrorAs(t, reg.Seal(), &rerr, "seal fails while a reference is unresolved")
	assert.False(t, reg.Sealed())

	assert.Error(t, reg.UpdateForwardRefs("Nowhere"))
}

func TestRegistry_ResolutionLeavesResolvedFieldsAlone(t *testing.T) {
	reg := declareSchool(t)
	student, _ := reg.Get("Student")
	before, _ := student.Field("primary_teacher")

	require.NoError(t, reg.UpdateForwardRefs("Student"))

	after, _ := student.Field("primary_teacher")
	assert.Same(t, before, after)
	assert.Len(t, student.Edges(), 2, "no duplicate edges after a second resolution")
}

func TestRegistry_AmbiguousReverseAccessor(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	_, err := reg.Model("Match").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ForeignKey("home", metadata.Ref("Club")).
		ForeignKey("away", metadata.Ref("Club")).
		Build()
	require.NoError(t, err)
	_, err = reg.Model("Club").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Build()
	require.NoError(t, err)

	err = reg.Seal()
	require.Error(t, err)
	assert.True(t, metadata.IsDefinitionError(err))
	assert.Contains(t, err.Error(), "ambiguous reverse accessor")

	// Distinct related names resolve cleanly.
	reg = metadata.NewRegistry(nil)
	club, err := reg.Model("Club").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Build()
	require.NoError(t, err)
	_, err = reg.Model("Match").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ForeignKey("home", club, metadata.RelatedName("home_matches")).
		ForeignKey("away", club, metadata.RelatedName("away_matches")).
		Build()
	require.NoError(t, err)
	assert.NoError(t, reg.Seal())
}

func TestRegistry_ConcreteTargetForeignKey(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	author, err := reg.Model("Author").
		Field("id", metadata.KindBigInteger, metadata.PrimaryKey()).
		Build()
	require.NoError(t, err)
	book, err := reg.Model("Book").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ForeignKey("author", author).
		Build()
	require.NoError(t, err)
	assert.True(t, book.IsResolved(), "a concrete target is wired by Build")

	fk, ok := book.Field("author")
	require.True(t, ok)
	assert.Same(t, author, fk.Relation.Target())
	assert.Equal(t, metadata.ColumnBigInteger, fk.ColumnType.Kind, "fk column copies the target pk type")

	forward, ok := book.Edge("author")
	require.True(t, ok)
	assert.Equal(t, metadata.EdgeForeignKey, forward.Kind)
	reverse, ok := author.Edge("books")
	require.True(t, ok)
	assert.Equal(t, metadata.EdgeReverseForeignKey, reverse.Kind)
	assert.Same(t, reverse, forward.Reverse())

	require.NoError(t, reg.Seal())
	assert.Len(t, book.Edges(), 1, "sealing does not wire the relation twice")
	assert.Len(t, author.Edges(), 1)
}

func TestRegistry_FailedResolutionIsReportedBySeal(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	post, err := reg.Model("Post").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ForeignKey("author", metadata.Ref("User")).
		ForeignKey("editor", metadata.Ref("User")).
		Build()
	require.NoError(t, err)
	user, err := reg.Model("User").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Build()
	require.NoError(t, err)

	err = reg.UpdateForwardRefs("Post")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous reverse accessor")

	// nothing was wired by the failed attempt
	assert.Empty(t, post.Edges())
	assert.Empty(t, user.Edges())
	assert.Len(t, post.Unresolved(), 2)

	err = reg.Seal()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous reverse accessor")
	assert.False(t, reg.Sealed())
}

func TestModelBuilder_FailedRelationIsNotRegistered(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	club, err := reg.Model("Club").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Build()
	require.NoError(t, err)

	_, err = reg.Model("Match").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ForeignKey("home", club).
		ForeignKey("away", club).
		Build()
	require.Error(t, err)
	assert.True(t, metadata.IsDefinitionError(err))

	_, ok := reg.Get("Match")
	assert.False(t, ok)
	assert.Empty(t, club.Edges(), "the target keeps no accessor from the failed declaration")

	_, err = reg.Model("Orphan").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ForeignKey("owner", mustKeylessModel(t, reg)).
		Build()
	assert.ErrorContains(t, err, "has no primary key")
	_, ok = reg.Get("Orphan")
	assert.False(t, ok)
}

func mustKeylessModel(t *testing.T, reg *metadata.Registry) *metadata.Model {
	t.Helper()
	m, err := reg.Model("Keyless").Field("name", metadata.KindText).Build()
	require.NoError(t, err)
	return m
}

func TestRegistry_ReverseAccessorClashesWithField(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	_, err := reg.Model("Album").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("tracks", metadata.KindInteger).
		Build()
	require.NoError(t, err)
	_, err = reg.Model("Track").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ForeignKey("album", metadata.Ref("Album")).
		Build()
	require.NoError(t, err)

	err = reg.UpdateForwardRefs("Track")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clashes")
}

func TestRegistry_SkipReverse(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	tag, err := reg.Model("Tag").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Build()
	require.NoError(t, err)
	_, err = reg.Model("Post").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		ManyToMany("tags", tag, metadata.SkipReverse()).
		Build()
	require.NoError(t, err)
	assert.Empty(t, tag.Edges())
}

func TestModelBuilder_AccumulatesErrors(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	_, err := reg.Model("Broken").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("title", metadata.KindString).
		Field("price", metadata.KindDecimal).
		Build()
	require.Error(t, err)

	var defErr *metadata.ModelDefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Equal(t, "Broken", defErr.Model)
	assert.Contains(t, err.Error(), "Broken.title")
	assert.Contains(t, err.Error(), "Broken.price")

	_, ok := reg.Get("Broken")
	assert.False(t, ok, "failed declarations are not registered")
}

func TestModelBuilder_DuplicateNames(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	_, err := reg.Model("Item").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("code", metadata.KindText).
		Field("code", metadata.KindText).
		Build()
	assert.ErrorContains(t, err, "duplicate field name")

	_, err = reg.Model("Item").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("label", metadata.KindText, metadata.ColumnName("code")).
		Field("code", metadata.KindText).
		Build()
	assert.ErrorContains(t, err, "duplicate column name")

	_, err = reg.Model("Item").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Build()
	require.NoError(t, err)
	_, err = reg.Model("Item").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Build()
	assert.ErrorContains(t, err, "already declared")
}

func TestRegistry_Seal(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	_, err := reg.Model("Loose").Field("name", metadata.KindText).Build()
	require.NoError(t, err)
	err = reg.Seal()
	assert.ErrorContains(t, err, "no primary key")

	reg = declareSchool(t)
	assert.True(t, reg.Sealed())
	_, err = reg.Model("Late").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Build()
	assert.True(t, errors.Is(err, metadata.ErrRegistrySealed))
}

func TestModelBuilder_SharedDescriptor(t *testing.T) {
	name, err := metadata.String(metadata.MaxLength(50))
	require.NoError(t, err)

	reg := metadata.NewRegistry(nil)
	a, err := reg.Model("A").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Add("name", name).Build()
	require.NoError(t, err)
	b, err := reg.Model("B").Field("id", metadata.KindInteger, metadata.PrimaryKey()).Add("title", name).Build()
	require.NoError(t, err)

	fa, _ := a.Field("name")
	fb, _ := b.Field("title")
	assert.NotSame(t, fa, fb)
	assert.Equal(t, "title", fb.Column)
	assert.Empty(t, name.Name, "the shared descriptor is not modified")
}
