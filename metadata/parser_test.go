package metadata_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmenegatti/ormgraph/metadata"
)

// --- Example structs ---

type Author struct {
	ID      int64   `orm:"pk"`
	Name    string  `orm:"max_length:80;index"`
	Bio     *string // nullable text
	Books   []*Book `orm:"m2m:Book;related_name:authors"`
	Skipped string  `orm:"-"`
	Events  chan int
	cache   string
}

type Book struct {
	ID          int64          `orm:"pk"`
	Title       string         `orm:"max_length:200;unique"`
	Price       float64        `orm:"kind:decimal;precision:10;scale:2"`
	Status      string         `orm:"max_length:10;choices:draft,published;default:draft"`
	Editor      *Author        `orm:"fk;related_name:edited_books"`
	Meta        map[string]any `orm:"nullable"`
	ISBN        uuid.UUID
	PublishedAt time.Time
}

func (Book) TableName() string { return "library_books" }

type Broken struct {
	ID     int64    `orm:"pk"`
	Size   string   `orm:"max_length:abc"`
	Stream chan int `orm:"index"`
	Flags  string   `orm:"unique;unique"`
}

// --- Test Functions ---

func TestRegister_InfersKindsFromGoTypes(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	author, err := reg.Register(&Author{})
	require.NoError(t, err)
	book, err := reg.Register(Book{})
	require.NoError(t, err)
	require.NoError(t, reg.Seal())

	assert.Equal(t, "Author", author.Name)
	assert.Equal(t, "authors", author.TableName)
	assert.Equal(t, "library_books", book.TableName, "TableName method is honored")

	var authorColumns []string
	for _, f := range author.Columns() {
		authorColumns = append(authorColumns, f.Column)
	}
	assert.Equal(t, []string{"id", "name", "bio"}, authorColumns)

	kinds := map[string]metadata.Kind{
		"id": metadata.KindBigInteger, "title": metadata.KindString, "price": metadata.KindDecimal,
		"editor": metadata.KindForeignKey, "meta": metadata.KindJSON, "isbn": metadata.KindUUID,
		"published_at": metadata.KindDateTime,
	}
	for name, want := range kinds {
		f, ok := book.Field(name)
		require.True(t, ok, "field %s", name)
		assert.Equal(t, want, f.Kind, "kind of %s", name)
	}

	bio, _ := author.Field("bio")
	assert.Equal(t, metadata.KindText, bio.Kind)
	assert.True(t, bio.Nullable, "pointer fields are nullable")

	name, _ := author.Field("name")
	assert.True(t, name.Index)
	assert.False(t, name.Nullable)

	price, _ := book.Field("price")
	assert.Equal(t, "decimal(10,2)", price.ColumnType.String())

	status, _ := book.Field("status")
	assert.Equal(t, []any{"draft", "published"}, status.Choices)
	assert.Equal(t, "draft", status.Default)

	meta, _ := book.Field("meta")
	assert.True(t, meta.Nullable)
}

func TestRegister_Relations(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	author, err := reg.Register(&Author{})
	require.NoError(t, err)
	book, err := reg.Register(&Book{})
	require.NoError(t, err)
	require.NoError(t, reg.Seal())

	editor, _ := book.Field("editor")
	assert.Same(t, author, editor.Relation.Target())
	_, ok := author.Edge("edited_books")
	assert.True(t, ok)

	books, ok := author.Edge("books")
	require.True(t, ok)
	assert.Equal(t, "AuthorBook", books.Through.Name)
	assert.Equal(t, "authors_library_books", books.Through.TableName)
	_, ok = book.Edge("authors")
	assert.True(t, ok)
}

func TestRegister_CachesByType(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	first, err := reg.Register(&Author{})
	require.NoError(t, err)
	second, err := reg.Register(Author{})
	require.NoError(t, err)
	assert.Same(t, first, second)

	found, ok := reg.ModelFor(&Author{})
	assert.True(t, ok)
	assert.Same(t, first, found)

	_, ok = reg.ModelFor(Book{})
	assert.False(t, ok)
}

func TestRegister_AccumulatesTagErrors(t *testing.T) {
	reg := metadata.NewRegistry(nil)
	_, err := reg.Register(&Broken{})
	require.Error(t, err)
	assert.True(t, metadata.IsDefinitionError(err))
	assert.Contains(t, err.Error(), "Broken.size")
	assert.Contains(t, err.Error(), "Broken.stream")
	assert.Contains(t, err.Error(), "duplicate tag key")

	_, err = reg.Register(42)
	assert.Error(t, err)
	_, err = reg.Register(nil)
	assert.Error(t, err)
}
