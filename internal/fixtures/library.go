// Package fixtures declares the model registry and data set shared by the
// driver tests.
package fixtures

import (
	"context"
	"fmt"

	"github.com/chmenegatti/ormgraph"
	"github.com/chmenegatti/ormgraph/metadata"
)

// Library returns a sealed registry with
//
//	Author 1-n Book (reverse accessor "books")
//	Book n-n Tag as "tags" (reverse accessor "books", table books_tags)
//
// Tag is referenced before it is declared.
func Library() (*metadata.Registry, error) {
	reg := metadata.NewRegistry(nil)

	author, err := reg.Model("Author").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("name", metadata.KindString, metadata.MaxLength(100), metadata.Index()).
		Build()
	if err != nil {
		return nil, err
	}

	if _, err := reg.Model("Book").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("title", metadata.KindString, metadata.MaxLength(200), metadata.Unique()).
		Field("in_print", metadata.KindBoolean, metadata.ServerDefault(true)).
		ForeignKey("author", author).
		ManyToMany("tags", metadata.Ref("Tag")).
		Build(); err != nil {
		return nil, err
	}

	if _, err := reg.Model("Tag").
		Field("id", metadata.KindInteger, metadata.PrimaryKey()).
		Field("label", metadata.KindString, metadata.MaxLength(30)).
		Build(); err != nil {
		return nil, err
	}

	if err := reg.Seal(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Populate saves a small data set into ds:
//
//	Ann wrote "Go Basics" (go) and "Learning SQL" (db, go)
//	Bob wrote nothing
//	"Orphan" has no author and no tags
//
// The returned map is keyed by author name, book title and tag label.
func Populate(ctx context.Context, ds ormgraph.DataSource, reg *metadata.Registry) (map[string]*ormgraph.Instance, error) {
	out := make(map[string]*ormgraph.Instance)
	save := func(model, key string, values map[string]any) error {
		m, ok := reg.Get(model)
		if !ok {
			return fmt.Errorf("fixtures: unknown model %s", model)
		}
		inst, err := ormgraph.NewInstance(m, values)
		if err != nil {
			return err
		}
		if err := ormgraph.Save(ctx, ds, inst); err != nil {
			return err
		}
		out[key] = inst
		return nil
	}

	steps := []struct {
		model, key string
		values     func() map[string]any
	}{
		{"Author", "Ann", func() map[string]any { return map[string]any{"name": "Ann"} }},
		{"Author", "Bob", func() map[string]any { return map[string]any{"name": "Bob"} }},
		{"Book", "Go Basics", func() map[string]any { return map[string]any{"title": "Go Basics", "author": out["Ann"]} }},
		{"Book", "Learning SQL", func() map[string]any { return map[string]any{"title": "Learning SQL", "author": out["Ann"]} }},
		{"Book", "Orphan", func() map[string]any { return map[string]any{"title": "Orphan", "in_print": false} }},
		{"Tag", "go", func() map[string]any { return map[string]any{"label": "go"} }},
		{"Tag", "db", func() map[string]any { return map[string]any{"label": "db"} }},
	}
	for _, s := range steps {
		if err := save(s.model, s.key, s.values()); err != nil {
			return nil, fmt.Errorf("fixtures: saving %s: %w", s.key, err)
		}
	}

	links := []struct {
		from, relation, to string
	}{
		{"Go Basics", "tags", "go"},
		{"Learning SQL", "tags", "db"},
		{"go", "books", "Learning SQL"},
	}
	for _, l := range links {
		if err := ormgraph.AddRelated(ctx, ds, out[l.from], l.relation, out[l.to]); err != nil {
			return nil, fmt.Errorf("fixtures: linking %s to %s: %w", l.from, l.to, err)
		}
	}
	return out, nil
}
