// Package schemafile declares models from a YAML document.
//
// A schema file lists models in declaration order; each field names its kind
// and takes the same snake_case options as struct tags:
//
//	models:
//	  - name: Author
//	    fields:
//	      - {name: id, kind: integer, primary_key: true}
//	      - {name: name, kind: string, max_length: 100, index: true}
//	  - name: Book
//	    table: books
//	    fields:
//	      - {name: id, kind: integer, primary_key: true}
//	      - {name: author, kind: foreign_key, to: Author}
//	      - {name: tags, kind: many_to_many, to: Tag, related_name: books}
//
// Relations may refer to models declared later in the file.
package schemafile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chmenegatti/ormgraph/metadata"
)

// File is the decoded document.
type File struct {
	Models []Model `yaml:"models"`
}

// Model declares one model. Fields stay as YAML nodes so errors can carry
// their line numbers.
type Model struct {
	Name   string      `yaml:"name"`
	Table  string      `yaml:"table"`
	Fields []yaml.Node `yaml:"fields"`
}

// Decode reads a schema document from r. Unknown top-level or model keys are
// rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	return &f, nil
}

// Declare adds every model of f to reg. All model errors are collected.
func (f *File) Declare(reg *metadata.Registry) error {
	var errs []error
	for _, m := range f.Models {
		if err := declareModel(reg, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func declareModel(reg *metadata.Registry, m Model) error {
	if m.Name == "" {
		return errors.New("schemafile: model without a name")
	}
	b := reg.Model(m.Name)
	if m.Table != "" {
		b.Table(m.Table)
	}
	var errs []error
	for i := range m.Fields {
		node := &m.Fields[i]
		name, kind, opts, err := fieldSpec(node)
		if err != nil {
			errs = append(errs, fmt.Errorf("schemafile: line %d: %s: %w", node.Line, m.Name, err))
			continue
		}
		b.Field(name, kind, opts...)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if _, err := b.Build(); err != nil {
		return fmt.Errorf("schemafile: %w", err)
	}
	return nil
}

func fieldSpec(node *yaml.Node) (string, metadata.Kind, []metadata.Option, error) {
	var entry map[string]any
	if err := node.Decode(&entry); err != nil {
		return "", "", nil, err
	}
	name, _ := entry["name"].(string)
	if name == "" {
		return "", "", nil, errors.New("field without a name")
	}
	kind, _ := entry["kind"].(string)
	if kind == "" {
		return "", "", nil, fmt.Errorf("field %s has no kind", name)
	}
	delete(entry, "name")
	delete(entry, "kind")

	opts, err := metadata.OptionsFromMap(metadata.Kind(kind), entry)
	if err != nil {
		return "", "", nil, fmt.Errorf("field %s: %w", name, err)
	}
	return name, metadata.Kind(kind), opts, nil
}

// Load reads the schema file at path into a new registry and seals it.
func Load(path string, naming metadata.NamingStrategy) (*metadata.Registry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	defer fh.Close()

	f, err := Decode(fh)
	if err != nil {
		return nil, err
	}
	reg := metadata.NewRegistry(naming)
	if err := f.Declare(reg); err != nil {
		return nil, err
	}
	if err := reg.Seal(); err != nil {
		return nil, fmt.Errorf("schemafile: %s: %w", path, err)
	}
	return reg, nil
}
