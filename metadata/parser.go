package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
)

// TagName is the struct tag read by Register.
const TagName = "orm"

var (
	timeType       = reflect.TypeOf(time.Time{})
	uuidType       = reflect.TypeOf(uuid.UUID{})
	rawMessageType = reflect.TypeOf(json.RawMessage{})
)

// Tabler lets a struct registered with Register choose its table name.
type Tabler interface {
	TableName() string
}

// Register declares a model from the exported fields of a struct (or pointer
// to struct). Options come from the `orm` tag, written as `key:value` pairs
// separated by semicolons; bare keys are boolean flags:
//
//	type Student struct {
//		ID      int64    `orm:"pk"`
//		Name    string   `orm:"max_length:100;index"`
//		Teacher *Teacher `orm:"fk;related_name:pupils"`
//	}
//
// The kind is inferred from the Go type unless a `kind` key is given. Pointer
// fields are nullable unless the tag says otherwise. Relation targets default
// to the name of the referenced struct type and are declared as forward
// references, resolved by UpdateForwardRefs or Seal. Fields tagged "-" and
// fields whose type maps to no kind are skipped.
func (r *Registry) Register(target any) (*Model, error) {
	if target == nil {
		return nil, definitionErrorf("register: target must not be nil")
	}
	structType := reflect.TypeOf(target)
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, definitionErrorf("register: target must be a struct or pointer to struct, got %s", reflect.TypeOf(target).Kind())
	}
	if m, found := r.types[structType]; found {
		return m, nil
	}

	b := r.Model(structType.Name())
	if t, ok := target.(Tabler); ok {
		b.Table(t.TableName())
	}

	var parseErrors []error
	for i := 0; i < structType.NumField(); i++ {
		sf := structType.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, tagged := sf.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}
		name := strcase.ToSnake(sf.Name)

		entries, err := parseTag(tag)
		if err != nil {
			parseErrors = append(parseErrors, &ModelDefinitionError{Model: b.name, Field: name, Reason: err.Error()})
			continue
		}
		kind, err := kindForField(sf.Type, entries)
		if err != nil {
			parseErrors = append(parseErrors, &ModelDefinitionError{Model: b.name, Field: name, Reason: err.Error()})
			continue
		}
		if kind == "" {
			if tagged {
				parseErrors = append(parseErrors, &ModelDefinitionError{Model: b.name, Field: name,
					Reason: fmt.Sprintf("cannot infer a field kind for Go type %s; set kind explicitly", sf.Type)})
			}
			continue
		}
		if kind.IsRelation() {
			if to, _ := entries["to"].(string); to == "" {
				entries["to"] = relationTargetName(sf.Type)
			}
		} else if _, explicit := entries["nullable"]; !explicit && sf.Type.Kind() == reflect.Ptr {
			entries["nullable"] = true
		}

		opts, err := OptionsFromMap(kind, entries)
		if err != nil {
			parseErrors = append(parseErrors, &ModelDefinitionError{Model: b.name, Field: name, Reason: err.Error()})
			continue
		}
		b.Field(name, kind, opts...)
	}
	if len(parseErrors) > 0 {
		return nil, fmt.Errorf("register %s: %w", structType.Name(), errors.Join(parseErrors...))
	}

	m, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", structType.Name(), err)
	}
	r.types[structType] = m
	return m, nil
}

// ModelFor returns the model registered for the struct type of v.
func (r *Registry) ModelFor(v any) (*Model, bool) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	m, ok := r.types[t]
	return m, ok
}

// parseTag splits `a;b:1;c:x,y` into a map. The relation keys fk and m2m are
// folded into kind and to.
func parseTag(tag string) (map[string]any, error) {
	entries := make(map[string]any)
	for _, opt := range strings.Split(tag, ";") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, value, _ := strings.Cut(opt, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "fk", "m2m":
			if _, dup := entries["kind"]; dup {
				return nil, fmt.Errorf("duplicate relation kind in tag %q", tag)
			}
			entries["kind"] = key
			if value != "" {
				entries["to"] = value
			}
			continue
		}
		if _, dup := entries[key]; dup {
			return nil, fmt.Errorf("duplicate tag key %q", key)
		}
		entries[key] = value
	}
	return entries, nil
}

// kindForField returns the explicit kind from the tag, or infers one from the
// Go type. An empty kind means the field is not mapped.
func kindForField(t reflect.Type, entries map[string]any) (Kind, error) {
	if raw, ok := entries["kind"]; ok {
		delete(entries, "kind")
		return ParseKind(raw.(string))
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return KindDateTime, nil
	case uuidType:
		return KindUUID, nil
	case rawMessageType:
		return KindJSON, nil
	}
	switch t.Kind() {
	case reflect.String:
		if _, bounded := entries["max_length"]; bounded {
			return KindString, nil
		}
		return KindText, nil
	case reflect.Bool:
		return KindBoolean, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return KindInteger, nil
	case reflect.Int64, reflect.Uint64:
		return KindBigInteger, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	case reflect.Map:
		return KindJSON, nil
	}
	return "", nil
}

// relationTargetName is the struct name behind T, *T, []T or []*T.
func relationTargetName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t.Name()
}
