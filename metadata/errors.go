package metadata

import (
	"errors"
	"fmt"
)

// ErrRegistrySealed is returned when a model is declared after Seal.
var ErrRegistrySealed = errors.New("metadata: registry is sealed")

// ModelDefinitionError reports a misconfigured field, model or relation.
// It is raised while declaring models, before any database interaction.
type ModelDefinitionError struct {
	Model  string // may be empty when the field is built outside a model
	Field  string
	Reason string
}

func (e *ModelDefinitionError) Error() string {
	switch {
	case e.Model != "" && e.Field != "":
		return fmt.Sprintf("metadata: %s.%s: %s", e.Model, e.Field, e.Reason)
	case e.Model != "":
		return fmt.Sprintf("metadata: %s: %s", e.Model, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("metadata: field %s: %s", e.Field, e.Reason)
	}
	return "metadata: " + e.Reason
}

func definitionErrorf(format string, args ...any) *ModelDefinitionError {
	return &ModelDefinitionError{Reason: fmt.Sprintf(format, args...)}
}

// IsDefinitionError reports whether err (or anything it wraps) is a ModelDefinitionError.
func IsDefinitionError(err error) bool {
	var e *ModelDefinitionError
	return errors.As(err, &e)
}

// ResolutionError reports a forward reference that names no declared model.
type ResolutionError struct {
	Model  string // model holding the reference
	Field  string
	Target string // unresolved model name
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("metadata: cannot resolve forward reference %q on %s.%s: model is not declared", e.Target, e.Model, e.Field)
}

// ValidationError is returned by Field.Validate when a value violates a constraint.
type ValidationError struct {
	Field string
	Rule  string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("metadata: value %v for field %s violates %s", e.Value, e.Field, e.Rule)
}
