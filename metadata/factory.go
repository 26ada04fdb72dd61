package metadata

import (
	"math"
	"regexp"
)

// isFieldNullable derives nullability: an explicit flag wins, otherwise a field
// is nullable exactly when it has a default or a server default.
func isFieldNullable(nullable *bool, def, serverDefault any) bool {
	if nullable != nil {
		return *nullable
	}
	return def != nil || serverDefault != nil
}

// New builds a field descriptor of the given kind. Missing or out-of-range
// options fail with a *ModelDefinitionError.
func New(kind Kind, opts ...Option) (*Field, error) {
	if !kinds[kind] {
		return nil, definitionErrorf("unknown field kind %q", kind)
	}
	o := collect(opts)

	switch {
	case kind == KindDecimal:
		crossPopulateDecimal(&o)
	case kind.IsIntegral() && o.Autoincrement == nil:
		o.Autoincrement = ptr(o.PrimaryKey)
	}

	if err := validateOptions(kind, &o); err != nil {
		return nil, err
	}

	f := &Field{
		Column:         o.ColumnName,
		Kind:           kind,
		PrimaryKey:     o.PrimaryKey,
		Nullable:       isFieldNullable(o.Nullable, o.Default, o.ServerDefault),
		Index:          o.Index,
		Unique:         o.Unique,
		ValidationOnly: o.ValidationOnly,
		Autoincrement:  o.Autoincrement != nil && *o.Autoincrement,
		Default:        o.Default,
		ServerDefault:  o.ServerDefault,
		ColumnType:     columnTypeFor(kind),
		Constraints:    constraintsFrom(o),
	}

	switch kind {
	case KindString:
		f.ColumnType.Length = *o.MaxLength
	case KindDecimal:
		f.ColumnType.Precision = *o.Precision
		f.ColumnType.Scale = *o.Scale
	case KindForeignKey, KindManyToMany:
		if o.Nullable == nil {
			f.Nullable = true
		}
		f.Relation = &Relation{
			Cardinality: cardinalityOf(kind),
			target:      o.Target,
			through:     o.Through,
			RelatedName: o.RelatedName,
			SkipReverse: o.SkipReverse,
		}
	}
	if f.ValidationOnly {
		f.ColumnType = ColumnType{}
	}

	if len(o.Choices) > 0 {
		unrestricted := *f
		unrestricted.Choices = nil
		unrestricted.Nullable = true
		for _, choice := range o.Choices {
			normalized, err := unrestricted.Validate(choice)
			if err != nil {
				return nil, definitionErrorf("choice %v is not a valid %s value", choice, kind)
			}
			f.Choices = append(f.Choices, normalized)
		}
		f.Constraints.Choices = f.Choices
		if _, isGenerator := o.Default.(func() any); o.Default != nil && !isGenerator {
			if _, err := f.Validate(o.Default); err != nil {
				return nil, definitionErrorf("default %v is not one of the allowed choices", o.Default)
			}
		}
	}
	return f, nil
}

// crossPopulateDecimal lets max_digits stand in for scale and decimal_places
// for precision (and the other way round) when only one of a pair is given.
func crossPopulateDecimal(o *Options) {
	if o.MaxDigits != nil && *o.MaxDigits != 0 {
		o.Scale = ptr(*o.MaxDigits)
	} else if o.Scale != nil && *o.Scale != 0 {
		o.MaxDigits = ptr(*o.Scale)
	}
	if o.DecimalPlaces != nil && *o.DecimalPlaces != 0 {
		o.Precision = ptr(*o.DecimalPlaces)
	} else if o.Precision != nil && *o.Precision != 0 {
		o.DecimalPlaces = ptr(*o.Precision)
	}
}

func validateOptions(kind Kind, o *Options) error {
	if !kind.IsRelation() {
		switch {
		case o.Target != nil:
			return definitionErrorf("option to is only valid for relation fields")
		case o.Through != nil:
			return definitionErrorf("option through is only valid for many-to-many fields")
		case o.RelatedName != "":
			return definitionErrorf("option related_name is only valid for relation fields")
		case o.SkipReverse:
			return definitionErrorf("option skip_reverse is only valid for relation fields")
		}
	}

	switch kind {
	case KindString:
		if o.MaxLength == nil || *o.MaxLength <= 0 {
			return definitionErrorf("parameter max_length is required for field String")
		}
	case KindDecimal:
		if o.Precision == nil || *o.Precision < 0 || o.Scale == nil || *o.Scale < 0 {
			return definitionErrorf("parameters scale and precision are required for field Decimal")
		}
	case KindForeignKey, KindManyToMany:
		if o.Target == nil {
			return definitionErrorf("relation target is required for field %s", kind)
		}
		if o.Through != nil && kind == KindForeignKey {
			return definitionErrorf("option through is only valid for many-to-many fields")
		}
		if o.PrimaryKey {
			return definitionErrorf("relation fields cannot be primary keys")
		}
	}

	for name, n := range map[string]*int{"min_length": o.MinLength, "max_length": o.MaxLength, "curtail_length": o.CurtailLength} {
		if n != nil && *n < 0 {
			return definitionErrorf("%s must not be negative", name)
		}
	}
	if o.MinLength != nil && o.MaxLength != nil && *o.MinLength > *o.MaxLength {
		return definitionErrorf("min_length %d exceeds max_length %d", *o.MinLength, *o.MaxLength)
	}
	if o.Minimum != nil && o.Maximum != nil && *o.Minimum > *o.Maximum {
		return definitionErrorf("minimum %v exceeds maximum %v", *o.Minimum, *o.Maximum)
	}
	if kind.IsIntegral() {
		for name, v := range map[string]*float64{"minimum": o.Minimum, "maximum": o.Maximum, "multiple_of": o.MultipleOf} {
			if v != nil && *v != math.Trunc(*v) {
				return definitionErrorf("%s must be an integer for field %s", name, kind)
			}
		}
	}
	if o.Regex != "" {
		if _, err := regexp.Compile(o.Regex); err != nil {
			return definitionErrorf("invalid regex %q: %v", o.Regex, err)
		}
	}
	if o.Autoincrement != nil && *o.Autoincrement && !kind.IsIntegral() {
		return definitionErrorf("autoincrement is only valid for integer fields")
	}
	if o.ValidationOnly && o.PrimaryKey {
		return definitionErrorf("a validation-only field cannot be a primary key")
	}
	return nil
}

func constraintsFrom(o Options) Constraints {
	c := Constraints{
		MinLength:       o.MinLength,
		MaxLength:       o.MaxLength,
		CurtailLength:   o.CurtailLength,
		StripWhitespace: o.StripWhitespace,
		GE:              o.Minimum,
		LE:              o.Maximum,
		MultipleOf:      o.MultipleOf,
		MaxDigits:       o.MaxDigits,
		DecimalPlaces:   o.DecimalPlaces,
	}
	if o.Regex != "" {
		c.Regex = regexp.MustCompile(o.Regex)
	}
	return c
}

// String builds a bounded text field; MaxLength is required.
func String(opts ...Option) (*Field, error)     { return New(KindString, opts...) }
func Text(opts ...Option) (*Field, error)       { return New(KindText, opts...) }
func Integer(opts ...Option) (*Field, error)    { return New(KindInteger, opts...) }
func BigInteger(opts ...Option) (*Field, error) { return New(KindBigInteger, opts...) }
func Float(opts ...Option) (*Field, error)      { return New(KindFloat, opts...) }

// Decimal builds a fixed-point field; precision and scale (or max_digits and
// decimal_places) are required.
func Decimal(opts ...Option) (*Field, error)  { return New(KindDecimal, opts...) }
func Boolean(opts ...Option) (*Field, error)  { return New(KindBoolean, opts...) }
func DateTime(opts ...Option) (*Field, error) { return New(KindDateTime, opts...) }
func Date(opts ...Option) (*Field, error)     { return New(KindDate, opts...) }
func Time(opts ...Option) (*Field, error)     { return New(KindTime, opts...) }
func JSON(opts ...Option) (*Field, error)     { return New(KindJSON, opts...) }
func UUID(opts ...Option) (*Field, error)     { return New(KindUUID, opts...) }

// ForeignKey builds a many-to-one relation to target.
func ForeignKey(target Target, opts ...Option) (*Field, error) {
	return New(KindForeignKey, append(opts, To(target))...)
}

// ManyToMany builds a many-to-many relation to target, optionally through an
// explicit association model.
func ManyToMany(target Target, opts ...Option) (*Field, error) {
	return New(KindManyToMany, append(opts, To(target))...)
}
