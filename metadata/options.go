package metadata

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Options is the declarative configuration of a field. A nil pointer means
// the option was not given.
type Options struct {
	ColumnName     string
	PrimaryKey     bool
	Default        any // value, or func() any generator
	ServerDefault  any // SQL expression emitted in DDL
	Nullable       *bool
	Index          bool
	Unique         bool
	ValidationOnly bool // field exists for validation only and has no column
	Autoincrement  *bool
	Choices        []any

	MaxLength       *int
	MinLength       *int
	CurtailLength   *int
	StripWhitespace bool
	Regex           string

	Minimum    *float64
	Maximum    *float64
	MultipleOf *float64

	Precision     *int
	Scale         *int
	MaxDigits     *int
	DecimalPlaces *int

	Target      Target
	Through     Target
	RelatedName string
	SkipReverse bool
}

// Option configures a field declaration.
type Option func(*Options)

func ptr[T any](v T) *T { return &v }

// ColumnName overrides the storage column name (the "name" option).
func ColumnName(name string) Option { return func(o *Options) { o.ColumnName = name } }

func PrimaryKey() Option { return func(o *Options) { o.PrimaryKey = true } }

// Default sets a client-side default. v may be a func() any, which is called
// for every new instance.
func Default(v any) Option { return func(o *Options) { o.Default = v } }

// DefaultUUID generates a random UUID for every new instance.
func DefaultUUID() Option {
	return Default(func() any { return uuid.New() })
}

// ServerDefault sets the DEFAULT expression of the column.
func ServerDefault(expr any) Option { return func(o *Options) { o.ServerDefault = expr } }

// Nullable sets nullability explicitly instead of deriving it from defaults.
func Nullable(b bool) Option { return func(o *Options) { o.Nullable = ptr(b) } }

func Index() Option  { return func(o *Options) { o.Index = true } }
func Unique() Option { return func(o *Options) { o.Unique = true } }

// ValidationOnly keeps the field out of the table.
func ValidationOnly() Option { return func(o *Options) { o.ValidationOnly = true } }

func Autoincrement(b bool) Option { return func(o *Options) { o.Autoincrement = ptr(b) } }

func Choices(values ...any) Option {
	return func(o *Options) { o.Choices = append(o.Choices, values...) }
}

func MaxLength(n int) Option     { return func(o *Options) { o.MaxLength = ptr(n) } }
func MinLength(n int) Option     { return func(o *Options) { o.MinLength = ptr(n) } }
func CurtailLength(n int) Option { return func(o *Options) { o.CurtailLength = ptr(n) } }
func StripWhitespace() Option    { return func(o *Options) { o.StripWhitespace = true } }
func Regex(expr string) Option   { return func(o *Options) { o.Regex = expr } }

// Minimum is an inclusive lower bound.
func Minimum(v float64) Option { return func(o *Options) { o.Minimum = ptr(v) } }

// Maximum is an inclusive upper bound.
func Maximum(v float64) Option    { return func(o *Options) { o.Maximum = ptr(v) } }
func MultipleOf(v float64) Option { return func(o *Options) { o.MultipleOf = ptr(v) } }

func Precision(n int) Option     { return func(o *Options) { o.Precision = ptr(n) } }
func Scale(n int) Option         { return func(o *Options) { o.Scale = ptr(n) } }
func MaxDigits(n int) Option     { return func(o *Options) { o.MaxDigits = ptr(n) } }
func DecimalPlaces(n int) Option { return func(o *Options) { o.DecimalPlaces = ptr(n) } }

// To sets the target model of a relation field.
func To(t Target) Option { return func(o *Options) { o.Target = t } }

// Through sets an explicit association model for a many-to-many relation.
func Through(t Target) Option { return func(o *Options) { o.Through = t } }

func RelatedName(name string) Option { return func(o *Options) { o.RelatedName = name } }

// SkipReverse suppresses the back-reference on the target model.
func SkipReverse() Option { return func(o *Options) { o.SkipReverse = true } }

func collect(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// OptionsFromMap converts snake_case option names, as found in struct tags and
// schema files, into Options. Values written as strings are coerced to the
// type the option (or, for default and choices, the field kind) expects.
func OptionsFromMap(kind Kind, m map[string]any) ([]Option, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var opts []Option
	for _, key := range keys {
		value := m[key]
		opt, err := optionFromEntry(kind, key, value)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func optionFromEntry(kind Kind, key string, value any) (Option, error) {
	wrap := func(err error) error {
		return definitionErrorf("option %s: %v", key, err)
	}
	switch key {
	case "name", "column":
		return ColumnName(fmt.Sprint(value)), nil
	case "primary_key", "pk":
		b, err := asBool(value)
		if err != nil {
			return nil, wrap(err)
		}
		return func(o *Options) { o.PrimaryKey = b }, nil
	case "default":
		v, err := coerceValue(kind, value)
		if err != nil {
			return nil, wrap(err)
		}
		return Default(v), nil
	case "server_default":
		return ServerDefault(value), nil
	case "nullable":
		b, err := asBool(value)
		if err != nil {
			return nil, wrap(err)
		}
		return Nullable(b), nil
	case "index", "unique", "pydantic_only", "validation_only", "strip_whitespace", "skip_reverse":
		b, err := asBool(value)
		if err != nil {
			return nil, wrap(err)
		}
		return func(o *Options) {
			switch key {
			case "index":
				o.Index = b
			case "unique":
				o.Unique = b
			case "pydantic_only", "validation_only":
				o.ValidationOnly = b
			case "strip_whitespace":
				o.StripWhitespace = b
			case "skip_reverse":
				o.SkipReverse = b
			}
		}, nil
	case "autoincrement":
		b, err := asBool(value)
		if err != nil {
			return nil, wrap(err)
		}
		return Autoincrement(b), nil
	case "choices":
		items, err := asList(value)
		if err != nil {
			return nil, wrap(err)
		}
		for i, item := range items {
			if items[i], err = coerceValue(kind, item); err != nil {
				return nil, wrap(err)
			}
		}
		return Choices(items...), nil
	case "max_length", "min_length", "curtail_length", "precision", "scale", "max_digits", "decimal_places":
		n, err := asInt(value)
		if err != nil {
			return nil, wrap(err)
		}
		return func(o *Options) {
			switch key {
			case "max_length":
				o.MaxLength = ptr(n)
			case "min_length":
				o.MinLength = ptr(n)
			case "curtail_length":
				o.CurtailLength = ptr(n)
			case "precision":
				o.Precision = ptr(n)
			case "scale":
				o.Scale = ptr(n)
			case "max_digits":
				o.MaxDigits = ptr(n)
			case "decimal_places":
				o.DecimalPlaces = ptr(n)
			}
		}, nil
	case "minimum", "maximum", "multiple_of":
		f, err := asFloat(value)
		if err != nil {
			return nil, wrap(err)
		}
		return func(o *Options) {
			switch key {
			case "minimum":
				o.Minimum = ptr(f)
			case "maximum":
				o.Maximum = ptr(f)
			case "multiple_of":
				o.MultipleOf = ptr(f)
			}
		}, nil
	case "regex":
		return Regex(fmt.Sprint(value)), nil
	case "related_name":
		return RelatedName(fmt.Sprint(value)), nil
	case "to", "fk", "m2m":
		return To(Ref(fmt.Sprint(value))), nil
	case "through":
		return Through(Ref(fmt.Sprint(value))), nil
	}
	return nil, definitionErrorf("unknown option %q", key)
}

func asBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case nil:
		return true, nil
	case string:
		if b == "" {
			return true, nil // bare flag, e.g. `orm:"unique"`
		}
		return strconv.ParseBool(b)
	}
	return false, fmt.Errorf("expected bool, got %T", v)
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asList(v any) ([]any, error) {
	switch l := v.(type) {
	case []any:
		return append([]any(nil), l...), nil
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, nil
	case string:
		parts := strings.Split(l, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected list, got %T", v)
}

// coerceValue converts v to the Go type values of kind are stored as. Only
// string input is converted; typed input is returned as is.
func coerceValue(kind Kind, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		if kind.IsIntegral() {
			if f, isFloat := v.(float64); isFloat {
				n, err := asInt(f)
				return int64(n), err
			}
			if n, isInt := v.(int); isInt {
				return int64(n), nil
			}
		}
		return v, nil
	}
	switch kind {
	case KindInteger, KindBigInteger:
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	case KindFloat:
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	case KindBoolean:
		return strconv.ParseBool(strings.TrimSpace(s))
	case KindUUID:
		return uuid.Parse(strings.TrimSpace(s))
	}
	return s, nil
}
