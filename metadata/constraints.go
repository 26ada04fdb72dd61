package metadata

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// Constraints are the value rules attached to a field. They are defined by
// the factory and enforced by Field.Validate.
type Constraints struct {
	MinLength       *int
	MaxLength       *int
	CurtailLength   *int
	StripWhitespace bool
	Regex           *regexp.Regexp

	GE         *float64 // inclusive lower bound
	LE         *float64 // inclusive upper bound
	MultipleOf *float64

	MaxDigits     *int
	DecimalPlaces *int

	Choices []any
}

// lengthTag renders the length bounds as a validator tag; empty means unbounded.
func (c Constraints) lengthTag() string {
	var parts []string
	if c.MinLength != nil {
		parts = append(parts, "min="+strconv.Itoa(*c.MinLength))
	}
	if c.MaxLength != nil {
		parts = append(parts, "max="+strconv.Itoa(*c.MaxLength))
	}
	return strings.Join(parts, ",")
}

func (c Constraints) rangeTag(integral bool) string {
	format := func(v float64) string {
		if integral {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	var parts []string
	if c.GE != nil {
		parts = append(parts, "gte="+format(*c.GE))
	}
	if c.LE != nil {
		parts = append(parts, "lte="+format(*c.LE))
	}
	return strings.Join(parts, ",")
}

func (c Constraints) checkString(name, s string) (string, error) {
	if c.StripWhitespace {
		s = strings.TrimSpace(s)
	}
	if c.CurtailLength != nil && utf8.RuneCountInString(s) > *c.CurtailLength {
		s = string([]rune(s)[:*c.CurtailLength])
	}
	if tag := c.lengthTag(); tag != "" {
		if err := validate.Var(s, tag); err != nil {
			return s, &ValidationError{Field: name, Rule: "length " + tag, Value: s}
		}
	}
	if c.Regex != nil && !c.Regex.MatchString(s) {
		return s, &ValidationError{Field: name, Rule: "regex " + c.Regex.String(), Value: s}
	}
	return s, nil
}

func (c Constraints) checkRange(name string, v any, asFloat float64, integral bool) error {
	if tag := c.rangeTag(integral); tag != "" {
		if err := validate.Var(v, tag); err != nil {
			return &ValidationError{Field: name, Rule: "range " + tag, Value: v}
		}
	}
	if c.MultipleOf != nil && *c.MultipleOf != 0 {
		q := asFloat / *c.MultipleOf
		if math.Abs(q-math.Round(q)) > 1e-9 {
			return &ValidationError{Field: name, Rule: fmt.Sprintf("multiple_of %v", *c.MultipleOf), Value: v}
		}
	}
	return nil
}

func (c Constraints) checkDigits(name, repr string, d decimal.Decimal) error {
	digits, places := countDigits(d)
	if c.MaxDigits != nil && digits > *c.MaxDigits {
		return &ValidationError{Field: name, Rule: fmt.Sprintf("max_digits %d", *c.MaxDigits), Value: repr}
	}
	if c.DecimalPlaces != nil && places > *c.DecimalPlaces {
		return &ValidationError{Field: name, Rule: fmt.Sprintf("decimal_places %d", *c.DecimalPlaces), Value: repr}
	}
	return nil
}

func (c Constraints) checkChoices(name string, v any) error {
	if len(c.Choices) == 0 {
		return nil
	}
	for _, choice := range c.Choices {
		if choice == v || fmt.Sprint(choice) == fmt.Sprint(v) {
			return nil
		}
	}
	return &ValidationError{Field: name, Rule: fmt.Sprintf("choices %v", c.Choices), Value: v}
}

// countDigits returns the significant digit count and the number of decimal
// places of d, ignoring trailing fractional zeros. A value with more places
// than significant digits counts every place as a digit.
func countDigits(d decimal.Decimal) (digits, places int) {
	coef, exp := new(big.Int).Abs(d.Coefficient()), d.Exponent()
	ten, rem := big.NewInt(10), new(big.Int)
	for exp < 0 && coef.Sign() != 0 {
		q, r := new(big.Int).QuoRem(coef, ten, rem)
		if r.Sign() != 0 {
			break
		}
		coef, exp = q, exp+1
	}
	if coef.Sign() == 0 {
		return 0, 0
	}
	digits = len(coef.String())
	if exp >= 0 {
		return digits + int(exp), 0
	}
	places = int(-exp)
	return max(digits, places), places
}

var temporalLayouts = map[Kind][]string{
	KindDateTime: {time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"},
	KindDate:     {"2006-01-02"},
	KindTime:     {"15:04:05", "15:04"},
}

// normalize converts v to the canonical Go type for kind and applies the
// kind's constraints.
func (c Constraints) normalize(name string, kind Kind, v any) (any, error) {
	mismatch := func() error {
		return &ValidationError{Field: name, Rule: "type " + string(kind), Value: v}
	}
	switch kind {
	case KindString, KindText:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		return c.checkString(name, s)

	case KindInteger, KindBigInteger:
		n, ok := toInt64(v)
		if !ok {
			return nil, mismatch()
		}
		return n, c.checkRange(name, n, float64(n), true)

	case KindFloat:
		f, ok := toFloat64(v)
		if !ok {
			return nil, mismatch()
		}
		return f, c.checkRange(name, f, f, false)

	case KindDecimal:
		var (
			d    decimal.Decimal
			repr string
			err  error
		)
		switch x := v.(type) {
		case decimal.Decimal:
			d, repr = x, x.String()
		case string:
			repr = strings.TrimSpace(x)
			d, err = decimal.NewFromString(repr)
		default:
			f, ok := toFloat64(v)
			if !ok {
				return nil, mismatch()
			}
			d = decimal.NewFromFloat(f)
			repr = d.String()
		}
		if err != nil {
			return nil, mismatch()
		}
		if err := c.checkDigits(name, repr, d); err != nil {
			return nil, err
		}
		f := d.InexactFloat64()
		return repr, c.checkRange(name, f, f, false)

	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch()
		}
		return b, nil

	case KindDateTime, KindDate, KindTime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			for _, layout := range temporalLayouts[kind] {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed, nil
				}
			}
		}
		return nil, mismatch()

	case KindJSON:
		switch j := v.(type) {
		case string:
			if !json.Valid([]byte(j)) {
				return nil, &ValidationError{Field: name, Rule: "json", Value: v}
			}
			return json.RawMessage(j), nil
		case []byte:
			if !json.Valid(j) {
				return nil, &ValidationError{Field: name, Rule: "json", Value: v}
			}
			return json.RawMessage(j), nil
		case json.RawMessage:
			if !json.Valid(j) {
				return nil, &ValidationError{Field: name, Rule: "json", Value: v}
			}
			return j, nil
		}
		if _, err := json.Marshal(v); err != nil {
			return nil, &ValidationError{Field: name, Rule: "json", Value: v}
		}
		return v, nil

	case KindUUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u, nil
		case [16]byte:
			return uuid.UUID(u), nil
		case string:
			parsed, err := uuid.Parse(u)
			if err != nil {
				return nil, &ValidationError{Field: name, Rule: "uuid", Value: v}
			}
			return parsed, nil
		}
		return nil, mismatch()
	}
	return v, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
