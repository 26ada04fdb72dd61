package ormgraph

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/chmenegatti/ormgraph/metadata"
)

// Operator is the comparison applied by a filter, written as the last
// segment of a filter path ("name__icontains").
type Operator string

const (
	OpExact       Operator = "exact"
	OpIExact      Operator = "iexact"
	OpContains    Operator = "contains"
	OpIContains   Operator = "icontains"
	OpStartsWith  Operator = "startswith"
	OpIStartsWith Operator = "istartswith"
	OpEndsWith    Operator = "endswith"
	OpIEndsWith   Operator = "iendswith"
	OpIn          Operator = "in"
	OpGT          Operator = "gt"
	OpGTE         Operator = "gte"
	OpLT          Operator = "lt"
	OpLTE         Operator = "lte"
	OpIsNull      Operator = "isnull"
)

var operators = map[Operator]bool{
	OpExact: true, OpIExact: true, OpContains: true, OpIContains: true,
	OpStartsWith: true, OpIStartsWith: true, OpEndsWith: true, OpIEndsWith: true,
	OpIn: true, OpGT: true, OpGTE: true, OpLT: true, OpLTE: true, OpIsNull: true,
}

// ParseOperator reports whether s names an operator.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(s)
	return op, operators[op]
}

// IsCaseInsensitive reports whether the operator compares folded text.
func (o Operator) IsCaseInsensitive() bool {
	switch o {
	case OpIExact, OpIContains, OpIStartsWith, OpIEndsWith:
		return true
	}
	return false
}

// IsPattern reports whether the operator is a substring match.
func (o Operator) IsPattern() bool {
	switch o {
	case OpContains, OpIContains, OpStartsWith, OpIStartsWith, OpEndsWith, OpIEndsWith:
		return true
	}
	return false
}

// Predicate is one filter condition on a column of a plan node.
type Predicate struct {
	Path     string
	Node     *PlanNode
	Field    *metadata.Field
	Operator Operator
	Value    any // []any for OpIn, bool for OpIsNull
}

// Key is the row key of the filtered column.
func (p Predicate) Key() string { return p.Node.Key(p.Field.Column) }

// Matches evaluates the predicate against a row. Decimal columns compare
// numerically whatever representation the driver returned.
func (p Predicate) Matches(row Row) bool {
	stored := row[p.Key()]
	if p.Field.ValueKind() == metadata.KindDecimal && !p.Operator.IsPattern() && p.Operator != OpIExact {
		stored = decimalValue(stored)
	}
	return p.Operator.Match(stored, p.Value)
}

// Match compares a stored value with a filter operand.
func (o Operator) Match(stored, operand any) bool {
	if o == OpIsNull {
		want, _ := operand.(bool)
		return (stored == nil) == want
	}
	if stored == nil {
		return o == OpExact && operand == nil
	}
	switch o {
	case OpExact:
		return equalValues(stored, operand)
	case OpIn:
		items, _ := operand.([]any)
		for _, item := range items {
			if equalValues(stored, item) {
				return true
			}
		}
		return false
	case OpGT, OpGTE, OpLT, OpLTE:
		c, ok := compareValues(stored, operand)
		if !ok {
			return false
		}
		switch o {
		case OpGT:
			return c > 0
		case OpGTE:
			return c >= 0
		case OpLT:
			return c < 0
		}
		return c <= 0
	}

	s, pattern := textOf(stored), textOf(operand)
	if o.IsCaseInsensitive() {
		fold := cases.Fold()
		s, pattern = fold.String(s), fold.String(pattern)
	}
	switch o {
	case OpIExact:
		return s == pattern
	case OpContains, OpIContains:
		return strings.Contains(s, pattern)
	case OpStartsWith, OpIStartsWith:
		return strings.HasPrefix(s, pattern)
	case OpEndsWith, OpIEndsWith:
		return strings.HasSuffix(s, pattern)
	}
	return false
}

// normalizeOperand checks the operand shape an operator expects and converts
// comparison operands to the Go type the field's values take, so rows the
// database matched also pass the in-memory re-check.
func normalizeOperand(f *metadata.Field, op Operator, v any) (any, error) {
	switch op {
	case OpIsNull:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("operator isnull expects a bool, got %T", v)
		}
		return b, nil
	case OpIn:
		rv := reflect.ValueOf(v)
		if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, fmt.Errorf("operator in expects a slice, got %T", v)
		}
		items := make([]any, rv.Len())
		for i := range items {
			item, err := coerceOperand(f, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil
	}
	if v == nil && op != OpExact {
		return nil, fmt.Errorf("operator %s does not accept nil", op)
	}
	if op.IsPattern() || op == OpIExact {
		if _, ok := v.(string); !ok {
			return nil, fmt.Errorf("operator %s expects a string, got %T", op, v)
		}
		return v, nil
	}
	return coerceOperand(f, v)
}

func coerceOperand(f *metadata.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	c, err := f.Coerce(v)
	if err != nil {
		var ve *metadata.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("operand %v (%T) does not fit %s: %s", v, v, f.Name, ve.Rule)
		}
		return nil, err
	}
	if f.ValueKind() == metadata.KindDecimal {
		return decimalValue(c), nil
	}
	return c, nil
}

// decimalValue parses numbers and numeric text into a decimal.Decimal and
// returns anything else unchanged.
func decimalValue(v any) any {
	switch d := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return d
	case string:
		if parsed, err := decimal.NewFromString(strings.TrimSpace(d)); err == nil {
			return parsed
		}
		return v
	case []byte:
		return decimalValue(string(d))
	case float32:
		return decimal.NewFromFloat32(d)
	case float64:
		return decimal.NewFromFloat(d)
	}
	if i, ok := asBigInt(v); ok {
		return decimal.NewFromBigInt(i, 0)
	}
	return v
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func equalValues(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return textOf(a) == textOf(b)
}

// compareValues orders two scalar values. Numbers compare numerically even
// when one side is a decimal string; times compare chronologically.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if isText(a) && isText(b) {
		return strings.Compare(textOf(a), textOf(b)), true
	}
	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := decimalValue(b).(decimal.Decimal); ok {
			return da.Cmp(db), true
		}
	}
	if db, ok := b.(decimal.Decimal); ok {
		if da, ok := decimalValue(a).(decimal.Decimal); ok {
			return da.Cmp(db), true
		}
	}
	// integers compare exactly; float64 loses precision above 2^53
	if ia, ok := asBigInt(a); ok {
		if ib, ok := asBigInt(b); ok {
			return ia.Cmp(ib), true
		}
	}
	if fa, ok := asNumber(a); ok {
		if fb, ok := asNumber(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb), true
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0, true
			case !ba:
				return -1, true
			}
			return 1, true
		}
	}
	if ua, ok := a.(uuid.UUID); ok {
		if ub, ok := b.(uuid.UUID); ok {
			return bytes.Compare(ua[:], ub[:]), true
		}
	}
	return 0, false
}

func isText(v any) bool {
	switch v.(type) {
	case string, []byte:
		return true
	}
	return false
}

// asBigInt returns integer values of any width exactly.
func asBigInt(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case int:
		return big.NewInt(int64(n)), true
	case int8:
		return big.NewInt(int64(n)), true
	case int16:
		return big.NewInt(int64(n)), true
	case int32:
		return big.NewInt(int64(n)), true
	case int64:
		return big.NewInt(n), true
	case uint:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	}
	return nil, false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
