package ormgraph

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmenegatti/ormgraph/metadata"
)

// --- Test Functions ---

func TestOperator_Match(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name    string
		op      Operator
		stored  any
		operand any
		want    bool
	}{
		{"exact string", OpExact, "Kate", "Kate", true},
		{"exact is case sensitive", OpExact, "Kate", "kate", false},
		{"exact folds int widths", OpExact, int64(3), 3, true},
		{"exact bytes vs string", OpExact, []byte("x"), "x", true},
		{"exact uuid", OpExact, id, id, true},
		{"exact nil", OpExact, nil, nil, true},
		{"exact nil stored", OpExact, nil, "a", false},
		{"iexact", OpIExact, "STRASSE", "strasse", true},
		{"contains", OpContains, "Kate", "a", true},
		{"contains miss", OpContains, "Kevin", "a", false},
		{"icontains", OpIContains, "KEVIN", "ev", true},
		{"startswith", OpStartsWith, "Anna", "An", true},
		{"istartswith", OpIStartsWith, "anna", "AN", true},
		{"endswith", OpEndsWith, "Anna", "na", true},
		{"iendswith", OpIEndsWith, "Anna", "NA", true},
		{"in", OpIn, int64(2), []any{1, 2, 3}, true},
		{"in miss", OpIn, int64(5), []any{1, 2, 3}, false},
		{"in empty", OpIn, int64(5), []any{}, false},
		{"gt", OpGT, 10, 9.5, true},
		{"gte equal", OpGTE, 10, 10, true},
		{"lt decimal string", OpLT, "9.99", 10, true},
		{"lte time", OpLTE, now, now.Add(time.Hour), true},
		{"gt text", OpGT, "b", "a", true},
		{"gt incomparable", OpGT, true, 1.5, false},
		{"gt nil stored", OpGT, nil, 1, false},
		{"isnull true", OpIsNull, nil, true, true},
		{"isnull false", OpIsNull, "x", false, true},
		{"isnull mismatch", OpIsNull, "x", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.Match(tt.stored, tt.operand))
		})
	}
}

func TestParseOperator(t *testing.T) {
	op, ok := ParseOperator("icontains")
	assert.True(t, ok)
	assert.True(t, op.IsCaseInsensitive())
	assert.True(t, op.IsPattern())

	_, ok = ParseOperator("name")
	assert.False(t, ok)
	assert.False(t, OpIn.IsPattern())
}

func namedField(t *testing.T, name string, kind metadata.Kind, opts ...metadata.Option) *metadata.Field {
	t.Helper()
	f, err := metadata.New(kind, opts...)
	require.NoError(t, err)
	f.Name = name
	return f
}

func TestNormalizeOperand(t *testing.T) {
	label := namedField(t, "label", metadata.KindString, metadata.MaxLength(20))

	v, err := normalizeOperand(label, OpIn, [2]string{"a", "b"})
	assert.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)

	_, err = normalizeOperand(label, OpContains, 3)
	assert.EqualError(t, err, "operator contains expects a string, got int")

	_, err = normalizeOperand(label, OpGT, nil)
	assert.EqualError(t, err, "operator gt does not accept nil")

	v, err = normalizeOperand(label, OpExact, nil)
	assert.NoError(t, err)
	assert.Nil(t, v)

	_, err = normalizeOperand(label, OpExact, 3)
	assert.EqualError(t, err, "operand 3 (int) does not fit label: type string")
}

func TestNormalizeOperand_TypedFields(t *testing.T) {
	born := namedField(t, "born", metadata.KindDate)
	v, err := normalizeOperand(born, OpGTE, "2020-01-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), v)

	v, err = normalizeOperand(born, OpIn, []string{"2020-01-01", "2021-06-30"})
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.IsType(t, time.Time{}, v.([]any)[1])

	_, err = normalizeOperand(born, OpExact, "yesterday")
	assert.Error(t, err)

	price := namedField(t, "price", metadata.KindDecimal, metadata.Precision(2), metadata.Scale(10))
	v, err = normalizeOperand(price, OpGT, "9.5")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("9.5").Equal(v.(decimal.Decimal)))

	// pattern operands stay text
	v, err = normalizeOperand(price, OpStartsWith, "12")
	require.NoError(t, err)
	assert.Equal(t, "12", v)

	id := namedField(t, "id", metadata.KindBigInteger)
	v, err = normalizeOperand(id, OpIn, []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, v)
}

func TestPredicate_MatchesDecimalNumerically(t *testing.T) {
	price := namedField(t, "price", metadata.KindDecimal, metadata.Precision(2), metadata.Scale(10))
	operand, err := normalizeOperand(price, OpGT, "9.5")
	require.NoError(t, err)
	pred := Predicate{Path: "price__gt", Node: &PlanNode{}, Field: price, Operator: OpGT, Value: operand}

	assert.True(t, pred.Matches(Row{pred.Key(): "12.50"}), "12.50 > 9.5 although it sorts lower as text")
	assert.True(t, pred.Matches(Row{pred.Key(): []byte("10")}))
	assert.True(t, pred.Matches(Row{pred.Key(): 9.75}))
	assert.False(t, pred.Matches(Row{pred.Key(): "9.50"}))
	assert.False(t, pred.Matches(Row{pred.Key(): nil}))
}

func TestCompareValues_LargeIntegers(t *testing.T) {
	c, ok := compareValues(int64(9007199254740993), int64(9007199254740992))
	require.True(t, ok)
	assert.Equal(t, 1, c)
	assert.False(t, equalValues(int64(9007199254740993), int64(9007199254740992)))
	assert.True(t, equalValues(uint64(9007199254740993), int64(9007199254740993)))
}

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, identityKey(int64(7)), identityKey(7))
	assert.Equal(t, identityKey(uint8(7)), identityKey(7.0))
	assert.Equal(t, identityKey([]byte("abc")), identityKey("abc"))
	assert.NotEqual(t, identityKey("7"), identityKey(7), "text keys stay text")
	assert.NotEqual(t, identityKey(int64(9007199254740993)), identityKey(int64(9007199254740992)))
	assert.Equal(t, identityKey(uint64(9007199254740993)), identityKey(int64(9007199254740993)))
}
