package metadata

import "fmt"

// Kind is the semantic type of a field.
type Kind string

const (
	KindString     Kind = "string" // bounded text
	KindText       Kind = "text"
	KindInteger    Kind = "integer"
	KindBigInteger Kind = "big_integer"
	KindFloat      Kind = "float"
	KindDecimal    Kind = "decimal"
	KindBoolean    Kind = "boolean"
	KindDateTime   Kind = "datetime"
	KindDate       Kind = "date"
	KindTime       Kind = "time"
	KindJSON       Kind = "json"
	KindUUID       Kind = "uuid"
	KindForeignKey Kind = "foreign_key"
	KindManyToMany Kind = "many_to_many"
)

var kinds = map[Kind]bool{
	KindString: true, KindText: true, KindInteger: true, KindBigInteger: true,
	KindFloat: true, KindDecimal: true, KindBoolean: true, KindDateTime: true,
	KindDate: true, KindTime: true, KindJSON: true, KindUUID: true,
	KindForeignKey: true, KindManyToMany: true,
}

// ParseKind converts a kind name (as written in tags or schema files) to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	switch s {
	case "str", "varchar":
		k = KindString
	case "int":
		k = KindInteger
	case "bigint", "biginteger":
		k = KindBigInteger
	case "bool":
		k = KindBoolean
	case "numeric":
		k = KindDecimal
	case "fk", "foreignkey":
		k = KindForeignKey
	case "m2m", "manytomany":
		k = KindManyToMany
	}
	if !kinds[k] {
		return "", definitionErrorf("unknown field kind %q", s)
	}
	return k, nil
}

// IsRelation reports whether the kind links two models.
func (k Kind) IsRelation() bool {
	return k == KindForeignKey || k == KindManyToMany
}

// IsNumeric reports whether range constraints apply to the kind.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInteger, KindBigInteger, KindFloat, KindDecimal:
		return true
	}
	return false
}

// IsIntegral reports whether the kind stores whole numbers.
func (k Kind) IsIntegral() bool {
	return k == KindInteger || k == KindBigInteger
}

// ColumnKind is the abstract storage type handed to the query compiler.
type ColumnKind string

const (
	ColumnNone       ColumnKind = ""
	ColumnVarchar    ColumnKind = "varchar"
	ColumnText       ColumnKind = "text"
	ColumnInteger    ColumnKind = "integer"
	ColumnBigInteger ColumnKind = "bigint"
	ColumnFloat      ColumnKind = "float"
	ColumnDecimal    ColumnKind = "decimal"
	ColumnBoolean    ColumnKind = "boolean"
	ColumnDateTime   ColumnKind = "datetime"
	ColumnDate       ColumnKind = "date"
	ColumnTime       ColumnKind = "time"
	ColumnJSON       ColumnKind = "json"
	ColumnUUID       ColumnKind = "uuid"
)

// ColumnType describes a storage column independently of any SQL dialect.
type ColumnType struct {
	Kind      ColumnKind
	Length    int // varchar width
	Precision int // decimal
	Scale     int // decimal
}

// IsZero reports whether the field has no storage column.
func (c ColumnType) IsZero() bool { return c.Kind == ColumnNone }

func (c ColumnType) String() string {
	switch c.Kind {
	case ColumnVarchar:
		return fmt.Sprintf("varchar(%d)", c.Length)
	case ColumnDecimal:
		return fmt.Sprintf("decimal(%d,%d)", c.Precision, c.Scale)
	case ColumnNone:
		return "none"
	}
	return string(c.Kind)
}

// columnTypeFor maps a scalar kind to its storage column. Decimal and string
// widths are filled in by the factory.
func columnTypeFor(k Kind) ColumnType {
	switch k {
	case KindString:
		return ColumnType{Kind: ColumnVarchar}
	case KindText:
		return ColumnType{Kind: ColumnText}
	case KindInteger:
		return ColumnType{Kind: ColumnInteger}
	case KindBigInteger:
		return ColumnType{Kind: ColumnBigInteger}
	case KindFloat:
		return ColumnType{Kind: ColumnFloat}
	case KindDecimal:
		return ColumnType{Kind: ColumnDecimal}
	case KindBoolean:
		return ColumnType{Kind: ColumnBoolean}
	case KindDateTime:
		return ColumnType{Kind: ColumnDateTime}
	case KindDate:
		return ColumnType{Kind: ColumnDate}
	case KindTime:
		return ColumnType{Kind: ColumnTime}
	case KindJSON:
		return ColumnType{Kind: ColumnJSON}
	case KindUUID:
		return ColumnType{Kind: ColumnUUID}
	}
	return ColumnType{}
}
