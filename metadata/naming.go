package metadata

import (
	"github.com/go-openapi/inflect"
	"github.com/iancoleman/strcase"
)

// NamingStrategy converts model and field names to storage names.
type NamingStrategy interface {
	TableName(modelName string) string
	ColumnName(fieldName string) string
	// RelatedName is the default reverse accessor created on a relation's
	// target for relations declared on sourceModel.
	RelatedName(sourceModel string) string
	// ThroughTable names the generated association table of a many-to-many relation.
	ThroughTable(sourceTable, targetTable string) string
}

// DefaultNamingStrategy produces pluralized snake_case table names and
// snake_case columns.
type DefaultNamingStrategy struct{}

var defaultNamingStrategy NamingStrategy = DefaultNamingStrategy{}

func (DefaultNamingStrategy) TableName(modelName string) string {
	return inflect.Pluralize(strcase.ToSnake(modelName))
}

func (DefaultNamingStrategy) ColumnName(fieldName string) string {
	return strcase.ToSnake(fieldName)
}

func (DefaultNamingStrategy) RelatedName(sourceModel string) string {
	return inflect.Pluralize(strcase.ToSnake(sourceModel))
}

func (DefaultNamingStrategy) ThroughTable(sourceTable, targetTable string) string {
	return sourceTable + "_" + targetTable
}
