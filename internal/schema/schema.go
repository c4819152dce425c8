// Package schema holds the static column-schema catalogue for every table
// the engine writes, plus the type-compatibility relation used during row
// validation.
package schema

import "strings"

// Type is the logical column type.
type Type string

const (
	TypeString      Type = "string"
	TypeInt32       Type = "int32"
	TypeInt64       Type = "int64"
	TypeFloat64     Type = "float64"
	TypeBool        Type = "bool"
	TypeTimestampMS Type = "timestamp[ms]"
	TypeStringList  Type = "list<string>"
)

// Field is one column in a table schema.
type Field struct {
	Name     string
	Type     Type
	Nullable bool
}

// Schema describes one table.
type Schema struct {
	Name   string
	Fields []Field
}

// Field returns the named field, nil if absent.
func (s *Schema) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// FieldNames returns the column names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// family buckets types that may substitute for each other during validation.
func family(t Type) string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt32, TypeInt64:
		return "integer"
	case TypeFloat64:
		return "floating"
	case TypeTimestampMS:
		return "timestamp"
	default:
		return string(t)
	}
}

// Compatible reports whether an actual column type satisfies the expected
// one: equal types, or both members of the same family.
func Compatible(expected, actual Type) bool {
	if expected == actual {
		return true
	}
	return family(expected) == family(actual)
}

// Lookup returns the schema for a table name, case-insensitively.
func Lookup(table string) (*Schema, bool) {
	s, ok := registry[strings.ToLower(table)]
	return s, ok
}

// Tables lists all registered table names.
func Tables() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
