package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/schema"
)

// Row is one record keyed by column name. Values use the canonical Go type
// for the column's logical type: string, int32, int64, float64, bool,
// time.Time for timestamps, []string for lists. nil marks a null cell.
type Row map[string]any

// Table couples rows with the schema they claim to conform to.
type Table struct {
	Schema *schema.Schema
	Rows   []Row
}

// NewTable builds a table over s.
func NewTable(s *schema.Schema, rows []Row) *Table {
	return &Table{Schema: s, Rows: rows}
}

// Validate checks the table's schema against expected: column count, names
// in order, compatible types, exact nullability. All offending fields are
// collected into a single schema-validation error.
func Validate(actual, expected *schema.Schema) error {
	if len(actual.Fields) != len(expected.Fields) {
		return errors.New(errors.KindSchemaValidation,
			"schema field count mismatch: expected %d fields, got %d fields",
			len(expected.Fields), len(actual.Fields))
	}

	verr := errors.New(errors.KindSchemaValidation, "schema validation failed for table %s", expected.Name)
	for i := range expected.Fields {
		ef, af := expected.Fields[i], actual.Fields[i]
		if ef.Name != af.Name {
			verr.WithField(ef.Name, af.Name, "field name mismatch")
			continue
		}
		if !schema.Compatible(ef.Type, af.Type) {
			verr.WithField(ef.Name, string(af.Type),
				fmt.Sprintf("type mismatch: expected %s", ef.Type))
		}
		if ef.Nullable != af.Nullable {
			verr.WithField(ef.Name, fmt.Sprintf("nullable=%v", af.Nullable),
				fmt.Sprintf("nullability mismatch: expected nullable=%v", ef.Nullable))
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Filter is a post-read row predicate on a single column.
type Filter struct {
	Column string
	Op     string // ==, !=, <, <=, >, >=
	Value  any
}

// Matches evaluates the filter against a row. Null cells never match.
func (f Filter) Matches(row Row) bool {
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	switch f.Op {
	case "==":
		return equalValues(v, f.Value)
	case "!=":
		return !equalValues(v, f.Value)
	case "<", "<=", ">", ">=":
		a, aok := toFloat(v)
		b, bok := toFloat(f.Value)
		if aok && bok {
			switch f.Op {
			case "<":
				return a < b
			case "<=":
				return a <= b
			case ">":
				return a > b
			case ">=":
				return a >= b
			}
		}
		as, aok2 := v.(string)
		bs, bok2 := f.Value.(string)
		if aok2 && bok2 {
			switch f.Op {
			case "<":
				return as < bs
			case "<=":
				return as <= bs
			case ">":
				return as > bs
			case ">=":
				return as >= bs
			}
		}
		return false
	default:
		return false
	}
}

func equalValues(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// applyFilters keeps rows matching every filter.
func applyFilters(rows []Row, filters []Filter) []Row {
	if len(filters) == 0 {
		return rows
	}
	out := rows[:0:0]
	for _, row := range rows {
		keep := true
		for _, f := range filters {
			if !f.Matches(row) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

// partitionKey renders the col=value path segments for a row.
func partitionKey(row Row, cols []string) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		v := row[col]
		if v == nil {
			parts[i] = col + "=__null__"
			continue
		}
		parts[i] = fmt.Sprintf("%s=%v", col, v)
	}
	return strings.Join(parts, "/")
}
