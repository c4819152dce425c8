package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCaseInsensitive(t *testing.T) {
	lower, ok := Lookup("borelog_versions")
	require.True(t, ok)
	upper, ok := Lookup("Borelog_Versions")
	require.True(t, ok)
	assert.Same(t, lower, upper)

	_, ok = Lookup("no_such_table")
	assert.False(t, ok)
}

func TestFieldAndNames(t *testing.T) {
	sch, ok := Lookup("stratum_layers")
	require.True(t, ok)

	f := sch.Field("layer_order")
	require.NotNil(t, f)
	assert.Equal(t, TypeInt32, f.Type)
	assert.Nil(t, sch.Field("nonexistent"))
	assert.Equal(t, len(sch.Fields), len(sch.FieldNames()))
}

func TestCompatible(t *testing.T) {
	assert.True(t, Compatible(TypeInt64, TypeInt32))
	assert.True(t, Compatible(TypeInt32, TypeInt64))
	assert.True(t, Compatible(TypeString, TypeString))
	assert.False(t, Compatible(TypeInt64, TypeFloat64))
	assert.False(t, Compatible(TypeString, TypeBool))
}

func TestParseValueInt(t *testing.T) {
	f := Field{Name: "n", Type: TypeInt32}

	v, err := ParseValue(f, float64(7))
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)

	v, err = ParseValue(f, " 42 ")
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	_, err = ParseValue(f, 7.5)
	assert.Error(t, err)
	_, err = ParseValue(f, "seven")
	assert.Error(t, err)

	v, err = ParseValue(Field{Name: "n", Type: TypeInt64}, "9000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(9000000000), v)
}

func TestParseValueFloatAndBool(t *testing.T) {
	v, err := ParseValue(Field{Type: TypeFloat64}, "3.5")
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	for raw, want := range map[string]bool{"true": true, "Yes": true, "1": true, "false": false, "NO": false, "0": false} {
		v, err := ParseValue(Field{Type: TypeBool}, raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, want, v, "input %q", raw)
	}
	_, err = ParseValue(Field{Type: TypeBool}, "maybe")
	assert.Error(t, err)
}

func TestParseValueTimestamp(t *testing.T) {
	f := Field{Type: TypeTimestampMS}

	for _, raw := range []string{
		"2025-03-01T08:00:00Z",
		"2025-03-01T08:00:00",
		"2025-03-01 08:00:00",
	} {
		v, err := ParseValue(f, raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), v, "input %q", raw)
	}

	v, err := ParseValue(f, "01/03/2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), v)

	_, err = ParseValue(f, "yesterday")
	assert.Error(t, err)
}

func TestParseValueStringAndList(t *testing.T) {
	v, err := ParseValue(Field{Type: TypeString}, 12)
	require.NoError(t, err)
	assert.Equal(t, "12", v)

	v, err = ParseValue(Field{Type: TypeStringList}, `["a","b"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	v, err = ParseValue(Field{Type: TypeStringList}, []any{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, v)

	_, err = ParseValue(Field{Type: TypeStringList}, "not json")
	assert.Error(t, err)
}

func TestParseValueNil(t *testing.T) {
	v, err := ParseValue(Field{Type: TypeInt32}, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}
