package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_CurrentOnlyByDefault(t *testing.T) {
	spec := PrepareVisibility(New("orders"), true)

	sql, params, err := Compile(spec)
	require.NoError(t, err)

	assert.Contains(t, sql, "type_tag = ?")
	assert.Contains(t, sql, "status = ?")
	assert.Contains(t, sql, "instr(key, ?) = 0")
	assert.Contains(t, sql, "ORDER BY key ASC COLLATE BINARY")
	assert.Equal(t, []any{"orders", "current", "::"}, params)
}

func TestCompile_IncludeAllStripsMarkerAndPredicate(t *testing.T) {
	spec := New("orders").IncludeAllEffectiveTime()
	spec = PrepareVisibility(spec, true)

	sql, params, err := Compile(spec)
	require.NoError(t, err)

	assert.NotContains(t, sql, "status = ?")
	assert.Equal(t, []any{"orders"}, params)
}

func TestCompile_NonVersionedTypeGetsNoPredicate(t *testing.T) {
	spec := PrepareVisibility(New("logs"), false)

	sql, params, err := Compile(spec)
	require.NoError(t, err)
	assert.NotContains(t, sql, "status = ?")
	assert.Equal(t, []any{"logs"}, params)
}

func TestCompile_MarkerConsumedForNonVersionedType(t *testing.T) {
	spec := New("logs").IncludeAllEffectiveTime()
	spec = PrepareVisibility(spec, false)

	_, _, err := Compile(spec)
	require.NoError(t, err, "marker must be consumed even when it has no effect")
}

func TestCompile_UnconsumedCustomizationFails(t *testing.T) {
	spec := New("orders").Customize("strata.unknown-marker")
	spec = PrepareVisibility(spec, true)

	_, _, err := Compile(spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unconsumed")
}

func TestCompile_WithoutPrepareMarkerFails(t *testing.T) {
	// Compiling a tagged spec that never passed through the listener
	// must fail loudly rather than silently filter to current-only.
	spec := New("orders").IncludeAllEffectiveTime()

	_, _, err := Compile(spec)
	require.Error(t, err)
}

func TestCompile_EqualsPredicate(t *testing.T) {
	spec := New("orders").Where(Equals{Field: "region", Value: "emea"})
	spec = PrepareVisibility(spec, true)

	sql, params, err := Compile(spec)
	require.NoError(t, err)

	assert.Contains(t, sql, "json_extract(body, ?) = ?")
	assert.Equal(t, []any{"orders", "$.region", "emea", "current", "::"}, params)
}

func TestCompile_AndPredicate(t *testing.T) {
	spec := New("orders").Where(And{Predicates: []Predicate{
		Equals{Field: "region", Value: "emea"},
		Equals{Field: "tier", Value: "gold"},
	}})
	spec = PrepareVisibility(spec, false)

	sql, params, err := Compile(spec)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(sql, "json_extract(body, ?) = ?"))
	assert.Equal(t, []any{"orders", "$.region", "emea", "$.tier", "gold"}, params)
}

func TestCompile_EmptyAndFails(t *testing.T) {
	spec := PrepareVisibility(New("orders").Where(And{}), true)
	_, _, err := Compile(spec)
	require.Error(t, err)
}

func TestCompile_Paging(t *testing.T) {
	spec := PrepareVisibility(New("orders").Page(10, 5), true)

	sql, params, err := Compile(spec)
	require.NoError(t, err)
	assert.Contains(t, sql, "LIMIT ? OFFSET ?")
	assert.Equal(t, []any{"orders", "current", "::", 5, 10}, params)
}

func TestCompile_MissingTypeTag(t *testing.T) {
	_, _, err := Compile(PrepareVisibility(New(""), true))
	require.Error(t, err)
}

func TestCompile_NilSpec(t *testing.T) {
	_, _, err := Compile(nil)
	require.Error(t, err)
}
