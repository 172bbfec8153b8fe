package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchical_ExactWins(t *testing.T) {
	table := New[string](Hierarchical)
	table.Add("a/b", "exact")
	table.Add("a/#", "wildcard")

	got, ok := table.Find("a/b")
	require.True(t, ok)
	assert.Equal(t, "exact", got)

	got, ok = table.Find("a/c")
	require.True(t, ok)
	assert.Equal(t, "wildcard", got)
}

func TestHierarchical_LongestPrefixWins(t *testing.T) {
	table := New[string](Hierarchical)
	table.Add("home/#", "home")
	table.Add("home/kitchen/#", "kitchen")
	table.Add("#", "global")

	tests := []struct {
		topic string
		want  string
	}{
		{topic: "home/kitchen/light", want: "kitchen"},
		{topic: "home/kitchen/light/brightness", want: "kitchen"},
		{topic: "home/livingroom/light", want: "home"},
		{topic: "home/kitchen", want: "home"},
		{topic: "office/temp", want: "global"},
		{topic: "home", want: "global"},
		{topic: "", want: "global"},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := table.Find(tt.topic)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHierarchical_GlobalWildcardOnly(t *testing.T) {
	table := New[string](Hierarchical)
	table.Add("home/#", "home")
	table.Add("#", "global")

	got, ok := table.Find("home/livingroom/light")
	require.True(t, ok)
	assert.Equal(t, "home", got)

	got, ok = table.Find("office/temp")
	require.True(t, ok)
	assert.Equal(t, "global", got)
}

func TestHierarchical_NoMatch(t *testing.T) {
	table := New[string](Hierarchical)
	table.Add("home/#", "home")

	_, ok := table.Find("office/temp")
	assert.False(t, ok)
}

// Leading-slash topics keep the slash on their first segment, but the walk
// drops a segment before its first probe, so "/home" never reaches
// "/home/#".
func TestHierarchical_LeadingSlash(t *testing.T) {
	table := New[string](Hierarchical)
	table.Add("/home/#", "slash-home")
	table.Add("/#", "slash-root")

	got, ok := table.Find("/home/kitchen")
	require.True(t, ok)
	assert.Equal(t, "slash-home", got)

	got, ok = table.Find("/home")
	require.True(t, ok)
	assert.Equal(t, "slash-root", got, "single-level topic skips its own prefix")

	// Without a leading slash the empty-prefix probe still reaches "/#".
	got, ok = table.Find("office")
	require.True(t, ok)
	assert.Equal(t, "slash-root", got)
}

func TestHierarchical_LeadingSlashDoesNotMatchUnslashedPrefix(t *testing.T) {
	table := New[string](Hierarchical)
	table.Add("home/#", "home")

	_, ok := table.Find("/home/kitchen")
	assert.False(t, ok)
}

func TestExact_IgnoresWildcards(t *testing.T) {
	table := New[int](Exact)
	table.Add("morning", 1)
	table.Add("#", 2)
	table.Add("morning/#", 3)

	got, ok := table.Find("morning")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = table.Find("evening")
	assert.False(t, ok)

	_, ok = table.Find("morning/late")
	assert.False(t, ok)
}

func TestAddOverwrites(t *testing.T) {
	table := New[string](Exact)
	table.Add("k", "first")
	table.Add("k", "second")

	got, ok := table.Find("k")
	require.True(t, ok)
	assert.Equal(t, "second", got)
	assert.Equal(t, 1, table.Len())
}

func TestRemove(t *testing.T) {
	table := New[string](Hierarchical)
	table.Add("#", "global")

	assert.True(t, table.Remove("#"))
	assert.False(t, table.Remove("#"))
	assert.Equal(t, 0, table.Len())

	_, ok := table.Find("anything/at/all")
	assert.False(t, ok)
}

func TestKeysSorted(t *testing.T) {
	table := New[bool](Exact)
	for _, k := range []string{"b", "c", "a"} {
		table.Add(k, true)
	}
	assert.Equal(t, []string{"a", "b", "c"}, table.Keys())
	assert.Equal(t, "exact", table.Kind().String())
}
