// Package hooks provides the dispatch tables that route bus topics and
// timer ids to user callbacks.
//
// Two matching variants exist:
//
//   - Exact: a key matches only itself (timer ids).
//   - Hierarchical: MQTT-style trailing multi-level wildcard fallback
//     (bus topics). "home/kitchen/light" is resolved against, in order,
//     "home/kitchen/light", "home/kitchen/#", "home/#", "#".
//
// There is no single-level wildcard ("+").
//
// # Thread Safety
//
// A Table is not synchronised. It is owned by the command actor, which is
// the only goroutine that ever reads or writes it.
package hooks

import (
	"sort"
	"strings"
)

// Kind selects the matching strategy of a Table.
type Kind int

const (
	// Exact matches keys verbatim.
	Exact Kind = iota
	// Hierarchical falls back to "prefix/#" wildcards and finally "#".
	Hierarchical
)

// Wildcard is the global catch-all key of a Hierarchical table.
const Wildcard = "#"

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Hierarchical:
		return "hierarchical"
	default:
		return "unknown"
	}
}

// Table maps string keys to callback values.
type Table[V any] struct {
	kind    Kind
	entries map[string]V
}

// New creates an empty table of the given kind.
func New[V any](kind Kind) *Table[V] {
	return &Table[V]{
		kind:    kind,
		entries: make(map[string]V),
	}
}

// Kind reports the table's matching strategy.
func (t *Table[V]) Kind() Kind {
	return t.kind
}

// Add inserts or overwrites the callback stored under key.
func (t *Table[V]) Add(key string, v V) {
	t.entries[key] = v
}

// Remove deletes key and reports whether it was present.
func (t *Table[V]) Remove(key string) bool {
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	return true
}

// Len returns the number of registered keys.
func (t *Table[V]) Len() int {
	return len(t.entries)
}

// Keys returns the registered keys in lexical order.
func (t *Table[V]) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Find resolves key to a callback. A false result means nothing should run;
// it is not an error.
func (t *Table[V]) Find(key string) (V, bool) {
	if v, ok := t.entries[key]; ok {
		return v, true
	}
	if t.kind == Exact {
		var zero V
		return zero, false
	}
	return t.findWildcard(key)
}

// findWildcard walks the topic upwards one level at a time.
//
// A leading "/" is folded into the first segment ("/home/x" splits into
// "/home" and "x"). The walk drops a segment before each lookup, so the
// last probe is always "/#" (empty prefix), and a single-level topic such
// as "/home" never probes "/home/#".
func (t *Table[V]) findWildcard(key string) (V, bool) {
	segments := strings.Split(key, "/")
	if strings.HasPrefix(key, "/") && len(segments) > 1 {
		segments = segments[1:]
		segments[0] = "/" + segments[0]
	}

	for len(segments) > 0 {
		segments = segments[:len(segments)-1]
		if v, ok := t.entries[strings.Join(segments, "/")+"/"+Wildcard]; ok {
			return v, true
		}
	}

	if v, ok := t.entries[Wildcard]; ok {
		return v, true
	}
	var zero V
	return zero, false
}
