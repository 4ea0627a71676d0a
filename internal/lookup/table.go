// Package lookup provides ordered (pattern, value) tables consulted with
// first-match-wins semantics.
package lookup

import "strings"

// Entry pairs a pattern with the value it maps to.
type Entry[T any] struct {
	Pattern string
	Value   T
}

// E is shorthand for building an Entry.
func E[T any](pattern string, value T) Entry[T] {
	return Entry[T]{Pattern: pattern, Value: value}
}

// Table is an ordered list of entries with an optional fallback value.
// The zero value is an empty table with no fallback.
type Table[T any] struct {
	entries     []Entry[T]
	fallback    T
	hasFallback bool
}

// New builds a table from entries; order is preserved and significant.
// Patterns are stored lowercased.
func New[T any](entries ...Entry[T]) Table[T] {
	normalized := make([]Entry[T], len(entries))
	for i, e := range entries {
		normalized[i] = Entry[T]{Pattern: strings.ToLower(e.Pattern), Value: e.Value}
	}
	return Table[T]{entries: normalized}
}

// Group builds entries that share one value, in pattern order.
func Group[T any](value T, patterns ...string) []Entry[T] {
	entries := make([]Entry[T], len(patterns))
	for i, p := range patterns {
		entries[i] = Entry[T]{Pattern: p, Value: value}
	}
	return entries
}

// Concat joins entry slices preserving order.
func Concat[T any](groups ...[]Entry[T]) []Entry[T] {
	var all []Entry[T]
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

// WithFallback returns a copy of the table that yields v when nothing matches.
func (t Table[T]) WithFallback(v T) Table[T] {
	t.fallback = v
	t.hasFallback = true
	return t
}

// Match returns the value of the first entry whose pattern is a substring
// of text, compared case-insensitively.
func (t Table[T]) Match(text string) (T, bool) {
	lower := strings.ToLower(text)
	for _, e := range t.entries {
		if strings.Contains(lower, e.Pattern) {
			return e.Value, true
		}
	}
	var zero T
	return zero, false
}

// MatchAny tries each text in turn and returns the first hit.
func (t Table[T]) MatchAny(texts ...string) (T, bool) {
	for _, text := range texts {
		if v, ok := t.Match(text); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Get returns the value of the first entry whose pattern equals key,
// compared case-insensitively.
func (t Table[T]) Get(key string) (T, bool) {
	lower := strings.ToLower(key)
	for _, e := range t.entries {
		if e.Pattern == lower {
			return e.Value, true
		}
	}
	var zero T
	return zero, false
}

// Find is Match with the fallback applied.
func (t Table[T]) Find(text string) T {
	if v, ok := t.Match(text); ok {
		return v
	}
	return t.fallback
}

// Lookup is Get with the fallback applied.
func (t Table[T]) Lookup(key string) T {
	if v, ok := t.Get(key); ok {
		return v
	}
	return t.fallback
}

// Entries returns a copy of the table's entries.
func (t Table[T]) Entries() []Entry[T] {
	return append([]Entry[T](nil), t.entries...)
}

// Len returns the number of entries.
func (t Table[T]) Len() int {
	return len(t.entries)
}
