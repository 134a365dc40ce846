package markov

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// Assignment binds a next-token to the die faces that select it. Faces are
// ascending; they are contiguous except for a top-ranked token that absorbed
// leftover faces during remainder fill.
type Assignment struct {
	Token string
	Faces []int
}

// Contains reports whether face selects this assignment's token.
func (a Assignment) Contains(face int) bool {
	for _, f := range a.Faces {
		if f == face {
			return true
		}
	}
	return false
}

// DieMapping is the per-context assignment of die faces to next-tokens.
// It is built once by the allocator and never mutated afterwards, so any
// number of samplers may share it without locking.
type DieMapping struct {
	Sides int // faces on the die
	Order int // context window length

	tables map[string][]Assignment
	keys   []string           // insertion order of context keys
	filter *bloom.BloomFilter // fast-miss membership over context keys
}

// falsePositiveRate for the context-key bloom filter.
const falsePositiveRate = 0.01

// NewDieMapping creates an empty mapping for the given context size and die.
func NewDieMapping(order, sides, expectedContexts int) *DieMapping {
	if expectedContexts < 1 {
		expectedContexts = 1
	}
	return &DieMapping{
		Sides:  sides,
		Order:  order,
		tables: make(map[string][]Assignment, expectedContexts),
		filter: bloom.NewWithEstimates(uint(expectedContexts), falsePositiveRate),
	}
}

// Put stores the assignment list for a context key, preserving insertion
// order across keys.
func (m *DieMapping) Put(key string, assignments []Assignment) {
	if _, exists := m.tables[key]; !exists {
		m.keys = append(m.keys, key)
		m.filter.AddString(key)
	}
	m.tables[key] = assignments
}

// Lookup returns the assignments for a context key. The bloom filter rejects
// most unknown keys without touching the map.
func (m *DieMapping) Lookup(key string) ([]Assignment, bool) {
	if !m.filter.TestString(key) {
		return nil, false
	}
	assignments, ok := m.tables[key]
	return assignments, ok
}

// Keys returns the context keys in insertion order.
func (m *DieMapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of contexts in the mapping.
func (m *DieMapping) Len() int {
	return len(m.tables)
}
