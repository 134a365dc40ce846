package service

import (
	"errors"
	"fmt"
	"sync"

	"storydice-go/internal/model/markov"
)

// ErrFrozen is returned when tokens are added to a frozen table.
var ErrFrozen = errors.New("transition table is frozen")

// TokenCount pairs a next-token with its occurrence count.
type TokenCount struct {
	Token string
	Count int
}

// nextCounts stores per-context counts while preserving the first-seen order
// of tokens, which later breaks ranking ties in the allocator.
type nextCounts struct {
	counts map[string]int
	order  []string
}

func (nc *nextCounts) add(tok string) {
	if _, seen := nc.counts[tok]; !seen {
		nc.order = append(nc.order, tok)
	}
	nc.counts[tok]++
}

// TransitionTable accumulates order-N token transition frequencies. It is
// written by a single build pass and frozen before any reader sees it; after
// Freeze it is safe to share without locking.
type TransitionTable struct {
	order    int
	contexts map[string]*nextCounts
	keys     []string // first-seen order of context keys
	total    int64
	frozen   bool
	mu       sync.RWMutex
}

// NewTransitionTable creates a table for the given context window size
func NewTransitionTable(order int) (*TransitionTable, error) {
	if order < 1 {
		return nil, fmt.Errorf("invalid order %d: must be >= 1", order)
	}
	return &TransitionTable{
		order:    order,
		contexts: make(map[string]*nextCounts),
	}, nil
}

// Order returns the context window size.
func (t *TransitionTable) Order() int {
	return t.order
}

// Add records every (context, next) transition in one token sequence.
// Each call is an independent text: contexts never span the boundary between
// calls. Accumulation is additive; adding the same tokens twice doubles
// their weight.
func (t *TransitionTable) Add(tokens []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrFrozen
	}

	for i := 0; i+t.order < len(tokens); i++ {
		ctx := make(markov.Context, t.order)
		for j := 0; j < t.order; j++ {
			ctx[j] = markov.Canonical(tokens[i+j])
		}
		next := markov.Canonical(tokens[i+t.order])

		key := ctx.Key()
		nc, ok := t.contexts[key]
		if !ok {
			nc = &nextCounts{counts: make(map[string]int)}
			t.contexts[key] = nc
			t.keys = append(t.keys, key)
		}
		nc.add(next)
		t.total++
	}

	return nil
}

// Freeze marks the table read-only. Further Add calls fail with ErrFrozen.
func (t *TransitionTable) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Contexts returns the context keys in first-seen order.
func (t *TransitionTable) Contexts() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// NextCounts returns the (token, count) pairs for a context in first-seen
// order, or nil if the context is unknown.
func (t *TransitionTable) NextCounts(key string) []TokenCount {
	t.mu.RLock()
	defer t.mu.RUnlock()

	nc, ok := t.contexts[key]
	if !ok {
		return nil
	}

	out := make([]TokenCount, 0, len(nc.order))
	for _, tok := range nc.order {
		out = append(out, TokenCount{Token: tok, Count: nc.counts[tok]})
	}
	return out
}

// TableStats contains statistics about a transition table
type TableStats struct {
	Order        int   `json:"order"`
	ContextCount int   `json:"context_count"`
	Transitions  int64 `json:"transitions"`
}

// Stats returns statistics about the table
func (t *TransitionTable) Stats() TableStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return TableStats{
		Order:        t.order,
		ContextCount: len(t.contexts),
		Transitions:  t.total,
	}
}
