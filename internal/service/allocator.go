package service

import (
	"fmt"
	"math"
	"sort"

	"storydice-go/internal/model/markov"

	"go.uber.org/zap"
)

// AllocationPolicy converts a ranked, truncated frequency distribution into
// die-face assignments for one context.
type AllocationPolicy interface {
	// Allocate assigns faces 1..sides to the ranked tokens
	Allocate(ranked []TokenCount, sides int) []markov.Assignment

	// Name returns the name of the allocation policy
	Name() string
}

// PolicyFromName returns the allocation policy registered under name.
// The empty string selects the default proportional policy.
func PolicyFromName(name string) (AllocationPolicy, error) {
	switch name {
	case "", "proportional":
		return NewProportionalPolicy(), nil
	case "largest-remainder":
		return NewLargestRemainderPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown allocation policy: %s", name)
	}
}

// ProportionalPolicy reproduces the historical allocation exactly. Each token
// gets max(1, round(count/total*sides)) faces in rank order; faces past the
// die budget are clipped, so tokens reached after earlier over-rounding
// exhausted the budget receive no faces and are omitted. Leftover faces go to
// the top-ranked token.
type ProportionalPolicy struct{}

// NewProportionalPolicy creates the quirk-preserving allocation policy
func NewProportionalPolicy() *ProportionalPolicy {
	return &ProportionalPolicy{}
}

func (p *ProportionalPolicy) Allocate(ranked []TokenCount, sides int) []markov.Assignment {
	total := 0
	for _, tc := range ranked {
		total += tc.Count
	}
	if total == 0 {
		return nil
	}

	assignments := make([]markov.Assignment, 0, len(ranked))
	face := 1

	for _, tc := range ranked {
		share := int(math.Round(float64(tc.Count) / float64(total) * float64(sides)))
		if share < 1 {
			share = 1
		}

		var faces []int
		for i := 0; i < share && face <= sides; i++ {
			faces = append(faces, face)
			face++
		}
		if len(faces) > 0 {
			assignments = append(assignments, markov.Assignment{Token: tc.Token, Faces: faces})
		}
	}

	// Remainder fill: any unassigned faces go to the top-ranked token.
	if face <= sides && len(assignments) > 0 {
		for ; face <= sides; face++ {
			assignments[0].Faces = append(assignments[0].Faces, face)
		}
	}

	return assignments
}

func (p *ProportionalPolicy) Name() string {
	return "proportional"
}

// LargestRemainderPolicy always partitions 1..sides exactly. Quotas are
// floored with a minimum of one face, leftover faces are handed out by
// largest fractional remainder (rank breaks ties), and overshoot is taken
// back from the lowest-ranked tokens holding more than one face.
type LargestRemainderPolicy struct{}

// NewLargestRemainderPolicy creates the exact-partition allocation policy
func NewLargestRemainderPolicy() *LargestRemainderPolicy {
	return &LargestRemainderPolicy{}
}

func (p *LargestRemainderPolicy) Allocate(ranked []TokenCount, sides int) []markov.Assignment {
	total := 0
	for _, tc := range ranked {
		total += tc.Count
	}
	if total == 0 {
		return nil
	}

	n := len(ranked)
	shares := make([]int, n)
	remainders := make([]float64, n)
	sum := 0
	for i, tc := range ranked {
		quota := float64(tc.Count) / float64(total) * float64(sides)
		shares[i] = int(math.Floor(quota))
		if shares[i] < 1 {
			shares[i] = 1
		}
		remainders[i] = quota - math.Floor(quota)
		sum += shares[i]
	}

	// Hand out missing faces by largest remainder, rank breaking ties.
	if sum < sides {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return remainders[idx[a]] > remainders[idx[b]]
		})
		for k := 0; sum < sides; k = (k + 1) % n {
			shares[idx[k]]++
			sum++
		}
	}

	// Take overshoot back from the tail, never below one face.
	for i := n - 1; i >= 0 && sum > sides; i-- {
		for shares[i] > 1 && sum > sides {
			shares[i]--
			sum--
		}
	}

	assignments := make([]markov.Assignment, 0, n)
	face := 1
	for i, tc := range ranked {
		faces := make([]int, 0, shares[i])
		for j := 0; j < shares[i]; j++ {
			faces = append(faces, face)
			face++
		}
		assignments = append(assignments, markov.Assignment{Token: tc.Token, Faces: faces})
	}

	return assignments
}

func (p *LargestRemainderPolicy) Name() string {
	return "largest-remainder"
}

// Allocator converts a frozen transition table into a die mapping.
type Allocator struct {
	sides  int
	policy AllocationPolicy
	logger *zap.Logger
}

// NewAllocator creates an allocator for the given die size. A nil policy
// selects the proportional default.
func NewAllocator(sides int, policy AllocationPolicy, logger *zap.Logger) (*Allocator, error) {
	if sides < 1 {
		return nil, fmt.Errorf("invalid die sides %d: must be >= 1", sides)
	}
	if policy == nil {
		policy = NewProportionalPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{
		sides:  sides,
		policy: policy,
		logger: logger,
	}, nil
}

// Build produces the die mapping for every context in the table. Contexts
// with more distinct next-tokens than die faces keep only the top-ranked
// tokens; the discarded tail's mass is dropped, not redistributed.
func (a *Allocator) Build(table *TransitionTable) (*markov.DieMapping, error) {
	contexts := table.Contexts()
	mapping := markov.NewDieMapping(table.Order(), a.sides, len(contexts))

	truncated := 0
	for _, key := range contexts {
		ranked := rankCounts(table.NextCounts(key))
		if len(ranked) > a.sides {
			ranked = ranked[:a.sides]
			truncated++
		}
		mapping.Put(key, a.policy.Allocate(ranked, a.sides))
	}

	a.logger.Debug("Built die mapping",
		zap.Int("contexts", mapping.Len()),
		zap.Int("die_sides", a.sides),
		zap.Int("truncated_contexts", truncated),
		zap.String("policy", a.policy.Name()),
	)

	return mapping, nil
}

// rankCounts orders counts descending; the incoming first-seen order breaks
// ties via the stable sort.
func rankCounts(counts []TokenCount) []TokenCount {
	ranked := make([]TokenCount, len(counts))
	copy(ranked, counts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}
