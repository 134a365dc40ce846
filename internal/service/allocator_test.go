package service

import (
	"testing"

	"storydice-go/internal/model/markov"

	"go.uber.org/zap"
)

// facesUnion collects every assigned face, failing on duplicates.
func facesUnion(t *testing.T, assignments []markov.Assignment) map[int]bool {
	t.Helper()
	union := make(map[int]bool)
	for _, a := range assignments {
		for _, f := range a.Faces {
			if union[f] {
				t.Fatalf("Face %d assigned twice in %+v", f, assignments)
			}
			union[f] = true
		}
	}
	return union
}

func checkPartition(t *testing.T, assignments []markov.Assignment, sides int) {
	t.Helper()
	union := facesUnion(t, assignments)
	if len(union) != sides {
		t.Fatalf("Expected all %d faces assigned, got %d: %+v", sides, len(union), assignments)
	}
	for f := 1; f <= sides; f++ {
		if !union[f] {
			t.Fatalf("Face %d unassigned in %+v", f, assignments)
		}
	}
}

func TestNewAllocator_InvalidSides(t *testing.T) {
	if _, err := NewAllocator(0, nil, zap.NewNop()); err == nil {
		t.Fatal("Expected error for 0 die sides, got nil")
	}
}

func TestPolicyFromName(t *testing.T) {
	policy, err := PolicyFromName("")
	if err != nil || policy.Name() != "proportional" {
		t.Fatalf("Expected default proportional policy, got %v (%v)", policy, err)
	}
	policy, err = PolicyFromName("largest-remainder")
	if err != nil || policy.Name() != "largest-remainder" {
		t.Fatalf("Expected largest-remainder policy, got %v (%v)", policy, err)
	}
	if _, err := PolicyFromName("bogus"); err == nil {
		t.Fatal("Expected error for unknown policy, got nil")
	}
}

func TestProportional_EvenSplit(t *testing.T) {
	policy := NewProportionalPolicy()

	assignments := policy.Allocate([]TokenCount{
		{Token: "cat", Count: 1},
		{Token: "dog", Count: 1},
	}, 6)

	if len(assignments) != 2 {
		t.Fatalf("Expected 2 assignments, got %+v", assignments)
	}
	if assignments[0].Token != "cat" || len(assignments[0].Faces) != 3 {
		t.Fatalf("Expected cat with 3 faces, got %+v", assignments[0])
	}
	if assignments[1].Token != "dog" || assignments[1].Faces[0] != 4 {
		t.Fatalf("Expected dog starting at face 4, got %+v", assignments[1])
	}
	checkPartition(t, assignments, 6)
}

func TestProportional_RemainderFillGoesToTopToken(t *testing.T) {
	policy := NewProportionalPolicy()

	// Five tokens of count 1: round(1/5*6) = 1 face each, one face left over
	assignments := policy.Allocate([]TokenCount{
		{Token: "a", Count: 1},
		{Token: "b", Count: 1},
		{Token: "c", Count: 1},
		{Token: "d", Count: 1},
		{Token: "e", Count: 1},
	}, 6)

	if len(assignments) != 5 {
		t.Fatalf("Expected 5 assignments, got %+v", assignments)
	}
	if len(assignments[0].Faces) != 2 {
		t.Fatalf("Expected top token to absorb the leftover face, got %+v", assignments[0])
	}
	for i := 1; i < 5; i++ {
		if len(assignments[i].Faces) != 1 {
			t.Fatalf("Expected exactly one face for token %d, got %+v", i, assignments[i])
		}
	}
	checkPartition(t, assignments, 6)
}

func TestProportional_MinimumShare(t *testing.T) {
	policy := NewProportionalPolicy()

	// round(1/100*6) = 0, floored to one face
	assignments := policy.Allocate([]TokenCount{
		{Token: "big", Count: 99},
		{Token: "small", Count: 1},
	}, 6)

	if len(assignments) != 2 {
		t.Fatalf("Expected 2 assignments, got %+v", assignments)
	}
	if len(assignments[1].Faces) != 1 {
		t.Fatalf("Expected minimum one face for the rare token, got %+v", assignments[1])
	}
	checkPartition(t, assignments, 6)
}

func TestProportional_FaceExhaustionDropsTail(t *testing.T) {
	policy := NewProportionalPolicy()

	// Shares round to 4+1+1 before the fourth token is reached, so it
	// receives an empty range and is omitted.
	assignments := policy.Allocate([]TokenCount{
		{Token: "a", Count: 5},
		{Token: "b", Count: 1},
		{Token: "c", Count: 1},
		{Token: "d", Count: 1},
	}, 6)

	if len(assignments) != 3 {
		t.Fatalf("Expected tail token dropped, got %+v", assignments)
	}
	if len(assignments[0].Faces) != 4 {
		t.Fatalf("Expected 4 faces for the top token, got %+v", assignments[0])
	}
	checkPartition(t, assignments, 6)
}

func TestLargestRemainder_ExactPartitionSameInput(t *testing.T) {
	policy := NewLargestRemainderPolicy()

	assignments := policy.Allocate([]TokenCount{
		{Token: "a", Count: 5},
		{Token: "b", Count: 1},
		{Token: "c", Count: 1},
		{Token: "d", Count: 1},
	}, 6)

	if len(assignments) != 4 {
		t.Fatalf("Expected every retained token to keep a face, got %+v", assignments)
	}
	if len(assignments[0].Faces) != 3 {
		t.Fatalf("Expected 3 faces for the top token, got %+v", assignments[0])
	}
	checkPartition(t, assignments, 6)
}

func TestLargestRemainder_LeftoverByRemainder(t *testing.T) {
	policy := NewLargestRemainderPolicy()

	// Quotas 2.571, 2.571, 0.857: the largest remainder takes the spare face
	assignments := policy.Allocate([]TokenCount{
		{Token: "a", Count: 3},
		{Token: "b", Count: 3},
		{Token: "c", Count: 1},
	}, 6)

	if len(assignments) != 3 {
		t.Fatalf("Expected 3 assignments, got %+v", assignments)
	}
	for i, a := range assignments {
		if len(a.Faces) != 2 {
			t.Fatalf("Expected 2 faces for token %d, got %+v", i, a)
		}
	}
	checkPartition(t, assignments, 6)
}

func TestLargestRemainder_OvershootTakenFromTop(t *testing.T) {
	policy := NewLargestRemainderPolicy()

	// Minimum-share floors overshoot the die; the surplus comes back from
	// tokens holding more than one face.
	assignments := policy.Allocate([]TokenCount{
		{Token: "a", Count: 10},
		{Token: "b", Count: 1},
		{Token: "c", Count: 1},
		{Token: "d", Count: 1},
		{Token: "e", Count: 1},
		{Token: "f", Count: 1},
	}, 6)

	if len(assignments) != 6 {
		t.Fatalf("Expected 6 assignments, got %+v", assignments)
	}
	checkPartition(t, assignments, 6)
}

func TestAllocator_RankingTieBreakByFirstSeen(t *testing.T) {
	table, err := NewTransitionTable(1)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	// cat and dog tie on count; cat was seen first and must rank higher
	if err := table.Add([]string{"the", "cat", ".", "the", "dog", ".", "the", "cat", ".", "the", "dog", "."}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	table.Freeze()

	allocator, err := NewAllocator(6, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create allocator: %v", err)
	}
	mapping, err := allocator.Build(table)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	assignments, ok := mapping.Lookup("the")
	if !ok {
		t.Fatal("Expected context 'the' in mapping")
	}
	if assignments[0].Token != "cat" {
		t.Fatalf("Expected cat ranked first on tie, got %+v", assignments)
	}
}

func TestAllocator_TruncationKeepsTopTokens(t *testing.T) {
	table, err := NewTransitionTable(1)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	// Eight distinct next-tokens with strictly decreasing counts
	words := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var tokens []string
	for i, w := range words {
		for n := 0; n < len(words)-i; n++ {
			tokens = append(tokens, "go", w, ".")
		}
	}
	if err := table.Add(tokens); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	table.Freeze()

	allocator, err := NewAllocator(6, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create allocator: %v", err)
	}
	mapping, err := allocator.Build(table)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	assignments, ok := mapping.Lookup("go")
	if !ok {
		t.Fatal("Expected context 'go' in mapping")
	}
	if len(assignments) > 6 {
		t.Fatalf("Expected at most 6 entries, got %d", len(assignments))
	}
	// Every surviving token must come from the top of the ranking
	retained := make(map[string]bool)
	for _, a := range assignments {
		retained[a.Token] = true
	}
	if retained["g"] || retained["h"] {
		t.Fatalf("Expected lowest-ranked tokens dropped, got %+v", assignments)
	}
	if !retained["a"] || !retained["b"] {
		t.Fatalf("Expected highest-ranked tokens retained, got %+v", assignments)
	}
}

func TestAllocator_ScenarioTwoSentences(t *testing.T) {
	table, err := NewTransitionTable(1)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	if err := table.Add([]string{"the", "cat", "ran", ".", "the", "dog", "ran", "."}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	table.Freeze()

	allocator, err := NewAllocator(6, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create allocator: %v", err)
	}
	mapping, err := allocator.Build(table)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	assignments, _ := mapping.Lookup("the")
	if len(assignments) != 2 {
		t.Fatalf("Expected cat and dog for 'the', got %+v", assignments)
	}
	for _, want := range []struct {
		token string
		faces []int
	}{
		{"cat", []int{1, 2, 3}},
		{"dog", []int{4, 5, 6}},
	} {
		found := false
		for _, a := range assignments {
			if a.Token == want.token {
				found = true
				if len(a.Faces) != len(want.faces) {
					t.Fatalf("Expected %v for %s, got %v", want.faces, want.token, a.Faces)
				}
				for i, f := range want.faces {
					if a.Faces[i] != f {
						t.Fatalf("Expected %v for %s, got %v", want.faces, want.token, a.Faces)
					}
				}
			}
		}
		if !found {
			t.Fatalf("Expected token %s in %+v", want.token, assignments)
		}
	}

	assignments, _ = mapping.Lookup("cat")
	if len(assignments) != 1 || assignments[0].Token != "ran" || len(assignments[0].Faces) != 6 {
		t.Fatalf("Expected cat -> ran on all faces, got %+v", assignments)
	}

	assignments, _ = mapping.Lookup("ran")
	if len(assignments) != 1 || assignments[0].Token != "." || len(assignments[0].Faces) != 6 {
		t.Fatalf("Expected ran -> terminal on all faces, got %+v", assignments)
	}
}
