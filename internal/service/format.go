package service

import (
	"fmt"
	"sort"
	"strings"

	"storydice-go/internal/model/markov"
)

// terminalLabel is how formatted tables show the terminal token.
const terminalLabel = "END SENTENCE"

// FormatContextTable renders one context's assignments as roll-range lines
// ordered by lowest face, the way players read them off the printed sheet.
func FormatContextTable(key string, assignments []markov.Assignment) string {
	var b strings.Builder
	if len(markov.ContextFromKey(key)) == 1 {
		fmt.Fprintf(&b, "If current word is '%s':\n", key)
	} else {
		fmt.Fprintf(&b, "If current words are '%s':\n", key)
	}
	b.WriteString("  Roll 1 die:\n")

	sorted := make([]markov.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if len(a.Faces) > 0 {
			sorted = append(sorted, a)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return minFace(sorted[i]) < minFace(sorted[j])
	})

	for _, a := range sorted {
		lo, hi := minFace(a), maxFace(a)
		rangeStr := fmt.Sprintf("%d", lo)
		if hi > lo {
			rangeStr = fmt.Sprintf("%d-%d", lo, hi)
		}
		label := a.Token
		if label == markov.Terminal {
			label = terminalLabel
		}
		fmt.Fprintf(&b, "    %s = '%s'\n", rangeStr, label)
	}

	return b.String()
}

// FormatMapping renders the whole mapping, one table per context, in the
// mapping's context order.
func FormatMapping(m *markov.DieMapping) string {
	var b strings.Builder
	b.WriteString("MARKOV CHAIN TRANSITION TABLE\n")
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")

	for _, key := range m.Keys() {
		assignments, _ := m.Lookup(key)
		b.WriteString(FormatContextTable(key, assignments))
		b.WriteString("\n")
	}

	return b.String()
}

func minFace(a markov.Assignment) int {
	lo := a.Faces[0]
	for _, f := range a.Faces {
		if f < lo {
			lo = f
		}
	}
	return lo
}

func maxFace(a markov.Assignment) int {
	hi := a.Faces[0]
	for _, f := range a.Faces {
		if f > hi {
			hi = f
		}
	}
	return hi
}
