package service

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"storydice-go/internal/model/markov"

	"go.uber.org/zap"
)

// RollSource is the randomness provider for die rolls. *math/rand.Rand
// satisfies it; tests inject fixed roll sequences.
type RollSource interface {
	// Intn returns a non-negative random int in [0, n)
	Intn(n int) int
}

// DefaultMaxSteps bounds the tokens generated per sentence before the
// sampler gives up on reaching a terminal.
const DefaultMaxSteps = 100

// sentenceStarters is the allow-list preferred when picking a fresh context.
var sentenceStarters = []string{"the", "a", "an", "i", "you", "he", "she", "it", "they", "we"}

// fallbackStarter seeds a synthetic context when the model has no usable
// starter at all.
const fallbackStarter = "the"

var (
	// ErrNoContexts is returned when sampling from a model with no contexts.
	ErrNoContexts = errors.New("no contexts available")

	// ErrNoTerminal is returned when a sentence exceeds the step cap without
	// reaching a terminal token.
	ErrNoTerminal = errors.New("model has no reachable terminal from this context")
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Sampler replays a die mapping with simulated rolls to produce sentences.
// It holds no state between Story calls beyond the injected roll source, so
// a frozen mapping can back any number of samplers.
type Sampler struct {
	mapping  *markov.DieMapping
	rng      RollSource
	maxSteps int
	logger   *zap.Logger
}

// NewSampler creates a sampler over a die mapping. maxSteps <= 0 selects
// DefaultMaxSteps.
func NewSampler(mapping *markov.DieMapping, rng RollSource, maxSteps int, logger *zap.Logger) *Sampler {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{
		mapping:  mapping,
		rng:      rng,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Story generates numSentences sentences, starting from start when given and
// from a uniformly chosen non-terminal context otherwise. Later sentences
// restart from allow-list-preferred contexts.
func (s *Sampler) Story(start markov.Context, numSentences int) ([]string, error) {
	if s.mapping.Len() == 0 {
		return nil, ErrNoContexts
	}

	current := start
	if len(current) == 0 {
		current = s.pickInitial()
	}

	sentences := make([]string, 0, numSentences)
	for i := 0; i < numSentences; i++ {
		sentence, next, err := s.sentence(current)
		if err != nil {
			return nil, err
		}
		sentences = append(sentences, sentence)
		current = next
	}

	return sentences, nil
}

// sentence runs the roll loop until a terminal is produced, returning the
// finished sentence and the context the next sentence starts from.
func (s *Sampler) sentence(current markov.Context) (string, markov.Context, error) {
	words := make([]string, 0, 16)
	for _, tok := range current {
		if tok != markov.Terminal {
			words = append(words, tok)
		}
	}

	for steps := 0; ; steps++ {
		if steps >= s.maxSteps {
			s.logger.Warn("Sentence exceeded step cap",
				zap.String("context", current.Key()),
				zap.Int("max_steps", s.maxSteps))
			return "", nil, fmt.Errorf("%w: %q", ErrNoTerminal, current.Key())
		}

		assignments, ok := s.mapping.Lookup(current.Key())
		if !ok {
			// Dead end: force-terminate the sentence.
			return finishSentence(words), s.pickStarter(), nil
		}

		roll := s.rng.Intn(s.mapping.Sides) + 1
		next := selectToken(assignments, roll)
		if next == "" || next == markov.Terminal {
			return finishSentence(words), s.pickStarter(), nil
		}

		words = append(words, next)
		current = current.Advance(next)
	}
}

// selectToken returns the token whose faces contain roll. Faces partition
// the die, so at most one assignment matches.
func selectToken(assignments []markov.Assignment, roll int) string {
	for _, a := range assignments {
		if a.Contains(roll) {
			return a.Token
		}
	}
	return ""
}

// pickInitial chooses the first sentence's context uniformly over every
// non-terminal context; every context is a candidate, not just allow-listed
// ones.
func (s *Sampler) pickInitial() markov.Context {
	_, nonTerminal := s.splitKeys()
	if len(nonTerminal) > 0 {
		return markov.ContextFromKey(nonTerminal[s.rng.Intn(len(nonTerminal))])
	}
	return s.syntheticStarter()
}

// pickStarter chooses a fresh context after a sentence ends: a context led
// by an allow-listed starter word when available, any fully non-terminal
// context otherwise, and a synthetic fallback context as the last resort.
func (s *Sampler) pickStarter() markov.Context {
	starters, nonTerminal := s.splitKeys()
	switch {
	case len(starters) > 0:
		return markov.ContextFromKey(starters[s.rng.Intn(len(starters))])
	case len(nonTerminal) > 0:
		return markov.ContextFromKey(nonTerminal[s.rng.Intn(len(nonTerminal))])
	}
	return s.syntheticStarter()
}

// splitKeys partitions the mapping's non-terminal context keys into those led
// by an allow-listed starter word and the full non-terminal set.
func (s *Sampler) splitKeys() (starters, nonTerminal []string) {
	for _, key := range s.mapping.Keys() {
		ctx := markov.ContextFromKey(key)
		if len(ctx) == 0 || ctx.HasTerminal() {
			continue
		}
		nonTerminal = append(nonTerminal, key)
		for _, w := range sentenceStarters {
			if ctx[0] == w {
				starters = append(starters, key)
				break
			}
		}
	}
	return starters, nonTerminal
}

// syntheticStarter builds the fallback context of repeated starter words.
func (s *Sampler) syntheticStarter() markov.Context {
	ctx := make(markov.Context, s.mapping.Order)
	for i := range ctx {
		ctx[i] = fallbackStarter
	}
	return ctx
}

// finishSentence joins, punctuates and capitalizes the collected words.
// The terminal attaches directly to the last word with no space before it.
func finishSentence(words []string) string {
	text := strings.Join(words, " ") + markov.Terminal
	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
