package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"storydice-go/internal/model/markov"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoryModel bundles everything built for one named corpus. Table is nil for
// models restored from disk; the mapping alone is enough to sample.
type StoryModel struct {
	Name      string
	Order     int
	Sides     int
	Policy    string
	Table     *TransitionTable
	Mapping   *markov.DieMapping
	CreatedAt time.Time
}

// TrainOptions control a training pass.
type TrainOptions struct {
	Order    int
	Sides    int
	Policy   string
	Override bool // retrain even when a saved model exists
}

// GenerateOptions control a sampling run.
type GenerateOptions struct {
	Start     []string // starting context; chosen by the sampler when empty
	Sentences int
	Seed      *int64 // fixed seed for reproducible output
	MaxSteps  int
}

// StoryResult is one generated story.
type StoryResult struct {
	ID        string   `json:"id"`
	Model     string   `json:"model"`
	Sentences []string `json:"sentences"`
	Story     string   `json:"story"`
	Seed      int64    `json:"seed"`
}

// StoryService orchestrates tokenization, training, face allocation,
// persistence and sampling for named models.
type StoryService struct {
	models      map[string]*StoryModel
	registry    *TokenizerRegistry
	persistence *ModelPersistence
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewStoryService creates a story service storing models under outputDir
func NewStoryService(outputDir string, logger *zap.Logger) (*StoryService, error) {
	registry := NewTokenizerRegistry()
	registry.Register("english", NewWordTokenizer())

	persistence, err := NewModelPersistence(outputDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence: %w", err)
	}

	return &StoryService{
		models:      make(map[string]*StoryModel),
		registry:    registry,
		persistence: persistence,
		logger:      logger,
	}, nil
}

// Train tokenizes texts, accumulates transitions, allocates die faces and
// persists the result under name. Each text is tokenized independently, so
// contexts never span a text boundary. Unless Override is set, an existing
// saved model is loaded instead of retrained.
func (s *StoryService) Train(ctx context.Context, name string, texts []string, opts TrainOptions) (*StoryModel, error) {
	if opts.Order < 1 {
		return nil, fmt.Errorf("invalid order %d: must be >= 1", opts.Order)
	}
	if opts.Sides < 1 {
		return nil, fmt.Errorf("invalid die sides %d: must be >= 1", opts.Sides)
	}

	s.logger.Info("Training story model",
		zap.String("model", name),
		zap.Int("texts", len(texts)),
		zap.Int("order", opts.Order),
		zap.Int("die_sides", opts.Sides),
		zap.Bool("override", opts.Override),
	)

	if !opts.Override && s.persistence.ModelExists(name) {
		s.logger.Info("Loading existing die mapping from disk", zap.String("model", name))
		model, err := s.LoadModel(name)
		if err == nil {
			return model, nil
		}
		s.logger.Warn("Failed to load existing model, will retrain",
			zap.String("model", name),
			zap.Error(err))
	}

	policy, err := PolicyFromName(opts.Policy)
	if err != nil {
		return nil, err
	}

	tok, ok := s.registry.GetTokenizer("english")
	if !ok {
		return nil, fmt.Errorf("no tokenizer registered for language: english")
	}

	table, err := NewTransitionTable(opts.Order)
	if err != nil {
		return nil, err
	}
	for _, text := range texts {
		tokens, err := tok.Tokenize(ctx, []byte(text))
		if err != nil {
			return nil, fmt.Errorf("tokenization failed: %w", err)
		}
		if err := table.Add(tokens); err != nil {
			return nil, err
		}
	}
	table.Freeze()

	allocator, err := NewAllocator(opts.Sides, policy, s.logger)
	if err != nil {
		return nil, err
	}
	mapping, err := allocator.Build(table)
	if err != nil {
		return nil, err
	}

	if err := s.persistence.SaveMapping(name, mapping); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	model := &StoryModel{
		Name:      name,
		Order:     opts.Order,
		Sides:     opts.Sides,
		Policy:    policy.Name(),
		Table:     table,
		Mapping:   mapping,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.models[name] = model
	s.mu.Unlock()

	stats := table.Stats()
	s.logger.Info("Story model trained",
		zap.String("model", name),
		zap.Int("contexts", stats.ContextCount),
		zap.Int64("transitions", stats.Transitions),
	)

	return model, nil
}

// GetModel returns the named model, loading it from disk if necessary.
func (s *StoryService) GetModel(name string) (*StoryModel, error) {
	s.mu.RLock()
	model, exists := s.models[name]
	s.mu.RUnlock()
	if exists {
		return model, nil
	}
	return s.LoadModel(name)
}

// LoadModel restores a model from its persisted die mapping. Order and die
// size come from the mapping itself; the transition table is not persisted.
func (s *StoryService) LoadModel(name string) (*StoryModel, error) {
	mapping, err := s.persistence.LoadMapping(name)
	if err != nil {
		return nil, err
	}

	model := &StoryModel{
		Name:      name,
		Order:     mapping.Order,
		Sides:     mapping.Sides,
		Mapping:   mapping,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.models[name] = model
	s.mu.Unlock()

	return model, nil
}

// DeleteModel removes a model from memory and disk.
func (s *StoryService) DeleteModel(name string) error {
	s.mu.Lock()
	delete(s.models, name)
	s.mu.Unlock()

	return s.persistence.DeleteModel(name)
}

// ModelNames returns the names of all in-memory models.
func (s *StoryService) ModelNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, name)
	}
	return names
}

// Generate replays the named model with simulated die rolls. A caller-supplied
// seed makes the output reproducible; otherwise a crypto seed is drawn.
func (s *StoryService) Generate(ctx context.Context, name string, opts GenerateOptions) (*StoryResult, error) {
	model, err := s.GetModel(name)
	if err != nil {
		return nil, err
	}

	if opts.Sentences < 1 {
		opts.Sentences = 2
	}

	seed := int64(0)
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		seed, err = NewSeed()
		if err != nil {
			return nil, err
		}
	}

	var start markov.Context
	if len(opts.Start) > 0 {
		if len(opts.Start) != model.Mapping.Order {
			return nil, fmt.Errorf("start context must have %d tokens, got %d",
				model.Mapping.Order, len(opts.Start))
		}
		start = make(markov.Context, len(opts.Start))
		for i, tok := range opts.Start {
			start[i] = markov.Canonical(strings.ToLower(tok))
		}
	}

	rng := rand.New(rand.NewSource(seed))
	sampler := NewSampler(model.Mapping, rng, opts.MaxSteps, s.logger)

	sentences, err := sampler.Story(start, opts.Sentences)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Generated story",
		zap.String("model", name),
		zap.Int("sentences", len(sentences)),
		zap.Int64("seed", seed),
	)

	return &StoryResult{
		ID:        uuid.NewString(),
		Model:     name,
		Sentences: sentences,
		Story:     strings.Join(sentences, " "),
		Seed:      seed,
	}, nil
}
