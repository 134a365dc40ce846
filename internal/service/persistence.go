package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"storydice-go/internal/model/markov"

	"go.uber.org/zap"
)

// EncodeMapping renders a die mapping in the renderer contract format:
// context key -> token -> explicit ordered face list.
func EncodeMapping(m *markov.DieMapping) map[string]map[string][]int {
	out := make(map[string]map[string][]int, m.Len())
	for _, key := range m.Keys() {
		assignments, _ := m.Lookup(key)
		entry := make(map[string][]int, len(assignments))
		for _, a := range assignments {
			faces := make([]int, len(a.Faces))
			copy(faces, a.Faces)
			entry[a.Token] = faces
		}
		out[key] = entry
	}
	return out
}

// DecodeMapping rebuilds a die mapping from the renderer format. The format
// carries no metadata, so the die size is inferred as the highest face
// present and the order as the widest key; assignments are ordered by lowest
// face, which is also how the renderer lays them out.
func DecodeMapping(data map[string]map[string][]int) (*markov.DieMapping, error) {
	sides := 0
	order := 1
	keys := make([]string, 0, len(data))
	for key, entry := range data {
		keys = append(keys, key)
		if n := len(markov.ContextFromKey(key)); n > order {
			order = n
		}
		for tok, faces := range entry {
			for _, f := range faces {
				if f < 1 {
					return nil, fmt.Errorf("invalid face %d for token %q in context %q", f, tok, key)
				}
				if f > sides {
					sides = f
				}
			}
		}
	}
	sort.Strings(keys)

	m := markov.NewDieMapping(order, sides, len(keys))
	for _, key := range keys {
		entry := data[key]
		assignments := make([]markov.Assignment, 0, len(entry))
		for tok, faces := range entry {
			if len(faces) == 0 {
				continue
			}
			sorted := make([]int, len(faces))
			copy(sorted, faces)
			sort.Ints(sorted)
			assignments = append(assignments, markov.Assignment{Token: tok, Faces: sorted})
		}
		sort.Slice(assignments, func(i, j int) bool {
			return assignments[i].Faces[0] < assignments[j].Faces[0]
		})
		m.Put(key, assignments)
	}
	return m, nil
}

// ModelPersistence handles saving and loading serialized die mappings
type ModelPersistence struct {
	outputDir string
	logger    *zap.Logger
}

// NewModelPersistence creates a new persistence manager
func NewModelPersistence(outputDir string, logger *zap.Logger) (*ModelPersistence, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &ModelPersistence{
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// GetModelPath returns the file path for a named model
func (p *ModelPersistence) GetModelPath(name string) string {
	return filepath.Join(p.outputDir, fmt.Sprintf("%s_dice.json", name))
}

// SaveMapping saves a die mapping to disk
func (p *ModelPersistence) SaveMapping(name string, m *markov.DieMapping) error {
	data, err := json.MarshalIndent(EncodeMapping(m), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}

	modelPath := p.GetModelPath(name)
	if err := os.WriteFile(modelPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	p.logger.Info("Saved die mapping",
		zap.String("model", name),
		zap.String("path", modelPath),
		zap.Int("contexts", m.Len()),
		zap.Int("die_sides", m.Sides))

	return nil
}

// LoadMapping loads a die mapping from disk
func (p *ModelPersistence) LoadMapping(name string) (*markov.DieMapping, error) {
	modelPath := p.GetModelPath(name)

	raw, err := os.ReadFile(modelPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no saved model found: %s", name)
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var data map[string]map[string][]int
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode model file: %w", err)
	}

	m, err := DecodeMapping(data)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild mapping: %w", err)
	}

	p.logger.Info("Loaded die mapping",
		zap.String("model", name),
		zap.String("path", modelPath),
		zap.Int("contexts", m.Len()),
		zap.Int("die_sides", m.Sides))

	return m, nil
}

// ModelExists checks if a saved model exists
func (p *ModelPersistence) ModelExists(name string) bool {
	_, err := os.Stat(p.GetModelPath(name))
	return err == nil
}

// DeleteModel deletes a saved model
func (p *ModelPersistence) DeleteModel(name string) error {
	if err := os.Remove(p.GetModelPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	p.logger.Info("Deleted die mapping", zap.String("model", name))
	return nil
}
