package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the application configuration loaded from YAML
type Config struct {
	App     AppConfig   `yaml:"app"`
	Model   ModelConfig `yaml:"model"`
	Corpora []Corpus    `yaml:"corpora"`
}

// AppConfig holds server-level settings
type AppConfig struct {
	Port     int    `yaml:"port"`
	ModelDir string `yaml:"model_dir"`
}

// ModelConfig holds the default model parameters
type ModelConfig struct {
	Order    int    `yaml:"order"`
	DieSides int    `yaml:"die_sides"`
	MaxSteps int    `yaml:"max_steps"`
	Policy   string `yaml:"policy"`
}

// Corpus names a training text source loaded at startup
type Corpus struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// LoadConfig reads, defaults and validates the configuration file.
// Model parameters are rejected eagerly, before any processing happens.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.ModelDir == "" {
		c.App.ModelDir = "./dice_models"
	}
	if c.Model.Order == 0 {
		c.Model.Order = 1
	}
	if c.Model.DieSides == 0 {
		c.Model.DieSides = 6
	}
	if c.Model.MaxSteps == 0 {
		c.Model.MaxSteps = 100
	}
	if c.Model.Policy == "" {
		c.Model.Policy = "proportional"
	}
}

// Validate rejects invalid model parameters
func (c *Config) Validate() error {
	if c.Model.Order < 1 {
		return fmt.Errorf("invalid order %d: must be >= 1", c.Model.Order)
	}
	if c.Model.DieSides < 1 {
		return fmt.Errorf("invalid die_sides %d: must be >= 1", c.Model.DieSides)
	}
	if c.Model.MaxSteps < 1 {
		return fmt.Errorf("invalid max_steps %d: must be >= 1", c.Model.MaxSteps)
	}
	for _, corpus := range c.Corpora {
		if corpus.Name == "" || corpus.Path == "" {
			return fmt.Errorf("corpus entries require both name and path")
		}
	}
	return nil
}

// GetCorpus returns the named corpus entry
func (c *Config) GetCorpus(name string) (*Corpus, error) {
	for i := range c.Corpora {
		if c.Corpora[i].Name == name {
			return &c.Corpora[i], nil
		}
	}
	return nil, fmt.Errorf("corpus not found: %s", name)
}
