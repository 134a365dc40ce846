package service

import "context"

// Tokenizer defines the interface for corpus tokenization
type Tokenizer interface {
	// Tokenize converts raw text into a sequence of tokens
	Tokenize(ctx context.Context, source []byte) ([]string, error)

	// Language returns the language this tokenizer handles
	Language() string
}

// TokenizerRegistry manages tokenizers for different languages
type TokenizerRegistry struct {
	tokenizers map[string]Tokenizer
}

// NewTokenizerRegistry creates a new tokenizer registry
func NewTokenizerRegistry() *TokenizerRegistry {
	return &TokenizerRegistry{
		tokenizers: make(map[string]Tokenizer),
	}
}

// Register adds a tokenizer for a specific language
func (tr *TokenizerRegistry) Register(language string, tokenizer Tokenizer) {
	tr.tokenizers[language] = tokenizer
}

// GetTokenizer returns the tokenizer for a given language
func (tr *TokenizerRegistry) GetTokenizer(language string) (Tokenizer, bool) {
	tokenizer, ok := tr.tokenizers[language]
	return tokenizer, ok
}

// SupportedLanguages returns a list of all supported languages
func (tr *TokenizerRegistry) SupportedLanguages() []string {
	languages := make([]string, 0, len(tr.tokenizers))
	for lang := range tr.tokenizers {
		languages = append(languages, lang)
	}
	return languages
}
