package service

import (
	"context"
	"regexp"
	"strings"
)

// wordPattern matches a word-bounded run of ASCII letters or a single
// sentence terminal. Digits, other punctuation and whitespace are discarded;
// the boundaries also reject letter runs glued to digits ("2nd", "b2b").
var wordPattern = regexp.MustCompile(`\b[a-zA-Z]+\b|[.!?]`)

// WordTokenizer splits prose into lowercase word tokens and sentence-terminal
// tokens (".", "!", "?") in the order encountered. It keeps no state between
// calls: identical input always yields an identical token sequence.
type WordTokenizer struct{}

// NewWordTokenizer creates a new prose tokenizer
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{}
}

// Tokenize converts raw text into a sequence of tokens
func (t *WordTokenizer) Tokenize(ctx context.Context, source []byte) ([]string, error) {
	text := strings.ToLower(string(source))
	return wordPattern.FindAllString(text, -1), nil
}

// Language returns the language this tokenizer handles
func (t *WordTokenizer) Language() string {
	return "english"
}
