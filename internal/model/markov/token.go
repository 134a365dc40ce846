package markov

import "strings"

// Terminal is the canonical sentence-terminal token. The tokenizer emits
// ".", "!" and "?" as separate tokens; the model collapses all three to
// Terminal before counting.
const Terminal = "."

// IsTerminal reports whether tok is one of the sentence-terminal tokens.
func IsTerminal(tok string) bool {
	return tok == "." || tok == "!" || tok == "?"
}

// Canonical maps the sentence-terminal tokens to Terminal and leaves every
// other token unchanged.
func Canonical(tok string) string {
	if IsTerminal(tok) {
		return Terminal
	}
	return tok
}

// Context is an ordered, fixed-length window of tokens used as the lookup key
// for predicting the next token. An order-1 context is a length-1 sequence,
// never a bare string.
type Context []string

// Key returns the context as a space-joined string key.
func (c Context) Key() string {
	return strings.Join(c, " ")
}

// Advance drops the oldest token and appends next, preserving the window
// length.
func (c Context) Advance(next string) Context {
	out := make(Context, len(c))
	copy(out, c[1:])
	out[len(out)-1] = next
	return out
}

// HasTerminal reports whether any token in the context is the terminal.
func (c Context) HasTerminal() bool {
	for _, tok := range c {
		if tok == Terminal {
			return true
		}
	}
	return false
}

// ContextFromKey splits a space-joined key back into a Context.
func ContextFromKey(key string) Context {
	return Context(strings.Fields(key))
}
