package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer wraps a tiktoken encoding for token counting and truncation.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New resolves an encoding by model name first, falling back to treating the
// name as an encoding name (e.g. "cl100k_base").
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// Encode returns the token ids for text.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

// Truncate returns text shortened to at most maxTokens tokens.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	ids := t.Encode(text)
	if len(ids) <= maxTokens {
		return text
	}
	return t.enc.Decode(ids[:maxTokens])
}
