package faq

import "context"

// Entry is one curated question/answer pair in the FAQ bank.
type Entry struct {
	ID        string
	Question  string
	Answer    string
	Embedding []float32
}

// Match is the best entry found for a lookup, with its similarity score.
type Match struct {
	Entry Entry
	Score float32
}

// Store defines the FAQ bank contract. Lookup is the only method the
// orchestration core calls; Add and Delete belong to the management surface.
type Store interface {
	// Lookup returns the entry whose stored embedding is closest to the
	// question embedding, together with its similarity score. A store with
	// no entries returns ok=false.
	Lookup(ctx context.Context, questionEmbedding []float32) (Match, bool, error)

	// Add inserts or replaces an entry
	Add(ctx context.Context, entry Entry) error

	// Delete removes an entry by ID
	Delete(ctx context.Context, id string) error

	// Count returns the number of entries
	Count(ctx context.Context) (int, error)
}
