package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/ragrouter/faq"
	"github.com/sweetpotato0/ragrouter/vector"
)

// Store is an in-memory FAQ bank scoring lookups with cosine similarity.
type Store struct {
	mu      sync.RWMutex
	entries map[string]faq.Entry
}

// New creates an empty in-memory FAQ store.
func New() *Store {
	return &Store{
		entries: make(map[string]faq.Entry),
	}
}

// Lookup returns the best scoring entry for the question embedding.
func (s *Store) Lookup(ctx context.Context, questionEmbedding []float32) (faq.Match, bool, error) {
	if len(questionEmbedding) == 0 {
		return faq.Match{}, false, fmt.Errorf("question embedding cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best faq.Match
	found := false
	for _, entry := range s.entries {
		score := vector.CosineSimilarity(questionEmbedding, entry.Embedding)
		// equal scores resolve to the lexically smallest id for determinism
		if !found || score > best.Score || (score == best.Score && entry.ID < best.Entry.ID) {
			best = faq.Match{Entry: entry, Score: score}
			found = true
		}
	}
	return best, found, nil
}

// Add inserts or replaces an entry
func (s *Store) Add(ctx context.Context, entry faq.Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("entry ID cannot be empty")
	}
	if len(entry.Embedding) == 0 {
		return fmt.Errorf("entry embedding cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

// Delete removes an entry by ID
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		return fmt.Errorf("entry not found")
	}
	delete(s.entries, id)
	return nil
}

// Count returns the number of entries
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
