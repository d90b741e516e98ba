package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/ragrouter/vector"
)

// Store implements vector.Store using in-memory storage. Intended for tests
// and small single-process deployments.
type Store struct {
	embeddings map[string]*vector.Embedding
	mu         sync.RWMutex
}

// New creates a new in-memory vector store
func New() *Store {
	return &Store{
		embeddings: make(map[string]*vector.Embedding),
	}
}

// Upsert inserts or replaces an embedding
func (s *Store) Upsert(ctx context.Context, embedding *vector.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("embedding cannot be nil")
	}
	if embedding.ID == "" {
		return fmt.Errorf("embedding ID cannot be empty")
	}
	if len(embedding.Vector) == 0 {
		return fmt.Errorf("embedding vector cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings[embedding.ID] = embedding
	return nil
}

// Search finds embeddings similar to the query vector, ordered by cosine
// similarity descending with ties broken by document id.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]vector.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if topK <= 0 {
		topK = 10
	}

	results := make([]vector.SearchResult, 0, len(s.embeddings))
	for _, emb := range s.embeddings {
		if len(emb.Vector) != len(queryVector) {
			continue
		}
		results = append(results, vector.SearchResult{
			DocID: emb.ID,
			Text:  emb.Text,
			Score: vector.CosineSimilarity(queryVector, emb.Vector),
		})
	}

	vector.SortResults(results)

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes an embedding by ID
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.embeddings[id]; !exists {
		return fmt.Errorf("embedding not found")
	}
	delete(s.embeddings, id)
	return nil
}

// Clear removes all embeddings
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings = make(map[string]*vector.Embedding)
	return nil
}

// Count returns the number of embeddings
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embeddings), nil
}
