package vector

import (
	"context"
	"math"
	"sort"
)

// Embedding represents a stored document embedding
type Embedding struct {
	ID     string
	Vector []float32
	Text   string
}

// SearchResult is one nearest-neighbor hit returned by a Store.
type SearchResult struct {
	DocID string
	Text  string
	Score float32
}

// Store defines the interface for vector storage and similarity search.
// Upsert and Delete are owned by the ingestion pipeline; the orchestration
// core only calls Search.
type Store interface {
	// Upsert inserts or replaces an embedding
	Upsert(ctx context.Context, embedding *Embedding) error

	// Search finds the topK embeddings most similar to the query vector,
	// ordered by score descending with ties broken by document id ascending.
	Search(ctx context.Context, queryVector []float32, topK int) ([]SearchResult, error)

	// Delete removes an embedding by ID
	Delete(ctx context.Context, id string) error

	// Clear removes all embeddings
	Clear(ctx context.Context) error

	// Count returns the number of embeddings
	Count(ctx context.Context) (int, error)
}

// Embedder defines the interface for creating embeddings from text
type Embedder interface {
	// Embed converts text to a vector embedding
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts to embeddings
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension return number of embedding dimensions
	Dimension() int
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Normalize scales the vector to unit length (L2 norm).
func Normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// SortResults orders hits by score descending, breaking equal scores by
// document id ascending so identical backend output always yields the same
// ordering.
func SortResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
}
