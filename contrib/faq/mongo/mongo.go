package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/ragrouter/faq"
	"github.com/sweetpotato0/ragrouter/vector"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store implements faq.Store using MongoDB. Entry embeddings are stored
// alongside the question/answer pair and scored client-side with cosine
// similarity, which is adequate for curated FAQ banks of a few thousand
// entries.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Config holds MongoDB connection configuration
type Config struct {
	URI        string
	Database   string
	Collection string
}

// DefaultConfig returns default MongoDB configuration
func DefaultConfig() *Config {
	return &Config{
		URI:        "mongodb://localhost:27017",
		Database:   "ragrouter",
		Collection: "faq_entries",
	}
}

// mongoEntry is the internal representation for MongoDB
type mongoEntry struct {
	ID        string    `bson:"_id"`
	Question  string    `bson:"question"`
	Answer    string    `bson:"answer"`
	Embedding []float32 `bson:"embedding"`
	CreatedAt time.Time `bson:"created_at"`
}

// New creates a MongoDB-backed FAQ store.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)
	return &Store{
		client:     client,
		collection: collection,
	}, nil
}

// Lookup fetches all entries and returns the best cosine match. Ties resolve
// to the lexically smallest id so repeated lookups are deterministic.
func (s *Store) Lookup(ctx context.Context, questionEmbedding []float32) (faq.Match, bool, error) {
	if len(questionEmbedding) == 0 {
		return faq.Match{}, false, fmt.Errorf("question embedding cannot be empty")
	}

	cursor, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return faq.Match{}, false, fmt.Errorf("find FAQ entries: %w", err)
	}
	defer cursor.Close(ctx)

	var best faq.Match
	found := false
	for cursor.Next(ctx) {
		var doc mongoEntry
		if err := cursor.Decode(&doc); err != nil {
			return faq.Match{}, false, fmt.Errorf("decode FAQ entry: %w", err)
		}
		score := vector.CosineSimilarity(questionEmbedding, doc.Embedding)
		if !found || score > best.Score {
			best = faq.Match{
				Entry: faq.Entry{
					ID:        doc.ID,
					Question:  doc.Question,
					Answer:    doc.Answer,
					Embedding: doc.Embedding,
				},
				Score: score,
			}
			found = true
		}
	}
	if err := cursor.Err(); err != nil {
		return faq.Match{}, false, fmt.Errorf("iterate FAQ entries: %w", err)
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

	doc := mongoEntry{
		ID:        entry.ID,
		Question:  entry.Question,
		Answer:    entry.Answer,
		Embedding: entry.Embedding,
		CreatedAt: time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": entry.ID}, doc, opts); err != nil {
		return fmt.Errorf("upsert FAQ entry: %w", err)
	}
	return nil
}

// Delete removes an entry by ID
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete FAQ entry: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("entry not found")
	}
	return nil
}

// Count returns the number of entries
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count FAQ entries: %w", err)
	}
	return int(count), nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
