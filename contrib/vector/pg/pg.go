package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sweetpotato0/ragrouter/vector"
)

// Store implements vector.Store using PostgreSQL with the pgvector extension.
type Store struct {
	db        *sql.DB
	dimension int
	tableName string
}

// Config holds pgvector configuration
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int    // Embedding dimension (default: 1536)
	TableName string // Table name (default: document_embeddings)
}

// DefaultConfig returns default pgvector configuration
func DefaultConfig() *Config {
	return &Config{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		DBName:    "ragrouter",
		SSLMode:   "disable",
		Dimension: 1536,
		TableName: "document_embeddings",
	}
}

// New creates a pgvector-backed store and prepares its schema.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}

	store := &Store{
		db:        db,
		dimension: config.Dimension,
		tableName: config.TableName,
	}

	if err := store.setup(context.Background()); err != nil {
		return nil, fmt.Errorf("setup pgvector: %w", err)
	}
	return store, nil
}

func (s *Store) setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.tableName, s.dimension)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Upsert inserts or replaces an embedding
func (s *Store) Upsert(ctx context.Context, embedding *vector.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("embedding cannot be nil")
	}
	if embedding.ID == "" {
		return fmt.Errorf("embedding ID cannot be empty")
	}
	if len(embedding.Vector) != s.dimension {
		return fmt.Errorf("expected dimension %d, got %d", s.dimension, len(embedding.Vector))
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, text, embedding) VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, embedding = EXCLUDED.embedding`,
		s.tableName)

	if _, err := s.db.ExecContext(ctx, query, embedding.ID, embedding.Text, formatVector(embedding.Vector)); err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

// Search finds the topK nearest embeddings by cosine distance. Ordering is
// deterministic: the distance sort is tie-broken by id ascending.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]vector.SearchResult, error) {
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("expected dimension %d, got %d", s.dimension, len(queryVector))
	}
	if topK <= 0 {
		topK = 10
	}

	query := fmt.Sprintf(`
	SELECT id, text, 1 - (embedding <=> $1) AS score
	FROM %s
	ORDER BY embedding <=> $1 ASC, id ASC
	LIMIT $2`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, formatVector(queryVector), topK)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}
	defer rows.Close()

	var results []vector.SearchResult
	for rows.Next() {
		var res vector.SearchResult
		if err := rows.Scan(&res.DocID, &res.Text, &res.Score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}

// Delete removes an embedding by ID
func (s *Store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("embedding not found")
	}
	return nil
}

// Clear removes all embeddings
func (s *Store) Clear(ctx context.Context) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s", s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}
	return nil
}

// Count returns the number of embeddings
func (s *Store) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// Close releases the underlying database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// formatVector renders a float32 slice as a pgvector literal, e.g. [1,2,3].
func formatVector(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
