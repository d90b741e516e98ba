// Package config loads deployment configuration for the routing workflow
// from YAML files with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweetpotato0/ragrouter/workflow"
)

// Config holds the tunable surface of the routing workflow plus backend
// connection settings. Zero values are filled in by Default before use.
type Config struct {
	Workflow WorkflowConfig `yaml:"workflow"`
	Backends BackendConfig  `yaml:"backends"`
}

// WorkflowConfig mirrors the workflow options for deployment files.
type WorkflowConfig struct {
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	MinSearchScore      float64       `yaml:"min_search_score"`
	TopK                int           `yaml:"top_k"`
	MaxIterations       int           `yaml:"max_iterations"`
	StageTimeout        time.Duration `yaml:"stage_timeout"`
	HistoryWindow       int           `yaml:"history_window"`
	MaxContextTokens    int           `yaml:"max_context_tokens"`
	MergeCandidates     bool          `yaml:"merge_candidates"`
	SupportContact      string        `yaml:"support_contact"`
}

// BackendConfig points at externally owned collaborators.
type BackendConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Mongo    MongoConfig    `yaml:"mongo"`
	LLM      LLMConfig      `yaml:"llm"`
}

// PostgresConfig configures the pgvector document store.
type PostgresConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	DBName    string `yaml:"dbname"`
	SSLMode   string `yaml:"sslmode"`
	Dimension int    `yaml:"dimension"`
	TableName string `yaml:"table"`
}

// RedisConfig configures the conversation history store.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// MongoConfig configures the FAQ bank.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// LLMConfig selects the inference backend.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai | claude | gemini
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Workflow: WorkflowConfig{
			SimilarityThreshold: 0.7,
			MinSearchScore:      0.2,
			TopK:                5,
			MaxIterations:       5,
			StageTimeout:        30 * time.Second,
			HistoryWindow:       2,
			MaxContextTokens:    3000,
		},
		Backends: BackendConfig{
			Postgres: PostgresConfig{
				Host:      "127.0.0.1",
				Port:      5432,
				User:      "postgres",
				DBName:    "ragrouter",
				SSLMode:   "disable",
				Dimension: 1536,
				TableName: "document_embeddings",
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "ragrouter",
				Collection: "faq_entries",
			},
			LLM: LLMConfig{
				Provider: "openai",
				Model:    "gpt-4o-mini",
			},
		},
	}
}

// Load reads a YAML config file on top of the defaults, then applies
// environment overrides and validates the result. An empty path loads
// defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RAGROUTER_LLM_API_KEY"); v != "" {
		cfg.Backends.LLM.APIKey = v
	}
	if v := os.Getenv("RAGROUTER_LLM_PROVIDER"); v != "" {
		cfg.Backends.LLM.Provider = v
	}
	if v := os.Getenv("RAGROUTER_REDIS_ADDR"); v != "" {
		cfg.Backends.Redis.Addr = v
	}
	if v := os.Getenv("RAGROUTER_MONGO_URI"); v != "" {
		cfg.Backends.Mongo.URI = v
	}
	if v := os.Getenv("RAGROUTER_PG_PASSWORD"); v != "" {
		cfg.Backends.Postgres.Password = v
	}
	if v := os.Getenv("RAGROUTER_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workflow.MaxIterations = n
		}
	}
}

// Options converts the workflow section into functional options for
// workflow.New.
func (w WorkflowConfig) Options() []workflow.Option {
	opts := []workflow.Option{
		workflow.WithSimilarityThreshold(float32(w.SimilarityThreshold)),
		workflow.WithMinSearchScore(float32(w.MinSearchScore)),
		workflow.WithTopK(w.TopK),
		workflow.WithMaxIterations(w.MaxIterations),
		workflow.WithStageTimeout(w.StageTimeout),
		workflow.WithHistoryWindow(w.HistoryWindow),
		workflow.WithMaxContextTokens(w.MaxContextTokens),
		workflow.WithCandidateMerge(w.MergeCandidates),
	}
	if w.SupportContact != "" {
		opts = append(opts, workflow.WithSupportContact(w.SupportContact))
	}
	return opts
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	v := NewValidator()
	v.ValidateFloatRange("workflow.similarity_threshold", c.Workflow.SimilarityThreshold, 0, 1)
	v.ValidateFloatRange("workflow.min_search_score", c.Workflow.MinSearchScore, 0, 1)
	v.RequirePositive("workflow.top_k", c.Workflow.TopK)
	v.ValidateRange("workflow.max_iterations", c.Workflow.MaxIterations, 1, 100)
	v.RequirePositive("workflow.max_context_tokens", c.Workflow.MaxContextTokens)
	if c.Workflow.StageTimeout <= 0 {
		return fmt.Errorf("config validation failed for field %q: timeout must be positive", "workflow.stage_timeout")
	}
	return v.Err()
}
