package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sweetpotato0/ragrouter/message"
)

// Store implements history.Store using a Redis list per conversation.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Config holds Redis configuration
type Config struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Prefix   string        // Key prefix for namespacing
	TTL      time.Duration // Time-to-live for conversations (0 means no expiration)
}

// New creates a Redis-backed history store.
func New(config *Config) *Store {
	if config == nil {
		config = &Config{
			Addr:   "localhost:6379",
			Prefix: "ragrouter:history:",
		}
	}
	if config.Prefix == "" {
		config.Prefix = "ragrouter:history:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &Store{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

func (s *Store) key(conversationID string) string {
	return s.prefix + conversationID
}

// Append adds messages to the end of a conversation.
func (s *Store) Append(ctx context.Context, conversationID string, msgs ...*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	key := s.key(conversationID)
	values := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, data)
	}

	if err := s.client.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("refresh history ttl: %w", err)
		}
	}
	return nil
}

// Recent returns the last n messages of a conversation in insertion order.
func (s *Store) Recent(ctx context.Context, conversationID string, n int) ([]*message.Message, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}

	raw, err := s.client.LRange(ctx, s.key(conversationID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	msgs := make([]*message.Message, 0, len(raw))
	for _, item := range raw {
		var msg message.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	return msgs, nil
}

// Clear removes a conversation.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
