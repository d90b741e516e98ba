package history

import (
	"context"
	"sync"

	"github.com/sweetpotato0/ragrouter/message"
)

// Store persists conversation history per conversation id. History is
// read-mostly context for the workflow; stages never mutate it directly.
type Store interface {
	// Append adds messages to the end of a conversation
	Append(ctx context.Context, conversationID string, msgs ...*message.Message) error

	// Recent returns the last n messages of a conversation in insertion
	// order. n <= 0 returns the whole conversation.
	Recent(ctx context.Context, conversationID string, n int) ([]*message.Message, error)

	// Clear removes a conversation
	Clear(ctx context.Context, conversationID string) error
}

// InMemoryStore keeps conversations in process memory.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]*message.Message
}

// NewInMemoryStore creates an in-memory history store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string][]*message.Message),
	}
}

// Append adds messages to the end of a conversation.
func (s *InMemoryStore) Append(ctx context.Context, conversationID string, msgs ...*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversationID] = append(s.conversations[conversationID], message.CloneMessages(msgs)...)
	return nil
}

// Recent returns the last n messages in insertion order.
func (s *InMemoryStore) Recent(ctx context.Context, conversationID string, n int) ([]*message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.conversations[conversationID]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return message.CloneMessages(msgs), nil
}

// Clear removes a conversation.
func (s *InMemoryStore) Clear(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	return nil
}
