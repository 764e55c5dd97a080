package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSenderRequired is returned when a store operation is missing the
// sender identifier.
var ErrSenderRequired = errors.New("conversation: sender required")

// Store keeps per-sender message history and the AI-enabled set.
// Message sequences are append-only within a process lifetime.
type Store interface {
	// Record appends a message to the sender's conversation, creating
	// the conversation if absent.
	Record(ctx context.Context, sender string, msg Message) (Message, error)
	// List returns the sender's messages in insertion order. Unknown
	// senders yield an empty slice, not an error.
	List(ctx context.Context, sender string) ([]Message, error)
	// Summaries returns one Summary per known sender, most recent
	// activity first.
	Summaries(ctx context.Context) ([]Summary, error)
	// SetAIEnabled toggles automatic replies for a sender. Replies are
	// enabled by default for every sender.
	SetAIEnabled(ctx context.Context, sender string, enabled bool) error
	// AIEnabled reports whether automatic replies are active for a sender.
	AIEnabled(ctx context.Context, sender string) (bool, error)
	// Seen marks a provider message id as processed and reports whether
	// it had been seen before. Empty ids are never deduplicated.
	Seen(ctx context.Context, providerMessageID string) (bool, error)
}

// MemoryStore is the default Store. State lives for the process
// lifetime only; restarts lose all conversations.
type MemoryStore struct {
	mu         sync.RWMutex
	chats      map[string][]Message
	aiDisabled map[string]bool
	processed  map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:      make(map[string][]Message),
		aiDisabled: make(map[string]bool),
		processed:  make(map[string]bool),
	}
}

func (s *MemoryStore) Record(_ context.Context, sender string, msg Message) (Message, error) {
	if sender == "" {
		return Message{}, ErrSenderRequired
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.chats[sender] = append(s.chats[sender], msg)
	s.mu.Unlock()

	return msg, nil
}

func (s *MemoryStore) List(_ context.Context, sender string) ([]Message, error) {
	if sender == "" {
		return nil, ErrSenderRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.chats[sender]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Summaries(_ context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.chats))
	for sender, msgs := range s.chats {
		if len(msgs) == 0 {
			continue
		}
		last := msgs[len(msgs)-1]
		out = append(out, Summary{
			Sender:       sender,
			LastText:     last.Text,
			LastActivity: last.Timestamp,
			MessageCount: len(msgs),
			AIEnabled:    !s.aiDisabled[sender],
		})
	}
	sortSummaries(out)
	return out, nil
}

func (s *MemoryStore) SetAIEnabled(_ context.Context, sender string, enabled bool) error {
	if sender == "" {
		return ErrSenderRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		delete(s.aiDisabled, sender)
	} else {
		s.aiDisabled[sender] = true
	}
	return nil
}

func (s *MemoryStore) AIEnabled(_ context.Context, sender string) (bool, error) {
	if sender == "" {
		return false, ErrSenderRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.aiDisabled[sender], nil
}

func (s *MemoryStore) Seen(_ context.Context, providerMessageID string) (bool, error) {
	if providerMessageID == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed[providerMessageID] {
		return true, nil
	}
	s.processed[providerMessageID] = true
	return false, nil
}
