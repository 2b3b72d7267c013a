package history

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/parlance/pkg/types"
)

var _ Store = (*MemoryStore)(nil)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithLimits overrides the retention limits.
func WithLimits(l Limits) MemoryOption {
	return func(s *MemoryStore) {
		s.limits = l.Normalize()
	}
}

// WithClock replaces time.Now. Used by tests to drive expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

type conversation struct {
	turns     []types.ConversationTurn
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Expired conversations are dropped
// lazily on access. It is intended for single-instance deployments and tests.
type MemoryStore struct {
	mu     sync.Mutex
	limits Limits
	now    func() time.Time
	convs  map[string]*conversation
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		limits: DefaultLimits(),
		now:    time.Now,
		convs:  make(map[string]*conversation),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, conversationID string, turn types.ConversationTurn) error {
	id := ConversationID(conversationID)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok || !now.Before(c.expiresAt) {
		c = &conversation{}
		s.convs[id] = c
	}
	c.turns = append(c.turns, turn)
	if over := len(c.turns) - s.limits.MaxTurns; over > 0 {
		c.turns = append([]types.ConversationTurn(nil), c.turns[over:]...)
	}
	c.expiresAt = now.Add(s.limits.Expire)
	return nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, conversationID string, n int) ([]types.ConversationTurn, error) {
	id := ConversationID(conversationID)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok || n <= 0 {
		return []types.ConversationTurn{}, nil
	}
	if !now.Before(c.expiresAt) {
		delete(s.convs, id)
		return []types.ConversationTurn{}, nil
	}
	start := max(len(c.turns)-n, 0)
	return append([]types.ConversationTurn(nil), c.turns[start:]...), nil
}

// Len reports the number of live conversations. Expired ones that have not
// been touched since expiry are still counted.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}
