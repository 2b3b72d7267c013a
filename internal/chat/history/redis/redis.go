// Package redis provides a history.Store backed by Redis lists.
//
// Each conversation is one list at "<prefix><conversationID>" holding
// JSON-encoded turns. Writes pipeline RPUSH, LTRIM and EXPIRE so that trim
// and expiry refresh happen on every append; reads use LRANGE.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrWong99/parlance/internal/chat/history"
	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/pkg/types"
)

const defaultKeyPrefix = "parlance:chat:"

var (
	_ history.Store  = (*Store)(nil)
	_ history.Pinger = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLimits overrides the retention limits.
func WithLimits(l history.Limits) Option {
	return func(s *Store) {
		s.limits = l.Normalize()
	}
}

// WithKeyPrefix overrides the list key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// Store implements history.Store on a Redis client. It is safe for
// concurrent use.
type Store struct {
	client goredis.UniversalClient
	limits history.Limits
	prefix string
}

// New wraps an existing client. The caller keeps ownership of client unless
// Close is called.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		limits: history.DefaultLimits(),
		prefix: defaultKeyPrefix,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dial connects to addr, verifies the connection with PING and returns a
// Store that owns the client.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis history: ping %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

func (s *Store) key(conversationID string) string {
	return s.prefix + history.ConversationID(conversationID)
}

// Append implements history.Store.
func (s *Store) Append(ctx context.Context, conversationID string, turn types.ConversationTurn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("redis history: encode turn: %w", err)
	}
	key := s.key(conversationID)
	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, int64(-s.limits.MaxTurns), -1)
		pipe.Expire(ctx, key, s.limits.Expire)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis history: append %s: %w", key, err)
	}
	return nil
}

// Recent implements history.Store. Entries that fail to decode are skipped
// and logged.
func (s *Store) Recent(ctx context.Context, conversationID string, n int) ([]types.ConversationTurn, error) {
	if n <= 0 {
		return []types.ConversationTurn{}, nil
	}
	key := s.key(conversationID)
	raw, err := s.client.LRange(ctx, key, int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis history: read %s: %w", key, err)
	}
	turns := make([]types.ConversationTurn, 0, len(raw))
	for _, r := range raw {
		var t types.ConversationTurn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			observe.Logger(ctx).Warn("redis history: skipping undecodable turn", "key", key, "err", err)
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Ping implements history.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
