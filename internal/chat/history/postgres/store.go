// Package postgres provides a history.Store backed by PostgreSQL.
//
// Turns live in a single chat_turns table. Every append inserts a row,
// deletes the conversation's rows beyond the newest MaxTurns and moves the
// conversation's expires_at forward. Reads ignore expired rows; [Store.Reap]
// physically deletes them and is meant to run periodically.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/parlance/internal/chat/history"
	"github.com/MrWong99/parlance/pkg/types"
)

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

// WithClock replaces time.Now when computing expiry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store implements history.Store on a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	limits history.Limits
	now    func() time.Time
}

// NewStore connects to dsn, pings the server and runs [Migrate].
func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres history: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres history: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	s := &Store{pool: pool, limits: history.DefaultLimits(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Append implements history.Store.
func (s *Store) Append(ctx context.Context, conversationID string, turn types.ConversationTurn) error {
	id := history.ConversationID(conversationID)
	expiresAt := s.now().Add(s.limits.Expire)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_turns (conversation_id, role, text, expires_at) VALUES ($1, $2, $3, $4)`,
			id, turn.Role, turn.Text, expiresAt,
		); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM chat_turns
			WHERE conversation_id = $1
			  AND id NOT IN (
			      SELECT id FROM chat_turns
			      WHERE conversation_id = $1
			      ORDER BY id DESC
			      LIMIT $2
			  )`,
			id, s.limits.MaxTurns,
		); err != nil {
			return fmt.Errorf("trim: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE chat_turns SET expires_at = $2 WHERE conversation_id = $1`,
			id, expiresAt,
		); err != nil {
			return fmt.Errorf("refresh expiry: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres history: append %s: %w", id, err)
	}
	return nil
}

// Recent implements history.Store.
func (s *Store) Recent(ctx context.Context, conversationID string, n int) ([]types.ConversationTurn, error) {
	if n <= 0 {
		return []types.ConversationTurn{}, nil
	}
	id := history.ConversationID(conversationID)

	rows, err := s.pool.Query(ctx, `
		SELECT role, text FROM (
		    SELECT id, role, text FROM chat_turns
		    WHERE conversation_id = $1 AND expires_at > $3
		    ORDER BY id DESC
		    LIMIT $2
		) recent
		ORDER BY id ASC`,
		id, n, s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres history: read %s: %w", id, err)
	}
	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.ConversationTurn, error) {
		var t types.ConversationTurn
		err := row.Scan(&t.Role, &t.Text)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres history: scan %s: %w", id, err)
	}
	if turns == nil {
		turns = []types.ConversationTurn{}
	}
	return turns, nil
}

// Reap deletes every expired row and returns how many were removed.
func (s *Store) Reap(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_turns WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("postgres history: reap: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping implements history.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
