package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlChatTurns = `
CREATE TABLE IF NOT EXISTS chat_turns (
    id              BIGSERIAL    PRIMARY KEY,
    conversation_id TEXT         NOT NULL,
    role            TEXT         NOT NULL,
    text            TEXT         NOT NULL,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    expires_at      TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_turns_conversation
    ON chat_turns (conversation_id, id);

CREATE INDEX IF NOT EXISTS idx_chat_turns_expires_at
    ON chat_turns (expires_at);
`

// Migrate creates the chat_turns table and its indexes if they do not exist.
// It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlChatTurns); err != nil {
		return fmt.Errorf("postgres history: migrate: %w", err)
	}
	return nil
}
