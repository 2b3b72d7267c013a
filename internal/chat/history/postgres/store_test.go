package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/parlance/internal/chat/history"
	"github.com/MrWong99/parlance/internal/chat/history/postgres"
	"github.com/MrWong99/parlance/pkg/types"
)

// testDSN skips the test unless PARLANCE_TEST_POSTGRES_DSN is set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PARLANCE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PARLANCE_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, opts ...postgres.Option) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS chat_turns`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	pool.Close()

	s, err := postgres.NewStore(ctx, dsn, opts...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func turn(i int) types.ConversationTurn {
	return types.ConversationTurn{Role: types.RoleUser, Text: fmt.Sprintf("message %d", i)}
}

func TestStore_TrimsToMaxTurns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := range history.DefaultMaxTurns + 5 {
		if err := s.Append(ctx, "c1", turn(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := s.Recent(ctx, "c1", 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != history.DefaultMaxTurns {
		t.Fatalf("len = %d, want %d", len(got), history.DefaultMaxTurns)
	}
	for i, tr := range got {
		if want := turn(i + 5); tr != want {
			t.Errorf("turn[%d] = %+v, want %+v", i, tr, want)
		}
	}
}

func TestStore_ExpiryAndReap(t *testing.T) {
	clk := &clock{now: time.Now()}
	s := newTestStore(t,
		postgres.WithClock(clk.Now),
		postgres.WithLimits(history.Limits{MaxTurns: 15, Expire: time.Minute}),
	)
	ctx := context.Background()

	_ = s.Append(ctx, "c1", turn(0))
	_ = s.Append(ctx, "c2", turn(0))
	clk.Advance(2 * time.Minute)
	_ = s.Append(ctx, "c2", turn(1))

	if got, _ := s.Recent(ctx, "c1", 10); len(got) != 0 {
		t.Errorf("expired conversation returned %d turns", len(got))
	}
	if got, _ := s.Recent(ctx, "c2", 10); len(got) != 2 {
		t.Errorf("refreshed conversation returned %d turns, want 2", len(got))
	}

	n, err := s.Reap(ctx)
	if err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if n != 1 {
		t.Errorf("reaped %d rows, want 1", n)
	}
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
