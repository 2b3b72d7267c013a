package history

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/parlance/pkg/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func turn(i int) types.ConversationTurn {
	role := types.RoleUser
	if i%2 == 1 {
		role = types.RoleAssistant
	}
	return types.ConversationTurn{Role: role, Text: fmt.Sprintf("turn %d", i)}
}

func TestMemoryStore_TrimsToMaxTurns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	total := DefaultMaxTurns + 5
	for i := range total {
		if err := s.Append(ctx, "c1", turn(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Recent(ctx, "c1", 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != DefaultMaxTurns {
		t.Fatalf("len = %d, want %d", len(got), DefaultMaxTurns)
	}
	for i, tr := range got {
		if want := turn(i + 5); tr != want {
			t.Errorf("turn[%d] = %+v, want %+v", i, tr, want)
		}
	}
}

func TestMemoryStore_RecentReturnsTail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	for i := range 4 {
		_ = s.Append(ctx, "c1", turn(i))
	}

	got, _ := s.Recent(ctx, "c1", 2)
	if len(got) != 2 || got[0] != turn(2) || got[1] != turn(3) {
		t.Errorf("Recent(2) = %+v", got)
	}
	if got, _ := s.Recent(ctx, "c1", 0); len(got) != 0 {
		t.Errorf("Recent(0) = %+v, want empty", got)
	}
	if got, _ := s.Recent(ctx, "unknown", 5); got == nil || len(got) != 0 {
		t.Errorf("Recent(unknown) = %#v, want empty non-nil", got)
	}
}

func TestMemoryStore_EmptyIDIsGuest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Append(ctx, "", turn(0))

	got, _ := s.Recent(ctx, GuestID, 10)
	if len(got) != 1 {
		t.Errorf("guest history len = %d, want 1", len(got))
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithClock(clk.Now), WithLimits(Limits{MaxTurns: 15, Expire: time.Minute}))

	_ = s.Append(ctx, "c1", turn(0))
	clk.Advance(50 * time.Second)
	_ = s.Append(ctx, "c1", turn(1))

	// The second write refreshed the expiry.
	clk.Advance(50 * time.Second)
	got, _ := s.Recent(ctx, "c1", 10)
	if len(got) != 2 {
		t.Fatalf("len after refresh = %d, want 2", len(got))
	}

	clk.Advance(11 * time.Second)
	got, _ = s.Recent(ctx, "c1", 10)
	if len(got) != 0 {
		t.Errorf("len after expiry = %d, want 0", len(got))
	}
	if s.Len() != 0 {
		t.Errorf("expired conversation not dropped, Len = %d", s.Len())
	}
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append(ctx, "shared", turn(i))
		}()
	}
	wg.Wait()

	got, _ := s.Recent(ctx, "shared", 100)
	if len(got) != DefaultMaxTurns {
		t.Errorf("len = %d, want %d", len(got), DefaultMaxTurns)
	}
}

func TestConversationID(t *testing.T) {
	t.Parallel()
	cases := map[string]string{"": GuestID, "   ": GuestID, "abc": "abc", " abc ": "abc"}
	for in, want := range cases {
		if got := ConversationID(in); got != want {
			t.Errorf("ConversationID(%q) = %q, want %q", in, got, want)
		}
	}
}
