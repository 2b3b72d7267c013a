package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/parlance/internal/chat/history"
	"github.com/MrWong99/parlance/pkg/provider/llm"
	llmmock "github.com/MrWong99/parlance/pkg/provider/llm/mock"
	"github.com/MrWong99/parlance/pkg/types"
)

type failingStore struct {
	appendErr, recentErr error
}

func (f failingStore) Append(context.Context, string, types.ConversationTurn) error {
	return f.appendErr
}

func (f failingStore) Recent(context.Context, string, int) ([]types.ConversationTurn, error) {
	return nil, f.recentErr
}

func TestReply_Success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemoryStore()
	provider := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "  I'm fine, thanks!  "}}
	svc := New(store, provider, WithSystemContext("Be nice."))

	got := svc.Reply(ctx, "c1", "How are you?")
	if got != "I'm fine, thanks!" {
		t.Fatalf("Reply = %q", got)
	}

	turns, _ := store.Recent(ctx, "c1", 10)
	want := []types.ConversationTurn{
		{Role: types.RoleUser, Text: "How are you?"},
		{Role: types.RoleAssistant, Text: "I'm fine, thanks!"},
	}
	if len(turns) != len(want) {
		t.Fatalf("history = %+v, want %+v", turns, want)
	}
	for i := range want {
		if turns[i] != want[i] {
			t.Errorf("turn[%d] = %+v, want %+v", i, turns[i], want[i])
		}
	}

	calls := provider.Calls()
	if len(calls) != 1 {
		t.Fatalf("Complete calls = %d, want 1", len(calls))
	}
	prompt := calls[0].Req.Messages[0].Content
	if !strings.HasPrefix(prompt, "Be nice.") {
		t.Errorf("prompt does not start with system context: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "User: How are you?\nBot:") {
		t.Errorf("prompt does not end with the new message: %q", prompt)
	}
}

func TestReply_ProviderFailureFallsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemoryStore()
	provider := &llmmock.Provider{CompleteErr: types.ErrProviderUnavailable}
	svc := New(store, provider)

	if got := svc.Reply(ctx, "", "Hello"); got != FallbackReply {
		t.Errorf("Reply = %q, want fallback", got)
	}
	turns, _ := store.Recent(ctx, history.GuestID, 10)
	if len(turns) != 1 || turns[0].Role != types.RoleUser {
		t.Errorf("history = %+v, want only the user turn", turns)
	}
}

func TestReply_EmptyCompletionFallsBack(t *testing.T) {
	t.Parallel()
	provider := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "   "}}
	svc := New(history.NewMemoryStore(), provider)
	if got := svc.Reply(context.Background(), "c", "Hi"); got != FallbackReply {
		t.Errorf("Reply = %q, want fallback", got)
	}
}

func TestReply_StoreFailureFallsBack(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		store failingStore
	}{
		{"append", failingStore{appendErr: errors.New("down")}},
		{"recent", failingStore{recentErr: errors.New("down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "ok"}}
			svc := New(tt.store, provider)
			if got := svc.Reply(context.Background(), "c", "Hi"); got != FallbackReply {
				t.Errorf("Reply = %q, want fallback", got)
			}
			if n := len(provider.Calls()); n != 0 {
				t.Errorf("Complete calls = %d, want 0", n)
			}
		})
	}
}

func TestReply_WindowLimitsTranscript(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemoryStore()
	for i := range 6 {
		_ = store.Append(ctx, "c", types.ConversationTurn{Role: types.RoleUser, Text: strings.Repeat("x", i+1)})
	}
	provider := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "ok"}}
	svc := New(store, provider, WithWindow(3))
	svc.Reply(ctx, "c", "last")

	prompt := provider.Calls()[0].Req.Messages[0].Content
	if strings.Contains(prompt, "User: xxxx\n") {
		t.Errorf("prompt contains a turn outside the window: %q", prompt)
	}
	if !strings.Contains(prompt, "User: xxxxx\nUser: xxxxxx\nUser: last") {
		t.Errorf("prompt missing windowed transcript: %q", prompt)
	}
}

func TestRenderTranscript(t *testing.T) {
	t.Parallel()
	got := RenderTranscript([]types.ConversationTurn{
		{Role: types.RoleUser, Text: "Hi"},
		{Role: types.RoleAssistant, Text: "Hello"},
	})
	if want := "User: Hi\nBot: Hello"; got != want {
		t.Errorf("RenderTranscript = %q, want %q", got, want)
	}
	if got := RenderTranscript(nil); got != "" {
		t.Errorf("RenderTranscript(nil) = %q, want empty", got)
	}
}

func TestSetSystemContext(t *testing.T) {
	t.Parallel()
	svc := New(history.NewMemoryStore(), &llmmock.Provider{})
	if svc.SystemContext() != DefaultSystemContext {
		t.Errorf("default = %q", svc.SystemContext())
	}
	svc.SetSystemContext("Speak Vietnamese.")
	if svc.SystemContext() != "Speak Vietnamese." {
		t.Errorf("after set = %q", svc.SystemContext())
	}
	svc.SetSystemContext("  ")
	if svc.SystemContext() != DefaultSystemContext {
		t.Errorf("blank should restore default, got %q", svc.SystemContext())
	}
}
