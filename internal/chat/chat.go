// Package chat implements the conversational reply service: it keeps a short
// per-conversation history, renders it into a prompt and asks an LLM for the
// next line of dialogue.
//
// Reply never fails. Store and provider errors are logged and answered with
// [FallbackReply] so a single provider hiccup does not end the conversation.
package chat

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/MrWong99/parlance/internal/chat/history"
	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/pkg/provider/llm"
	"github.com/MrWong99/parlance/pkg/types"
)

// FallbackReply is returned whenever a reply cannot be produced.
const FallbackReply = "I don't understand yet."

// DefaultWindow is the number of recent turns rendered into the prompt.
const DefaultWindow = 10

// DefaultSystemContext is the preamble used when none is configured.
const DefaultSystemContext = "You are a friendly language tutor. Answer briefly and naturally, " +
	"the way a patient conversation partner would, and gently correct obvious mistakes."

// Option configures a [Service].
type Option func(*Service)

// WithWindow sets how many recent turns are included in the prompt.
// Values <= 0 are ignored.
func WithWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithSystemContext sets the initial system preamble.
func WithSystemContext(text string) Option {
	return func(s *Service) { s.SetSystemContext(text) }
}

// WithTemperature sets the sampling temperature passed to the provider.
func WithTemperature(t float64) Option {
	return func(s *Service) { s.temperature = t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(s *Service) { s.maxTokens = n }
}

// WithMetrics overrides the metrics sink. Defaults to observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service produces conversational replies. It is safe for concurrent use.
type Service struct {
	store       history.Store
	llm         llm.Provider
	window      int
	temperature float64
	maxTokens   int
	system      atomic.Pointer[string]
	metrics     *observe.Metrics
}

// New creates a Service backed by store and provider.
func New(store history.Store, provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		store:  store,
		llm:    provider,
		window: DefaultWindow,
	}
	s.SetSystemContext(DefaultSystemContext)
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// SetSystemContext replaces the system preamble used for subsequent replies.
// Blank text restores [DefaultSystemContext].
func (s *Service) SetSystemContext(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = DefaultSystemContext
	}
	s.system.Store(&text)
}

// SystemContext returns the current system preamble.
func (s *Service) SystemContext() string {
	return *s.system.Load()
}

// Reply appends message to the conversation, asks the provider for an answer
// and records it. A blank conversationID uses the shared guest history.
func (s *Service) Reply(ctx context.Context, conversationID, message string) string {
	ctx, span := observe.StartSpan(ctx, "chat.Reply")
	defer span.End()

	id := history.ConversationID(conversationID)
	log := observe.Logger(ctx).With("conversation_id", id)

	if err := s.store.Append(ctx, id, types.ConversationTurn{Role: types.RoleUser, Text: message}); err != nil {
		log.Warn("chat: append user turn failed", "err", err)
		s.metrics.RecordFallbackReply(ctx, "store")
		return FallbackReply
	}

	turns, err := s.store.Recent(ctx, id, s.window)
	if err != nil {
		log.Warn("chat: read history failed", "err", err)
		s.metrics.RecordFallbackReply(ctx, "store")
		return FallbackReply
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Messages:    []types.Message{{Role: types.RoleUser, Content: BuildPrompt(s.SystemContext(), turns, message)}},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		log.Warn("chat: completion failed", "err", err)
		s.metrics.RecordFallbackReply(ctx, "provider")
		return FallbackReply
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		log.Warn("chat: empty completion")
		s.metrics.RecordFallbackReply(ctx, "empty")
		return FallbackReply
	}

	if err := s.store.Append(ctx, id, types.ConversationTurn{Role: types.RoleAssistant, Text: reply}); err != nil {
		// The reply is still good; only the history lost a turn.
		log.Warn("chat: append assistant turn failed", "err", err)
	}
	return reply
}

// RenderTranscript writes turns as "User: …" / "Bot: …" lines.
func RenderTranscript(turns []types.ConversationTurn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		if t.Role == types.RoleAssistant {
			b.WriteString("Bot: ")
		} else {
			b.WriteString("User: ")
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

// BuildPrompt joins the system preamble, the rendered transcript and the new
// message into a single prompt.
func BuildPrompt(system string, turns []types.ConversationTurn, message string) string {
	var b strings.Builder
	b.WriteString(system)
	if transcript := RenderTranscript(turns); transcript != "" {
		b.WriteString("\n\nConversation so far:\n")
		b.WriteString(transcript)
	}
	b.WriteString("\n\nUser: ")
	b.WriteString(message)
	b.WriteString("\nBot:")
	return b.String()
}
