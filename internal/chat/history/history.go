// Package history stores the bounded, expiring turn history of chat
// conversations.
//
// Every write appends a turn, trims the conversation to its most recent
// MaxTurns entries and pushes the expiry out to Expire from now, so an active
// conversation never expires mid-use while an abandoned one is reclaimed.
// Reads never mutate state. Concurrent appends to one conversation are
// ordered by arrival; there is no cross-turn atomicity.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/MrWong99/parlance/pkg/types"
)

const (
	// DefaultMaxTurns bounds the number of turns kept per conversation.
	DefaultMaxTurns = 15

	// DefaultExpire is how long a conversation survives without writes.
	DefaultExpire = time.Hour

	// GuestID is used for requests that carry no conversation id.
	GuestID = "guest"
)

// Store is the conversation history abstraction shared by all backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds turn to the tail of the conversation, trims it to the
	// configured maximum and refreshes its expiry.
	Append(ctx context.Context, conversationID string, turn types.ConversationTurn) error

	// Recent returns up to n of the most recent turns in insertion order.
	// Unknown or expired conversations yield an empty slice.
	Recent(ctx context.Context, conversationID string, n int) ([]types.ConversationTurn, error)
}

// Pinger is implemented by stores backed by an external service. Readiness
// checks call it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConversationID maps an empty or blank id to [GuestID].
func ConversationID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return GuestID
	}
	return id
}

// Limits carries the retention settings shared by every backend.
type Limits struct {
	MaxTurns int
	Expire   time.Duration
}

// DefaultLimits returns the documented defaults.
func DefaultLimits() Limits {
	return Limits{MaxTurns: DefaultMaxTurns, Expire: DefaultExpire}
}

// Normalize replaces non-positive fields with their defaults.
func (l Limits) Normalize() Limits {
	if l.MaxTurns <= 0 {
		l.MaxTurns = DefaultMaxTurns
	}
	if l.Expire <= 0 {
		l.Expire = DefaultExpire
	}
	return l
}
