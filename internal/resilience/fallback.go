package resilience

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/parlance/pkg/types"
)

// ErrAllFailed is returned when no entry of a [FallbackGroup] produced a
// result. It is always joined with [types.ErrProviderUnavailable].
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the breaker created for each group entry.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup is an ordered chain of backends of one provider type, each
// behind its own [CircuitBreaker]. Entries are added during setup and the
// group is read-only afterwards.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group whose first entry is primary.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a backend to the end of the chain.
func (fg *FallbackGroup[T]) AddFallback(name string, value T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Names lists the entries in failover order.
func (fg *FallbackGroup[T]) Names() []string {
	names := make([]string, len(fg.entries))
	for i, e := range fg.entries {
		names[i] = e.name
	}
	return names
}

// Primary returns the first entry's value.
func (fg *FallbackGroup[T]) Primary() T {
	return fg.entries[0].value
}

// Execute runs fn against each entry in order until one succeeds.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult runs fn against each entry in order and returns the first
// successful result. Entries with an open breaker are skipped. A permanent
// error (invalid argument, cancellation) stops the walk and is returned
// unchanged.
func ExecuteWithResult[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	_, r, err := executeIndexed(fg, fn)
	return r, err
}

// executeIndexed is ExecuteWithResult that also reports which entry
// answered.
func executeIndexed[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (int, R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(entry.value)
			return callErr
		})
		if err == nil {
			return i, result, nil
		}
		if isPermanent(err) {
			return i, zero, err
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("resilience: skipping provider with open circuit", "provider", entry.name)
			continue
		}
		if i < len(fg.entries)-1 {
			slog.Warn("resilience: provider failed, trying next", "provider", entry.name, "err", err)
		}
	}
	if errors.Is(lastErr, types.ErrProviderUnavailable) {
		return -1, zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
	}
	return -1, zero, fmt.Errorf("%w: %w: %w", ErrAllFailed, types.ErrProviderUnavailable, lastErr)
}

// entry returns the entry called name.
func (fg *FallbackGroup[T]) entry(name string) (*fallbackEntry[T], bool) {
	for i := range fg.entries {
		if fg.entries[i].name == name {
			return &fg.entries[i], true
		}
	}
	return nil, false
}
