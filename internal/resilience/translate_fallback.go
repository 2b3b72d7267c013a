package resilience

import (
	"context"

	"github.com/MrWong99/parlance/pkg/provider/translate"
)

// TranslateFallback is a [translate.Provider] that fails over across
// backends. Malformed responses count as failures, so an empty or unparsable
// answer from one backend moves the call to the next.
type TranslateFallback struct {
	group *FallbackGroup[translate.Provider]
}

var _ translate.Provider = (*TranslateFallback)(nil)

// NewTranslateFallback creates a [TranslateFallback] with primary first in
// line.
func NewTranslateFallback(primary translate.Provider, primaryName string, cfg FallbackConfig) *TranslateFallback {
	return &TranslateFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback appends a backend.
func (f *TranslateFallback) AddFallback(name string, p translate.Provider) {
	f.group.AddFallback(name, p)
}

// Translate implements translate.Provider.
func (f *TranslateFallback) Translate(ctx context.Context, text, source, target string) (string, error) {
	return ExecuteWithResult(f.group, func(p translate.Provider) (string, error) {
		return p.Translate(ctx, text, source, target)
	})
}
