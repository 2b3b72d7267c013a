// Package translate defines the Provider interface for machine translation
// backends.
//
// A Provider translates one bounded piece of text per call. Chunking, retry
// and pacing are the caller's concern (see internal/translation).
package translate

import (
	"context"
	"errors"
)

// ErrMalformedResponse is returned when a provider answered successfully but
// the payload could not be interpreted as a translation.
var ErrMalformedResponse = errors.New("translate: malformed response")

// Provider translates text between two languages identified by BCP-47 tags
// (e.g. "en", "vi", "pt-BR").
type Provider interface {
	// Translate returns text rendered in target. source may be "auto" when the
	// backend supports detection.
	Translate(ctx context.Context, text, source, target string) (string, error)
}
