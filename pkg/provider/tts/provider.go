// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A provider turns one bounded piece of text into a complete audio payload
// (MP3 or WAV, depending on the backend). Sanitizing, chunking, pacing and
// concatenation happen in internal/synth.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text spoken in lang (a BCP-47 tag such as "en" or
	// "vi") and returns the encoded audio. Transport failures and non-success
	// responses wrap types.ErrProviderUnavailable.
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}
