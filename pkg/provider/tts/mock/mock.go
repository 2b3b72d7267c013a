// Package mock provides a test double for the tts.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Audio: []byte("mp3")}
//	b, _ := p.Synthesize(ctx, "hello", "en")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/parlance/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Text string
	Lang string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// SynthesizeFunc, if set, computes the result per call.
	SynthesizeFunc func(text, lang string) ([]byte, error)

	// Audio is returned when SynthesizeFunc is nil and Err is nil.
	Audio []byte

	// Err, if non-nil, is returned when SynthesizeFunc is nil.
	Err error

	// Calls records every invocation in order.
	Calls []SynthesizeCall
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(_ context.Context, text, lang string) ([]byte, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, SynthesizeCall{Text: text, Lang: lang})
	fn, audio, err := p.SynthesizeFunc, p.Audio, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(text, lang)
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), audio...), nil
}

// CallCount returns the number of recorded calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Snapshot returns a copy of the recorded calls.
func (p *Provider) Snapshot() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SynthesizeCall(nil), p.Calls...)
}

// Reset clears recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
