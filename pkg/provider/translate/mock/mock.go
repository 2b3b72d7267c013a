// Package mock provides a test double for translate.Provider.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/parlance/pkg/provider/translate"
)

var _ translate.Provider = (*Provider)(nil)

// Call records a single Translate invocation.
type Call struct {
	Text, Source, Target string
}

// Provider is a mock translate.Provider.
type Provider struct {
	mu sync.Mutex

	// TranslateFunc, if set, computes the result per call.
	TranslateFunc func(text, source, target string) (string, error)

	// Result is returned when TranslateFunc is nil and Err is nil.
	Result string

	// Err, if non-nil, is returned when TranslateFunc is nil.
	Err error

	// Calls records every invocation in order.
	Calls []Call
}

// Translate implements translate.Provider.
func (p *Provider) Translate(_ context.Context, text, source, target string) (string, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{Text: text, Source: source, Target: target})
	fn, res, err := p.TranslateFunc, p.Result, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(text, source, target)
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

// CallCount returns the number of recorded calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
