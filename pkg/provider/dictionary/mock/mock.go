// Package mock provides a test double for the dictionary.Provider interface.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/parlance/pkg/provider/dictionary"
)

// Provider is a mock implementation of dictionary.Provider. Words present in
// Entries resolve to their slice; every other word yields
// dictionary.ErrNotFound unless Err is set.
type Provider struct {
	mu sync.Mutex

	// Entries maps a word to the phonetics returned for it.
	Entries map[string][]string

	// Err, if non-nil, is returned for every lookup.
	Err error

	// Calls records every looked-up word in order.
	Calls []string
}

var _ dictionary.Provider = (*Provider)(nil)

// Lookup implements dictionary.Provider.
func (p *Provider) Lookup(_ context.Context, word string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, word)
	if p.Err != nil {
		return nil, p.Err
	}
	if ph, ok := p.Entries[word]; ok {
		return append([]string(nil), ph...), nil
	}
	return nil, fmt.Errorf("mock: %q: %w", word, dictionary.ErrNotFound)
}

// CallCount returns the number of Lookup invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
