// Package freedict provides a dictionary.Provider backed by the Free
// Dictionary API (https://dictionaryapi.dev).
//
// Only the phonetic fields of an entry are used: the top-level "phonetic"
// string first, followed by the "text" of every element of "phonetics".
package freedict

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/parlance/pkg/provider/dictionary"
	"github.com/MrWong99/parlance/pkg/types"
)

const defaultBaseURL = "https://api.dictionaryapi.dev"

// Compile-time assertion that Provider implements dictionary.Provider.
var _ dictionary.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API root. Used by tests and self-hosted mirrors.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithLanguage sets the dictionary language path segment. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithHTTPClient replaces the default HTTP client (10 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements dictionary.Provider against dictionaryapi.dev.
type Provider struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// New creates a Provider with the given options applied.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		language:   "en",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type entry struct {
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text string `json:"text"`
	} `json:"phonetics"`
}

// Lookup implements dictionary.Provider.
func (p *Provider) Lookup(ctx context.Context, word string) ([]string, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, fmt.Errorf("freedict: lookup: %w", dictionary.ErrNotFound)
	}

	endpoint := fmt.Sprintf("%s/api/v2/entries/%s/%s", p.baseURL, url.PathEscape(p.language), url.PathEscape(word))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("freedict: build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("freedict: lookup %q: %w: %w", word, types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("freedict: lookup %q: %w", word, dictionary.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("freedict: lookup %q: %w: status %d: %s", word, types.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var entries []entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("freedict: decode response: %w", err)
	}

	var out []string
	for _, e := range entries {
		if s := strings.TrimSpace(e.Phonetic); s != "" {
			out = append(out, s)
		}
		for _, ph := range e.Phonetics {
			if s := strings.TrimSpace(ph.Text); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("freedict: lookup %q: no phonetics: %w", word, dictionary.ErrNotFound)
	}
	return out, nil
}
