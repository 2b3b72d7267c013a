// Package google provides a translate.Provider backed by the public Google
// Translate "gtx" endpoint (translate_a/single).
//
// The endpoint answers with a positional JSON array. The first element holds
// one [translated, original, ...] tuple per sentence; the translated halves
// are concatenated in order.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/parlance/pkg/provider/translate"
	"github.com/MrWong99/parlance/pkg/types"
)

const defaultBaseURL = "https://translate.googleapis.com"

var _ translate.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the default HTTP client (15 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements translate.Provider against the gtx endpoint.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text, source, target string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/translate_a/single?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("google: build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("google: translate: %w: %w", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("google: translate: %w: status %d: %s", types.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("google: read response: %w: %w", types.ErrProviderUnavailable, err)
	}
	out, err := parse(raw)
	if err != nil {
		return "", fmt.Errorf("google: translate: %w", err)
	}
	return out, nil
}

// parse extracts the translated text from a gtx payload.
func parse(raw []byte) (string, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || len(top) == 0 {
		return "", translate.ErrMalformedResponse
	}
	var segments [][]any
	if err := json.Unmarshal(top[0], &segments); err != nil || len(segments) == 0 {
		return "", translate.ErrMalformedResponse
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", translate.ErrMalformedResponse
	}
	return out, nil
}
