// Package gtts provides a tts.Provider backed by the Google Translate speech
// endpoint (translate_tts). It returns MP3 and accepts at most about 200
// characters per request.
package gtts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/parlance/pkg/provider/tts"
	"github.com/MrWong99/parlance/pkg/types"
)

const defaultBaseURL = "https://translate.google.com"

var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client (15 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithSpeed sets the ttsspeed parameter (1 normal, lower is slower).
func WithSpeed(s float64) Option {
	return func(p *Provider) { p.speed = s }
}

// Provider implements tts.Provider.
type Provider struct {
	baseURL    string
	speed      float64
	httpClient *http.Client
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		speed:      1,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)
	q.Set("ttsspeed", fmt.Sprintf("%g", p.speed))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gtts: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtts: synthesize: %w: %w", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtts: synthesize: %w: status %d", types.ErrProviderUnavailable, resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gtts: read audio: %w: %w", types.ErrProviderUnavailable, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("gtts: synthesize: %w: empty audio", types.ErrProviderUnavailable)
	}
	return audio, nil
}
