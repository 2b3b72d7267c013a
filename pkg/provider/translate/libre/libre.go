// Package libre provides a translate.Provider for LibreTranslate-compatible
// servers (POST /translate).
package libre

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/parlance/pkg/provider/translate"
	"github.com/MrWong99/parlance/pkg/types"
)

const defaultBaseURL = "http://localhost:5000"

var _ translate.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithAPIKey sets the api_key field sent with every request.
func WithAPIKey(key string) Option {
	return func(p *Provider) { p.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client (30 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements translate.Provider against a LibreTranslate server.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Provider for the server at baseURL. An empty baseURL selects
// http://localhost:5000.
func New(baseURL string, opts ...Option) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	p := &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type request struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type response struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text, source, target string) (string, error) {
	body, err := json.Marshal(request{Q: text, Source: source, Target: target, Format: "text", APIKey: p.apiKey})
	if err != nil {
		return "", fmt.Errorf("libre: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("libre: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("libre: translate: %w: %w", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("libre: translate: %w: status %d: %s", types.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("libre: decode response: %w: %w", translate.ErrMalformedResponse, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("libre: translate: %w: %s", types.ErrProviderUnavailable, out.Error)
	}
	if strings.TrimSpace(out.TranslatedText) == "" {
		return "", fmt.Errorf("libre: translate: %w", translate.ErrMalformedResponse)
	}
	return out.TranslatedText, nil
}
