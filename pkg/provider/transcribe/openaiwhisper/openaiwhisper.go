// Package openaiwhisper provides a transcribe.Provider backed by the OpenAI
// audio transcription API, using github.com/sashabaranov/go-openai.
//
// The API is synchronous; jobs complete during Submit.
package openaiwhisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/MrWong99/parlance/pkg/provider/transcribe"
	"github.com/MrWong99/parlance/pkg/types"
)

var _ transcribe.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel overrides the transcription model. Defaults to whisper-1.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.cfg.BaseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the client's HTTP transport.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.cfg.HTTPClient = c }
}

// Provider implements transcribe.Provider against OpenAI.
type Provider struct {
	*transcribe.LocalJobs

	cfg    openai.ClientConfig
	client *openai.Client
	model  string
}

// New creates a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openaiwhisper: apiKey must not be empty")
	}
	p := &Provider{cfg: openai.DefaultConfig(apiKey), model: openai.Whisper1}
	for _, o := range opts {
		o(p)
	}
	p.client = openai.NewClientWithConfig(p.cfg)
	p.LocalJobs = transcribe.NewLocalJobs(p.transcribe, 0)
	return p, nil
}

func (p *Provider) transcribe(ctx context.Context, data []byte, language string) (string, float64, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(data),
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != http.StatusTooManyRequests {
			return "", 0, fmt.Errorf("openaiwhisper: transcription rejected: %s", apiErr.Message)
		}
		return "", 0, fmt.Errorf("openaiwhisper: transcription: %w: %w", types.ErrProviderUnavailable, err)
	}
	return strings.TrimSpace(resp.Text), resp.Duration, nil
}
