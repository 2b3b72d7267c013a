// Package assemblyai provides a transcribe.Provider for the AssemblyAI v2
// REST API: POST /v2/upload, POST /v2/transcript and
// GET /v2/transcript/{id}.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/parlance/pkg/provider/transcribe"
	"github.com/MrWong99/parlance/pkg/types"
)

const defaultBaseURL = "https://api.assemblyai.com"

var _ transcribe.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API root (e.g. the EU endpoint).
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client (60 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements transcribe.Provider against AssemblyAI.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("assemblyai: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type transcriptResponse struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Text          string   `json:"text"`
	AudioDuration *float64 `json:"audio_duration"`
	Error         string   `json:"error"`
}

// Upload implements transcribe.Provider. It returns the upload URL.
func (p *Provider) Upload(ctx context.Context, audio io.Reader) (string, error) {
	var out uploadResponse
	if err := p.do(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", audio, &out); err != nil {
		return "", fmt.Errorf("assemblyai: upload: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("assemblyai: upload: %w: missing upload_url", types.ErrProviderUnavailable)
	}
	return out.UploadURL, nil
}

// Submit implements transcribe.Provider.
func (p *Provider) Submit(ctx context.Context, handle, language string) (types.TranscriptionJob, error) {
	body, err := json.Marshal(transcriptRequest{AudioURL: handle, LanguageCode: language})
	if err != nil {
		return types.TranscriptionJob{}, fmt.Errorf("assemblyai: marshal transcript request: %w", err)
	}
	var out transcriptResponse
	if err := p.do(ctx, http.MethodPost, "/v2/transcript", "application/json", bytes.NewReader(body), &out); err != nil {
		return types.TranscriptionJob{}, fmt.Errorf("assemblyai: submit: %w", err)
	}
	return toJob(out)
}

// Status implements transcribe.Provider.
func (p *Provider) Status(ctx context.Context, id string) (types.TranscriptionJob, error) {
	var out transcriptResponse
	if err := p.do(ctx, http.MethodGet, "/v2/transcript/"+url.PathEscape(id), "", nil, &out); err != nil {
		return types.TranscriptionJob{}, fmt.Errorf("assemblyai: status %s: %w", id, err)
	}
	return toJob(out)
}

func toJob(r transcriptResponse) (types.TranscriptionJob, error) {
	status := types.JobStatus(r.Status)
	if !status.IsValid() {
		return types.TranscriptionJob{}, fmt.Errorf("assemblyai: job %s: %w: unknown status %q", r.ID, types.ErrProviderUnavailable, r.Status)
	}
	job := types.TranscriptionJob{ID: r.ID, Status: status, Text: r.Text, Error: r.Error}
	if r.AudioDuration != nil {
		job.AudioDuration = *r.AudioDuration
	}
	return job, nil
}

func (p *Provider) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", types.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", types.ErrProviderUnavailable, err)
	}
	return nil
}
