// Package whisper provides a transcribe.Provider backed by a whisper.cpp
// server (POST /inference).
//
// whisper.cpp transcribes synchronously, so jobs complete during Submit and
// Status only reports the stored result.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080", whisper.WithModel("base.en"))
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/parlance/pkg/audio"
	"github.com/MrWong99/parlance/pkg/provider/transcribe"
	"github.com/MrWong99/parlance/pkg/types"
)

var _ transcribe.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the server. When empty the
// server uses whichever model it was started with.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithHTTPClient replaces the default HTTP client (2 min timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithMaxUploadBytes bounds a single upload. Defaults to 25 MiB.
func WithMaxUploadBytes(n int64) Option {
	return func(p *Provider) { p.maxBytes = n }
}

// Provider implements transcribe.Provider against whisper.cpp.
type Provider struct {
	*transcribe.LocalJobs

	serverURL  string
	model      string
	maxBytes   int64
	httpClient *http.Client
}

// New creates a Provider for the server at serverURL.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, o := range opts {
		o(p)
	}
	p.LocalJobs = transcribe.NewLocalJobs(p.infer, p.maxBytes)
	return p, nil
}

// infer POSTs the audio as multipart/form-data and returns the transcript.
// Server-side rejections (4xx) are returned as plain errors so the job ends
// in status error; transport failures and 5xx wrap ErrProviderUnavailable.
func (p *Provider) infer(ctx context.Context, data []byte, language string) (string, float64, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", 0, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", 0, fmt.Errorf("whisper: write audio: %w", err)
	}
	fields := map[string]string{"response_format": "json", "language": language, "model": p.model}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return "", 0, fmt.Errorf("whisper: write %s field: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", 0, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return "", 0, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("whisper: inference: %w: %w", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("whisper: read response: %w: %w", types.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return "", 0, fmt.Errorf("whisper: inference: %w: status %d", types.ErrProviderUnavailable, resp.StatusCode)
	}

	var result struct {
		Text  string `json:"text"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", 0, fmt.Errorf("whisper: parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || result.Error != "" {
		msg := result.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", 0, fmt.Errorf("whisper: inference rejected: %s", msg)
	}
	return strings.TrimSpace(result.Text), wavDuration(data), nil
}

// wavDuration returns the playback length of a PCM WAV in seconds, or 0 when
// data is not a parseable WAV.
func wavDuration(data []byte) float64 {
	info, err := audio.ParseWAV(data)
	if err != nil || info.SampleRate <= 0 || info.Channels <= 0 || info.BitsPerSample <= 0 {
		return 0
	}
	bytesPerSecond := info.SampleRate * info.Channels * info.BitsPerSample / 8
	return float64(info.DataLen) / float64(bytesPerSecond)
}
