package resilience

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MrWong99/parlance/pkg/provider/transcribe"
	"github.com/MrWong99/parlance/pkg/types"
)

// TranscribeFallback is a [transcribe.Provider] that fails over across
// backends at upload time.
//
// A transcription is a three-step conversation with a single backend, so
// only Upload walks the chain. The returned handle and every job ID derived
// from it carry the answering backend's name as a "name:" prefix, and Submit
// and Status are routed back to that backend.
type TranscribeFallback struct {
	group *FallbackGroup[transcribe.Provider]
}

var _ transcribe.Provider = (*TranscribeFallback)(nil)

// NewTranscribeFallback creates a [TranscribeFallback] with primary first in
// line.
func NewTranscribeFallback(primary transcribe.Provider, primaryName string, cfg FallbackConfig) *TranscribeFallback {
	return &TranscribeFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback appends a backend. Names must not contain ':'.
func (f *TranscribeFallback) AddFallback(name string, p transcribe.Provider) {
	f.group.AddFallback(name, p)
}

// Upload implements transcribe.Provider. The audio is buffered so that it
// can be replayed to the next backend.
func (f *TranscribeFallback) Upload(ctx context.Context, audio io.Reader) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", fmt.Errorf("resilience: read upload: %w", err)
	}
	i, handle, err := executeIndexed(f.group, func(p transcribe.Provider) (string, error) {
		return p.Upload(ctx, bytes.NewReader(data))
	})
	if err != nil {
		return "", err
	}
	return f.group.entries[i].name + ":" + handle, nil
}

// Submit implements transcribe.Provider.
func (f *TranscribeFallback) Submit(ctx context.Context, handle, language string) (types.TranscriptionJob, error) {
	entry, inner, err := f.route(handle)
	if err != nil {
		return types.TranscriptionJob{}, err
	}
	var job types.TranscriptionJob
	err = entry.breaker.Execute(func() error {
		var callErr error
		job, callErr = entry.value.Submit(ctx, inner, language)
		return callErr
	})
	if err != nil {
		return types.TranscriptionJob{}, err
	}
	job.ID = entry.name + ":" + job.ID
	return job, nil
}

// Status implements transcribe.Provider.
func (f *TranscribeFallback) Status(ctx context.Context, id string) (types.TranscriptionJob, error) {
	entry, inner, err := f.route(id)
	if err != nil {
		return types.TranscriptionJob{}, err
	}
	// Polling bypasses the breaker: an open circuit must not strand a job
	// that is already running.
	job, err := entry.value.Status(ctx, inner)
	if err != nil {
		return types.TranscriptionJob{}, err
	}
	job.ID = entry.name + ":" + job.ID
	return job, nil
}

func (f *TranscribeFallback) route(id string) (*fallbackEntry[transcribe.Provider], string, error) {
	name, inner, ok := strings.Cut(id, ":")
	if !ok {
		return nil, "", fmt.Errorf("resilience: %w", types.InvalidArgument("id", "missing provider prefix"))
	}
	entry, ok := f.group.entry(name)
	if !ok {
		return nil, "", fmt.Errorf("resilience: %w", types.InvalidArgument("id", "unknown provider "+name))
	}
	return entry, inner, nil
}
