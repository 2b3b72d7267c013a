// Package mock provides a test double for transcribe.Provider.
//
// Statuses is consumed one entry per Status call; the last entry repeats
// once the script is exhausted.
package mock

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/MrWong99/parlance/pkg/provider/transcribe"
	"github.com/MrWong99/parlance/pkg/types"
)

var _ transcribe.Provider = (*Provider)(nil)

// Provider is a scripted transcribe.Provider.
type Provider struct {
	mu sync.Mutex

	// UploadHandle is returned by Upload. Defaults to "upload-1".
	UploadHandle string
	UploadErr    error

	// SubmitJob is returned by Submit. Its Status defaults to queued and its
	// ID to "job-1".
	SubmitJob types.TranscriptionJob
	SubmitErr error

	// Statuses scripts successive Status results.
	Statuses  []types.TranscriptionJob
	StatusErr error

	// StatusErrs scripts per-call Status errors by call index. A nil entry,
	// or a call past the end, falls through to StatusErr and Statuses.
	StatusErrs []error

	// Recorded calls.
	Uploaded     [][]byte
	SubmitCalls  []SubmitCall
	StatusCalls  int
	statusCursor int
}

// SubmitCall records a single Submit invocation.
type SubmitCall struct {
	Handle, Language string
}

// Upload implements transcribe.Provider.
func (p *Provider) Upload(_ context.Context, audio io.Reader) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Uploaded = append(p.Uploaded, data)
	if p.UploadErr != nil {
		return "", p.UploadErr
	}
	if p.UploadHandle == "" {
		return "upload-1", nil
	}
	return p.UploadHandle, nil
}

// Submit implements transcribe.Provider.
func (p *Provider) Submit(_ context.Context, handle, language string) (types.TranscriptionJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SubmitCalls = append(p.SubmitCalls, SubmitCall{Handle: handle, Language: language})
	if p.SubmitErr != nil {
		return types.TranscriptionJob{}, p.SubmitErr
	}
	job := p.SubmitJob
	if job.ID == "" {
		job.ID = "job-1"
	}
	if job.Status == "" {
		job.Status = types.JobQueued
	}
	return job, nil
}

// Status implements transcribe.Provider.
func (p *Provider) Status(_ context.Context, id string) (types.TranscriptionJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StatusCalls++
	if i := p.StatusCalls - 1; i < len(p.StatusErrs) && p.StatusErrs[i] != nil {
		return types.TranscriptionJob{}, p.StatusErrs[i]
	}
	if p.StatusErr != nil {
		return types.TranscriptionJob{}, p.StatusErr
	}
	if len(p.Statuses) == 0 {
		return types.TranscriptionJob{}, errors.New("mock: no scripted status")
	}
	job := p.Statuses[min(p.statusCursor, len(p.Statuses)-1)]
	p.statusCursor++
	if job.ID == "" {
		job.ID = id
	}
	return job, nil
}
