package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/parlance/pkg/types"
)

// ErrUnknownHandle is returned for upload handles or job ids the provider
// does not know, including ones that already expired.
var ErrUnknownHandle = errors.New("transcribe: unknown handle")

// TranscribeFunc runs a synchronous transcription of audio.
type TranscribeFunc func(ctx context.Context, audio []byte, language string) (text string, durationSeconds float64, err error)

// DefaultRetention is how long LocalJobs keeps unclaimed uploads and jobs.
const DefaultRetention = 10 * time.Minute

// LocalJobs adapts a synchronous transcriber to the upload/submit/poll
// shape. Uploads are held in memory, Submit runs the transcription inline and
// Status returns the stored result. Entries older than the retention window
// are dropped lazily.
type LocalJobs struct {
	fn        TranscribeFunc
	maxBytes  int64
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	uploads map[string]localEntry[[]byte]
	jobs    map[string]localEntry[types.TranscriptionJob]
}

type localEntry[T any] struct {
	val     T
	created time.Time
}

// NewLocalJobs wraps fn. maxBytes bounds a single upload (<= 0 means 25 MiB).
func NewLocalJobs(fn TranscribeFunc, maxBytes int64) *LocalJobs {
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	return &LocalJobs{
		fn:        fn,
		maxBytes:  maxBytes,
		retention: DefaultRetention,
		now:       time.Now,
		uploads:   make(map[string]localEntry[[]byte]),
		jobs:      make(map[string]localEntry[types.TranscriptionJob]),
	}
}

// Upload buffers audio and returns a "local:" handle.
func (l *LocalJobs) Upload(_ context.Context, audio io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(audio, l.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("transcribe: read upload: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return "", fmt.Errorf("transcribe: upload: %w", types.InvalidArgument("audio", fmt.Sprintf("exceeds %d bytes", l.maxBytes)))
	}
	if len(data) == 0 {
		return "", fmt.Errorf("transcribe: upload: %w", types.InvalidArgument("audio", "must not be empty"))
	}

	handle := "local:" + uuid.NewString()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked()
	l.uploads[handle] = localEntry[[]byte]{val: data, created: l.now()}
	return handle, nil
}

// Submit transcribes the upload and records a terminal job. Transport
// failures are returned as errors; a backend that answered but could not
// transcribe yields a job with status error.
func (l *LocalJobs) Submit(ctx context.Context, handle, language string) (types.TranscriptionJob, error) {
	l.mu.Lock()
	up, ok := l.uploads[handle]
	delete(l.uploads, handle)
	l.mu.Unlock()
	if !ok {
		return types.TranscriptionJob{}, fmt.Errorf("transcribe: submit %q: %w", handle, ErrUnknownHandle)
	}

	text, dur, err := l.fn(ctx, up.val, language)
	if err != nil && errors.Is(err, types.ErrProviderUnavailable) {
		return types.TranscriptionJob{}, err
	}

	job := types.TranscriptionJob{ID: uuid.NewString(), Status: types.JobCompleted, Text: text, AudioDuration: dur}
	if err != nil {
		job = types.TranscriptionJob{ID: job.ID, Status: types.JobError, Error: err.Error()}
	}

	l.mu.Lock()
	l.jobs[job.ID] = localEntry[types.TranscriptionJob]{val: job, created: l.now()}
	l.mu.Unlock()
	return job, nil
}

// Status returns the stored job.
func (l *LocalJobs) Status(_ context.Context, id string) (types.TranscriptionJob, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked()
	e, ok := l.jobs[id]
	if !ok {
		return types.TranscriptionJob{}, fmt.Errorf("transcribe: status %q: %w", id, ErrUnknownHandle)
	}
	return e.val, nil
}

func (l *LocalJobs) purgeLocked() {
	cutoff := l.now().Add(-l.retention)
	for k, e := range l.uploads {
		if e.created.Before(cutoff) {
			delete(l.uploads, k)
		}
	}
	for k, e := range l.jobs {
		if e.created.Before(cutoff) {
			delete(l.jobs, k)
		}
	}
}
