// Package pronounce scores a learner's recorded speech against a reference
// sentence by transcribing it and comparing the transcript.
//
// Unlike translation and synthesis, assessment fails explicitly: a job that
// ends in error or failed, or that does not finish in time, is reported to
// the caller rather than scored.
package pronounce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/internal/similarity"
	"github.com/MrWong99/parlance/pkg/audio"
	"github.com/MrWong99/parlance/pkg/provider/transcribe"
	"github.com/MrWong99/parlance/pkg/types"
)

// Defaults for an [Assessor].
const (
	DefaultLanguage     = "en"
	DefaultPollInterval = 3 * time.Second
	DefaultMaxWait      = 5 * time.Minute
	DefaultWaitFactor   = 3

	// fallbackBytesPerSecond estimates the duration of non-WAV uploads
	// (roughly 128 kbit/s compressed audio).
	fallbackBytesPerSecond = 16000

	// maxStatusFailures is how many consecutive unavailable status checks
	// a poll tolerates before giving up on the job.
	maxStatusFailures = 3
)

// Option configures an [Assessor].
type Option func(*Assessor)

// WithLanguage sets the transcription language.
func WithLanguage(lang string) Option {
	return func(a *Assessor) {
		if lang != "" {
			a.language = lang
		}
	}
}

// WithPollInterval sets the delay between status checks.
func WithPollInterval(d time.Duration) Option {
	return func(a *Assessor) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// WithMaxWait sets the minimum time a job may take before the assessment
// gives up with types.ErrPollTimeout.
func WithMaxWait(d time.Duration) Option {
	return func(a *Assessor) {
		if d > 0 {
			a.maxWait = d
		}
	}
}

// WithWaitFactor sets how many seconds of waiting each second of uploaded
// audio buys once that exceeds the max wait.
func WithWaitFactor(k float64) Option {
	return func(a *Assessor) {
		if k > 0 {
			a.waitFactor = k
		}
	}
}

// WithTempDir sets where uploads are spooled. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(a *Assessor) { a.tempDir = dir }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assessor) { a.metrics = m }
}

// Assessor runs pronunciation assessments. It is safe for concurrent use.
type Assessor struct {
	provider     transcribe.Provider
	language     string
	pollInterval time.Duration
	maxWait      time.Duration
	waitFactor   float64
	tempDir      string
	metrics      *observe.Metrics
}

// New creates an Assessor backed by p.
func New(p transcribe.Provider, opts ...Option) *Assessor {
	a := &Assessor{
		provider:     p,
		language:     DefaultLanguage,
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
		waitFactor:   DefaultWaitFactor,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// Assess transcribes speech and scores it against referenceText.
//
// Errors:
//   - types.ErrInvalidArgument for blank reference text or empty audio
//   - *types.TranscriptionError (matching types.ErrTranscriptionFailed) when
//     the job ends in error or failed
//   - types.ErrPollTimeout when the job outlives the wait budget
//   - provider errors (usually wrapping types.ErrProviderUnavailable)
func (a *Assessor) Assess(ctx context.Context, referenceText string, speech io.Reader) (*types.PronunciationResult, error) {
	if strings.TrimSpace(referenceText) == "" {
		return nil, fmt.Errorf("pronounce: %w", types.InvalidArgument("referenceText", "must not be empty"))
	}
	if speech == nil {
		return nil, fmt.Errorf("pronounce: %w", types.InvalidArgument("audio", "is required"))
	}

	ctx, span := observe.StartSpan(ctx, "pronounce.Assess")
	defer span.End()
	log := observe.Logger(ctx)

	f, err := os.CreateTemp(a.tempDir, "parlance-speech-*")
	if err != nil {
		return nil, fmt.Errorf("pronounce: create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	size, err := io.Copy(f, speech)
	if err != nil {
		return nil, fmt.Errorf("pronounce: spool audio: %w", err)
	}
	if size == 0 {
		return nil, fmt.Errorf("pronounce: %w", types.InvalidArgument("audio", "must not be empty"))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("pronounce: rewind temp file: %w", err)
	}
	wait := a.waitBudget(f, size)

	handle, err := a.provider.Upload(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("pronounce: upload: %w", err)
	}
	job, err := a.provider.Submit(ctx, handle, a.language)
	if err != nil {
		return nil, fmt.Errorf("pronounce: submit: %w", err)
	}
	log = log.With("job_id", job.ID)
	log.Debug("pronounce: job submitted", "status", job.Status, "max_wait", wait)

	job, err = a.poll(ctx, job, wait)
	if err != nil {
		log.Warn("pronounce: polling stopped", "err", err)
		return nil, fmt.Errorf("pronounce: job %s: %w", job.ID, err)
	}
	a.metrics.RecordTranscriptionJob(ctx, string(job.Status))

	if job.Status != types.JobCompleted {
		log.Warn("pronounce: transcription failed", "status", job.Status, "err", job.Error)
		return nil, &types.TranscriptionError{JobID: job.ID, Status: job.Status, Message: job.Error}
	}

	transcript := similarity.StripTrailingPeriod(job.Text)
	return &types.PronunciationResult{
		Transcription:      transcript,
		DurationSeconds:    job.AudioDuration,
		JobID:              job.ID,
		AccuracyPercentage: similarity.Score(referenceText, transcript),
	}, nil
}

// poll checks the job every pollInterval until it is terminal, the wait
// budget runs out or ctx is done. Status checks failing with
// types.ErrProviderUnavailable are retried on the next tick, up to
// maxStatusFailures in a row; any other error ends the poll.
func (a *Assessor) poll(ctx context.Context, job types.TranscriptionJob, wait time.Duration) (types.TranscriptionJob, error) {
	failures := 0
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for !job.Status.Terminal() {
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-deadline.C:
			return job, fmt.Errorf("%w after %s (last status %s)", types.ErrPollTimeout, wait, job.Status)
		case <-ticker.C:
		}

		next, err := a.provider.Status(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return job, ctx.Err()
			}
			if !errors.Is(err, types.ErrProviderUnavailable) {
				return job, fmt.Errorf("status: %w", err)
			}
			failures++
			if failures >= maxStatusFailures {
				return job, fmt.Errorf("status: %d checks in a row failed: %w", failures, err)
			}
			observe.Logger(ctx).Warn("pronounce: status check failed, retrying",
				"job_id", job.ID, "attempt", failures, "err", err)
			continue
		}
		failures = 0
		if next.ID == "" {
			next.ID = job.ID
		}
		job = next
	}
	return job, nil
}

// waitBudget returns max(maxWait, waitFactor × estimated audio seconds).
func (a *Assessor) waitBudget(f *os.File, size int64) time.Duration {
	seconds := float64(size) / fallbackBytesPerSecond

	head := make([]byte, 4096)
	n, _ := io.ReadFull(f, head)
	if info, err := audio.ParseWAV(head[:n]); err == nil {
		if bps := info.SampleRate * info.Channels * info.BitsPerSample / 8; bps > 0 {
			seconds = float64(size-int64(info.DataOffset)) / float64(bps)
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return a.maxWait
	}

	scaled := time.Duration(a.waitFactor * seconds * float64(time.Second))
	return max(a.maxWait, scaled)
}
