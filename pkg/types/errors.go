package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a required input is missing or
	// empty. It is always raised before any external call is made.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProviderUnavailable marks a transient failure of an external
	// provider call. Callers may retry.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrTranscriptionFailed marks a transcription job that reached a
	// terminal non-success state. See [TranscriptionError].
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrPollTimeout is returned when a transcription job did not reach a
	// terminal state within the configured maximum wait.
	ErrPollTimeout = errors.New("transcription poll timed out")
)

// TranscriptionError carries the terminal status and provider message of a
// failed transcription job. It matches [ErrTranscriptionFailed] via errors.Is.
type TranscriptionError struct {
	JobID   string
	Status  JobStatus
	Message string
}

func (e *TranscriptionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transcription job %s ended with status %s", e.JobID, e.Status)
	}
	return fmt.Sprintf("transcription job %s ended with status %s: %s", e.JobID, e.Status, e.Message)
}

// Is reports whether target is [ErrTranscriptionFailed].
func (e *TranscriptionError) Is(target error) bool {
	return target == ErrTranscriptionFailed
}

// InvalidArgument returns an error wrapping [ErrInvalidArgument] naming the
// offending field.
func InvalidArgument(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidArgument, field, reason)
}
