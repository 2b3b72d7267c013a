// Package transcribe defines the Provider interface for asynchronous,
// job-based speech transcription.
//
// A caller uploads audio, submits a job referencing the upload and polls the
// job until it reaches a terminal status (see types.JobStatus). Synchronous
// backends fit the same shape through [LocalJobs], which completes jobs at
// submit time.
package transcribe

import (
	"context"
	"io"

	"github.com/MrWong99/parlance/pkg/types"
)

// Provider is the abstraction over a job-based transcription backend.
type Provider interface {
	// Upload stores audio with the provider and returns a handle for Submit.
	Upload(ctx context.Context, audio io.Reader) (string, error)

	// Submit starts a transcription job for a previously uploaded handle.
	// language is a BCP-47 tag such as "en".
	Submit(ctx context.Context, handle, language string) (types.TranscriptionJob, error)

	// Status returns the current state of job id.
	Status(ctx context.Context, id string) (types.TranscriptionJob, error)
}
