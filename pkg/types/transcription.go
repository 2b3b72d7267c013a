package types

// JobStatus is the lifecycle state of an asynchronous transcription job.
//
//	queued → processing → {completed | error | failed}
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether a job in this state will not transition further.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobError, JobFailed:
		return true
	}
	return false
}

// IsValid reports whether s is a recognised job status.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobQueued, JobProcessing, JobCompleted, JobError, JobFailed:
		return true
	}
	return false
}

// TranscriptionJob is a snapshot of a transcription job as reported by the
// provider.
type TranscriptionJob struct {
	// ID is the provider-assigned job identifier.
	ID string

	// Status is the current job state.
	Status JobStatus

	// Text is the transcript. Only set once Status is JobCompleted.
	Text string

	// AudioDuration is the length of the transcribed audio in seconds, if
	// reported.
	AudioDuration float64

	// Error carries the provider's message for JobError / JobFailed.
	Error string
}
