package domain

import "fmt"

// UnknownSpeaker marks a segment whose speaker could not be attributed.
const UnknownSpeaker = "?"

// Segment is one attributed span of transcribed speech. Segments are
// immutable once created and keep the chronological order reported by the
// remote speech service.
type Segment struct {
	Speaker string
	Text    string
}

// JobStatus is the lifecycle state of one remote transcription job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// rank orders statuses so a job can only move forward.
func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusProcessing:
		return 1
	case JobStatusCompleted, JobStatusError:
		return 2
	default:
		return -1
	}
}

// Job tracks one upload/poll lifecycle against the remote speech service.
// It lives only for the duration of a single pipeline run.
type Job struct {
	SourcePath string
	RemoteID   string
	Status     JobStatus
	Segments   []Segment
}

// NewJob creates a queued job for the given local audio artifact.
func NewJob(sourcePath string) *Job {
	return &Job{
		SourcePath: sourcePath,
		Status:     JobStatusQueued,
	}
}

// Advance moves the job to the given status. Transitions only run forward;
// a status never reverts once reached.
func (j *Job) Advance(status JobStatus) error {
	if status.rank() < 0 {
		return fmt.Errorf("unknown job status: %s", status)
	}
	if status.rank() < j.Status.rank() {
		return fmt.Errorf("invalid job transition: %s -> %s", j.Status, status)
	}
	j.Status = status
	return nil
}

// SetResult populates the job's segments. The segment list is set exactly
// once, and only when the job completes; partial lists are never exposed.
func (j *Job) SetResult(segments []Segment) error {
	if j.Status != JobStatusCompleted {
		return fmt.Errorf("cannot set result while job is %s", j.Status)
	}
	if j.Segments != nil {
		return fmt.Errorf("job result already set")
	}
	j.Segments = append([]Segment(nil), segments...)
	return nil
}
