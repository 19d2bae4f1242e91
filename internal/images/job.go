// Package images resolves the image references of one generation request:
// validate, fetch with retry, and optimize under a bounded worker pool. Every
// job reaches a terminal state; a failing image never aborts the batch.
package images

import "context"

// State is the lifecycle state of an image job.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateFetching   State = "fetching"
	StateOptimizing State = "optimizing"
	StateEmbedded   State = "embedded"
	StateFailed     State = "failed"
)

// ReasonTimeout marks jobs force-failed at the pipeline deadline.
const ReasonTimeout = "timeout"

// Job tracks one image reference through the pipeline. A job lives for a
// single generation invocation and is owned by exactly one worker goroutine
// until it reaches a terminal state, so it carries no lock.
type Job struct {
	URL      string
	DocID    string
	SourceID string

	State  State
	Reason string // failure reason, set only in StateFailed

	// Terminal payload for embedded jobs.
	Data   []byte
	Width  int
	Height int
}

// Embedded reports whether the job finished with a usable payload.
func (j *Job) Embedded() bool {
	return j != nil && j.State == StateEmbedded
}

func (j *Job) fail(reason string) {
	j.State = StateFailed
	j.Reason = reason
	j.Data = nil
}

// Fetcher retrieves image bytes. The pipeline wraps calls in its own
// retry/backoff policy; implementations should not retry internally.
type Fetcher interface {
	Fetch(ctx context.Context, url, sourceID, docID string) ([]byte, error)
}

// Validator decides whether an image URL may be fetched at all. A returned
// error is a normal per-image rejection, not a system fault.
type Validator interface {
	Validate(url string) error
}
