package images

import (
	"context"
	"log/slog"
	"time"
)

const (
	// maxConcurrentFetch bounds the fetch fan-out. This is a design
	// constant, not a tunable.
	maxConcurrentFetch = 5

	// MaxRetries bounds fetch attempts per image.
	MaxRetries = 3

	// warnBytes is the payload size above which the pipeline warns but
	// still embeds the image.
	warnBytes = 5 << 20
)

// Pipeline resolves image references with bounded concurrency.
type Pipeline struct {
	fetcher   Fetcher
	validator Validator
	log       *slog.Logger
}

func NewPipeline(fetcher Fetcher, validator Validator, log *slog.Logger) *Pipeline {
	return &Pipeline{fetcher: fetcher, validator: validator, log: log}
}

// Resolve drives every URL to a terminal state and returns the job table
// keyed by URL. It returns when all jobs are terminal or the context
// deadline has elapsed; jobs that never ran are force-failed with
// ReasonTimeout. URLs are deduplicated by the caller, so each reference is
// fetched at most once per invocation.
func (p *Pipeline) Resolve(ctx context.Context, urls []string, sourceID, docID string) map[string]*Job {
	jobs := make(map[string]*Job, len(urls))
	if len(urls) == 0 {
		return jobs
	}

	log := p.log.With("doc_id", docID, "source_id", sourceID)
	results := make(chan *Job, len(urls))
	sem := make(chan struct{}, maxConcurrentFetch)

	for _, u := range urls {
		job := &Job{URL: u, DocID: docID, SourceID: sourceID, State: StatePending}
		select {
		case sem <- struct{}{}:
			go func() {
				defer func() { <-sem }()
				p.process(ctx, job, log)
				results <- job
			}()
		case <-ctx.Done():
			job.fail(ReasonTimeout)
			results <- job
		}
	}

	for range urls {
		j := <-results
		jobs[j.URL] = j
		if j.State == StateFailed {
			log.Warn("image failed", "url", j.URL, "reason", j.Reason)
		}
	}
	return jobs
}

// process runs one job to a terminal state. Each stage failure is terminal
// for this job only.
func (p *Pipeline) process(ctx context.Context, job *Job, log *slog.Logger) {
	job.State = StateValidating
	if err := p.validator.Validate(job.URL); err != nil {
		job.fail("validation rejected: " + err.Error())
		return
	}

	job.State = StateFetching
	var data []byte
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		data, lastErr = p.fetcher.Fetch(ctx, job.URL, job.SourceID, job.DocID)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			job.fail(ReasonTimeout)
			return
		}
		if attempt < MaxRetries-1 {
			log.Warn("retryable fetch error", "url", job.URL, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(Backoff(attempt)):
			case <-ctx.Done():
				job.fail(ReasonTimeout)
				return
			}
		}
	}
	if lastErr != nil {
		job.fail("fetch: " + lastErr.Error())
		return
	}

	if len(data) > warnBytes {
		log.Warn("image exceeds size threshold", "url", job.URL, "bytes", len(data))
	}

	job.State = StateOptimizing
	optimize(job, data)
	job.State = StateEmbedded
}
