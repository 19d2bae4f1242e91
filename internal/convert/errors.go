package convert

import "errors"

// Pipeline-wide failures surfaced to callers. Per-node and per-image
// problems are absorbed locally and never reach these.
var (
	// ErrTimeout: the whole pipeline exceeded its deadline; no artifact
	// is produced or persisted.
	ErrTimeout = errors.New("generation deadline exceeded")

	// ErrWriteFailure: the artifact could not be atomically replaced; any
	// prior artifact is preserved.
	ErrWriteFailure = errors.New("artifact write failed")

	// ErrStructuralCorruption: assembled bytes failed self-validation;
	// nothing is cached.
	ErrStructuralCorruption = errors.New("artifact failed structural validation")
)
