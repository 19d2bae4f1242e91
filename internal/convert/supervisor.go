// Package convert drives the full conversion pipeline for one document:
// sanitize, resolve cards, parse, resolve images, assemble, validate, and
// persist under an identity-scoped lock. One Supervisor serves any number of
// concurrent requests; each request runs under its own deadline.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docexport/internal/assemble"
	"github.com/dgallion1/docexport/internal/card"
	"github.com/dgallion1/docexport/internal/images"
	"github.com/dgallion1/docexport/internal/markup"
	"github.com/dgallion1/docexport/internal/sanitize"
	"github.com/dgallion1/docexport/internal/store"
)

// DefaultTimeout bounds one generation invocation end to end.
const DefaultTimeout = 30 * time.Second

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// Supervisor owns the pipeline collaborators and the artifact store.
type Supervisor struct {
	images  *images.Pipeline
	store   *store.Store
	log     *slog.Logger
	timeout time.Duration
}

func NewSupervisor(imgs *images.Pipeline, st *store.Store, log *slog.Logger, timeout time.Duration) *Supervisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Supervisor{images: imgs, store: st, log: log, timeout: timeout}
}

// Store exposes the artifact store for read/evict handlers.
func (s *Supervisor) Store() *store.Store { return s.store }

// Generate runs the pipeline without touching the cache and returns the
// artifact bytes. Empty or unparseable markup degrades to a placeholder
// document; only pipeline-wide failures (ErrTimeout,
// ErrStructuralCorruption) surface as errors.
func (s *Supervisor) Generate(ctx context.Context, docID, rawMarkup, sourceID, title string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	log := s.log.With("doc_id", docID, "source_id", sourceID)

	safe := sanitize.Sanitize(rawMarkup)
	resolved := card.Resolve(safe)
	tree := markup.Parse(resolved)
	tree.Title = title
	if tree.Empty() {
		log.Warn("no parseable content, producing placeholder document")
	}

	jobs := s.images.Resolve(ctx, tree.ImageRefs(), sourceID, docID)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("generate %s: %w", docID, ErrTimeout)
	}

	data, report, err := assemble.Build(tree, jobs, title)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w: %v", docID, ErrStructuralCorruption, err)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("generate %s: %w", docID, ErrTimeout)
	}
	if !bytes.HasPrefix(data, zipMagic) {
		return nil, fmt.Errorf("generate %s: %w", docID, ErrStructuralCorruption)
	}

	if n := len(report.SkippedImages); n > 0 {
		log.Warn("images omitted from artifact", "count", n, "urls", report.SkippedImages)
	}
	return data, nil
}

// GetOrGenerate returns the cached artifact when the source content is
// unchanged, generating and persisting otherwise. When another writer holds
// the identity's lock the freshly generated bytes are served without
// persisting; the first writer to complete determines the cached artifact.
func (s *Supervisor) GetOrGenerate(ctx context.Context, docID, rawMarkup, sourceID, title string) ([]byte, error) {
	hash := store.HashHex([]byte(rawMarkup))
	log := s.log.With("doc_id", docID)

	if s.store.Exists(docID) && s.store.SourceHash(docID) == hash {
		data, err := s.store.Read(docID)
		if err == nil {
			log.Info("cache hit")
			return data, nil
		}
		log.Warn("cache read failed, regenerating", "error", err)
	}

	data, err := s.Generate(ctx, docID, rawMarkup, sourceID, title)
	if err != nil {
		return nil, err
	}

	release, err := s.store.Acquire(docID)
	if errors.Is(err, store.ErrLocked) {
		log.Info("write in progress elsewhere, serving unpersisted artifact")
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist %s: %w: %v", docID, ErrWriteFailure, err)
	}
	defer release()

	if err := s.store.WriteAtomic(docID, data, hash); err != nil {
		return nil, fmt.Errorf("persist %s: %w: %v", docID, ErrWriteFailure, err)
	}
	log.Info("artifact cached", "bytes", len(data))
	return data, nil
}
