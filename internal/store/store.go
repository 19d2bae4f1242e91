// Package store persists generated artifacts on the local filesystem. It is
// the sole writer of artifacts: every write goes through an identity-scoped
// lock, lands in a temporary file, and replaces the prior artifact
// atomically with a backup to restore on failure. Readers never observe a
// partial or corrupt file.
package store

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// zipMagic is the container format's signature at offset 0; writes are
// refused for payloads that do not carry it.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// ErrNotFound reports a read for an identity with no cached artifact.
var ErrNotFound = errors.New("artifact not found")

// ErrLocked reports that another writer holds the identity's lock.
var ErrLocked = errors.New("artifact locked by another writer")

// ErrBadSignature reports payload bytes that fail the structural smoke test.
var ErrBadSignature = errors.New("payload missing container signature")

const artifactExt = ".docx"

// Store is a content-addressed artifact directory keyed by document
// identity.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, safeID(id)+artifactExt)
}

func (s *Store) hashPath(id string) string {
	return filepath.Join(s.dir, safeID(id)+".src")
}

func (s *Store) lockPath(id string) string {
	return filepath.Join(s.dir, safeID(id)+".lock")
}

// safeID keeps identities usable as file names.
func safeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return '_'
	}, id)
}

// Exists reports whether an artifact for id is present on disk.
func (s *Store) Exists(id string) bool {
	info, err := os.Stat(s.path(id))
	return err == nil && info.Size() > 0
}

// Read returns the cached artifact bytes for id.
func (s *Store) Read(id string) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", id, err)
	}
	return data, nil
}

// SourceHash returns the recorded source-content hash for id, or the empty
// string when none is recorded.
func (s *Store) SourceHash(id string) string {
	data, err := os.ReadFile(s.hashPath(id))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Acquire takes the identity-scoped write lock. On success it returns a
// release function that must run on every exit path. When another writer
// holds the lock it returns ErrLocked.
func (s *Store) Acquire(id string) (release func(), err error) {
	lock := s.lockPath(id)
	f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("acquire lock %s: %w", id, err)
	}
	f.Close()
	return func() { os.Remove(lock) }, nil
}

// WriteAtomic validates data's container signature and atomically replaces
// the artifact for id, recording srcHash alongside. On failure any prior
// artifact is restored from backup. Callers must hold the identity's lock.
func (s *Store) WriteAtomic(id string, data []byte, srcHash string) error {
	if !bytes.HasPrefix(data, zipMagic) {
		return fmt.Errorf("write %s: %w", id, ErrBadSignature)
	}

	target := s.path(id)
	tmp, err := os.CreateTemp(s.dir, safeID(id)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}

	// Move any prior artifact aside so it can be restored if the replace
	// fails.
	backup := target + ".bak"
	hadPrior := false
	if _, err := os.Stat(target); err == nil {
		if err := os.Rename(target, backup); err != nil {
			return fmt.Errorf("backup prior artifact: %w", err)
		}
		hadPrior = true
	}

	// Drop the prior hash record first: a stale hash paired with the new
	// artifact would let an old source cache-hit on the wrong bytes. A
	// missing hash only costs a regeneration on the next request.
	os.Remove(s.hashPath(id))

	if err := os.Rename(tmpPath, target); err != nil {
		if hadPrior {
			os.Rename(backup, target)
		}
		return fmt.Errorf("replace artifact %s: %w", id, err)
	}
	if hadPrior {
		os.Remove(backup)
	}

	if srcHash != "" {
		os.WriteFile(s.hashPath(id), []byte(srcHash+"\n"), 0o644)
	}
	return nil
}

// Evict removes the cached artifact and its hash record for id.
func (s *Store) Evict(id string) error {
	var firstErr error
	for _, p := range []string{s.path(id), s.hashPath(id)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HashHex returns the BLAKE3 hex digest used to detect source-content
// changes.
func HashHex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
