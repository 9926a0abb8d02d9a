// Package storage provides the file store for uploads and rendered
// documents, the job repository, and the retention janitor.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/observability"
)

// FileStore keeps files under a root directory, keyed by opaque refs.
type FileStore struct {
	root   string
	logger *observability.Logger
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string, logger *observability.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, domain.StorageError("create store directory", err)
	}
	return &FileStore{root: root, logger: logger.WithComponent("storage")}, nil
}

// Save writes r to a new file and returns its ref. ext keeps the original
// extension so downloads carry a sensible content type.
func (s *FileStore) Save(r io.Reader, ext string) (string, error) {
	ref := uuid.NewString()
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	path := filepath.Join(s.root, ref+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", domain.StorageError("create file", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", domain.StorageError("write file", err)
	}

	s.logger.Debug().Str("ref", ref).Str("path", path).Msg("Stored file")
	return ref, nil
}

// SaveBytes stores b and returns its ref.
func (s *FileStore) SaveBytes(b []byte, ext string) (string, error) {
	return s.Save(strings.NewReader(string(b)), ext)
}

// Path resolves a ref to its file path, or NotFound when no file matches.
// Save only ever issues canonical uuid refs, so anything else, glob
// metacharacters and uuid prefixes included, is rejected before it reaches
// the filesystem.
func (s *FileStore) Path(ref string) (string, error) {
	if len(ref) != 36 {
		return "", domain.NotFoundError("invalid file reference", nil)
	}
	if _, err := uuid.Parse(ref); err != nil {
		return "", domain.NotFoundError("invalid file reference", nil)
	}

	matches, err := filepath.Glob(filepath.Join(s.root, ref+"*"))
	if err != nil || len(matches) == 0 {
		return "", domain.NotFoundError(fmt.Sprintf("no stored file for ref %s", ref), err)
	}
	return matches[0], nil
}

// Open returns a reader over the stored file for ref.
func (s *FileStore) Open(ref string) (io.ReadCloser, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.StorageError("open stored file", err)
	}
	return f, nil
}

// Sweep deletes stored files older than maxAge and returns how many were
// removed.
func (s *FileStore) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, domain.StorageError("read store directory", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Swept expired files")
	}
	return removed, nil
}

// RunJanitor sweeps on the given interval until ctx is cancelled.
func (s *FileStore) RunJanitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(maxAge); err != nil {
				s.logger.Warn().Err(err).Msg("Sweep failed")
			}
		}
	}
}
