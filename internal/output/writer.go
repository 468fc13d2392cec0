// Package output writes run artifacts into a directory. Each file is written
// to a .tmp sibling, synced and renamed into place, so a failed write never
// leaves a truncated artifact behind or clobbers an earlier one.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

// Writer creates artifacts under a single directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer for dir. The directory is created lazily.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the target directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the final path of an artifact named name.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteFile streams encode's output into name and returns the final path.
// Errors wrap ErrWriteFailed.
func (w *Writer) WriteFile(name string, encode func(io.Writer) error) (path string, err error) {
	finalPath := w.Path(name)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating output directory: %v", apperrors.ErrWriteFailed, err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("%w: creating temp file for %s: %v", apperrors.ErrWriteFailed, name, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := encode(f); err != nil {
		return "", fmt.Errorf("%w: encoding %s: %w", apperrors.ErrWriteFailed, name, err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("%w: syncing %s: %v", apperrors.ErrWriteFailed, name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: closing %s: %v", apperrors.ErrWriteFailed, name, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("%w: renaming %s: %v", apperrors.ErrWriteFailed, name, err)
	}
	return finalPath, nil
}
