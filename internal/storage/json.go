// Package storage persists collection runs: the JSON dataset the API
// serves and a flat CSV export.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

var (
	// ErrNilRun is returned when asked to write a nil run.
	ErrNilRun = errors.New("storage: nil collection run")
	// ErrEmptyPath is returned when a sink has no destination.
	ErrEmptyPath = errors.New("storage: empty output path")
)

// Sink persists a finalized run.
type Sink interface {
	Write(ctx context.Context, run *domain.CollectionRun) error
}

// JSONSink writes the run as an indented UTF-8 JSON document.
type JSONSink struct {
	path   string
	logger logger.Interface
}

// NewJSONSink creates a sink writing to path.
func NewJSONSink(path string, log logger.Interface) *JSONSink {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &JSONSink{path: path, logger: log.WithComponent("json_sink")}
}

// Path returns the destination file.
func (s *JSONSink) Path() string {
	return s.path
}

// Write encodes run and replaces the destination atomically. Parent
// directories are created as needed.
func (s *JSONSink) Write(ctx context.Context, run *domain.CollectionRun) error {
	if run == nil {
		return ErrNilRun
	}
	if s.path == "" {
		return ErrEmptyPath
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}

	data, err := Marshal(run)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	s.logger.Info("Dataset written",
		"path", s.path,
		"bytes", len(data),
		"total_items", run.Metadata.TotalItems,
	)
	return nil
}

// Marshal encodes run as indented JSON with non-ASCII text (Arabic) and
// HTML characters kept literal.
func Marshal(run *domain.CollectionRun) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes data to a temp file in the destination directory
// and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename dataset: %w", err)
	}
	return nil
}
