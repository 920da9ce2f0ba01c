// Package file persists the directory as a JSON array in a single file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"persondir/internal/directory/models"
	"persondir/pkg/platform/sentinel"
)

// Sink reads and rewrites one JSON file. Every write replaces the whole file
// through a temp file and rename, so readers never see a partial array.
type Sink struct {
	path string
	perm fs.FileMode
}

func New(path string) *Sink {
	return &Sink{path: path, perm: 0o644}
}

func (s *Sink) Path() string {
	return s.path
}

// ReadAll returns the raw array elements. A missing file yields
// sentinel.ErrNotFound; content that is not a JSON array yields
// sentinel.ErrMalformed.
func (s *Sink) ReadAll(_ context.Context) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", s.path, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w: %w", s.path, sentinel.ErrUnavailable, err)
	}
	return DecodeArray(data)
}

// WriteAll replaces the file with the records, indented, in the given order.
func (s *Sink) WriteAll(_ context.Context, records []*models.Record) error {
	if records == nil {
		records = []*models.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return atomicWrite(s.path, append(data, '\n'), s.perm)
}

// DecodeArray splits a JSON array into its raw elements.
func DecodeArray(data []byte) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode records: %w: %w", sentinel.ErrMalformed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode records: %w: not an array", sentinel.ErrMalformed)
	}
	return raw, nil
}

// atomicWrite: write tmp -> fsync -> close -> chmod -> rename.
func atomicWrite(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
