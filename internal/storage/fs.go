package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/gamewatch/internal/apperr"
)

// FS implements Provider backed by the local file system.
type FS struct {
	logger *slog.Logger
}

// NewFS creates a new FS provider.
func NewFS(logger *slog.Logger) *FS {
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{logger: logger}
}

// Indicator returns the content of an indicator file without its line
// terminator. A missing file yields apperr.ErrMissingIndicator.
func (f *FS) Indicator(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("storage: %s: %w", path, apperr.ErrMissingIndicator)
		}
		return "", fmt.Errorf("storage: read indicator %s: %w", path, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// ReadIndicator is Indicator with failures logged and read as "".
func (f *FS) ReadIndicator(path string) string {
	v, err := f.Indicator(path)
	if err != nil {
		if errors.Is(err, apperr.ErrMissingIndicator) {
			f.logger.Debug("storage: indicator missing", slog.String("path", path))
		} else {
			f.logger.Warn("storage: indicator unreadable", slog.String("path", path), slog.String("error", err.Error()))
		}
		return ""
	}
	return v
}

// Read returns the raw bytes of a file.
func (f *FS) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".gamewatch-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
