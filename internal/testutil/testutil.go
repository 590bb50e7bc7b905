// Package testutil provides shared test helpers for fake MiSTer hosts and
// history databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/gamewatch/internal/history"
	"github.com/starford/gamewatch/internal/storage"
)

// QuietLogger returns a logger that discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestHistory creates a temporary history database that is closed on cleanup.
func TestHistory(t *testing.T) *history.DB {
	t.Helper()
	db, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Host is a fake MiSTer host: a content tree under Base and the indicator
// files under Tmp.
type Host struct {
	Base       string
	Tmp        string
	Sentinel   string
	Loaded     string
	Indicators storage.IndicatorPaths
}

// TestHost creates an empty host layout in temporary directories.
func TestHost(t *testing.T) *Host {
	t.Helper()
	base := t.TempDir()
	tmp := t.TempDir()
	return &Host{
		Base:     base,
		Tmp:      tmp,
		Sentinel: filepath.Join(tmp, "FILESELECT"),
		Loaded:   filepath.Join(tmp, "LOADED"),
		Indicators: storage.IndicatorPaths{
			FullPath:    filepath.Join(tmp, "FULLPATH"),
			CurrentPath: filepath.Join(tmp, "CURRENTPATH"),
			StartPath:   filepath.Join(tmp, "STARTPATH"),
			CoreName:    filepath.Join(tmp, "CORENAME"),
		},
	}
}

// Touch creates rel below Base, with parent directories, and returns its
// absolute path.
func (h *Host) Touch(t *testing.T, rel string, content string) string {
	t.Helper()
	p := filepath.Join(h.Base, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// Set writes an indicator file.
func (h *Host) Set(t *testing.T, path, value string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Select writes the sentinel the way the host does after a selection.
func (h *Host) Select(t *testing.T) {
	t.Helper()
	h.Set(t, h.Sentinel, "selected")
}
