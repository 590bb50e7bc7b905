package hostcmd

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/gamewatch/internal/apperr"
)

func testChannel(t *testing.T) (*Channel, string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "MiSTer_cmd")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return New(p, slog.New(slog.NewJSONHandler(io.Discard, nil))), p
}

func TestLoad_WritesCommand(t *testing.T) {
	c, p := testChannel(t)
	if err := c.Load("/media/fat/_Arcade/pacman.mra"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, _ := os.ReadFile(p)
	if string(got) != "load_core /media/fat/_Arcade/pacman.mra\n" {
		t.Errorf("command = %q", got)
	}
}

func TestLoad_RejectsEmptyAndMultiline(t *testing.T) {
	c, _ := testChannel(t)
	if err := c.Load("  "); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty path err = %v", err)
	}
	if err := c.Load("a.rbf\nreboot"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("multiline err = %v", err)
	}
}

func TestSend_MissingDevice(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent"), nil)
	if err := c.Send("load_core x.rbf"); err == nil {
		t.Error("expected error when the command channel does not exist")
	}
}
