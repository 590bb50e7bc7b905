// Package hostcmd writes one-line commands to the host command channel.
package hostcmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/gamewatch/internal/apperr"
)

// Loader asks the host to load a core, descriptor or arcade file.
type Loader interface {
	Load(path string) error
}

// Channel is the host command device, usually /dev/MiSTer_cmd.
type Channel struct {
	path   string
	logger *slog.Logger
}

// Verify *Channel satisfies Loader at compile time.
var _ Loader = (*Channel)(nil)

// New returns a Channel writing to path. The device must already exist.
func New(path string, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{path: path, logger: logger}
}

// Send writes cmd as a single line.
func (c *Channel) Send(cmd string) error {
	if strings.ContainsAny(cmd, "\r\n") {
		return fmt.Errorf("hostcmd: command spans lines: %w", apperr.ErrInvalidInput)
	}
	c.logger.Info("hostcmd: sending", slog.String("command", cmd))

	f, err := os.OpenFile(c.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("hostcmd: open %s: %w", c.path, err)
	}
	if _, err := f.WriteString(cmd + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("hostcmd: write: %w", err)
	}
	return f.Close()
}

// Load sends "load_core <path>".
func (c *Channel) Load(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("hostcmd: empty path: %w", apperr.ErrInvalidInput)
	}
	return c.Send("load_core " + path)
}
