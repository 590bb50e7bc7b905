// Package serial reads card identifiers from an RFID reader attached to a
// serial port. The reader prints one "[ID]" line per scanned card.
package serial

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/term"
)

// DefaultIdle is how long Next sleeps when the device has nothing to read.
const DefaultIdle = 100 * time.Millisecond

// ReadTimeout bounds a single read on the device. An idle read returns
// io.EOF once it expires, so a blocked reader notices cancellation.
const ReadTimeout = 200 * time.Millisecond

// Open opens device in raw mode at baud. ReadTimeout must follow RawMode,
// which resets the tty to block until a byte arrives.
func Open(device string, baud int) (*term.Term, error) {
	t, err := term.Open(device, term.Speed(baud), term.RawMode, term.ReadTimeout(ReadTimeout))
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", device, err)
	}
	return t, nil
}

// ParseLine extracts the card id from a reader line. Lines that do not
// start with '[' are reader chatter and are rejected.
func ParseLine(line string) (string, bool) {
	if !strings.HasPrefix(line, "[") {
		return "", false
	}
	id := strings.Trim(line, "[]\r\n")
	if id == "" {
		return "", false
	}
	return id, true
}

// CardReader turns a byte stream into card ids.
type CardReader struct {
	r      *bufio.Reader
	idle   time.Duration
	logger *slog.Logger
	buf    strings.Builder
}

// NewCardReader wraps r. The reader is polled again after idle whenever it
// reports EOF, which is how an idle tty behaves.
func NewCardReader(r io.Reader, idle time.Duration, logger *slog.Logger) *CardReader {
	if idle <= 0 {
		idle = DefaultIdle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardReader{r: bufio.NewReader(r), idle: idle, logger: logger}
}

// Next blocks until a card id is read, ctx ends, or the reader fails.
func (c *CardReader) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		chunk, err := c.r.ReadString('\n')
		c.buf.WriteString(chunk)
		if errors.Is(err, io.EOF) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.idle):
			}
			continue
		}
		if err != nil {
			return "", fmt.Errorf("serial: read: %w", err)
		}

		line := c.buf.String()
		c.buf.Reset()
		id, ok := ParseLine(line)
		if !ok {
			c.logger.Debug("serial: skipping line", slog.String("line", strings.TrimSpace(line)))
			continue
		}
		return id, nil
	}
}
