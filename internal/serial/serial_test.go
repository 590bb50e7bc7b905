package serial

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/term/termios"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestParseLine(t *testing.T) {
	cases := []struct {
		line string
		id   string
		ok   bool
	}{
		{"[04A2B3C4]\n", "04A2B3C4", true},
		{"[04A2B3C4]\r\n", "04A2B3C4", true},
		{"Reader ready\n", "", false},
		{"[]\n", "", false},
	}
	for _, tc := range cases {
		id, ok := ParseLine(tc.line)
		if id != tc.id || ok != tc.ok {
			t.Errorf("ParseLine(%q) = %q, %v; want %q, %v", tc.line, id, ok, tc.id, tc.ok)
		}
	}
}

func TestNext_SkipsChatter(t *testing.T) {
	r := NewCardReader(strings.NewReader("boot v1.2\n[AA01]\nnoise\n[BB02]\n"), time.Millisecond, quietLogger())
	ctx := context.Background()
	for _, want := range []string{"AA01", "BB02"} {
		id, err := r.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if id != want {
			t.Errorf("id = %q, want %q", id, want)
		}
	}
}

// slowDevice hands out its data in pieces and reports EOF in between, like
// a tty with no pending input.
type slowDevice struct {
	mu     sync.Mutex
	chunks []string
}

func (d *slowDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, d.chunks[0])
	d.chunks = d.chunks[1:]
	return n, nil
}

func TestNext_JoinsPartialLinesAcrossEOF(t *testing.T) {
	dev := &slowDevice{chunks: []string{"[CA", "FE", "01]\n"}}
	r := NewCardReader(dev, time.Millisecond, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	id, err := r.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if id != "CAFE01" {
		t.Errorf("id = %q, want CAFE01", id)
	}
}

func TestNext_ContextCancelWhileIdle(t *testing.T) {
	r := NewCardReader(&slowDevice{}, 10*time.Millisecond, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := r.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestOpen_IdleDeviceHonoursCancel(t *testing.T) {
	ptm, pts, err := termios.Pty()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer ptm.Close()
	defer pts.Close()

	dev, err := Open(pts.Name(), 9600)
	if err != nil {
		t.Skipf("open pty: %v", err)
	}
	defer dev.Close()

	r := NewCardReader(dev, 10*time.Millisecond, quietLogger())
	if _, err := ptm.Write([]byte("[CAFE01]\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	id, err := r.Next(context.Background())
	if err != nil || id != "CAFE01" {
		t.Fatalf("Next = %q, %v", id, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Next(ctx)
		done <- err
	}()
	time.Sleep(2 * ReadTimeout)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want Canceled", err)
		}
	case <-time.After(5 * ReadTimeout):
		t.Fatal("Next stayed blocked on an idle device after cancel")
	}
}
