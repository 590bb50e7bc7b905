package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned by Wait once the notifier has been closed.
var ErrClosed = errors.New("notifier closed")

// FSNotifier fires when a single file is written or recreated.
//
// The parent directory is watched rather than the file itself so the watch
// survives the host replacing the file.
type FSNotifier struct {
	w      *fsnotify.Watcher
	path   string
	logger *slog.Logger
}

// NewFSNotifier starts watching path.
func NewFSNotifier(path string, logger *slog.Logger) (*FSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("selection: new watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("selection: resolve %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("selection: watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("selection: watching", slog.String("path", abs))
	return &FSNotifier{w: w, path: abs, logger: logger}, nil
}

// Wait blocks until the watched file is modified.
func (n *FSNotifier) Wait(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-n.w.Events:
			if !ok {
				return ErrClosed
			}
			if filepath.Clean(ev.Name) != n.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				return nil
			}

		case err, ok := <-n.w.Errors:
			if !ok {
				return ErrClosed
			}
			n.logger.Error("selection: watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (n *FSNotifier) Close() error {
	return n.w.Close()
}

// ChanNotifier fires on demand. It lets callers drive a Watcher without a
// file system, e.g. from tests.
type ChanNotifier struct {
	c    chan struct{}
	done chan struct{}
}

// NewChanNotifier returns a ChanNotifier with room for one pending Fire.
func NewChanNotifier() *ChanNotifier {
	return &ChanNotifier{c: make(chan struct{}, 1), done: make(chan struct{})}
}

// Fire wakes one Wait call. It does not block if a wake-up is already
// pending.
func (n *ChanNotifier) Fire() {
	select {
	case n.c <- struct{}{}:
	default:
	}
}

// Wait blocks until Fire, Close or ctx.
func (n *ChanNotifier) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-n.done:
		return ErrClosed
	case <-n.c:
		return nil
	}
}

// Close makes every pending and future Wait return ErrClosed.
func (n *ChanNotifier) Close() error {
	select {
	case <-n.done:
	default:
		close(n.done)
	}
	return nil
}
