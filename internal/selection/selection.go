// Package selection blocks until the host signals a new selection and works
// out which tracked indicator changed.
package selection

import (
	"context"
	"log/slog"

	"github.com/starford/gamewatch/internal/storage"
)

// Selected is the literal the host writes to the sentinel file when the
// user picks something.
const Selected = "selected"

// Notifier blocks until the watched sentinel may have been modified.
type Notifier interface {
	Wait(ctx context.Context) error
	Close() error
}

// Source says which indicator produced an Event.
type Source string

// Indicator sources.
const (
	SourceStart   Source = "start"
	SourceCurrent Source = "current"
)

// Event is a changed indicator value together with the search root it was
// reported under.
type Event struct {
	Value  string
	Root   string
	Source Source
}

// Snapshot holds the last observed values of the two tracked indicators.
type Snapshot struct {
	StartPath   string
	CurrentPath string
}

// NewSnapshot captures the tracked values of ind.
func NewSnapshot(ind storage.Indicators) Snapshot {
	return Snapshot{StartPath: ind.StartPath, CurrentPath: ind.CurrentPath}
}

// Detect compares ind with s. A start path change wins over a current path
// change because loading a core supersedes the content that was running.
// When something changed, the returned snapshot holds both observed values;
// otherwise changed is false and s is returned as is.
func (s Snapshot) Detect(ind storage.Indicators) (ev Event, next Snapshot, changed bool) {
	switch {
	case ind.StartPath != s.StartPath:
		ev = Event{Value: ind.StartPath, Root: ind.FullPath, Source: SourceStart}
	case ind.CurrentPath != s.CurrentPath:
		ev = Event{Value: ind.CurrentPath, Root: ind.FullPath, Source: SourceCurrent}
	default:
		return Event{}, s, false
	}
	return ev, NewSnapshot(ind), true
}

// Watcher waits for the sentinel file to read Selected.
type Watcher struct {
	notifier Notifier
	store    storage.Provider
	sentinel string
	logger   *slog.Logger
}

// NewWatcher creates a Watcher that reads sentinel through store each time
// notifier fires.
func NewWatcher(notifier Notifier, store storage.Provider, sentinel string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{notifier: notifier, store: store, sentinel: sentinel, logger: logger}
}

// WaitForSelection blocks until the sentinel holds Selected after a
// modification. It only returns an error when the notifier fails or ctx ends.
func (w *Watcher) WaitForSelection(ctx context.Context) error {
	for {
		if err := w.notifier.Wait(ctx); err != nil {
			return err
		}
		v := w.store.ReadIndicator(w.sentinel)
		if v == Selected {
			return nil
		}
		w.logger.Debug("selection: sentinel modified without selection", slog.String("value", v))
	}
}

// Close releases the underlying notifier.
func (w *Watcher) Close() error {
	return w.notifier.Close()
}
