// Package engine turns host selection events into the persisted
// "label|path" record of what is running.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/gamewatch/internal/descriptor"
	"github.com/starford/gamewatch/internal/resolver"
	"github.com/starford/gamewatch/internal/selection"
	"github.com/starford/gamewatch/internal/storage"
)

// Waiter blocks until the host reports a selection.
type Waiter interface {
	WaitForSelection(ctx context.Context) error
}

// Resolver matches host path fragments to files.
type Resolver interface {
	Resolve(fragment, root string) (resolver.ResolvedFile, error)
}

// Listener is told about every emitted record, written or not.
type Listener func(rec LoadedRecord, written bool)

// Engine is the sequential selection-resolution loop. It is not safe for
// concurrent use; Run owns it.
type Engine struct {
	waiter   Waiter
	resolver Resolver
	store    storage.Provider
	state    *storage.State
	paths    storage.IndicatorPaths
	logger   *slog.Logger
	listener Listener

	snapshot selection.Snapshot
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithListener registers fn to be called after each emission.
func WithListener(fn Listener) Option {
	return func(e *Engine) { e.listener = fn }
}

// New creates an Engine. The snapshot baseline is taken from the indicator
// files as they are now, so whatever was selected before startup is not
// reported as a change.
func New(w Waiter, r Resolver, store storage.Provider, state *storage.State, paths storage.IndicatorPaths, opts ...Option) *Engine {
	e := &Engine{
		waiter:   w,
		resolver: r,
		store:    store,
		state:    state,
		paths:    paths,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.snapshot = selection.NewSnapshot(storage.ReadIndicators(store, paths))
	return e
}

// Snapshot returns the current baseline.
func (e *Engine) Snapshot() selection.Snapshot {
	return e.snapshot
}

// Run processes selections until ctx is done. Per-selection failures are
// logged and never end the loop; only a broken waiter does.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine: started", slog.String("state", e.state.Path()))
	for {
		e.logger.Info("engine: waiting for a file selected event")
		if err := e.waiter.WaitForSelection(ctx); err != nil {
			if ctx.Err() != nil {
				e.logger.Info("engine: stopped")
				return nil
			}
			return fmt.Errorf("engine: wait: %w", err)
		}
		e.Process()
	}
}

// Process handles one wake-up: detect, resolve, classify, emit.
func (e *Engine) Process() Outcome {
	ind := storage.ReadIndicators(e.store, e.paths)

	ev, next, changed := e.snapshot.Detect(ind)
	if !changed {
		e.logger.Debug("engine: change not detected, ignoring event")
		return Outcome{Status: StatusUnchanged}
	}
	// The baseline moves even if resolution fails below, so a value that
	// cannot be resolved is not retried on every wake-up.
	e.snapshot = next

	e.logger.Info("engine: change detected",
		slog.String("source", string(ev.Source)),
		slog.String("value", ev.Value))
	e.logger.Debug("engine: indicators",
		slog.String("full_path", ind.FullPath),
		slog.String("current_path", ind.CurrentPath),
		slog.String("start_path", ind.StartPath),
		slog.String("core_name", ind.CoreName))

	loaded := ev.Value
	if !isFile(loaded) {
		rf, err := e.resolver.Resolve(ev.Value, ev.Root)
		if err != nil {
			e.logger.Warn("engine: failed to find a matching file",
				slog.String("value", ev.Value),
				slog.String("root", ev.Root),
				slog.String("error", err.Error()))
			return Outcome{Status: StatusNotFound, Err: err}
		}
		loaded = rf.Path
	}
	e.logger.Debug("engine: loaded file", slog.String("path", loaded))

	rec, out, ok := e.classify(loaded)
	if !ok {
		return out
	}
	return e.emit(rec)
}

// classify maps a resolved file to its record. On failure the returned
// Outcome says why.
func (e *Engine) classify(path string) (LoadedRecord, Outcome, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case descriptor.Ext:
		return e.classifyDescriptor(path)
	case extCore:
		return LoadedRecord{Label: LabelCore, Path: path}, Outcome{}, true
	case extArcade:
		return LoadedRecord{Label: LabelArcade, Path: path}, Outcome{}, true
	}

	core := e.store.ReadIndicator(e.paths.CoreName)
	if core == "" {
		e.logger.Warn("engine: core name unavailable, cannot label content", slog.String("path", path))
		return LoadedRecord{}, Outcome{Status: StatusNoLabel}, false
	}
	return LoadedRecord{Label: core, Path: path}, Outcome{}, true
}

func (e *Engine) classifyDescriptor(path string) (LoadedRecord, Outcome, bool) {
	e.logger.Info("engine: descriptor loaded, parsing", slog.String("path", path))
	d, err := descriptor.Parse(path)
	if err != nil {
		e.logger.Warn("engine: cannot parse descriptor", slog.String("path", path), slog.String("error", err.Error()))
		return LoadedRecord{}, Outcome{Status: StatusParseError, Err: err}, false
	}
	e.logger.Debug("engine: descriptor", slog.String("core", d.Core), slog.String("rom", d.ROM))

	fragment, label := d.Core, LabelCore
	if d.HasROM() {
		fragment, label = d.ROM, filepath.Base(d.Core)
	}
	rf, err := e.resolver.Resolve(fragment, "")
	if err != nil {
		e.logger.Warn("engine: cannot resolve descriptor reference",
			slog.String("descriptor", path),
			slog.String("reference", fragment),
			slog.String("error", err.Error()))
		return LoadedRecord{}, Outcome{Status: StatusNotFound, Err: err}, false
	}
	return LoadedRecord{Label: label, Path: rf.Path}, Outcome{}, true
}

// emit persists rec if it differs from the stored record. The emission is
// logged either way.
func (e *Engine) emit(rec LoadedRecord) Outcome {
	written, err := e.state.Update(rec.String())
	if err != nil {
		e.logger.Error("engine: cannot persist record",
			slog.String("record", rec.String()),
			slog.String("error", err.Error()))
		return Outcome{Status: StatusWriteError, Record: rec, Err: err}
	}
	e.logger.Info("engine: loaded",
		slog.String("label", rec.Label),
		slog.String("path", rec.Path),
		slog.Bool("written", written))
	if e.listener != nil {
		e.listener(rec, written)
	}
	return Outcome{Status: StatusEmitted, Record: rec, Written: written}
}

// isFile only accepts absolute paths so results never depend on the working
// directory.
func isFile(p string) bool {
	if !filepath.IsAbs(p) {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
