package history

import (
	"errors"
	"log/slog"

	"github.com/starford/gamewatch/internal/apperr"
	"github.com/starford/gamewatch/internal/engine"
)

// Sync records the persisted record as a load if the history does not end
// with it already. It covers loads that happened while no watcher was
// running to log them.
func Sync(db Log, persisted string, logger *slog.Logger) error {
	rec, ok := engine.ParseRecord(persisted)
	if !ok {
		logger.Debug("history: nothing persisted to sync")
		return nil
	}

	last, err := db.Last(KindLoaded)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if last != nil && last.Label == rec.Label && last.Path == rec.Path {
		return nil
	}

	if _, err := db.Record(Entry{Kind: KindLoaded, Label: rec.Label, Path: rec.Path}); err != nil {
		return err
	}
	logger.Debug("history: synced persisted record", slog.String("record", persisted))
	return nil
}

// Listener returns an engine listener that records every written emission.
func Listener(db Log, logger *slog.Logger) engine.Listener {
	return func(rec engine.LoadedRecord, written bool) {
		if !written {
			return
		}
		if _, err := db.Record(Entry{Kind: KindLoaded, Label: rec.Label, Path: rec.Path}); err != nil {
			logger.Warn("history: record failed", slog.String("record", rec.String()), slog.String("error", err.Error()))
		}
	}
}
