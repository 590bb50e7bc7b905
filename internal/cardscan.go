package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/gamewatch/internal/cards"
	"github.com/starford/gamewatch/internal/history"
	"github.com/starford/gamewatch/internal/hostcmd"
	"github.com/starford/gamewatch/internal/scanner"
	"github.com/starford/gamewatch/internal/serial"
)

// RunCardScan starts the RFID card scanner with the given options.
func RunCardScan(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(app)

	release, err := acquirePID(cfg, "cardscan", logger)
	if err != nil {
		return err
	}
	defer release()

	table := cards.Open(cfg.Cards.Path)
	if err := table.EnsureDefaults(); err != nil {
		return fmt.Errorf("init card table: %w", err)
	}

	source := app.cardSource
	var device io.Closer
	if source == nil {
		port, err := table.Serial()
		if err != nil {
			return err
		}
		t, err := serial.Open(port.Port, port.Speed)
		if err != nil {
			return err
		}
		device = t
		logger.Info("Connected to serial port", slog.String("port", port.Port), slog.Int("speed", port.Speed))
		source = serial.NewCardReader(t, serial.DefaultIdle, logger)
	}

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	scanOpts := []scanner.Option{scanner.WithLogger(logger)}
	if db != nil {
		defer db.Close()
		scanOpts = append(scanOpts, scanner.WithObserver(func(id, content string, res scanner.Result) {
			_, err := db.Record(history.Entry{Kind: history.KindCard, Label: string(res), Path: content, CardID: id})
			if err != nil {
				logger.Warn("history: record card failed", slog.String("card", id), slog.String("error", err.Error()))
			}
		}))
	}

	sc := scanner.New(source, table, hostcmd.New(cfg.Host.CommandChannel, logger), scanOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sc.Run(gCtx)
	})

	g.Go(func() error {
		waitForShutdown(gCtx, logger)
		cancel()
		// A blocked tty read only returns once the device is closed.
		if device != nil {
			_ = device.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Card scanner stopped successfully")
	return nil
}
