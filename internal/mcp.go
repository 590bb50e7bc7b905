package internal

import (
	"context"
	"errors"
	"os"

	"github.com/starford/gamewatch/internal/cards"
	"github.com/starford/gamewatch/internal/history"
	"github.com/starford/gamewatch/internal/hostcmd"
	"github.com/starford/gamewatch/internal/loadservice"
	"github.com/starford/gamewatch/internal/mcpserver"
	"github.com/starford/gamewatch/internal/storage"
)

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs go to stderr since stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(app)

	store := storage.NewFS(logger)
	state := storage.NewState(store, cfg.Host.LoadedFile)

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	var hlog history.Log
	if db != nil {
		defer db.Close()
		hlog = db
	}

	svc := loadservice.NewService(state, hlog, cards.Open(cfg.Cards.Path), hostcmd.New(cfg.Host.CommandChannel, logger))
	srv := mcpserver.New(svc, app.version)

	logger.Info("MCP server starting on stdio")
	if err := srv.ServeStdio(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
