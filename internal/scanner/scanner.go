// Package scanner turns card scans into host load commands.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/gamewatch/internal/hostcmd"
)

// Source yields card ids as they are scanned.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// Table maps card ids to content. cards.Table satisfies it.
type Table interface {
	Lookup(id string) (content string, known bool, err error)
	Register(id string) error
}

// Result describes what Handle did with a scan.
type Result string

const (
	ResultLoaded     Result = "loaded"
	ResultUnassigned Result = "unassigned"
	ResultActive     Result = "already_active"
	ResultFailed     Result = "failed"
)

// Observer is told about every scan and its result.
type Observer func(id, content string, res Result)

// Scanner holds the card that was loaded last so that scanning it again
// does not restart the running content.
type Scanner struct {
	source   Source
	table    Table
	loader   hostcmd.Loader
	logger   *slog.Logger
	observer Observer

	activeID      string
	activeContent string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithObserver registers fn to be called after every handled scan.
func WithObserver(fn Observer) Option {
	return func(s *Scanner) { s.observer = fn }
}

// New creates a Scanner.
func New(source Source, table Table, loader hostcmd.Loader, opts ...Option) *Scanner {
	s := &Scanner{
		source: source,
		table:  table,
		loader: loader,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Active returns the card id and content loaded last.
func (s *Scanner) Active() (id, content string) {
	return s.activeID, s.activeContent
}

// Run handles scans until ctx ends or the source fails.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("scanner: started")
	for {
		id, err := s.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("scanner: read card: %w", err)
		}
		if ctx.Err() != nil {
			s.logger.Info("scanner: dropping card read during shutdown", slog.String("card", id))
			return nil
		}
		if _, err := s.Handle(id); err != nil {
			s.logger.Error("scanner: handle card", slog.String("card", id), slog.String("error", err.Error()))
		}
	}
}

// Handle processes one scanned card. The table is consulted on every scan;
// unknown cards are registered with no content so they can be assigned by
// editing the table.
func (s *Scanner) Handle(id string) (Result, error) {
	id = strings.TrimSpace(id)
	s.logger.Info("scanner: card detected", slog.String("card", id))

	content, known, err := s.table.Lookup(id)
	if err != nil {
		return s.done(id, "", ResultFailed), err
	}
	if !known {
		if err := s.table.Register(id); err != nil {
			return s.done(id, "", ResultFailed), err
		}
	}
	if content == "" {
		s.logger.Warn("scanner: card is not assigned", slog.String("card", id))
		return s.done(id, "", ResultUnassigned), nil
	}
	s.logger.Info("scanner: card assigned", slog.String("card", id), slog.String("content", content))

	if id == s.activeID && content == s.activeContent {
		s.logger.Info("scanner: already running", slog.String("content", content))
		return s.done(id, content, ResultActive), nil
	}

	if err := s.loader.Load(content); err != nil {
		return s.done(id, content, ResultFailed), err
	}
	s.activeID, s.activeContent = id, content
	return s.done(id, content, ResultLoaded), nil
}

func (s *Scanner) done(id, content string, res Result) Result {
	if s.observer != nil {
		s.observer(id, content, res)
	}
	return res
}
