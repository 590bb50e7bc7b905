// Package loadservice exposes the loaded record, the load history and the
// card table to the HTTP and MCP front ends.
package loadservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gamewatch/internal/apperr"
	"github.com/starford/gamewatch/internal/cards"
	"github.com/starford/gamewatch/internal/engine"
	"github.com/starford/gamewatch/internal/history"
	"github.com/starford/gamewatch/internal/hostcmd"
)

// Loadable extensions accepted by the host's load_core command.
var loadable = []interface{}{".rbf", ".mgl", ".mra"}

// StateReader reads the persisted loaded record.
type StateReader interface {
	Current() (string, error)
}

// Loaded is the record currently persisted by the watcher.
type Loaded struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Record string `json:"record"`
}

// HistoryQuery filters History.
type HistoryQuery struct {
	Kind  history.Kind
	Query string
	Limit int
}

// LoadRequest asks the host to load content.
type LoadRequest struct {
	Path string `json:"path"`
}

// Validate validates the request.
func (r LoadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path,
			validation.Required,
			validation.By(absolute),
			validation.By(func(v interface{}) error {
				ext := strings.ToLower(filepath.Ext(v.(string)))
				return validation.Validate(ext, validation.In(loadable...).Error("must be a .rbf, .mgl or .mra file"))
			}),
		),
	)
}

func absolute(v interface{}) error {
	if !filepath.IsAbs(v.(string)) {
		return errors.New("must be an absolute path")
	}
	return nil
}

// Service coordinates state, history, card table and host commands.
// db and table may be nil when the corresponding feature is disabled.
type Service struct {
	state  StateReader
	db     history.Log
	table  *cards.Table
	loader hostcmd.Loader
}

// NewService creates a new load service.
func NewService(state StateReader, db history.Log, table *cards.Table, loader hostcmd.Loader) *Service {
	return &Service{state: state, db: db, table: table, loader: loader}
}

// Loaded returns the persisted record. It fails with ErrNotFound when
// nothing has been loaded yet.
func (s *Service) Loaded(_ context.Context) (*Loaded, error) {
	cur, err := s.state.Current()
	if err != nil {
		return nil, err
	}
	rec, ok := engine.ParseRecord(cur)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &Loaded{Label: rec.Label, Path: rec.Path, Record: rec.String()}, nil
}

// History returns recent entries, newest first. A non-empty Query searches
// labels, paths and card ids instead.
func (s *Service) History(_ context.Context, q HistoryQuery) ([]history.Entry, error) {
	if s.db == nil {
		return []history.Entry{}, nil
	}
	var (
		entries []history.Entry
		err     error
	)
	if q.Query != "" {
		entries, err = s.db.Search(q.Query, q.Limit)
	} else {
		entries, err = s.db.Recent(q.Kind, q.Limit)
	}
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return entries, nil
}

// Load validates req and sends a load command to the host.
func (s *Service) Load(_ context.Context, req LoadRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if _, err := os.Stat(req.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", req.Path, apperr.ErrNotFound)
		}
		return err
	}
	return s.loader.Load(req.Path)
}

// Cards lists the card table.
func (s *Service) Cards(_ context.Context) ([]cards.Card, error) {
	if s.table == nil {
		return []cards.Card{}, nil
	}
	return s.table.List()
}

// AssignCard maps a card to content. An empty content unassigns the card.
func (s *Service) AssignCard(_ context.Context, id, content string) error {
	if s.table == nil {
		return fmt.Errorf("card table disabled: %w", apperr.ErrNotFound)
	}
	if content != "" {
		if err := (LoadRequest{Path: content}).Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
	}
	return s.table.Assign(id, content)
}
