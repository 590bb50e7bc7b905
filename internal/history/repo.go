package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/gamewatch/internal/apperr"
)

// Kind distinguishes history entries.
type Kind string

// Entry kinds.
const (
	KindLoaded Kind = "loaded"
	KindCard   Kind = "card"
)

// Entry is one row of the history table.
type Entry struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"kind"`
	Label     string    `json:"label,omitempty"`
	Path      string    `json:"path,omitempty"`
	CardID    string    `json:"card_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const selectColumns = `SELECT id, kind, label, path, card_id, created_at FROM history`

// Record appends e and returns its id. A zero CreatedAt is set to now.
func (db *DB) Record(e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.Exec(`
		INSERT INTO history (kind, label, path, card_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(e.Kind), e.Label, e.Path, e.CardID, e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("history: insert: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first. An empty kind matches
// every kind.
func (db *DB) Recent(kind Kind, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = db.conn.Query(selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = db.conn.Query(selectColumns+` WHERE kind = ? ORDER BY id DESC LIMIT ?`, string(kind), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	return scanEntries(rows)
}

// Last returns the newest entry of kind, or apperr.ErrNotFound.
func (db *DB) Last(kind Kind) (*Entry, error) {
	row := db.conn.QueryRow(selectColumns+` WHERE kind = ? ORDER BY id DESC LIMIT 1`, string(kind))
	var e Entry
	if err := row.Scan(&e.ID, &e.Kind, &e.Label, &e.Path, &e.CardID, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("history: last: %w", err)
	}
	return &e, nil
}

// likeEscaper makes LIKE wildcards in a search query match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns entries whose label, path or card id contains query.
func (db *DB) Search(query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.Query(selectColumns+`
		WHERE label LIKE ? ESCAPE '\' OR path LIKE ? ESCAPE '\' OR card_id LIKE ? ESCAPE '\'
		ORDER BY id DESC
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Label, &e.Path, &e.CardID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
