package storage

import (
	"errors"
	"io/fs"
)

// State is the persisted last-known-good record: a single line rewritten in
// full whenever it changes.
type State struct {
	store Provider
	path  string
	// writes counts successful rewrites of the file.
	writes int
}

// NewState returns a State kept at path.
func NewState(store Provider, path string) *State {
	return &State{store: store, path: path}
}

// Path returns the location of the state file.
func (s *State) Path() string {
	return s.path
}

// Current returns the persisted record, or "" when none has been written.
func (s *State) Current() (string, error) {
	data, err := s.store.Read(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// Update writes record if it differs byte-for-byte from the persisted one.
// It reports whether a write happened.
func (s *State) Update(record string) (bool, error) {
	cur, err := s.Current()
	if err != nil {
		return false, err
	}
	if cur == record {
		return false, nil
	}
	if err := s.store.Write(s.path, []byte(record)); err != nil {
		return false, err
	}
	s.writes++
	return true, nil
}

// Writes returns how many times Update rewrote the file.
func (s *State) Writes() int {
	return s.writes
}
