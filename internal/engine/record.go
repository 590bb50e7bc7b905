package engine

import "strings"

// Fixed labels for records that are not content loaded into a core.
const (
	LabelCore   = "Core"
	LabelArcade = "Arcade"
)

// File extensions with a dedicated classification.
const (
	extCore   = ".rbf"
	extArcade = ".mra"
)

// LoadedRecord describes what is running. It persists as "label|path".
type LoadedRecord struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// String returns the canonical persisted form.
func (r LoadedRecord) String() string {
	return r.Label + "|" + r.Path
}

// ParseRecord splits a persisted "label|path" line. The label never contains
// '|' so everything after the first one is the path.
func ParseRecord(s string) (LoadedRecord, bool) {
	label, path, ok := strings.Cut(strings.TrimRight(s, "\r\n"), "|")
	if !ok || label == "" || path == "" {
		return LoadedRecord{}, false
	}
	return LoadedRecord{Label: label, Path: path}, true
}

// Status is the reason a single wake-up ended the way it did.
type Status string

// Wake-up outcomes.
const (
	StatusUnchanged  Status = "unchanged"
	StatusNotFound   Status = "not_found"
	StatusParseError Status = "parse_error"
	StatusNoLabel    Status = "no_label"
	StatusWriteError Status = "write_error"
	StatusEmitted    Status = "emitted"
)

// Outcome is the result of processing one wake-up.
type Outcome struct {
	Status Status
	Record LoadedRecord
	// Written is true when the persisted record was rewritten.
	Written bool
	Err     error
}
