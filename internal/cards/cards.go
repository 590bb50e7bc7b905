// Package cards manages the card table: an ini file holding the serial
// reader settings and the card-id to content mapping.
//
//	[SERIAL]
//	port = /dev/ttyUSB0
//	speed = 9600
//
//	[CARDS]
//	04a2b3c4 = "/media/fat/_Arcade/pacman.mra"
package cards

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/ini.v1"

	"github.com/starford/gamewatch/internal/apperr"
)

const (
	sectionSerial = "SERIAL"
	sectionCards  = "CARDS"

	defaultPort  = "/dev/ttyUSB0"
	defaultSpeed = 9600
)

// Card is one entry of the mapping. An empty Content means the card is
// known but not assigned.
type Card struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// SerialConfig holds the card reader settings.
type SerialConfig struct {
	Port  string
	Speed int
}

// Validate validates the serial configuration.
func (c *SerialConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Speed, validation.Required, validation.In(
			1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200)),
	)
}

// Table is the card table file. It is re-read on every call so edits made
// by hand while the scanner runs are picked up.
type Table struct {
	path string
	// mu serialises read-modify-write cycles within this process.
	mu sync.Mutex
}

// Open returns the Table stored at path. The file need not exist yet.
func Open(path string) *Table {
	return &Table{path: path}
}

// Path returns the location of the table file.
func (t *Table) Path() string {
	return t.path
}

func (t *Table) load() (*ini.File, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Loose:           true,
		InsensitiveKeys: true,
	}, t.path)
	if err != nil {
		return nil, fmt.Errorf("cards: load %s: %w", t.path, err)
	}
	return f, nil
}

func (t *Table) save(f *ini.File) error {
	if err := f.SaveTo(t.path); err != nil {
		return fmt.Errorf("cards: save %s: %w", t.path, err)
	}
	return nil
}

// EnsureDefaults adds the [SERIAL] defaults and an empty [CARDS] section
// when they are missing, then saves the file.
func (t *Table) EnsureDefaults() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.load()
	if err != nil {
		return err
	}
	serial := f.Section(sectionSerial)
	if !serial.HasKey("port") {
		serial.Key("port").SetValue(defaultPort)
	}
	if !serial.HasKey("speed") {
		serial.Key("speed").SetValue(fmt.Sprint(defaultSpeed))
	}
	f.Section(sectionCards)
	return t.save(f)
}

// Serial returns the validated reader settings.
func (t *Table) Serial() (SerialConfig, error) {
	f, err := t.load()
	if err != nil {
		return SerialConfig{}, err
	}
	s := f.Section(sectionSerial)
	cfg := SerialConfig{
		Port:  s.Key("port").MustString(defaultPort),
		Speed: s.Key("speed").MustInt(defaultSpeed),
	}
	if err := cfg.Validate(); err != nil {
		return SerialConfig{}, fmt.Errorf("cards: serial settings: %w", err)
	}
	return cfg, nil
}

// Lookup returns the content assigned to id. known is false when the card
// has never been seen.
func (t *Table) Lookup(id string) (content string, known bool, err error) {
	f, err := t.load()
	if err != nil {
		return "", false, err
	}
	sec := f.Section(sectionCards)
	key := normalizeID(id)
	if !sec.HasKey(key) {
		return "", false, nil
	}
	return unquote(sec.Key(key).String()), true, nil
}

// Register records id with no content so it can be assigned later. Known
// ids are left alone.
func (t *Table) Register(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.load()
	if err != nil {
		return err
	}
	sec := f.Section(sectionCards)
	key := normalizeID(id)
	if key == "" {
		return fmt.Errorf("cards: empty card id: %w", apperr.ErrInvalidInput)
	}
	if sec.HasKey(key) {
		return nil
	}
	sec.Key(key).SetValue("")
	return t.save(f)
}

// Assign maps id to content, replacing any previous assignment.
func (t *Table) Assign(id, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := normalizeID(id)
	if key == "" {
		return fmt.Errorf("cards: empty card id: %w", apperr.ErrInvalidInput)
	}
	f, err := t.load()
	if err != nil {
		return err
	}
	f.Section(sectionCards).Key(key).SetValue(content)
	return t.save(f)
}

// List returns every card, sorted by id.
func (t *Table) List() ([]Card, error) {
	f, err := t.load()
	if err != nil {
		return nil, err
	}
	keys := f.Section(sectionCards).Keys()
	out := make([]Card, 0, len(keys))
	for _, k := range keys {
		out = append(out, Card{ID: k.Name(), Content: unquote(k.String())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// normalizeID lowercases ids the way the ini key lookup does.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func unquote(v string) string {
	return strings.Trim(strings.TrimSpace(v), `"`)
}
