package resolver

import (
	"bufio"
	"encoding/xml"
	"log/slog"
	"os"
	"strings"
)

// NamesFile is the host's names.txt: one "name:alias" pair per line.
// The file is read on every lookup because the host may rewrite it.
type NamesFile struct {
	Path   string
	Logger *slog.Logger
}

// Lookup returns the core name whose alias equals alias.
func (n NamesFile) Lookup(alias string) (string, bool) {
	f, err := os.Open(n.Path)
	if err != nil {
		logger(n.Logger).Debug("names: unavailable", slog.String("path", n.Path), slog.String("error", err.Error()))
		return "", false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name, a, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(a) == alias {
			return strings.TrimSpace(name), true
		}
	}
	return "", false
}

// RomsetCatalog is an XML catalog of <romset name="..." altname="..."/>
// entries, as shipped for the NeoGeo core.
type RomsetCatalog struct {
	Path   string
	Logger *slog.Logger
}

type romsetDoc struct {
	Romsets []struct {
		Name    string `xml:"name,attr"`
		AltName string `xml:"altname,attr"`
	} `xml:"romset"`
}

// Lookup returns the romset name registered under altname.
func (c RomsetCatalog) Lookup(altname string) (string, bool) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		logger(c.Logger).Debug("romsets: unavailable", slog.String("path", c.Path), slog.String("error", err.Error()))
		return "", false
	}
	var doc romsetDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		logger(c.Logger).Warn("romsets: cannot parse", slog.String("path", c.Path), slog.String("error", err.Error()))
		return "", false
	}
	for _, rs := range doc.Romsets {
		if rs.AltName == altname && rs.Name != "" {
			return rs.Name, true
		}
	}
	return "", false
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
