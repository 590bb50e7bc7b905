// Package descriptor parses .mgl load descriptors: small XML documents that
// name a core (<rbf>) and optionally a content file to load with it (<file>).
package descriptor

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/starford/gamewatch/internal/apperr"
)

// Ext is the file extension of a load descriptor.
const Ext = ".mgl"

// LoadDescriptor is the parsed content of a descriptor file.
type LoadDescriptor struct {
	// Core is the text of the <rbf> element, e.g. "_Console/SNES".
	Core string
	// ROM is the path attribute of the first <file> element; empty when the
	// descriptor only loads a core.
	ROM string
}

// HasROM reports whether the descriptor references content.
func (d *LoadDescriptor) HasROM() bool {
	return d.ROM != ""
}

type document struct {
	XMLName xml.Name
	RBF     *struct {
		Text string `xml:",chardata"`
	} `xml:"rbf"`
	Files []struct {
		Path string `xml:"path,attr"`
	} `xml:"file"`
}

// Parse reads and parses the descriptor at path.
func Parse(path string) (*LoadDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: read %s: %v: %w", path, err, apperr.ErrParse)
	}
	d, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", path, err)
	}
	return d, nil
}

// ParseBytes parses descriptor content. A missing or empty <rbf> element is
// an error; a missing <file> element or path attribute is not. Only the
// first <file> is considered.
func ParseBytes(data []byte) (*LoadDescriptor, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed xml: %v: %w", err, apperr.ErrParse)
	}
	if doc.RBF == nil {
		return nil, fmt.Errorf("missing <rbf> element: %w", apperr.ErrParse)
	}
	core := strings.TrimSpace(doc.RBF.Text)
	if core == "" {
		return nil, fmt.Errorf("empty <rbf> element: %w", apperr.ErrParse)
	}

	d := &LoadDescriptor{Core: core}
	if len(doc.Files) > 0 {
		d.ROM = strings.TrimSpace(doc.Files[0].Path)
	}
	return d, nil
}
