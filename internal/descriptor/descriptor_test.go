package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/gamewatch/internal/apperr"
)

func TestParseBytes_CoreOnly(t *testing.T) {
	d, err := ParseBytes([]byte(`<mistergamedescription><rbf>_Console/SNES</rbf></mistergamedescription>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Core != "_Console/SNES" {
		t.Errorf("core = %q", d.Core)
	}
	if d.HasROM() {
		t.Errorf("expected no rom, got %q", d.ROM)
	}
}

func TestParseBytes_CoreAndROM(t *testing.T) {
	input := `<?xml version="1.0"?>
<mistergamedescription>
	<rbf>_Console/SNES</rbf>
	<file delay="2" type="f" index="0" path="games/SNES/mario.sfc"/>
</mistergamedescription>`
	d, err := ParseBytes([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Core != "_Console/SNES" || d.ROM != "games/SNES/mario.sfc" {
		t.Errorf("got %+v", d)
	}
}

func TestParseBytes_FileWithoutPath(t *testing.T) {
	d, err := ParseBytes([]byte(`<x><rbf>NES</rbf><file index="0"/></x>`))
	if err != nil {
		t.Fatalf("missing path attribute should not be an error: %v", err)
	}
	if d.HasROM() {
		t.Error("expected no rom")
	}
}

func TestParseBytes_MultipleFiles(t *testing.T) {
	d, err := ParseBytes([]byte(`<mistergamedescription><rbf>_Console/PSX</rbf><file path="games/PSX/disc1.chd"/><file path="games/PSX/memcard.sav"/></mistergamedescription>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ROM != "games/PSX/disc1.chd" {
		t.Errorf("rom = %q, want first file", d.ROM)
	}

	d, err = ParseBytes([]byte(`<x><rbf>PSX</rbf><file index="0"/><file path="games/PSX/memcard.sav"/></x>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.HasROM() {
		t.Errorf("first file has no path, expected no rom, got %q", d.ROM)
	}
}

func TestParseBytes_Errors(t *testing.T) {
	cases := map[string]string{
		"missing rbf": `<x><file path="a.nes"/></x>`,
		"empty rbf":   `<x><rbf>  </rbf></x>`,
		"malformed":   `<x><rbf>NES</x>`,
		"no root":     ``,
		"plain text":  `just some text`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBytes([]byte(input))
			if !errors.Is(err, apperr.ErrParse) {
				t.Errorf("err = %v, want ErrParse", err)
			}
		})
	}
}

func TestParse_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "snes.mgl")
	if err := os.WriteFile(p, []byte(`<mistergamedescription><rbf>SNES</rbf></mistergamedescription>`), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Parse(p)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Core != "SNES" {
		t.Errorf("core = %q", d.Core)
	}
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.mgl"))
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}
