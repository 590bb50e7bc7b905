package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/gamewatch/internal/apperr"
	"github.com/starford/gamewatch/internal/resolver"
	"github.com/starford/gamewatch/internal/selection"
	"github.com/starford/gamewatch/internal/storage"
)

// testEnv is a fake host: a content library under base and the indicator
// files under tmp.
type testEnv struct {
	base     string
	tmp      string
	paths    storage.IndicatorPaths
	sentinel string
	fs       *storage.FS
	state    *storage.State
	notifier *selection.ChanNotifier
	logger   *slog.Logger
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	tmp := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	fs := storage.NewFS(logger)
	return &testEnv{
		base: t.TempDir(),
		tmp:  tmp,
		paths: storage.IndicatorPaths{
			FullPath:    filepath.Join(tmp, "FULLPATH"),
			CurrentPath: filepath.Join(tmp, "CURRENTPATH"),
			StartPath:   filepath.Join(tmp, "STARTPATH"),
			CoreName:    filepath.Join(tmp, "CORENAME"),
		},
		sentinel: filepath.Join(tmp, "FILESELECT"),
		fs:       fs,
		state:    storage.NewState(fs, filepath.Join(tmp, "LOADED")),
		notifier: selection.NewChanNotifier(),
		logger:   logger,
	}
}

func (e *testEnv) write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// content creates a file in the library and returns its absolute path.
func (e *testEnv) content(t *testing.T, rel, data string) string {
	t.Helper()
	p := filepath.Join(e.base, rel)
	e.write(t, p, data)
	return p
}

func (e *testEnv) engine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	w := selection.NewWatcher(e.notifier, e.fs, e.sentinel, e.logger)
	r := resolver.New(e.base, resolver.WithLogger(e.logger))
	opts = append([]Option{WithLogger(e.logger)}, opts...)
	return New(w, r, e.fs, e.state, e.paths, opts...)
}

func (e *testEnv) persisted(t *testing.T) string {
	t.Helper()
	cur, err := e.state.Current()
	if err != nil {
		t.Fatal(err)
	}
	return cur
}

func TestProcess_UnchangedDoesNothing(t *testing.T) {
	env := newEnv(t)
	env.write(t, env.paths.StartPath, "_Console/SNES")
	calls := 0
	eng := env.engine(t, WithListener(func(LoadedRecord, bool) { calls++ }))

	out := eng.Process()
	if out.Status != StatusUnchanged {
		t.Errorf("status = %s, want unchanged", out.Status)
	}
	if calls != 0 || env.state.Writes() != 0 {
		t.Errorf("unexpected emission: calls=%d writes=%d", calls, env.state.Writes())
	}
	if _, err := os.Stat(env.state.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Error("state file should not exist")
	}
}

func TestProcess_ExtensionClassification(t *testing.T) {
	env := newEnv(t)
	rbf := env.content(t, "_Console/game.rbf", "")
	mra := env.content(t, "_Arcade/game.mra", "")
	nes := env.content(t, "games/NES/game.nes", "")
	env.write(t, env.paths.CoreName, "NES")
	eng := env.engine(t)

	cases := []struct {
		indicator string
		value     string
		want      LoadedRecord
	}{
		{env.paths.StartPath, rbf, LoadedRecord{Label: LabelCore, Path: rbf}},
		{env.paths.StartPath, mra, LoadedRecord{Label: LabelArcade, Path: mra}},
		{env.paths.CurrentPath, nes, LoadedRecord{Label: "NES", Path: nes}},
	}
	for _, tc := range cases {
		env.write(t, tc.indicator, tc.value)
		out := eng.Process()
		if out.Status != StatusEmitted || out.Record != tc.want {
			t.Errorf("%s: got %s %+v, want %+v", filepath.Base(tc.value), out.Status, out.Record, tc.want)
		}
		if got := env.persisted(t); got != tc.want.String() {
			t.Errorf("persisted = %q, want %q", got, tc.want.String())
		}
	}
}

func TestProcess_ResolvesRelativeFragment(t *testing.T) {
	env := newEnv(t)
	nes := env.content(t, "games/NES/Zelda.nes", "")
	env.write(t, env.paths.CoreName, "NES")
	eng := env.engine(t)

	env.write(t, env.paths.FullPath, "games/NES")
	env.write(t, env.paths.CurrentPath, "Zelda")

	out := eng.Process()
	want := LoadedRecord{Label: "NES", Path: nes}
	if out.Record != want {
		t.Errorf("record = %+v, want %+v", out.Record, want)
	}
}

func TestProcess_StartTakesPriority(t *testing.T) {
	env := newEnv(t)
	core := env.content(t, "_Console/NES_20240101.rbf", "")
	rom := env.content(t, "games/NES/mario.nes", "")
	env.write(t, env.paths.CoreName, "NES")
	eng := env.engine(t)

	env.write(t, env.paths.StartPath, core)
	env.write(t, env.paths.CurrentPath, rom)

	out := eng.Process()
	if out.Record.Path != core || out.Record.Label != LabelCore {
		t.Errorf("record = %+v, want start path core", out.Record)
	}
	if snap := eng.Snapshot(); snap.StartPath != core || snap.CurrentPath != rom {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestProcess_DescriptorCoreOnly(t *testing.T) {
	env := newEnv(t)
	core := env.content(t, "SNES_20240101.rbf", "")
	env.content(t, "_Shortcuts/SNES.mgl", `<mistergamedescription><rbf>SNES</rbf></mistergamedescription>`)
	eng := env.engine(t)

	env.write(t, env.paths.FullPath, "_Shortcuts")
	env.write(t, env.paths.StartPath, "SNES")

	out := eng.Process()
	want := LoadedRecord{Label: LabelCore, Path: core}
	if out.Status != StatusEmitted || out.Record != want {
		t.Errorf("got %s %+v, want %+v", out.Status, out.Record, want)
	}
}

func TestProcess_DescriptorWithROM(t *testing.T) {
	env := newEnv(t)
	env.content(t, "SNES_20240101.rbf", "")
	rom := env.content(t, "games/SNES/mario.sfc", "")
	mgl := env.content(t, "_Shortcuts/Mario.mgl", `<mistergamedescription>
	<rbf>SNES</rbf>
	<file delay="2" type="f" index="0" path="games/SNES/mario.sfc"/>
</mistergamedescription>`)
	eng := env.engine(t)

	env.write(t, env.paths.StartPath, mgl)

	out := eng.Process()
	want := LoadedRecord{Label: "SNES", Path: rom}
	if out.Record != want {
		t.Errorf("record = %+v, want %+v", out.Record, want)
	}
	if got := env.persisted(t); got != "SNES|"+rom {
		t.Errorf("persisted = %q", got)
	}
}

func TestProcess_DescriptorLabelUsesCoreBaseName(t *testing.T) {
	env := newEnv(t)
	rom := env.content(t, "games/GBA/metroid.gba", "")
	mgl := env.content(t, "metroid.mgl", `<x><rbf>_Console/GBA</rbf><file path="games/GBA/metroid.gba"/></x>`)
	eng := env.engine(t)

	env.write(t, env.paths.StartPath, mgl)
	if out := eng.Process(); out.Record != (LoadedRecord{Label: "GBA", Path: rom}) {
		t.Errorf("record = %+v", out.Record)
	}
}

func TestProcess_FailuresLeaveStateIntact(t *testing.T) {
	env := newEnv(t)
	env.write(t, env.state.Path(), "Core|/media/fat/menu.rbf")
	bad := env.content(t, "broken.mgl", `<mistergamedescription><file path="x"/>`)
	dangling := env.content(t, "dangling.mgl", `<x><rbf>SNES</rbf><file path="games/SNES/missing.sfc"/></x>`)
	eng := env.engine(t)

	cases := []struct {
		value  string
		status Status
		err    error
	}{
		{"does-not-exist", StatusNotFound, apperr.ErrNotFound},
		{bad, StatusParseError, apperr.ErrParse},
		{dangling, StatusNotFound, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		env.write(t, env.paths.StartPath, tc.value)
		out := eng.Process()
		if out.Status != tc.status || !errors.Is(out.Err, tc.err) {
			t.Errorf("%s: got %s (%v), want %s", filepath.Base(tc.value), out.Status, out.Err, tc.status)
		}
		if got := env.persisted(t); got != "Core|/media/fat/menu.rbf" {
			t.Errorf("%s: state changed to %q", filepath.Base(tc.value), got)
		}
	}
	if env.state.Writes() != 0 {
		t.Errorf("writes = %d, want 0", env.state.Writes())
	}
}

func TestProcess_UnresolvableValueIsNotRetried(t *testing.T) {
	env := newEnv(t)
	eng := env.engine(t)

	env.write(t, env.paths.StartPath, "ghost")
	if out := eng.Process(); out.Status != StatusNotFound {
		t.Fatalf("status = %s, want not_found", out.Status)
	}
	if out := eng.Process(); out.Status != StatusUnchanged {
		t.Errorf("second wake-up status = %s, want unchanged", out.Status)
	}
}

func TestProcess_MissingCoreNameSkipsContent(t *testing.T) {
	env := newEnv(t)
	nes := env.content(t, "games/NES/mario.nes", "")
	eng := env.engine(t)

	env.write(t, env.paths.CurrentPath, nes)
	if out := eng.Process(); out.Status != StatusNoLabel {
		t.Errorf("status = %s, want no_label", out.Status)
	}
	if env.persisted(t) != "" {
		t.Error("nothing should be persisted without a label")
	}
}

func TestProcess_RepeatedSelectionWritesOnce(t *testing.T) {
	env := newEnv(t)
	nes := env.content(t, "games/NES/mario.nes", "")
	env.write(t, env.paths.CoreName, "NES")
	env.write(t, env.paths.FullPath, "games/NES")

	var mu sync.Mutex
	var written []bool
	eng := env.engine(t, WithListener(func(_ LoadedRecord, w bool) {
		mu.Lock()
		written = append(written, w)
		mu.Unlock()
	}))

	// Three different spellings of the same selection.
	for _, v := range []string{"mario", "mario.nes", nes} {
		env.write(t, env.paths.CurrentPath, v)
		out := eng.Process()
		if out.Status != StatusEmitted {
			t.Fatalf("%s: status = %s", v, out.Status)
		}
	}

	if env.state.Writes() != 1 {
		t.Errorf("writes = %d, want 1", env.state.Writes())
	}
	if got := env.persisted(t); got != "NES|"+nes {
		t.Errorf("persisted = %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(written) != 3 || !written[0] || written[1] || written[2] {
		t.Errorf("listener written flags = %v, want [true false false]", written)
	}
}

func TestRun_ProcessesSelectionsUntilCancelled(t *testing.T) {
	env := newEnv(t)
	rbf := env.content(t, "_Console/NES_20240101.rbf", "")
	env.write(t, env.sentinel, "")
	eng := env.engine(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	env.write(t, env.paths.StartPath, rbf)
	env.write(t, env.sentinel, selection.Selected)
	env.notifier.Fire()

	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		cur, _ := env.state.Current()
		return cur == "Core|"+rbf
	}, "record not persisted by Run")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_NotifierFailureEndsLoop(t *testing.T) {
	env := newEnv(t)
	eng := env.engine(t)
	_ = env.notifier.Close()

	err := eng.Run(context.Background())
	if !errors.Is(err, selection.ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestParseRecord(t *testing.T) {
	rec, ok := ParseRecord("SNES|/media/fat/games/SNES/a|b.sfc\n")
	if !ok || rec.Label != "SNES" || rec.Path != "/media/fat/games/SNES/a|b.sfc" {
		t.Errorf("got %+v, %v", rec, ok)
	}
	if _, ok := ParseRecord("garbage"); ok {
		t.Error("expected failure without separator")
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
