package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/gamewatch/internal/cards"
	"github.com/starford/gamewatch/internal/history"
	"github.com/starford/gamewatch/internal/loadservice"
	"github.com/starford/gamewatch/internal/storage"
	"github.com/starford/gamewatch/internal/testutil"
)

type recordingLoader struct{ paths []string }

func (l *recordingLoader) Load(path string) error {
	l.paths = append(l.paths, path)
	return nil
}

type fixture struct {
	srv    *Server
	state  *storage.State
	db     *history.DB
	loader *recordingLoader
	dir    string
}

func testServer(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store := storage.NewFS(testutil.QuietLogger())
	state := storage.NewState(store, filepath.Join(dir, "LOADED"))
	db := testutil.TestHistory(t)

	ld := &recordingLoader{}
	svc := loadservice.NewService(state, db, cards.Open(filepath.Join(dir, "cardscan.ini")), ld)
	return &fixture{srv: New(svc, "test"), state: state, db: db, loader: ld, dir: dir}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_loaded":
		result, err = srv.getLoaded(ctx, req)
	case "list_history":
		result, err = srv.listHistory(ctx, req)
	case "load_content":
		result, err = srv.loadContent(ctx, req)
	case "list_cards":
		result, err = srv.listCards(ctx, req)
	case "assign_card":
		result, err = srv.assignCard(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetLoaded(t *testing.T) {
	f := testServer(t)

	r := callTool(t, f.srv, "get_loaded", nil)
	if text := resultText(r); text != "nothing loaded" {
		t.Errorf("empty state = %q", text)
	}

	_, _ = f.state.Update("Core|/media/fat/_Console/NES_20230101.rbf")
	r = callTool(t, f.srv, "get_loaded", nil)
	if text := resultText(r); !strings.Contains(text, `"record": "Core|/media/fat/_Console/NES_20230101.rbf"`) {
		t.Errorf("get_loaded = %q", text)
	}
}

func TestLoadContent(t *testing.T) {
	f := testServer(t)
	mra := filepath.Join(f.dir, "pacman.mra")
	if err := os.WriteFile(mra, []byte("<misterromdescription/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, f.srv, "load_content", map[string]interface{}{"path": mra})
	if r.IsError {
		t.Fatalf("load_content error: %s", resultText(r))
	}
	if len(f.loader.paths) != 1 || f.loader.paths[0] != mra {
		t.Errorf("loads = %v", f.loader.paths)
	}

	r = callTool(t, f.srv, "load_content", map[string]interface{}{"path": "pacman.mra"})
	if !r.IsError {
		t.Error("expected error for relative path")
	}
	r = callTool(t, f.srv, "load_content", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing path")
	}
}

func TestListHistory(t *testing.T) {
	f := testServer(t)
	_, _ = f.db.Record(history.Entry{Kind: history.KindLoaded, Label: "Arcade", Path: "/media/fat/_Arcade/pacman.mra"})
	_, _ = f.db.Record(history.Entry{Kind: history.KindCard, CardID: "aa01"})

	r := callTool(t, f.srv, "list_history", map[string]interface{}{"kind": "loaded", "limit": 5})
	text := resultText(r)
	if !strings.Contains(text, "pacman.mra") || strings.Contains(text, "aa01") {
		t.Errorf("list_history = %q", text)
	}
}

func TestAssignAndListCards(t *testing.T) {
	f := testServer(t)

	r := callTool(t, f.srv, "assign_card", map[string]interface{}{
		"id":      "AA01",
		"content": "/media/fat/_Arcade/pacman.mra",
	})
	if r.IsError {
		t.Fatalf("assign_card error: %s", resultText(r))
	}

	r = callTool(t, f.srv, "list_cards", nil)
	if text := resultText(r); !strings.Contains(text, `"id": "aa01"`) {
		t.Errorf("list_cards = %q", text)
	}

	r = callTool(t, f.srv, "assign_card", map[string]interface{}{"id": "aa01"})
	if text := resultText(r); text != "unassigned: aa01" {
		t.Errorf("unassign = %q", text)
	}
}

func TestLoadedResource(t *testing.T) {
	f := testServer(t)
	_, _ = f.state.Update("Arcade|/media/fat/_Arcade/pacman.mra")

	contents, err := f.srv.readLoadedResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.Text != "Arcade|/media/fat/_Arcade/pacman.mra" {
		t.Errorf("resource = %+v", contents)
	}
}
