// Package mcpserver provides an MCP (Model Context Protocol) server that
// lets an assistant see what the host is running and drive it, via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gamewatch/internal/apperr"
	"github.com/starford/gamewatch/internal/history"
	"github.com/starford/gamewatch/internal/loadservice"
)

const loadedURI = "gamewatch://loaded"

// Server wraps the MCP server with gamewatch tools.
type Server struct {
	mcp *server.MCPServer
	svc *loadservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *loadservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"gamewatch",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_loaded",
		mcp.WithDescription("Return the content currently running on the MiSTer as label and absolute path."),
	), s.getLoaded)

	s.mcp.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List recently loaded content and card scans, newest first."),
		mcp.WithString("kind", mcp.Description("Optional filter: loaded or card"), mcp.Enum("loaded", "card")),
		mcp.WithString("query", mcp.Description("Optional text matched against label, path and card id")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 20)")),
	), s.listHistory)

	s.mcp.AddTool(mcp.NewTool("load_content",
		mcp.WithDescription("Ask the MiSTer to load a core (.rbf), arcade (.mra) or descriptor (.mgl) file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path on the MiSTer, e.g. /media/fat/_Arcade/pacman.mra")),
	), s.loadContent)

	s.mcp.AddTool(mcp.NewTool("list_cards",
		mcp.WithDescription("List RFID cards known to the card scanner and the content assigned to each."),
	), s.listCards)

	s.mcp.AddTool(mcp.NewTool("assign_card",
		mcp.WithDescription("Assign content to an RFID card. An empty content unassigns it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Card id as printed by the reader")),
		mcp.WithString("content", mcp.Description("Absolute path of the content to load when the card is scanned")),
	), s.assignCard)

	s.mcp.AddResource(
		mcp.NewResource(loadedURI, "Loaded content",
			mcp.WithResourceDescription("The label|path record of the content currently running."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readLoadedResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getLoaded(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.svc.Loaded(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultText("nothing loaded"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec)
}

func (s *Server) listHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.History(ctx, loadservice.HistoryQuery{
		Kind:  history.Kind(req.GetString("kind", "")),
		Query: req.GetString("query", ""),
		Limit: req.GetInt("limit", 20),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries)
}

func (s *Server) loadContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Load(ctx, loadservice.LoadRequest{Path: path}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("load sent: %s", path)), nil
}

func (s *Server) listCards(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.Cards(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) assignCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content := req.GetString("content", "")
	if err := s.svc.AssignCard(ctx, id, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content == "" {
		return mcp.NewToolResultText(fmt.Sprintf("unassigned: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("assigned: %s -> %s", id, content)), nil
}

func (s *Server) readLoadedResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text := ""
	rec, err := s.svc.Loaded(ctx)
	switch {
	case err == nil:
		text = rec.Record
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      loadedURI,
			MIMEType: "text/plain",
			Text:     text,
		},
	}, nil
}
