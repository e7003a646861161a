// Package mcp exposes stored scenes to MCP clients as tools and resources.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// sceneURIPrefix addresses a scene resource: espalier://scenes/{id}.
const sceneURIPrefix = "espalier://scenes/"

// Server exposes a session.Manager as an MCP server.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		logger:   logging.NewNop(),
		mcpServer: server.NewMCPServer("espalier-mcp", strings.TrimSpace(espalier.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+hostPort(addr)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func hostPort(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_scenes",
		mcp.WithDescription("List the ids of the stored scenes."),
	), s.handleListScenes)

	s.mcpServer.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List the data model names nodes can be created from."),
	), s.handleListModels)

	sceneID := mcp.WithString("scene_id", mcp.Required(), mcp.Description("The id of the scene"))

	s.mcpServer.AddTool(mcp.NewTool("get_scene",
		mcp.WithDescription("Get the stored record of a scene: nodes with model state and position, and connections."),
		sceneID,
	), s.handleGetScene)

	s.mcpServer.AddTool(mcp.NewTool("render_mermaid",
		mcp.WithDescription("Render a scene as a Mermaid flowchart."),
		sceneID,
	), s.handleRenderMermaid)

	s.mcpServer.AddTool(mcp.NewTool("validate_scene",
		mcp.WithDescription("Check that every port entry and connection of a scene agree."),
		sceneID,
	), s.handleValidateScene)
}

func (s *Server) handleListScenes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(ids)
}

func (s *Server) handleListModels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sessions.Registry().Names())
}

func (s *Server) handleGetScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("scene_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.sessions.Store().Load(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	return jsonResult(rec)
}

func (s *Server) handleRenderMermaid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("scene_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.sessions.Store().Load(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(rec, nil)), nil
}

// ValidationResult is the validate_scene payload.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func (s *Server) handleValidateScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("scene_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sc, err := s.sessions.Open(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open failed: %v", err)), nil
	}
	result := ValidationResult{Valid: true}
	if err := sc.Validate(); err != nil {
		s.logger.Debug("MCP: scene failed validation", "scene_id", id, "error", err)
		result.Valid = false
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				result.Errors = append(result.Errors, e.Error())
			}
		} else {
			result.Errors = []string{err.Error()}
		}
	}
	return jsonResult(result)
}

func (s *Server) registerResources() {
	// EXPOSE: espalier://scenes/{id}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(sceneURIPrefix+"{id}", "Stored Scene",
		mcp.WithTemplateDescription("The stored record of a scene"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.handleReadScene)
}

func (s *Server) handleReadScene(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id, ok := strings.CutPrefix(uri, sceneURIPrefix)
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid scene uri %q", uri)
	}
	rec, err := s.sessions.Store().Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(errors.New("failed to encode result"), err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
