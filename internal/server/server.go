// Package server exposes the agent's diagnostic surface as an MCP server,
// so operator tooling can query and toggle the agent while it runs.
package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/autoshare/internal/service"
	"github.com/mj1618/autoshare/internal/version"
)

// Config holds MCP server configuration.
type Config struct {
	Transport string // "stdio" or "streamable-http"
	Port      int
}

// Server wraps the MCP server around a running agent.
type Server struct {
	svc *service.Service
	mcp *mcpserver.MCPServer
}

// New creates the MCP server with all diagnostic tools registered.
func New(svc *service.Service) *Server {
	s := &Server{
		svc: svc,
		mcp: mcpserver.NewMCPServer("autoshare", version.Version),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server with the configured transport. Blocks until
// the transport shuts down.
func (s *Server) Serve(cfg Config) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("status",
			mcp.WithDescription("Current agent state: enabled flag, flow step, and counters"),
		),
		s.handleStatus,
	)
	s.mcp.AddTool(
		mcp.NewTool("enable",
			mcp.WithDescription("Turn automatic acceptance on"),
		),
		s.handleEnable,
	)
	s.mcp.AddTool(
		mcp.NewTool("disable",
			mcp.WithDescription("Turn automatic acceptance off; the watcher keeps running"),
		),
		s.handleDisable,
	)
	s.mcp.AddTool(
		mcp.NewTool("check",
			mcp.WithDescription("Classify the current device snapshot against every known dialog shape and return the evidence reports"),
		),
		s.handleCheck,
	)
}

func toYAML(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func (s *Server) handleStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(toYAML(s.svc.Status())), nil
}

func (s *Server) handleEnable(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.svc.Enable()
	return mcp.NewToolResultText(toYAML(s.svc.Status())), nil
}

func (s *Server) handleDisable(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.svc.Disable()
	return mcp.NewToolResultText(toYAML(s.svc.Status())), nil
}

func (s *Server) handleCheck(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reports, err := s.svc.Check(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check failed: %v", err)), nil
	}
	return mcp.NewToolResultText(toYAML(reports)), nil
}
