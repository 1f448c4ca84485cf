// Package mcp exposes the decision engine to AI agents as MCP tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/auto-decide/internal/engine"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes engine tools.
type Server struct {
	engine  *engine.Engine
	mcp     *server.MCPServer
	records *RecordDeps
}

// NewServer creates a new MCP server over the given engine.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{engine: eng}

	s.mcp = server.NewMCPServer(
		"autodecide",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(getEngineStatusTool, s.handleGetEngineStatus)
	s.mcp.AddTool(controlEngineTool, s.handleControlEngine)
	s.mcp.AddTool(listDecisionsTool, s.handleListDecisions)
	s.mcp.AddTool(getDecisionTool, s.handleGetDecision)
	s.mcp.AddTool(evaluateDecisionTool, s.handleEvaluateDecision)
	s.mcp.AddTool(executeDecisionTool, s.handleExecuteDecision)
	s.mcp.AddTool(updateCriteriaTool, s.handleUpdateCriteria)
	s.mcp.AddTool(generatePreviewTool, s.handleGeneratePreview)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
