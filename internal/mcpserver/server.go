package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Sentinel tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("sentinel", "1.0.0")
	client := NewSentinelClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolGetThreatLog, h.HandleGetThreatLog)
	s.AddTool(ToolGetThreatStats, h.HandleGetThreatStats)
	s.AddTool(ToolGetUserSuspicion, h.HandleGetUserSuspicion)
	s.AddTool(ToolRecentQueries, h.HandleRecentQueries)
	s.AddTool(ToolGetChainStatus, h.HandleGetChainStatus)

	return s
}
