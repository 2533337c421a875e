package mcptool

import (
	"github.com/mark3labs/mcp-go/server"
	routingsvc "github.com/upb/hydra-router/services/routing"
)

const instructions = `Hydra routes prompts to one of three model tiers.
Call route_prompt before sending a prompt to an LLM and use the returned model.
Call list_tiers to see which models back each tier.`

// NewServer builds an MCP server exposing the routing tools
func NewServer(svc *routingsvc.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"hydra-router",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	routeTool := NewRouteTool(svc)
	s.AddTool(routeTool.Definition(), routeTool.Handle)

	tiersTool := NewTiersTool(svc.Models())
	s.AddTool(tiersTool.Definition(), tiersTool.Handle)

	return s
}
