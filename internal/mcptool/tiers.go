package mcptool

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	router "github.com/upb/hydra-router/internal/routing"
)

// TiersTool handles the list_tiers MCP tool.
type TiersTool struct {
	models router.TierModelMap
}

// NewTiersTool creates a TiersTool for the given tier assignments.
func NewTiersTool(models router.TierModelMap) *TiersTool {
	return &TiersTool{models: models.Clone()}
}

// Definition returns the MCP tool definition for list_tiers.
func (t *TiersTool) Definition() mcp.Tool {
	return mcp.NewTool("list_tiers",
		mcp.WithDescription("List each model tier with its canonical model and substitutes."),
	)
}

// Handle processes the list_tiers tool call.
func (t *TiersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	sb.WriteString("## Model Tiers\n\n")
	for _, tier := range router.AllTiers {
		tm := t.models[tier]
		sb.WriteString(fmt.Sprintf("- **%s**: %s", tier, tm.Model))
		if len(tm.Substitutes) > 0 {
			sb.WriteString(fmt.Sprintf(" (substitutes: %s)", strings.Join(tm.Substitutes, ", ")))
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
