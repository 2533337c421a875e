// Package mcptool exposes the prompt router to agents as MCP tools.
//
// Each tool follows the same shape:
//   - a struct holding its dependencies, injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/upb/hydra-router/services"
	routingsvc "github.com/upb/hydra-router/services/routing"
)

// Router is the part of the routing service the tools need
type Router interface {
	Route(ctx context.Context, in routingsvc.RouteInput) (*routingsvc.RouteResult, error)
	RouteWithFallback(ctx context.Context, in routingsvc.RouteInput) (*routingsvc.RouteResult, error)
}

// RouteTool handles the route_prompt MCP tool.
type RouteTool struct {
	router Router
}

// NewRouteTool creates a RouteTool backed by router.
func NewRouteTool(router Router) *RouteTool {
	return &RouteTool{router: router}
}

// Definition returns the MCP tool definition for route_prompt.
func (t *RouteTool) Definition() mcp.Tool {
	return mcp.NewTool("route_prompt",
		mcp.WithDescription(
			"Pick the model tier (FAST, QUALITY or CODE) and model for a prompt. "+
				"Pass available_models to restrict the choice to models that are actually deployed.",
		),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The user prompt to classify"),
		),
		mcp.WithString("system_prompt",
			mcp.Description("Optional system prompt. It is analysed together with the prompt, so it adds to word count, complexity markers and code signals; the greeting check looks at the prompt alone"),
		),
		mcp.WithBoolean("prefer_quality",
			mcp.Description("Bias borderline prompts toward the QUALITY tier"),
		),
		mcp.WithBoolean("prefer_speed",
			mcp.Description("Bias borderline prompts toward the FAST tier"),
		),
		mcp.WithArray("available_models",
			mcp.Description("Models that can serve the request. Omit to skip availability checks."),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the route_prompt tool call.
func (t *RouteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if _, ok := args["prompt"].(string); !ok {
		return mcp.NewToolResultError("'prompt' is required"), nil
	}

	in := routingsvc.RouteInput{
		Prompt:        req.GetString("prompt", ""),
		SystemPrompt:  req.GetString("system_prompt", ""),
		PreferQuality: req.GetBool("prefer_quality", false),
		PreferSpeed:   req.GetBool("prefer_speed", false),
	}

	var (
		res *routingsvc.RouteResult
		err error
	)
	if _, ok := args["available_models"]; ok {
		in.AvailableModels = req.GetStringSlice("available_models", []string{})
		res, err = t.router.RouteWithFallback(ctx, in)
	} else {
		res, err = t.router.Route(ctx, in)
	}
	if err != nil {
		if services.IsUnavailableError(err) {
			return mcp.NewToolResultError(fmt.Sprintf("no available model: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("routing failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatDecision(res)), nil
}

func formatDecision(res *routingsvc.RouteResult) string {
	var sb strings.Builder
	sb.WriteString("## Routing Decision\n\n")
	sb.WriteString(fmt.Sprintf("- **Tier**: %s\n", res.Tier))
	sb.WriteString(fmt.Sprintf("- **Model**: %s\n", res.Model))
	sb.WriteString(fmt.Sprintf("- **Confidence**: %.2f\n", res.Confidence))
	sb.WriteString(fmt.Sprintf("- **Complexity**: %.2f\n", res.Complexity))
	if res.Substituted {
		sb.WriteString(fmt.Sprintf("- **Substituted for**: %s (%s)\n", res.OriginalModel, res.OriginalTier))
	}
	sb.WriteString(fmt.Sprintf("- **Reason**: %s\n", res.Reason))

	// machine-readable copy for agents that parse the result
	if data, err := json.Marshal(res); err == nil {
		sb.WriteString("\n```json\n")
		sb.Write(data)
		sb.WriteString("\n```\n")
	}
	return sb.String()
}
