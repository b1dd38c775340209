package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/composer"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/daily"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/provider"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Models Models
}

// NewMCPServer creates an MCP server exposing the assistant's chat, prompt
// rendering and model management as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"personal-assistant",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Personal assistant backed by Mistral. Pass the user's daily data as a JSON context object."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("render_context",
			mcp.WithDescription("Render a daily context JSON object into the system prompt sent to the model."),
			mcp.WithString("context", mcp.Description("Daily context as a JSON object string"), mcp.Required()),
		),
		mcpRenderContext(deps),
	)

	s.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Ask the active model, grounding the answer in the user's daily context."),
			mcp.WithString("messages", mcp.Description("JSON array of {role, content} message objects"), mcp.Required()),
			mcp.WithString("context", mcp.Description("Daily context as a JSON object string")),
		),
		mcpChat(deps),
	)

	s.AddTool(
		mcp.NewTool("list_models",
			mcp.WithDescription("List configured models with live availability."),
		),
		mcpListModels(deps),
	)

	s.AddTool(
		mcp.NewTool("switch_model",
			mcp.WithDescription("Make the named model active if it is reachable."),
			mcp.WithString("model_name", mcp.Description("Model identifier, e.g. mistral-small-latest"), mcp.Required()),
		),
		mcpSwitchModel(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"system://info",
			"System Info",
			mcp.WithResourceDescription("Host facts and the active model"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSystemInfo(deps),
	)

	return s
}

func parseDailyContext(raw string) (daily.Context, error) {
	var dc daily.Context
	if raw == "" {
		return dc, nil
	}
	if err := json.Unmarshal([]byte(raw), &dc); err != nil {
		return dc, fmt.Errorf("invalid context JSON: %w", err)
	}
	return dc, nil
}

func mcpRenderContext(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("context")
		if err != nil {
			return mcpError("context is required"), nil
		}
		dc, err := parseDailyContext(raw)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(composer.New().SystemPrompt(dc)), nil
	}
}

func mcpChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		messagesJSON, err := req.RequireString("messages")
		if err != nil {
			return mcpError("messages is required"), nil
		}
		var messages []provider.Message
		if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
			return mcpError(fmt.Sprintf("invalid messages JSON: %v", err)), nil
		}
		dc, err := parseDailyContext(req.GetString("context", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		active, ok := deps.Models.Current()
		if !ok || !active.Handle.IsAvailable(ctx) {
			return mcpError("Текущая модель недоступна. Проверьте подключение к Mistral API."), nil
		}

		reply, err := generate(ctx, active.Handle, messages, dc)
		if err != nil {
			return mcpError(fmt.Sprintf("Ошибка генерации: %v", err)), nil
		}
		return mcpText(reply), nil
	}
}

func mcpListModels(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Models.ListAvailable(ctx))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal models: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSwitchModel(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("model_name")
		if err != nil || name == "" {
			return mcpError("model_name is required"), nil
		}
		if !deps.Models.SwitchTo(ctx, name) {
			return mcpError(fmt.Sprintf("Не удалось переключиться на модель %s", name)), nil
		}
		return mcpText(fmt.Sprintf("Модель переключена на %s", name)), nil
	}
}

func mcpResourceSystemInfo(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Models.SystemInfo(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal system info: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
