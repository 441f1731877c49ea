package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kitazume/personabot/internal/bot"
	"github.com/kitazume/personabot/internal/persona"
	"github.com/kitazume/personabot/internal/storage"
)

// MCPDeps holds dependencies for the operator MCP sidecar.
type MCPDeps struct {
	Store    *storage.Store
	Registry *persona.Registry
}

// NewMCPServer exposes the persona catalog and conversation records as MCP
// tools, so operator agents can inspect and reset bot state without the
// HTTP admin API.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"personabot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("personabot — persona catalog and conversation state of the chat bot."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_personas",
			mcp.WithDescription("List the configured personas with their activation commands and generation parameters."),
		),
		mcpListPersonas(deps),
	)

	s.AddTool(
		mcp.NewTool("get_conversation",
			mcp.WithDescription("Fetch the stored state of a conversation: active persona and message history."),
			mcp.WithString("conversation_id", mcp.Description("Channel conversation identifier"), mcp.Required()),
		),
		mcpGetConversation(deps),
	)

	s.AddTool(
		mcp.NewTool("reset_conversation",
			mcp.WithDescription("Reset a conversation's history to the active persona's system message."),
			mcp.WithString("conversation_id", mcp.Description("Channel conversation identifier"), mcp.Required()),
		),
		mcpResetConversation(deps),
	)

	return s
}

func mcpListPersonas(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Registry.All())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal personas: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetConversation(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("conversation_id")
		if err != nil {
			return mcpError("conversation_id is required"), nil
		}

		state, err := deps.Store.GetConversation(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("conversation %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("loading conversation: %v", err)), nil
		}

		b, err := json.Marshal(state)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal conversation: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResetConversation(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("conversation_id")
		if err != nil {
			return mcpError("conversation_id is required"), nil
		}

		state, err := deps.Store.GetConversation(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("conversation %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("loading conversation: %v", err)), nil
		}

		active, ok := deps.Registry.FindByID(state.PersonaID)
		if !ok {
			return mcpError("conversation has no active persona; nothing to reset"), nil
		}

		state.Messages = []bot.Message{{Role: bot.RoleSystem, Content: active.SystemPrompt}}
		if err := deps.Store.SaveConversation(ctx, id, state); err != nil {
			return mcpError(fmt.Sprintf("saving conversation: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Reset conversation %s to persona %s", id, active.ID)), nil
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
