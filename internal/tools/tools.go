// Package tools exposes the orchestrator's request kinds as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/ghpanel/internal/logger"
	"github.com/leonardcser/ghpanel/internal/orchestrator"
	"github.com/leonardcser/ghpanel/internal/settings"
)

// Handler is the subset of the orchestrator the tools call. Tool arguments
// are turned into the same raw messages the orchestrator decodes.
type Handler interface {
	HandleRaw(ctx context.Context, raw []byte) orchestrator.Envelope
}

// Register adds one tool per request kind to s.
func Register(s *server.MCPServer, h Handler) {
	s.AddTool(mcp.NewTool(orchestrator.TypeGetSettings,
		mcp.WithDescription("Returns the saved dashboard settings, or the defaults when none are saved"),
	), GetSettingsHandler(h))

	s.AddTool(mcp.NewTool(orchestrator.TypeSaveSettings,
		mcp.WithDescription(multiline(
			"Validates and saves the dashboard settings",
			"\nUsage notes:",
			"- settings is a JSON object: {\"panels\":[{\"kind\",\"title\",\"enabled\",\"limit\"}],\"cache_ttl_seconds\",\"show_archived\"}",
			"- Panel kinds are repositories, issues and projects; limit is 0 to 100",
		)),
		mcp.WithString("settings", mcp.Required(), mcp.Description("The settings as a JSON object")),
	), SaveSettingsHandler(h))

	s.AddTool(mcp.NewTool(orchestrator.TypeSaveToken,
		mcp.WithDescription("Saves the GitHub token, uses it for later requests and clears cached data"),
		mcp.WithString("token", mcp.Required(), mcp.Description("A GitHub personal access token")),
	), SaveTokenHandler(h))

	s.AddTool(mcp.NewTool(orchestrator.TypeValidateToken,
		mcp.WithDescription("Checks the saved token against the GitHub API and reports the authenticated user"),
	), ValidateTokenHandler(h))

	s.AddTool(mcp.NewTool(orchestrator.TypeGetData,
		mcp.WithDescription(multiline(
			"Returns dashboard data, served from a 5-minute cache when fresh",
			"\nKinds:",
			"- repositories: grouped by organization; personal repositories have an empty key and the label \"Personal\"",
			"- issues: issues and pull requests mentioning you",
			"- projects: classic projects; empty when unavailable",
			"- all: the user, organizations and every section at once",
		)),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Enum(string(settings.KindRepositories), string(settings.KindIssues), string(settings.KindProjects), string(settings.KindAll)),
			mcp.Description("The section to return"),
		),
	), GetDataHandler(h))

	s.AddTool(mcp.NewTool(orchestrator.TypeRefreshData,
		mcp.WithDescription("Drops all cached data; the next get-data call refetches from GitHub"),
	), RefreshDataHandler(h))
}

func GetSettingsHandler(h Handler) server.ToolHandlerFunc {
	return handle(h, func(mcp.CallToolRequest) (message, error) {
		return message{"type": orchestrator.TypeGetSettings}, nil
	})
}

func SaveSettingsHandler(h Handler) server.ToolHandlerFunc {
	return handle(h, func(req mcp.CallToolRequest) (message, error) {
		raw, err := req.RequireString("settings")
		if err != nil {
			return nil, err
		}
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("%w: settings is not valid JSON", settings.ErrInvalidSettings)
		}
		return message{"type": orchestrator.TypeSaveSettings, "settings": json.RawMessage(raw)}, nil
	})
}

func SaveTokenHandler(h Handler) server.ToolHandlerFunc {
	return handle(h, func(req mcp.CallToolRequest) (message, error) {
		token, err := req.RequireString("token")
		if err != nil {
			return nil, err
		}
		return message{"type": orchestrator.TypeSaveToken, "token": token}, nil
	})
}

func ValidateTokenHandler(h Handler) server.ToolHandlerFunc {
	return handle(h, func(mcp.CallToolRequest) (message, error) {
		return message{"type": orchestrator.TypeValidateToken}, nil
	})
}

func GetDataHandler(h Handler) server.ToolHandlerFunc {
	return handle(h, func(req mcp.CallToolRequest) (message, error) {
		kind, err := req.RequireString("kind")
		if err != nil {
			return nil, err
		}
		return message{"type": orchestrator.TypeGetData, "kind": kind}, nil
	})
}

func RefreshDataHandler(h Handler) server.ToolHandlerFunc {
	return handle(h, func(mcp.CallToolRequest) (message, error) {
		return message{"type": orchestrator.TypeRefreshData}, nil
	})
}

// message is a raw orchestrator message before encoding.
type message map[string]any

// handle builds the message, runs it and renders the envelope. Failed
// envelopes become tool errors.
func handle(h Handler, build func(mcp.CallToolRequest) (message, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		m, err := build(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw, err := json.Marshal(m)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		env := h.HandleRaw(ctx, raw)
		if !env.Success {
			return mcp.NewToolResultError(env.Error), nil
		}
		b, err := json.Marshal(env)
		if err != nil {
			logger.Errorf("tools: encoding %s result: %v", req.Params.Name, err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }
