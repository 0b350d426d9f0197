// Package mcp exposes the inbox read operations as MCP tools over stdio.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

// Tool name constants.
const (
	ToolGetMessageCount = "get_message_count"
	ToolGetMessages     = "get_messages"
	ToolGetMessageLists = "get_message_lists"
)

// Inbox defines the client operations the tools need.
type Inbox interface {
	MessageCount(ctx context.Context, params *messages.FilterParams) (messages.Optional[int], error)
	Messages(ctx context.Context, params *messages.MessageParams, after string) (messages.Optional[messages.Page], error)
	MessageLists(ctx context.Context, specs []messages.ListSpec, limit int) (messages.Optional[map[string]messages.Page], error)
}

// Options configure the tool defaults.
type Options struct {
	// Tabs are fetched by get_message_lists when no lists are given.
	Tabs []messages.ListSpec
	// PageSize is the default limit for pages and lists.
	PageSize int
	Version  string
}

// Filter argument helpers shared by every tool.

func filterOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("account_id",
			mcp.Description("Only messages for this account"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags; messages must carry them"),
		),
		mcp.WithBoolean("is_read",
			mcp.Description("true for read messages only, false for unread only"),
		),
		mcp.WithString("since",
			mcp.Description("Only messages created after this point: a local date (YYYY-MM-DD), an RFC3339 timestamp, or a duration such as 24h"),
		),
	}
}

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum messages per page (default "+defaultDesc+")"),
	)
}

// Serve creates an MCP server with inbox tools and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, inbox Inbox, opts Options) error {
	s := newServer(inbox, opts)
	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func newServer(inbox Inbox, opts Options) *server.MCPServer {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"courier-inbox",
		version,
		server.WithToolCapabilities(false),
	)

	h := newHandlers(inbox, opts)
	s.AddTool(getMessageCountTool(), h.getMessageCount)
	s.AddTool(getMessagesTool(), h.getMessages)
	s.AddTool(getMessageListsTool(), h.getMessageLists)
	return s
}

func getMessageCountTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Count inbox messages matching the filters. Use is_read=false for the unread badge."),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	return mcp.NewTool(ToolGetMessageCount, append(opts, filterOptions()...)...)
}

func getMessagesTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Fetch one page of inbox messages, newest first. Pass the returned startCursor as cursor to fetch the next page; appendMessages is true on continuation pages."),
		mcp.WithReadOnlyHintAnnotation(true),
		withLimit("10"),
		mcp.WithString("cursor",
			mcp.Description("startCursor from a previous page"),
		),
	}
	return mcp.NewTool(ToolGetMessages, append(opts, filterOptions()...)...)
}

func getMessageListsTool() mcp.Tool {
	return mcp.NewTool(ToolGetMessageLists,
		mcp.WithDescription("Fetch several independently filtered message lists in one request, keyed by list id. Without lists, the configured inbox tabs are fetched."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithArray("lists",
			mcp.Description("Lists to fetch: [{\"id\": \"unread\", \"filters\": {\"isRead\": false}}]. Ids must be letters, digits or underscores and unique."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{"type": "string"},
					"filters": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"accountId": map[string]any{"type": "string"},
							"tags":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							"from":      map[string]any{"type": "number"},
							"isRead":    map[string]any{"type": "boolean"},
						},
					},
				},
				"required": []string{"id"},
			}),
		),
		withLimit("10"),
	)
}
