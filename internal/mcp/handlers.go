package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

const maxLimit = 100

type handlers struct {
	inbox    Inbox
	tabs     []messages.ListSpec
	pageSize int
}

func newHandlers(inbox Inbox, opts Options) *handlers {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = messages.DefaultLimit
	}
	return &handlers{inbox: inbox, tabs: opts.Tabs, pageSize: pageSize}
}

var errUnbound = fmt.Errorf("%w: set client_key and user_id (or token) in config.toml", messages.ErrNotConfigured)

// filterArgs builds filters from the shared filter arguments.
func filterArgs(args map[string]any) (messages.FilterParams, error) {
	var f messages.FilterParams
	if v, ok := args["account_id"].(string); ok {
		f.AccountID = strings.TrimSpace(v)
	}
	if v, ok := args["tags"].(string); ok {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}
	if v, ok := args["is_read"].(bool); ok {
		f.IsRead = &v
	}
	if v, ok := args["since"].(string); ok && v != "" {
		t, err := messages.ParseSince(v, time.Now())
		if err != nil {
			return f, fmt.Errorf("invalid since %q: %w", v, err)
		}
		f = f.Since(t)
	}
	return f, nil
}

func (h *handlers) getMessageCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filters, err := filterArgs(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var params *messages.FilterParams
	if !filters.IsZero() {
		params = &filters
	}

	res, err := h.inbox.MessageCount(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("count failed: %v", err)), nil
	}
	n, ok := res.Get()
	if !ok {
		return mcp.NewToolResultError(errUnbound.Error()), nil
	}
	return jsonResult(map[string]int{"count": n})
}

func (h *handlers) getMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	filters, err := filterArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cursor, _ := args["cursor"].(string)

	params := &messages.MessageParams{
		FilterParams: filters,
		Limit:        limitArg(args, "limit", h.pageSize),
	}
	res, err := h.inbox.Messages(ctx, params, cursor)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetch messages failed: %v", err)), nil
	}
	page, ok := res.Get()
	if !ok {
		return mcp.NewToolResultError(errUnbound.Error()), nil
	}
	return jsonResult(page)
}

func (h *handlers) getMessageLists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	specs := h.tabs
	if raw, ok := args["lists"]; ok && raw != nil {
		parsed, err := listsArg(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		specs = parsed
	}
	if len(specs) == 0 {
		return mcp.NewToolResultError(messages.ErrNoLists.Error()), nil
	}
	if err := messages.ValidateListSpecs(specs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := h.inbox.MessageLists(ctx, specs, limitArg(args, "limit", h.pageSize))
	if err != nil {
		if errors.Is(err, messages.ErrInvalidListID) || errors.Is(err, messages.ErrDuplicateListID) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("fetch lists failed: %v", err)), nil
	}
	lists, ok := res.Get()
	if !ok {
		return mcp.NewToolResultError(errUnbound.Error()), nil
	}
	return jsonResult(lists)
}

// listsArg decodes the lists argument, which arrives as generic JSON.
func listsArg(raw any) ([]messages.ListSpec, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid lists argument: %v", err)
	}
	var specs []messages.ListSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("invalid lists argument: expected [{id, filters}]: %v", err)
	}
	return specs, nil
}

// limitArg reads a positive integer limit, clamped to maxLimit. Missing or
// non-positive values yield def.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok || math.IsNaN(v) || v < 1 {
		return def
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
