// Package messages implements the inbox read operations: message counts,
// cursor-paginated message pages, and batched multi-list queries.
package messages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sterlingconwell/courier-react/internal/graphql"
)

var (
	// ErrCursorLoop is returned by Walk when the backend hands back a cursor
	// it already returned.
	ErrCursorLoop = errors.New("pagination cursor repeated")
	// ErrNotConfigured is what callers report when a read came back empty
	// from an unbound client.
	ErrNotConfigured = errors.New("inbox client not configured")
)

// Client runs inbox queries against a GraphQL executor. A Client without an
// executor is unbound: every read returns an empty Optional without I/O.
// Client is safe for concurrent use.
type Client struct {
	exec   graphql.Executor
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client over exec. exec may be nil.
func NewClient(exec graphql.Executor, opts ...Option) *Client {
	c := &Client{
		exec:   exec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bound reports whether the client can issue requests.
func (c *Client) Bound() bool {
	return c != nil && c.exec != nil
}

func (c *Client) run(ctx context.Context, doc Document, out any) error {
	resp, err := c.exec.Execute(ctx, doc.Request())
	if err != nil {
		return fmt.Errorf("execute %s: %w", doc.OperationName, err)
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("%s: %w", doc.OperationName, err)
	}
	return nil
}

// MessageCount returns the number of messages matching params.
func (c *Client) MessageCount(ctx context.Context, params *FilterParams) (Optional[int], error) {
	if !c.Bound() {
		return None[int](), nil
	}

	var data struct {
		MessageCount *int `json:"messageCount"`
	}
	if err := c.run(ctx, BuildMessageCount(params), &data); err != nil {
		return None[int](), err
	}
	if data.MessageCount == nil {
		return None[int](), fmt.Errorf("%s: response missing messageCount", OpMessageCount)
	}
	return Some(*data.MessageCount), nil
}

// Messages returns one page of messages matching params. Passing the
// StartCursor of a previous page as after continues from it, and the
// returned page then has AppendMessages set.
func (c *Client) Messages(ctx context.Context, params *MessageParams, after string) (Optional[Page], error) {
	if !c.Bound() {
		return None[Page](), nil
	}

	var data struct {
		Messages *connection `json:"messages"`
	}
	if err := c.run(ctx, BuildGetMessages(params, after), &data); err != nil {
		return None[Page](), err
	}
	if data.Messages == nil {
		return None[Page](), fmt.Errorf("%s: response missing messages", OpGetMessages)
	}

	page := data.Messages.page(after != "")
	c.logger.Debug("fetched messages page",
		"count", len(page.Messages),
		"append", page.AppendMessages,
		"has_cursor", page.StartCursor != "",
	)
	return Some(page), nil
}

// MessageLists fetches every list in one round trip, keyed by list id. The
// batch is all-or-nothing: invalid or duplicate ids are rejected before any
// request, and any error reported by the backend fails the whole call.
// No specs yields an empty Optional without a request, even when bound.
func (c *Client) MessageLists(ctx context.Context, specs []ListSpec, limit int) (Optional[map[string]Page], error) {
	if !c.Bound() || len(specs) == 0 {
		return None[map[string]Page](), nil
	}

	doc, err := BuildMessageLists(specs, limit)
	if err != nil {
		return None[map[string]Page](), err
	}

	var data map[string]*connection
	if err := c.run(ctx, doc, &data); err != nil {
		return None[map[string]Page](), err
	}

	out := make(map[string]Page, len(doc.Aliases))
	for _, alias := range doc.Aliases {
		conn, ok := data[alias]
		if !ok || conn == nil {
			return None[map[string]Page](), fmt.Errorf("%s: response missing list %q", OpGetMessageLists, alias)
		}
		out[alias] = conn.page(false)
	}
	return Some(out), nil
}

// Walk follows cursors from the first page until the backend reports no
// continuation, calling fn for each page. Returning an error from fn stops
// the walk. An unbound client calls fn zero times.
func (c *Client) Walk(ctx context.Context, params *MessageParams, fn func(Page) error) error {
	seen := make(map[string]bool)
	after := ""
	for {
		res, err := c.Messages(ctx, params, after)
		if err != nil {
			return err
		}
		page, ok := res.Get()
		if !ok {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		if page.Exhausted() {
			return nil
		}
		if seen[page.StartCursor] {
			return fmt.Errorf("%w: %q", ErrCursorLoop, page.StartCursor)
		}
		seen[page.StartCursor] = true
		after = page.StartCursor
	}
}
