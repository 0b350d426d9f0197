// Package graphql provides a minimal GraphQL-over-HTTP client used to talk to
// the hosted inbox backend.
package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoData is returned by Response.Decode when the server answered without
// errors but also without a data object.
var ErrNoData = eris.New("graphql response has no data")

// Request is a single GraphQL operation.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is the standard GraphQL response envelope.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors Errors          `json:"errors,omitempty"`
}

// Decode unmarshals the data object into v. Any GraphQL errors in the
// envelope take precedence and are returned as an Errors value, so a batch
// with one failing selection fails as a whole.
func (r *Response) Decode(v any) error {
	if len(r.Errors) > 0 {
		return r.Errors
	}
	data := strings.TrimSpace(string(r.Data))
	if data == "" || data == "null" {
		return ErrNoData
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return eris.Wrap(err, "decode graphql data")
	}
	return nil
}

// Error is one entry of the "errors" array.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e Error) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("%s (path: %s)", e.Message, strings.Join(parts, "."))
}

// Errors is the "errors" array of a response. It implements error so it can
// be returned directly.
type Errors []Error

func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return "graphql: no errors"
	case 1:
		return "graphql: " + e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("graphql: %d errors: %s", len(e), strings.Join(msgs, "; "))
}

// Executor runs GraphQL operations. Implementations must be safe for
// concurrent use.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req *Request) (*Response, error)

// Execute calls f(ctx, req).
func (f ExecutorFunc) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
