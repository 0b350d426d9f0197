// Package graphqltest provides shared test doubles for graphql.Executor.
package graphqltest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sterlingconwell/courier-react/internal/graphql"
)

// MockExecutor implements graphql.Executor for testing. Responses are looked
// up by operation name; ExecuteFunc, when set, takes precedence.
type MockExecutor struct {
	mu sync.Mutex

	// Data to return per operation name. Values are marshaled to JSON.
	Data map[string]any

	// Errors to return in the envelope per operation name.
	GraphQLErrors map[string]graphql.Errors

	// Err is returned as a transport error for every call when set.
	Err error

	ExecuteFunc func(context.Context, *graphql.Request) (*graphql.Response, error)

	// Call tracking for assertions
	Requests []*graphql.Request
}

// Compile-time check.
var _ graphql.Executor = (*MockExecutor)(nil)

// NewMockExecutor creates a mock with empty state.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Data:          make(map[string]any),
		GraphQLErrors: make(map[string]graphql.Errors),
	}
}

// Execute records the request and returns the configured response.
func (m *MockExecutor) Execute(ctx context.Context, req *graphql.Request) (*graphql.Response, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn := m.ExecuteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	resp := &graphql.Response{Errors: m.GraphQLErrors[req.OperationName]}
	if data, ok := m.Data[req.OperationName]; ok {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal mock data: %w", err)
		}
		resp.Data = raw
	}
	return resp, nil
}

// Calls returns the number of requests executed so far.
func (m *MockExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request, or nil.
func (m *MockExecutor) LastRequest() *graphql.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}
