package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_RejectsHTTPWithoutAllowInsecure(t *testing.T) {
	_, err := New(Config{URL: "http://api.example.com/client/q"})
	if err == nil {
		t.Fatal("New() should reject http:// without AllowInsecure")
	}
}

func TestNew_AllowsHTTPWithAllowInsecure(t *testing.T) {
	c, err := New(Config{URL: "http://localhost:4000/q", AllowInsecure: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c == nil {
		t.Fatal("New() returned nil client")
	}
}

func TestNew_RejectsEmptyURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() should reject empty URL")
	}
}

func TestNew_RejectsInvalidScheme(t *testing.T) {
	_, err := New(Config{URL: "ftp://api.example.com/q"})
	if err == nil {
		t.Fatal("New() should reject ftp:// scheme")
	}
	if !strings.Contains(err.Error(), "http or https") {
		t.Errorf("error = %q, want mention of http or https", err.Error())
	}
}

func TestNew_RejectsMissingHost(t *testing.T) {
	if _, err := New(Config{URL: "https:///q"}); err == nil {
		t.Fatal("New() should reject URL without host")
	}
}

func TestNew_TrimsTrailingSlashAndDefaultsTimeout(t *testing.T) {
	c, err := New(Config{URL: "https://api.example.com/client/q/"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.URL() != "https://api.example.com/client/q" {
		t.Errorf("URL() = %q, want trailing slash trimmed", c.URL())
	}
	if c.httpClient.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, defaultTimeout)
	}
}

// newTestClient creates a Client pointing at the given httptest server.
func newTestClient(srv *httptest.Server, headers map[string]string) *Client {
	c, _ := New(Config{URL: srv.URL, Headers: headers})
	c.httpClient = srv.Client()
	return c
}

func TestExecute_PostsEnvelopeWithHeaders(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		if got := r.Header.Get("x-courier-client-key"); got != "ck" {
			t.Errorf("x-courier-client-key = %q, want ck", got)
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.OperationName != "MessageCount" {
			t.Errorf("operationName = %q", req.OperationName)
		}
		if req.Variables["limit"] != float64(2) {
			t.Errorf("variables.limit = %v, want 2", req.Variables["limit"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"messageCount":7}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, map[string]string{"x-courier-client-key": "ck"})
	resp, err := c.Execute(context.Background(), &Request{
		Query:         "query MessageCount { messageCount }",
		OperationName: "MessageCount",
		Variables:     map[string]any{"limit": 2},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var out struct {
		MessageCount int `json:"messageCount"`
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.MessageCount != 7 {
		t.Errorf("messageCount = %d, want 7", out.MessageCount)
	}
}

func TestExecute_GraphQLErrorsStayInEnvelope(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"bad filter","path":["messages"]}]}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv, nil).Execute(context.Background(), &Request{Query: "{ x }"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(resp.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(resp.Errors))
	}

	var out map[string]any
	err = resp.Decode(&out)
	var gqlErrs Errors
	if !errors.As(err, &gqlErrs) {
		t.Fatalf("Decode() error = %v, want Errors", err)
	}
	if !strings.Contains(err.Error(), "bad filter (path: messages)") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestExecute_StatusError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{"message body", `{"message":"Unauthorized"}`, "Unauthorized"},
		{"errors body", `{"errors":[{"message":"token expired"}]}`, "token expired"},
		{"plain body", `boom`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv, nil).Execute(context.Background(), &Request{Query: "{ x }"})
			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("Execute() error = %v, want *StatusError", err)
			}
			if statusErr.StatusCode != http.StatusUnauthorized {
				t.Errorf("StatusCode = %d", statusErr.StatusCode)
			}
			if statusErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", statusErr.Message, tt.wantMessage)
			}
			if statusErr.Body != tt.body {
				t.Errorf("Body = %q, want %q", statusErr.Body, tt.body)
			}
		})
	}
}

func TestExecute_ContextCanceled(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv, nil).Execute(ctx, &Request{Query: "{ x }"})
	if err == nil {
		t.Fatal("Execute() with canceled context should fail")
	}
}

func TestResponseDecode_NoData(t *testing.T) {
	for _, raw := range []string{"", "null"} {
		resp := &Response{Data: json.RawMessage(raw)}
		var out map[string]any
		if err := resp.Decode(&out); !errors.Is(err, ErrNoData) {
			t.Errorf("Decode(%q) error = %v, want ErrNoData", raw, err)
		}
	}
}

func TestErrors_Error(t *testing.T) {
	errs := Errors{{Message: "a"}, {Message: "b", Path: []any{"x", float64(0)}}}
	want := "graphql: 2 errors: a; b (path: x.0)"
	if got := errs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
