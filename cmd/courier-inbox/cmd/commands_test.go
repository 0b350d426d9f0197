package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/courier"
	"github.com/sterlingconwell/courier-react/internal/messages"
	"github.com/sterlingconwell/courier-react/internal/testutil"
)

// gqlRequest is the body the client posts to the backend.
type gqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// fakeBackend answers GraphQL requests with data chosen by operation name.
type fakeBackend struct {
	mu       sync.Mutex
	data     map[string]any
	requests []gqlRequest
	headers  []http.Header
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.headers = append(b.headers, r.Header.Clone())
	data := b.data[req.OperationName]
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (b *fakeBackend) last(t *testing.T) (gqlRequest, http.Header) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		t.Fatal("backend received no requests")
	}
	return b.requests[len(b.requests)-1], b.headers[len(b.headers)-1]
}

// setupCommandTest points the package config at a fake backend and restores
// the globals afterwards. Tests using it must not run in parallel.
func setupCommandTest(t *testing.T, data map[string]any) *fakeBackend {
	t.Helper()
	backend := &fakeBackend{data: data}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	savedCfg, savedLogger, savedJSON := cfg, logger, jsonOutput
	t.Cleanup(func() {
		cfg, logger, jsonOutput = savedCfg, savedLogger, savedJSON
	})

	c := config.NewDefaultConfig()
	c.HomeDir = t.TempDir()
	c.Client.APIURL = srv.URL
	c.Client.AllowInsecure = true
	c.Client.ClientKey = "ck"
	c.Client.UserID = "user-1"
	c.Inbox.PageSize = 4
	cfg = c
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	jsonOutput = false
	return backend
}

// runCommand invokes run with a command whose output is captured.
func runCommand(t *testing.T, run func(*cobra.Command, []string) error) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	c.SetContext(context.Background())
	err := run(c, nil)
	return buf.String(), err
}

func TestCountCommand(t *testing.T) {
	backend := setupCommandTest(t, map[string]any{
		messages.OpMessageCount: map[string]any{"messageCount": 4},
	})
	saved := countFilters
	t.Cleanup(func() { countFilters = saved })
	countFilters = filterFlags{unread: true}

	out, err := runCommand(t, runCount)
	if err != nil {
		t.Fatalf("runCount() error = %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got["count"] != 4 {
		t.Errorf("count = %d, want 4", got["count"])
	}

	req, hdr := backend.last(t)
	params, _ := req.Variables["params"].(map[string]any)
	if diff := cmp.Diff(map[string]any{"isRead": false}, params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if hdr.Get(courier.HeaderClientKey) != "ck" || hdr.Get(courier.HeaderUserID) != "user-1" {
		t.Errorf("missing credential headers: %v", hdr)
	}
}

func TestMessagesCommandAll(t *testing.T) {
	// The fake always returns the same cursor, so --all must stop on the loop.
	setupCommandTest(t, map[string]any{
		messages.OpGetMessages: map[string]any{
			"messages": testutil.Connection("c1", testutil.Messages("m", 2)...),
		},
	})
	saved := []any{messagesFilters, messagesLimit, messagesAfter, messagesAll}
	t.Cleanup(func() {
		messagesFilters = saved[0].(filterFlags)
		messagesLimit = saved[1].(int)
		messagesAfter = saved[2].(string)
		messagesAll = saved[3].(bool)
	})
	messagesFilters, messagesLimit, messagesAfter, messagesAll = filterFlags{}, 2, "", true

	_, err := runCommand(t, runMessages)
	if !errors.Is(err, messages.ErrCursorLoop) {
		t.Fatalf("runMessages() error = %v, want ErrCursorLoop", err)
	}
}

func TestMessagesCommandPage(t *testing.T) {
	backend := setupCommandTest(t, map[string]any{
		messages.OpGetMessages: map[string]any{
			"messages": testutil.Connection("", testutil.Messages("m", 3)...),
		},
	})
	saved := []any{messagesFilters, messagesLimit, messagesAfter, messagesAll}
	t.Cleanup(func() {
		messagesFilters = saved[0].(filterFlags)
		messagesLimit = saved[1].(int)
		messagesAfter = saved[2].(string)
		messagesAll = saved[3].(bool)
	})
	messagesFilters, messagesLimit, messagesAfter, messagesAll = filterFlags{tags: []string{"t"}}, 3, "prev", false

	out, err := runCommand(t, runMessages)
	if err != nil {
		t.Fatalf("runMessages() error = %v", err)
	}
	var page messages.Page
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !page.AppendMessages || len(page.Messages) != 3 {
		t.Errorf("page = append %v, %d messages; want append true, 3", page.AppendMessages, len(page.Messages))
	}

	req, _ := backend.last(t)
	if req.Variables["after"] != "prev" {
		t.Errorf("after = %v, want prev", req.Variables["after"])
	}
	if req.Variables["limit"] != float64(3) {
		t.Errorf("limit = %v, want 3", req.Variables["limit"])
	}
}

func TestListsCommand(t *testing.T) {
	backend := setupCommandTest(t, map[string]any{
		messages.OpGetMessageLists: map[string]any{
			"unread": testutil.Connection("", testutil.Messages("u", 1)...),
			"all":    testutil.Connection("c", testutil.Messages("a", 2)...),
		},
	})
	savedLimit, savedTabs := listsLimit, listsTabs
	t.Cleanup(func() { listsLimit, listsTabs = savedLimit, savedTabs })
	listsLimit, listsTabs = 0, nil

	out, err := runCommand(t, runLists)
	if err != nil {
		t.Fatalf("runLists() error = %v", err)
	}
	var got map[string]messages.Page
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(got["unread"].Messages) != 1 || len(got["all"].Messages) != 2 {
		t.Errorf("unexpected pages: %+v", got)
	}
	if got["all"].StartCursor != "c" {
		t.Errorf("all cursor = %q, want c", got["all"].StartCursor)
	}

	req, _ := backend.last(t)
	if req.Variables["limit"] != float64(4) {
		t.Errorf("limit = %v, want configured page size 4", req.Variables["limit"])
	}
	if !strings.Contains(req.Query, "unread: messages(") || !strings.Contains(req.Query, "all: messages(") {
		t.Errorf("query missing aliases:\n%s", req.Query)
	}
}

func TestListsCommandRejectsBadTabBeforeRequest(t *testing.T) {
	backend := setupCommandTest(t, nil)
	savedLimit, savedTabs := listsLimit, listsTabs
	t.Cleanup(func() { listsLimit, listsTabs = savedLimit, savedTabs })
	listsLimit, listsTabs = 0, []string{"ok", "ok"}

	if _, err := runCommand(t, runLists); err == nil {
		t.Fatal("duplicate tab ids should be rejected")
	}
	backend.mu.Lock()
	n := len(backend.requests)
	backend.mu.Unlock()
	if n != 0 {
		t.Errorf("backend received %d requests, want 0", n)
	}
}

func TestCommandsRequireConfiguredClient(t *testing.T) {
	setupCommandTest(t, nil)
	cfg.Client.ClientKey = ""
	cfg.Client.UserID = ""
	cfg.Client.Token = ""

	for name, run := range map[string]func(*cobra.Command, []string) error{
		"count":    runCount,
		"messages": runMessages,
		"lists":    runLists,
		"watch":    runWatch,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := runCommand(t, run)
			if !errors.Is(err, messages.ErrNotConfigured) {
				t.Fatalf("error = %v, want ErrNotConfigured", err)
			}
			if !strings.Contains(err.Error(), "courier-inbox setup") {
				t.Errorf("error should mention setup: %v", err)
			}
		})
	}
}

func TestClientParams(t *testing.T) {
	c := config.NewDefaultConfig()
	c.Client.ClientKey = "k"
	c.Client.UserID = "u"
	c.Client.Token = "tok"
	c.Client.ClientSourceID = "src"
	c.Client.TimeoutSeconds = 5
	c.Client.AllowInsecure = true

	p := clientParams(c)
	if p.Mode() != courier.ModeToken {
		t.Errorf("Mode() = %q, want token", p.Mode())
	}
	if p.Authorization != "tok" || p.ClientKey != "k" || p.UserID != "u" || p.ClientSourceID != "src" {
		t.Errorf("unexpected params: %+v", p)
	}
	if p.Timeout.Seconds() != 5 || !p.AllowInsecure {
		t.Errorf("timeout/insecure not mapped: %+v", p)
	}
}
