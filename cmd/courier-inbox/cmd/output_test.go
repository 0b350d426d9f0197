package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/sterlingconwell/courier-react/internal/messages"
	"github.com/sterlingconwell/courier-react/internal/testutil"
)

func TestWriteTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	cols := []column{{title: "NAME", max: 10}, {title: "VALUE"}}
	rows := [][]string{
		{"日本語", "1"},
		{"abc", "2"},
		{"a\nb", "3"},
	}
	if err := writeTable(&buf, cols, rows); err != nil {
		t.Fatalf("writeTable() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	// The value column starts at the same display offset on every row.
	var offsets []int
	for _, line := range lines[1:] {
		idx := strings.LastIndex(line, " ")
		offsets = append(offsets, runewidth.StringWidth(line[:idx+1]))
	}
	for _, off := range offsets[1:] {
		if off != offsets[0] {
			t.Errorf("value column offsets = %v, want equal", offsets)
			break
		}
	}
	if !strings.HasPrefix(lines[3], "a b") {
		t.Errorf("newline not flattened: %q", lines[3])
	}
}

func TestWriteTableTruncates(t *testing.T) {
	var buf bytes.Buffer
	cols := []column{{title: "T", max: 8}, {title: "X"}}
	if err := writeTable(&buf, cols, [][]string{{"abcdefghijklmnop", "x"}}); err != nil {
		t.Fatalf("writeTable() error = %v", err)
	}
	if !strings.Contains(buf.String(), "abcde...") {
		t.Errorf("expected truncated cell, got:\n%s", buf.String())
	}
}

func TestUseJSONForNonTerminal(t *testing.T) {
	saved := jsonOutput
	defer func() { jsonOutput = saved }()

	jsonOutput = false
	if !useJSON(&bytes.Buffer{}) {
		t.Error("non-terminal writer should use JSON")
	}
	if isTerminal(&bytes.Buffer{}) {
		t.Error("buffer is not a terminal")
	}
}

func TestPrintMessages(t *testing.T) {
	msgs := []messages.Message{
		testutil.NewMessage("1").WithTitle("Welcome").WithTags("onboarding").Build(),
		testutil.NewMessage("2").WithTitle("Read one").WithRead(true).Build(),
	}

	var buf bytes.Buffer
	if err := printMessages(&buf, msgs, "cur-9"); err != nil {
		t.Fatalf("printMessages() error = %v", err)
	}
	out := buf.String()
	testutil.AssertContainsAll(t, out, []string{"TITLE", "Welcome", "onboarding", "msg-1", "Next cursor: cur-9"})

	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[1], "*") {
		t.Errorf("unread row should be marked: %q", lines[1])
	}
	if strings.HasPrefix(lines[2], "*") {
		t.Errorf("read row should not be marked: %q", lines[2])
	}
}

func TestPrintMessagesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := printMessages(&buf, nil, ""); err != nil {
		t.Fatalf("printMessages() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "You have no notifications at this time" {
		t.Errorf("empty output = %q", got)
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-90 * time.Second), "1m30s ago"},
		{now.Add(5 * time.Minute), "in 5m0s"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.t, now); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}
