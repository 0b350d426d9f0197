package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/sterlingconwell/courier-react/internal/messages"
	"github.com/sterlingconwell/courier-react/internal/textutil"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// useJSON reports whether output to w should be JSON rather than a table.
func useJSON(w io.Writer) bool {
	return jsonOutput || !isTerminal(w)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// column is a table column with a maximum display width in terminal cells.
// A zero max leaves the column unbounded.
type column struct {
	title string
	max   int
}

// writeTable prints rows aligned by display width, so wide runes (CJK,
// emoji) do not break alignment.
func writeTable(w io.Writer, cols []column, rows [][]string) error {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.title)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(cols))
		for i := range cols {
			var cell string
			if i < len(row) {
				cell = flatten(row[i])
			}
			if m := cols[i].max; m > 0 && runewidth.StringWidth(cell) > m {
				cell = runewidth.Truncate(cell, m, "...")
			}
			cells[r][i] = cell
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	writeRow := func(row []string) error {
		var b strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
		return err
	}

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.title
	}
	if err := writeRow(header); err != nil {
		return err
	}
	for _, row := range cells {
		if err := writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// flatten strips terminal escapes and removes line breaks that would split
// a table row.
func flatten(s string) string {
	s = textutil.Sanitize(s)
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\t", " ")
}

var messageColumns = []column{
	{title: " ", max: 1},
	{title: "CREATED", max: 16},
	{title: "TITLE", max: 40},
	{title: "BODY", max: 50},
	{title: "TAGS", max: 24},
	{title: "ID", max: 0},
}

func messageRows(msgs []messages.Message) [][]string {
	rows := make([][]string, len(msgs))
	for i, m := range msgs {
		marker := " "
		if !m.IsRead() {
			marker = "*"
		}
		rows[i] = []string{
			marker,
			m.Created.Local().Format("2006-01-02 15:04"),
			m.Content.Title,
			m.Content.Body,
			strings.Join(m.Tags, ","),
			m.MessageID,
		}
	}
	return rows
}

// printMessages prints msgs as a table followed by a continuation hint.
func printMessages(w io.Writer, msgs []messages.Message, cursor string) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(w, "You have no notifications at this time")
		return err
	}
	if err := writeTable(w, messageColumns, messageRows(msgs)); err != nil {
		return err
	}
	if cursor != "" {
		_, err := fmt.Fprintf(w, "\nNext cursor: %s\n", cursor)
		return err
	}
	return nil
}

// formatAge renders how long ago t was, for status output.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t).Round(time.Second)
	if d < 0 {
		return "in " + (-d).String()
	}
	return d.String() + " ago"
}
