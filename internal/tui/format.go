package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/sterlingconwell/courier-react/internal/messages"
	"github.com/sterlingconwell/courier-react/internal/textutil"
)

// padRight pads s with spaces to exactly width terminal cells, truncating
// ANSI-aware when s is wider.
func padRight(s string, width int) string {
	sw := lipgloss.Width(s)
	if sw >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateRunes truncates a string to fit within maxWidth terminal cells.
// Control characters that would break the row layout are flattened first.
func truncateRunes(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	s = textutil.Sanitize(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")

	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// formatRelative renders t relative to now the way the inbox shows
// timestamps: "now", minutes, hours, days, then a calendar date.
func formatRelative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	case t.Year() == now.Year():
		return t.Local().Format("Jan 2")
	default:
		return t.Local().Format("Jan 2 2006")
	}
}

// formatTags renders tags as a compact "#a #b" list.
func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = "#" + t
	}
	return strings.Join(parts, " ")
}

// formatActions renders a message's action blocks in render order.
func formatActions(msg messages.Message) string {
	actions := msg.Actions()
	if len(actions) == 0 {
		return ""
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		if a.URL == "" {
			parts[i] = "[" + a.Text + "]"
			continue
		}
		parts[i] = fmt.Sprintf("[%s] %s", a.Text, a.URL)
	}
	return strings.Join(parts, "  ")
}

// bodyText returns the displayable body: the body field, or the text blocks
// joined when the body is empty.
func bodyText(msg messages.Message) string {
	if msg.Content.Body != "" {
		return msg.Content.Body
	}
	var parts []string
	for _, b := range msg.Content.Blocks {
		if b.Type == messages.BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}
