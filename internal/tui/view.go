package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sterlingconwell/courier-react/internal/messages"
	"github.com/sterlingconwell/courier-react/internal/textutil"
)

// Empty and end-of-list copy shown in the message area.
const (
	emptyStateText = "You have no notifications at this time"
	endOfListText  = "End Of The Road"
)

// Monochrome theme, adaptive for light and dark terminals.
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}
	fgMuted  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}

	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Reverse(true).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(fgMuted).
				Padding(0, 1)

	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	unreadRowStyle = lipgloss.NewStyle().
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(fgMuted)

	detailStyle = lipgloss.NewStyle().
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	centerStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(fgMuted)

	footerStyle = lipgloss.NewStyle().
			Foreground(fgMuted).
			Padding(0, 1)
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	timeColWidth = 10
	minTitleCol  = 12
)

func (m Model) viewWidth() int {
	if m.width > 0 {
		return m.width
	}
	return defaultWidth
}

func (m Model) viewHeight() int {
	if m.height > 0 {
		return m.height
	}
	return defaultHeight
}

// visibleRows returns how many message rows fit between the chrome.
func (m Model) visibleRows() int {
	// title, tabs, separator, status/end line, footer
	used := 5
	if m.showDetail {
		used += 3
	}
	if n := m.viewHeight() - used; n > 1 {
		return n
	}
	return 1
}

// clampScroll keeps the cursor of the active tab inside the visible window.
func (m *Model) clampScroll() {
	ts := m.activeTab()
	if ts == nil {
		return
	}
	rows := m.visibleRows()
	if ts.cursor < ts.scrollOffset {
		ts.scrollOffset = ts.cursor
	}
	if ts.cursor >= ts.scrollOffset+rows {
		ts.scrollOffset = ts.cursor - rows + 1
	}
	if ts.scrollOffset < 0 {
		ts.scrollOffset = 0
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.tabBarView())
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.viewWidth())))
	b.WriteString("\n")
	b.WriteString(m.bodyView())
	if m.showDetail {
		b.WriteString(m.detailView())
	}
	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) spinnerIndicator() string {
	if !m.busy() {
		return ""
	}
	return spinnerFrames[m.spinnerFrame%len(spinnerFrames)]
}

func (m Model) headerView() string {
	title := "Inbox"
	if m.unreadKnown && m.unread > 0 {
		title += " " + badgeStyle.Render(fmt.Sprintf("%d", m.unread))
	}
	right := m.spinnerIndicator()
	if m.version != "" {
		right = strings.TrimSpace(right + " courier-inbox " + m.version)
	}
	width := m.viewWidth()
	gap := width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return titleBarStyle.Render(padRight(title+strings.Repeat(" ", gap)+right, width-2))
}

func (m Model) tabBarView() string {
	parts := make([]string, len(m.tabs))
	for i, ts := range m.tabs {
		label := ts.tab.DisplayLabel()
		if ts.loaded && ts.total > 0 {
			label = fmt.Sprintf("%s (%d)", label, ts.total)
		}
		if i == m.active {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = inactiveTabStyle.Render(label)
		}
	}
	return padRight(strings.Join(parts, " "), m.viewWidth())
}

// bodyView renders the message rows plus the status line beneath them.
func (m Model) bodyView() string {
	rows := m.visibleRows()
	width := m.viewWidth()
	var lines []string

	ts := m.activeTab()
	switch {
	case m.unbound:
		lines = append(lines, centerStyle.Render("Inbox client not configured. Run 'courier-inbox setup'."))
	case m.err != nil && (ts == nil || !ts.loaded):
		lines = append(lines, errorStyle.Render("Error: "+truncateRunes(textutil.FirstLine(m.err.Error()), width-8)))
	case ts == nil || (!ts.loaded && m.loading):
		lines = append(lines, centerStyle.Render("Loading..."))
	case len(ts.messages) == 0:
		lines = append(lines, centerStyle.Render(emptyStateText))
	default:
		end := ts.scrollOffset + rows
		if end > len(ts.messages) {
			end = len(ts.messages)
		}
		for i := ts.scrollOffset; i < end; i++ {
			lines = append(lines, m.messageRow(ts.messages[i], i == ts.cursor, width))
		}
	}

	for len(lines) < rows {
		lines = append(lines, "")
	}
	lines = append(lines, m.statusLine(width))
	return strings.Join(lines, "\n") + "\n"
}

// statusLine is the line under the rows: an error, the loading-more spinner,
// or the end-of-list marker.
func (m Model) statusLine(width int) string {
	ts := m.activeTab()
	switch {
	case m.err != nil && ts != nil && ts.loaded:
		return errorStyle.Render("Error: " + truncateRunes(textutil.FirstLine(m.err.Error()), width-8))
	case ts != nil && ts.loadingMore:
		return mutedStyle.Render(m.spinnerIndicator() + " Loading more...")
	case m.showEndOfList():
		return centerStyle.Render(lipgloss.PlaceHorizontal(width, lipgloss.Center, endOfListText))
	}
	return ""
}

func (m Model) messageRow(msg messages.Message, selected bool, width int) string {
	marker := "  "
	if !msg.IsRead() {
		marker = "● "
	}
	when := formatRelative(msg.Created, m.now())
	tags := formatTags(msg.Tags)

	avail := width - lipgloss.Width(marker) - timeColWidth - 1
	if tags != "" {
		tags = truncateRunes(tags, avail/4)
		avail -= lipgloss.Width(tags) + 1
	}
	titleWidth := avail / 2
	if titleWidth < minTitleCol {
		titleWidth = avail
	}
	title := truncateRunes(msg.Content.Title, titleWidth)
	snippet := truncateRunes(bodyText(msg), avail-lipgloss.Width(title)-2)

	line := marker + title
	if snippet != "" {
		line += "  " + mutedStyle.Render(snippet)
	}
	if tags != "" {
		line += " " + mutedStyle.Render(tags)
	}
	line = padRight(line, width-timeColWidth) + fmt.Sprintf("%*s", timeColWidth, when)

	switch {
	case selected:
		return cursorRowStyle.Render(padRight(line, width))
	case !msg.IsRead():
		return unreadRowStyle.Render(line)
	}
	return line
}

// detailView shows the selected message's body and its action blocks.
func (m Model) detailView() string {
	width := m.viewWidth() - 4
	msg, ok := m.selectedMessage()
	lines := []string{"", "", ""}
	if ok {
		lines[0] = truncateRunes(msg.Content.Title, width)
		lines[1] = truncateRunes(bodyText(msg), width)
		if actions := formatActions(msg); actions != "" {
			lines[2] = "Actions: " + truncateRunes(actions, width-9)
		}
	}
	for i := range lines {
		lines[i] = detailStyle.Render(lines[i])
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) footerView() string {
	return footerStyle.Render(m.help.View(m.keys))
}
