// Package tui provides a terminal inbox for courier messages.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

// endOfListThreshold is the number of loaded messages above which an
// exhausted list shows the end-of-list marker.
const endOfListThreshold = 5

// requestTimeout bounds each backend call made from the UI.
const requestTimeout = 30 * time.Second

// Inbox is the subset of the messages client the UI reads from.
type Inbox interface {
	MessageCount(ctx context.Context, params *messages.FilterParams) (messages.Optional[int], error)
	Messages(ctx context.Context, params *messages.MessageParams, after string) (messages.Optional[messages.Page], error)
	MessageLists(ctx context.Context, specs []messages.ListSpec, limit int) (messages.Optional[map[string]messages.Page], error)
}

// Options configures the inbox model.
type Options struct {
	Tabs     []config.Tab
	PageSize int
	Version  string
}

// tabState holds the loaded messages and scroll position of one tab.
type tabState struct {
	tab          config.Tab
	messages     []messages.Message
	startCursor  string
	total        int
	loaded       bool
	loadingMore  bool
	cursor       int
	scrollOffset int

	// moreRequestID discards load-more pages superseded by a refresh. Paging
	// one tab must not invalidate another tab's request.
	moreRequestID uint64
}

// exhausted reports whether there are no further pages to fetch.
func (t *tabState) exhausted() bool {
	return t.startCursor == ""
}

// apply merges a fetched page into the tab.
func (t *tabState) apply(p messages.Page) {
	if p.AppendMessages {
		t.messages = append(t.messages, p.Messages...)
	} else {
		t.messages = p.Messages
		t.cursor = 0
		t.scrollOffset = 0
	}
	t.startCursor = p.StartCursor
	t.total = p.TotalCount
	t.loaded = true
}

// Model is the bubbletea model for the inbox.
type Model struct {
	inbox    Inbox
	tabs     []tabState
	active   int
	pageSize int
	version  string
	keys     keyMap
	help     help.Model
	now      func() time.Time

	unread      int
	unreadKnown bool
	unbound     bool

	width  int
	height int

	loading      bool
	err          error
	spinnerFrame int
	showDetail   bool
	quitting     bool

	// Request IDs discard responses that were superseded by a refresh.
	loadRequestID  uint64
	countRequestID uint64
}

// Message types
type listsLoadedMsg struct {
	pages     map[string]messages.Page
	bound     bool
	err       error
	requestID uint64
}

type unreadCountMsg struct {
	count     int
	bound     bool
	err       error
	requestID uint64
}

type moreLoadedMsg struct {
	tab       int
	page      messages.Page
	bound     bool
	err       error
	requestID uint64
}

type spinnerTickMsg struct{}

// spinnerFrames are Braille dots cycled while a request is in flight.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// New creates a new inbox model. Tabs default to config.DefaultTabs.
func New(inbox Inbox, opts Options) Model {
	tabs := opts.Tabs
	if len(tabs) == 0 {
		tabs = config.DefaultTabs()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = messages.DefaultLimit
	}
	states := make([]tabState, len(tabs))
	for i, t := range tabs {
		states[i] = tabState{tab: t}
	}
	return Model{
		inbox:    inbox,
		tabs:     states,
		pageSize: pageSize,
		version:  opts.Version,
		keys:     defaultKeyMap(),
		help:     help.New(),
		now:      time.Now,
		loading:  true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadLists(),
		m.loadUnreadCount(),
		spinnerTick(),
	)
}

// specs returns the batched list specs for all tabs, in tab order.
func (m Model) specs() []messages.ListSpec {
	specs := make([]messages.ListSpec, len(m.tabs))
	for i, t := range m.tabs {
		specs[i] = messages.ListSpec{ID: t.tab.ID, Filters: t.tab.Filters()}
	}
	return specs
}

// loadLists fetches the first page of every tab in one batched request.
func (m Model) loadLists() tea.Cmd {
	specs := m.specs()
	limit := m.pageSize
	requestID := m.loadRequestID
	inbox := m.inbox

	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = listsLoadedMsg{err: fmt.Errorf("load lists panic: %v", r), requestID: requestID}
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := inbox.MessageLists(ctx, specs, limit)
		if err != nil {
			return listsLoadedMsg{err: err, requestID: requestID}
		}
		pages, ok := res.Get()
		return listsLoadedMsg{pages: pages, bound: ok, requestID: requestID}
	}
}

// loadUnreadCount fetches the header badge count.
func (m Model) loadUnreadCount() tea.Cmd {
	requestID := m.countRequestID
	inbox := m.inbox

	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = unreadCountMsg{err: fmt.Errorf("unread count panic: %v", r), requestID: requestID}
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		params := messages.FilterParams{}.WithRead(false)
		res, err := inbox.MessageCount(ctx, &params)
		if err != nil {
			return unreadCountMsg{err: err, requestID: requestID}
		}
		n, ok := res.Get()
		return unreadCountMsg{count: n, bound: ok, requestID: requestID}
	}
}

// loadMore fetches the page after the active tab's cursor.
func (m Model) loadMore() tea.Cmd {
	idx := m.active
	ts := m.tabs[idx]
	params := &messages.MessageParams{FilterParams: ts.tab.Filters(), Limit: m.pageSize}
	after := ts.startCursor
	requestID := ts.moreRequestID
	inbox := m.inbox

	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = moreLoadedMsg{tab: idx, err: fmt.Errorf("load more panic: %v", r), requestID: requestID}
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := inbox.Messages(ctx, params, after)
		if err != nil {
			return moreLoadedMsg{tab: idx, err: err, requestID: requestID}
		}
		page, ok := res.Get()
		return moreLoadedMsg{tab: idx, page: page, bound: ok, requestID: requestID}
	}
}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// busy reports whether any request is in flight.
func (m Model) busy() bool {
	if m.loading {
		return true
	}
	for i := range m.tabs {
		if m.tabs[i].loadingMore {
			return true
		}
	}
	return false
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampScroll()
		return m, nil

	case spinnerTickMsg:
		if !m.busy() {
			return m, nil
		}
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, spinnerTick()

	case listsLoadedMsg:
		if msg.requestID != m.loadRequestID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if !msg.bound {
			m.unbound = true
			return m, nil
		}
		for i := range m.tabs {
			page, ok := msg.pages[m.tabs[i].tab.ID]
			if !ok {
				continue
			}
			m.tabs[i].loadingMore = false
			m.tabs[i].apply(page)
		}
		return m, m.maybeLoadMore()

	case unreadCountMsg:
		if msg.requestID != m.countRequestID {
			return m, nil
		}
		if msg.err != nil {
			// The badge is cosmetic; keep the last known value.
			return m, nil
		}
		if !msg.bound {
			m.unbound = true
			return m, nil
		}
		m.unread = msg.count
		m.unreadKnown = true
		return m, nil

	case moreLoadedMsg:
		if msg.tab < 0 || msg.tab >= len(m.tabs) {
			return m, nil
		}
		ts := &m.tabs[msg.tab]
		if msg.requestID != ts.moreRequestID {
			return m, nil
		}
		ts.loadingMore = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if !msg.bound {
			m.unbound = true
			return m, nil
		}
		m.err = nil
		ts.apply(msg.page)
		return m, nil
	}

	return m, nil
}

// maybeLoadMore requests the next page when the cursor sits on the last
// loaded row of the active tab and a continuation cursor exists.
func (m *Model) maybeLoadMore() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	ts := &m.tabs[m.active]
	if !ts.loaded || ts.loadingMore || ts.exhausted() || m.loading {
		return nil
	}
	if len(ts.messages) > 0 && ts.cursor < len(ts.messages)-1 {
		return nil
	}
	ts.loadingMore = true
	ts.moreRequestID++
	return tea.Batch(m.loadMore(), spinnerTick())
}

// refresh reloads all tabs and the unread count, discarding in-flight pages.
func (m Model) refresh() (tea.Model, tea.Cmd) {
	m.loading = true
	m.err = nil
	m.loadRequestID++
	m.countRequestID++
	for i := range m.tabs {
		m.tabs[i].loadingMore = false
		m.tabs[i].moreRequestID++
	}
	return m, tea.Batch(m.loadLists(), m.loadUnreadCount(), spinnerTick())
}

// activeTab returns the state of the selected tab.
func (m Model) activeTab() *tabState {
	if len(m.tabs) == 0 {
		return nil
	}
	return &m.tabs[m.active]
}

// selectedMessage returns the message under the cursor.
func (m Model) selectedMessage() (messages.Message, bool) {
	ts := m.activeTab()
	if ts == nil || ts.cursor >= len(ts.messages) {
		return messages.Message{}, false
	}
	return ts.messages[ts.cursor], true
}

// showEndOfList reports whether the end-of-list marker applies to the
// active tab.
func (m Model) showEndOfList() bool {
	ts := m.activeTab()
	return ts != nil && ts.loaded && ts.exhausted() && len(ts.messages) > endOfListThreshold
}
