package messages

import (
	"encoding/json"
	"errors"
	"time"
)

// DefaultLimit is the page size the backend applies when none is sent.
const DefaultLimit = 10

// FilterParams scopes which messages a query returns. Zero-valued fields are
// omitted from the wire object.
type FilterParams struct {
	AccountID string   `json:"accountId,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	// From is an exclusive lower bound on creation time, in epoch milliseconds.
	From   *int64 `json:"from,omitempty"`
	IsRead *bool  `json:"isRead,omitempty"`
}

// IsZero reports whether no predicate is set.
func (f FilterParams) IsZero() bool {
	return f.AccountID == "" && len(f.Tags) == 0 && f.From == nil && f.IsRead == nil
}

// WithRead returns a copy of f with IsRead set.
func (f FilterParams) WithRead(read bool) FilterParams {
	f.IsRead = &read
	if f.Tags != nil {
		f.Tags = append([]string(nil), f.Tags...)
	}
	return f
}

// Since returns a copy of f with From set to t.
func (f FilterParams) Since(t time.Time) FilterParams {
	ms := t.UnixMilli()
	f.From = &ms
	return f
}

// ErrInvalidSince is returned by ParseSince for unrecognised input.
var ErrInvalidSince = errors.New("use YYYY-MM-DD, RFC3339, or a positive duration")

// ParseSince resolves a lower bound for Since. It accepts a calendar date in
// the local time zone, an RFC3339 timestamp, or a duration counted back from
// now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, ErrInvalidSince
}

// MessageParams are the inputs of a single page query. Limit is a pagination
// control and is sent as its own variable, never inside the filter.
type MessageParams struct {
	FilterParams
	Limit int
}

// ListSpec names one independently-filtered view of the inbox, such as a tab.
type ListSpec struct {
	ID      string       `json:"id"`
	Filters FilterParams `json:"filters"`
}

// BlockType discriminates content blocks.
type BlockType string

const (
	BlockText   BlockType = "text"
	BlockAction BlockType = "action"
)

// Block is a content block. URL is only set on action blocks.
type Block struct {
	Type BlockType `json:"type"`
	Text string    `json:"text"`
	URL  string    `json:"url,omitempty"`
}

// IsAction reports whether the block is a call-to-action link.
func (b Block) IsAction() bool {
	return b.Type == BlockAction
}

// TrackingIDs reference a delivered message in later action calls
// (open, archive, click, deliver, read, unread).
type TrackingIDs struct {
	OpenTrackingID    string `json:"openTrackingId"`
	ArchiveTrackingID string `json:"archiveTrackingId"`
	ClickTrackingID   string `json:"clickTrackingId"`
	DeliverTrackingID string `json:"deliverTrackingId"`
	ReadTrackingID    string `json:"readTrackingId"`
	UnreadTrackingID  string `json:"unreadTrackingId"`
}

// Content is the rendered payload of a message.
type Content struct {
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Blocks      []Block         `json:"blocks"`
	Data        json.RawMessage `json:"data,omitempty"`
	TrackingIDs TrackingIDs     `json:"trackingIds"`
}

// Message is a fetched inbox message. It is never mutated locally.
type Message struct {
	ID        string     `json:"id"`
	MessageID string     `json:"messageId"`
	Created   time.Time  `json:"created"`
	Opened    *time.Time `json:"opened,omitempty"`
	Read      *bool      `json:"read,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Content   Content    `json:"content"`
}

// IsRead reports whether the message has been marked read.
func (m Message) IsRead() bool {
	return m.Read != nil && *m.Read
}

// Actions returns the action blocks in render order.
func (m Message) Actions() []Block {
	var out []Block
	for _, b := range m.Content.Blocks {
		if b.IsAction() {
			out = append(out, b)
		}
	}
	return out
}

// Page is one page of a message query.
type Page struct {
	// AppendMessages is true exactly when a continuation cursor was supplied
	// as input: the page extends the displayed set instead of replacing it.
	AppendMessages bool      `json:"appendMessages"`
	StartCursor    string    `json:"startCursor,omitempty"`
	Messages       []Message `json:"messages"`
	TotalCount     int       `json:"totalCount"`
	HasNextPage    bool      `json:"hasNextPage"`
}

// Exhausted reports whether no continuation cursor was returned.
func (p Page) Exhausted() bool {
	return p.StartCursor == ""
}

// connection mirrors the "messages" selection on the wire.
type connection struct {
	TotalCount int `json:"totalCount"`
	PageInfo   *struct {
		StartCursor *string `json:"startCursor"`
		HasNextPage bool    `json:"hasNextPage"`
	} `json:"pageInfo"`
	Nodes []Message `json:"nodes"`
}

func (c connection) page(appendMessages bool) Page {
	p := Page{
		AppendMessages: appendMessages,
		Messages:       c.Nodes,
		TotalCount:     c.TotalCount,
	}
	if p.Messages == nil {
		p.Messages = []Message{}
	}
	if c.PageInfo != nil {
		if c.PageInfo.StartCursor != nil {
			p.StartCursor = *c.PageInfo.StartCursor
		}
		p.HasNextPage = c.PageInfo.HasNextPage
	}
	return p
}
