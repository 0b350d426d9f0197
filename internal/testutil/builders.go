package testutil

import (
	"strconv"
	"time"

	"github.com/sterlingconwell/courier-react/internal/messages"
)

// MessageBuilder provides a fluent API for constructing messages.Message in tests.
type MessageBuilder struct {
	m messages.Message
}

// NewMessage creates a builder with sensible defaults. The tracking ids are
// derived from id so tests can tell messages apart.
func NewMessage(id string) *MessageBuilder {
	return &MessageBuilder{
		m: messages.Message{
			ID:        id,
			MessageID: "msg-" + id,
			Created:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Content: messages.Content{
				Title: "Test Title",
				Body:  "Test body",
				TrackingIDs: messages.TrackingIDs{
					OpenTrackingID:    "open-" + id,
					ArchiveTrackingID: "archive-" + id,
					ClickTrackingID:   "click-" + id,
					DeliverTrackingID: "deliver-" + id,
					ReadTrackingID:    "read-" + id,
					UnreadTrackingID:  "unread-" + id,
				},
			},
		},
	}
}

func (b *MessageBuilder) WithTitle(s string) *MessageBuilder {
	b.m.Content.Title = s
	return b
}

func (b *MessageBuilder) WithBody(s string) *MessageBuilder {
	b.m.Content.Body = s
	return b
}

func (b *MessageBuilder) WithCreated(t time.Time) *MessageBuilder {
	b.m.Created = t
	return b
}

func (b *MessageBuilder) WithTags(tags ...string) *MessageBuilder {
	b.m.Tags = tags
	return b
}

// WithRead sets the read flag.
func (b *MessageBuilder) WithRead(read bool) *MessageBuilder {
	b.m.Read = &read
	return b
}

func (b *MessageBuilder) WithTextBlock(text string) *MessageBuilder {
	b.m.Content.Blocks = append(b.m.Content.Blocks, messages.Block{Type: messages.BlockText, Text: text})
	return b
}

func (b *MessageBuilder) WithActionBlock(text, url string) *MessageBuilder {
	b.m.Content.Blocks = append(b.m.Content.Blocks, messages.Block{Type: messages.BlockAction, Text: text, URL: url})
	return b
}

func (b *MessageBuilder) Build() messages.Message {
	return b.m
}

// Connection builds the wire shape of a "messages" selection holding msgs,
// suitable as GraphQL response data. An empty cursor is sent as null.
func Connection(cursor string, msgs ...messages.Message) map[string]any {
	var startCursor any
	if cursor != "" {
		startCursor = cursor
	}
	nodes := msgs
	if nodes == nil {
		nodes = []messages.Message{}
	}
	return map[string]any{
		"totalCount": len(msgs),
		"pageInfo": map[string]any{
			"startCursor": startCursor,
			"hasNextPage": cursor != "",
		},
		"nodes": nodes,
	}
}

// Messages builds n messages with ids prefix1..prefixN.
func Messages(prefix string, n int) []messages.Message {
	out := make([]messages.Message, n)
	for i := range out {
		out[i] = NewMessage(prefix + strconv.Itoa(i+1)).Build()
	}
	return out
}
