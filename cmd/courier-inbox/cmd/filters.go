package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

// filterFlags are the message filter flags shared by count and messages.
type filterFlags struct {
	unread  bool
	read    bool
	tags    []string
	account string
	since   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.unread, "unread", false, "only unread messages")
	cmd.Flags().BoolVar(&f.read, "read", false, "only read messages")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "only messages with these tags (repeatable)")
	cmd.Flags().StringVar(&f.account, "account", "", "only messages for this account id")
	cmd.Flags().StringVar(&f.since, "since", "", "only messages created after a date (YYYY-MM-DD, RFC3339, or a duration like 24h)")
	cmd.MarkFlagsMutuallyExclusive("unread", "read")
}

// params converts the flags to filter parameters relative to now.
func (f *filterFlags) params(now time.Time) (messages.FilterParams, error) {
	p := messages.FilterParams{
		AccountID: strings.TrimSpace(f.account),
		Tags:      f.tags,
	}
	switch {
	case f.unread && f.read:
		return p, fmt.Errorf("--unread and --read are mutually exclusive")
	case f.unread:
		p = p.WithRead(false)
	case f.read:
		p = p.WithRead(true)
	}
	if f.since != "" {
		t, err := parseSince(f.since, now)
		if err != nil {
			return p, err
		}
		p = p.Since(t)
	}
	return p, nil
}

// parseSince wraps messages.ParseSince with the flag name.
func parseSince(s string, now time.Time) (time.Time, error) {
	t, err := messages.ParseSince(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: %w", s, err)
	}
	return t, nil
}

// parseTabOverride parses a --tab value of the form id, id:unread, id:read,
// or id:all into a tab.
func parseTabOverride(s string) (config.Tab, error) {
	id, mode, hasMode := strings.Cut(strings.TrimSpace(s), ":")
	if id == "" {
		return config.Tab{}, fmt.Errorf("invalid --tab %q: missing id", s)
	}
	tab := config.Tab{ID: id}
	if !hasMode {
		return tab, nil
	}
	switch strings.ToLower(mode) {
	case "unread":
		read := false
		tab.IsRead = &read
	case "read":
		read := true
		tab.IsRead = &read
	case "all", "":
	default:
		return config.Tab{}, fmt.Errorf("invalid --tab %q: mode must be unread, read, or all", s)
	}
	return tab, nil
}
