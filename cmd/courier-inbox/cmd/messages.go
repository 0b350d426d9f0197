package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

var (
	messagesFilters filterFlags
	messagesLimit   int
	messagesAfter   string
	messagesAll     bool
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List one page of messages",
	Long: `List one page of inbox messages, newest first.

Pass the cursor printed after a page with --after to continue from it, or use
--all to follow cursors until the inbox is exhausted.

Examples:
  courier-inbox messages --unread --limit 20
  courier-inbox messages --after <cursor>
  courier-inbox messages --tag alerts --all --json`,
	Args: cobra.NoArgs,
	RunE: runMessages,
}

func init() {
	messagesFilters.register(messagesCmd)
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 0, "page size (default: server default of 10)")
	messagesCmd.Flags().StringVar(&messagesAfter, "after", "", "continue after this cursor")
	messagesCmd.Flags().BoolVar(&messagesAll, "all", false, "follow cursors until no pages remain")
	messagesCmd.MarkFlagsMutuallyExclusive("after", "all")
	rootCmd.AddCommand(messagesCmd)
}

func runMessages(cmd *cobra.Command, args []string) error {
	if messagesLimit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	filters, err := messagesFilters.params(time.Now())
	if err != nil {
		return err
	}
	client, err := boundClient()
	if err != nil {
		return err
	}

	params := &messages.MessageParams{FilterParams: filters, Limit: messagesLimit}
	out := cmd.OutOrStdout()

	if messagesAll {
		var all []messages.Message
		pages := 0
		err := client.Walk(cmd.Context(), params, func(p messages.Page) error {
			pages++
			all = append(all, p.Messages...)
			logger.Debug("fetched page", "page", pages, "messages", len(p.Messages))
			return nil
		})
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		if all == nil {
			all = []messages.Message{}
		}
		if useJSON(out) {
			return printJSON(out, all)
		}
		return printMessages(out, all, "")
	}

	res, err := client.Messages(cmd.Context(), params, messagesAfter)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	page, ok := res.Get()
	if !ok {
		return errNotConfigured()
	}
	if useJSON(out) {
		return printJSON(out, page)
	}
	return printMessages(out, page.Messages, page.StartCursor)
}
