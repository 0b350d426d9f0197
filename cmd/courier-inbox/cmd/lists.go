package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

var (
	listsLimit int
	listsTabs  []string
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Fetch every inbox tab in one request",
	Long: `Fetch the first page of every configured inbox tab in a single batched
request.

Tabs come from [[inbox.tabs]] in config.toml, defaulting to "unread" and
"all". Use --tab to replace them for one run:

  courier-inbox lists --tab unread:unread --tab archive:read --tab everything`,
	Args: cobra.NoArgs,
	RunE: runLists,
}

func init() {
	listsCmd.Flags().IntVarP(&listsLimit, "limit", "n", 0, "page size per list (default: [inbox] page_size)")
	listsCmd.Flags().StringArrayVar(&listsTabs, "tab", nil, "tab as id[:unread|read|all] (repeatable, replaces configured tabs)")
	rootCmd.AddCommand(listsCmd)
}

// listTabs returns the tabs for this run: --tab overrides, else config.
func listTabs(overrides []string, c *config.Config) ([]config.Tab, error) {
	if len(overrides) == 0 {
		return c.Tabs(), nil
	}
	tabs := make([]config.Tab, 0, len(overrides))
	for _, s := range overrides {
		tab, err := parseTabOverride(s)
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

func runLists(cmd *cobra.Command, args []string) error {
	if listsLimit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	tabs, err := listTabs(listsTabs, cfg)
	if err != nil {
		return err
	}
	specs := make([]messages.ListSpec, len(tabs))
	for i, t := range tabs {
		specs[i] = messages.ListSpec{ID: t.ID, Filters: t.Filters()}
	}
	if err := messages.ValidateListSpecs(specs); err != nil {
		return err
	}

	limit := listsLimit
	if limit == 0 {
		limit = cfg.Inbox.PageSize
	}

	client, err := boundClient()
	if err != nil {
		return err
	}
	res, err := client.MessageLists(cmd.Context(), specs, limit)
	if err != nil {
		return fmt.Errorf("fetch lists: %w", err)
	}
	pages, ok := res.Get()
	if !ok {
		return errNotConfigured()
	}

	out := cmd.OutOrStdout()
	if useJSON(out) {
		return printJSON(out, pages)
	}
	return printLists(out, tabs, pages)
}

// printLists prints each tab's page under a heading, in tab order.
func printLists(w io.Writer, tabs []config.Tab, pages map[string]messages.Page) error {
	for i, tab := range tabs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		page := pages[tab.ID]
		fmt.Fprintf(w, "== %s (%d) ==\n", tab.DisplayLabel(), page.TotalCount)
		if err := printMessages(w, page.Messages, page.StartCursor); err != nil {
			return err
		}
	}
	return nil
}
