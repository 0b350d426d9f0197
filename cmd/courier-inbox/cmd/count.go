package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

var countFilters filterFlags

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of messages matching the filters",
	Long: `Print the number of inbox messages matching the filters.

Examples:
  courier-inbox count --unread
  courier-inbox count --tag billing --since 2024-01-01`,
	Args: cobra.NoArgs,
	RunE: runCount,
}

func init() {
	countFilters.register(countCmd)
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	filters, err := countFilters.params(time.Now())
	if err != nil {
		return err
	}
	client, err := boundClient()
	if err != nil {
		return err
	}

	// An empty filter is sent as no params at all.
	var params *messages.FilterParams
	if !filters.IsZero() {
		params = &filters
	}
	res, err := client.MessageCount(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	n, ok := res.Get()
	if !ok {
		return errNotConfigured()
	}

	out := cmd.OutOrStdout()
	if useJSON(out) {
		return printJSON(out, map[string]int{"count": n})
	}
	_, err = fmt.Fprintln(out, n)
	return err
}
