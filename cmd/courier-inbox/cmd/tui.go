package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal inbox",
	Long: `Open an interactive terminal inbox.

Each configured tab is loaded in one batched request and older messages are
fetched as you scroll past the last one.

Navigation:
  ↑/k, ↓/j    Move up/down
  g, G        Jump to first/last message
  Tab         Next tab
  Shift+Tab   Previous tab
  Enter       Show message body and actions
  r           Refresh
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := boundClient()
		if err != nil {
			return err
		}

		model := tui.New(client, tui.Options{
			Tabs:     cfg.Tabs(),
			PageSize: cfg.Inbox.PageSize,
			Version:  Version,
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
