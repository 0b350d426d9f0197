package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/watch"
)

var (
	watchSchedule string
	watchOnce     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch unread counts for every tab",
	Long: `Poll the unread count of every configured tab on a cron schedule and
print a line whenever a count changes.

The schedule defaults to [watch] schedule in config.toml (every 5 minutes).

Cron format: minute hour day-of-month month day-of-week
  Examples:
    */5 * * * *   = Every 5 minutes
    0 * * * *     = Hourly
    0 8,18 * * *  = 8 AM and 6 PM daily

Use --once to poll a single time and exit. Use Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule (overrides [watch] schedule)")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "poll once, print counts, and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := boundClient()
	if err != nil {
		return err
	}
	tabs := cfg.Tabs()
	out := cmd.OutOrStdout()

	w := watch.New(client, tabs).WithLogger(logger)

	if watchOnce {
		counts, err := w.Poll(cmd.Context())
		if err != nil {
			return fmt.Errorf("poll unread counts: %w", err)
		}
		if useJSON(out) {
			return printJSON(out, counts)
		}
		for _, tab := range tabs {
			fmt.Fprintf(out, "%s\t%d\n", tab.DisplayLabel(), counts[tab.ID])
		}
		return nil
	}

	schedule := watchSchedule
	if schedule == "" {
		schedule = cfg.Watch.Schedule
	}
	w.OnChange(printChange(out))
	if err := w.SetSchedule(schedule); err != nil {
		return err
	}

	w.Start()
	if err := w.Trigger(); err != nil {
		logger.Warn("initial poll not started", "error", err)
	}
	fmt.Fprintf(out, "Watching %d tabs (%s). Press Ctrl+C to stop.\n", len(tabs), schedule)

	<-cmd.Context().Done()
	return stopWatcher(w, 30*time.Second)
}

// printChange reports count changes as one line per tab.
func printChange(w io.Writer) watch.ChangeFunc {
	return func(tab config.Tab, prev, cur int) {
		ts := time.Now().Format("15:04:05")
		if prev < 0 {
			fmt.Fprintf(w, "%s  %s: %d unread\n", ts, tab.DisplayLabel(), cur)
			return
		}
		fmt.Fprintf(w, "%s  %s: %d unread (was %d)\n", ts, tab.DisplayLabel(), cur, prev)
	}
}

// stopWatcher stops w and waits up to timeout for in-flight polls.
func stopWatcher(w *watch.Watcher, timeout time.Duration) error {
	if !waitOrTimeout(w.Stop(), timeout) {
		return fmt.Errorf("watcher shutdown timed out after %s", timeout)
	}
	return nil
}

// waitOrTimeout reports whether ctx finished within timeout.
func waitOrTimeout(ctx context.Context, timeout time.Duration) bool {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(timeout):
		return false
	}
}
