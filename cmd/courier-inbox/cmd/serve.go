package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/api"
	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/watch"
)

var serveNoWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway with the unread watcher",
	Long: `Run a long-lived HTTP gateway that exposes the inbox as a small JSON API,
together with the unread watcher.

Endpoints (under /api/v1, authenticated with [server] api_key):
  GET  /messages/count   count matching messages
  GET  /messages         one page of messages (limit, after)
  GET  /lists            first page of every configured tab
  POST /lists            batched lists: {"lists":[{"id","filters"}],"limit"}
  GET  /watch/status     unread watcher status
  POST /watch/trigger    poll unread counts now

Configure in config.toml:
  [server]
  api_port = 8080
  bind_addr = "127.0.0.1"
  api_key = "change-me"

  [watch]
  schedule = "*/5 * * * *"

Use Ctrl+C to stop the server gracefully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "disable the unread watcher")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate security posture before doing any work
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// The gateway starts even when unbound and answers 503 until configured.
	client, err := newInboxClient()
	if err != nil {
		return err
	}

	var (
		watcher *watch.Watcher
		status  api.UnreadWatcher
	)
	if !serveNoWatch && cfg.Watch.Schedule != "" && client.Bound() {
		watcher = watch.New(client, cfg.Tabs()).WithLogger(logger)
		watcher.OnChange(func(tab config.Tab, prev, cur int) {
			logger.Info("unread count changed", "tab", tab.ID, "previous", prev, "current", cur)
		})
		if err := watcher.SetSchedule(cfg.Watch.Schedule); err != nil {
			return err
		}
		watcher.Start()
		status = watcher
	}

	apiServer := api.NewServer(cfg, client, status, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "courier-inbox gateway started\n")
	fmt.Fprintf(out, "  API server: http://%s\n", apiServer.Addr())
	if watcher != nil {
		st := watcher.Status()
		fmt.Fprintf(out, "  Unread watcher: %s (next poll %s)\n", st.Schedule, formatAge(st.NextRun, time.Now()))
	} else {
		fmt.Fprintf(out, "  Unread watcher: disabled\n")
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-cmd.Context().Done():
		logger.Info("shutdown requested")
	case runErr = <-serverErr:
		logger.Error("API server error", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	if watcher != nil {
		if err := stopWatcher(watcher, 30*time.Second); err != nil {
			logger.Warn("unread watcher did not stop cleanly", "error", err)
		}
	}
	fmt.Fprintln(out, "Shutdown complete.")
	return runErr
}
