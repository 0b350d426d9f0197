package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/config"
)

var (
	cfgFile    string
	homeDir    string
	verbose    bool
	jsonOutput bool
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "courier-inbox",
	Short: "Read a Courier hosted inbox from the terminal",
	Long: `courier-inbox reads messages from a Courier hosted inbox over its
client GraphQL API.

It can print unread counts and message pages, fetch several filtered lists
in one request, browse the inbox in a terminal UI, expose the inbox over a
small HTTP API or as MCP tools, and watch unread counts on a schedule.

Run 'courier-inbox setup' once to store your client key and user id.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsConfig(cmd) {
			return nil
		}
		logger = newLogger(os.Stderr, verbose)

		// --home is passed through so it influences where config.toml is
		// loaded from, like COURIER_INBOX_HOME.
		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Debug("config loaded", "path", cfg.ConfigFilePath(), "client", clientParams(cfg).Mode())
		return nil
	},
}

// needsConfig reports whether cmd reads config.toml. Version and the
// generated help and completion commands run without it.
func needsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return false
	}
	return cmd.Parent() == nil || cmd.Parent().Name() != "completion"
}

// newLogger builds the CLI logger. Logs go to w so stdout stays clean for
// JSON output.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.courier-inbox/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides "+config.EnvHome+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON even when stdout is a terminal")
}
