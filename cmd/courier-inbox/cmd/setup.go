package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/courier"
)

const (
	authModeBasic = "basic"
	authModeToken = "token"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for first-run configuration",
	Long: `Interactive setup wizard to configure courier-inbox for first use.

This command asks for either your Courier client key and user id, or a signed
JWT issued by your backend, and writes them to config.toml with owner-only
permissions.

Run this once after installing courier-inbox to get started quickly.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupAnswers holds the values collected by the setup form.
type setupAnswers struct {
	Mode      string
	ClientKey string
	UserID    string
	Token     string
	APIURL    string
}

// answersFromConfig pre-fills the form from the current config.
func answersFromConfig(c *config.Config) setupAnswers {
	a := setupAnswers{
		Mode:      authModeBasic,
		ClientKey: c.Client.ClientKey,
		UserID:    c.Client.UserID,
		Token:     c.Client.Token,
		APIURL:    c.Client.APIURL,
	}
	if a.Token != "" {
		a.Mode = authModeToken
	}
	if a.APIURL == "" {
		a.APIURL = config.DefaultAPIURL
	}
	return a
}

// apply writes the answers into c. Credentials of the unused mode are
// cleared so the token never silently wins over a newly entered key.
func (a setupAnswers) apply(c *config.Config) {
	switch a.Mode {
	case authModeToken:
		c.Client.Token = strings.TrimSpace(a.Token)
		c.Client.ClientKey = ""
		c.Client.UserID = ""
	default:
		c.Client.ClientKey = strings.TrimSpace(a.ClientKey)
		c.Client.UserID = strings.TrimSpace(a.UserID)
		c.Client.Token = ""
	}
	c.Client.APIURL = strings.TrimRight(strings.TrimSpace(a.APIURL), "/")
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// validateToken rejects empty tokens and JWTs that have already expired.
func validateToken(now time.Time) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return errors.New("token is required")
		}
		if exp, ok := courier.TokenExpiry(s); ok && !now.Before(exp) {
			return fmt.Errorf("token expired at %s", exp.Local().Format(time.RFC1123))
		}
		return nil
	}
}

func validateAPIURL(allowInsecure bool) func(string) error {
	return func(s string) error {
		u, err := url.Parse(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
		if u.Host == "" {
			return errors.New("URL must include a host")
		}
		switch u.Scheme {
		case "https":
			return nil
		case "http":
			if allowInsecure {
				return nil
			}
			return errors.New("http:// URLs require allow_insecure = true under [client]")
		default:
			return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
		}
	}
}

func setupForm(a *setupAnswers, allowInsecure bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How should courier-inbox authenticate?").
				Options(
					huh.NewOption("Client key and user id", authModeBasic),
					huh.NewOption("Signed JWT from my backend", authModeToken),
				).
				Value(&a.Mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Client key").
				Description("Found in the Courier dashboard under Inbox settings.").
				Value(&a.ClientKey).
				Validate(required("client key")),
			huh.NewInput().
				Title("User id").
				Value(&a.UserID).
				Validate(required("user id")),
		).WithHideFunc(func() bool { return a.Mode != authModeBasic }),
		huh.NewGroup(
			huh.NewInput().
				Title("Signed token").
				EchoMode(huh.EchoModePassword).
				Value(&a.Token).
				Validate(validateToken(time.Now())),
		).WithHideFunc(func() bool { return a.Mode != authModeToken }),
		huh.NewGroup(
			huh.NewInput().
				Title("API URL").
				Value(&a.APIURL).
				Validate(validateAPIURL(allowInsecure)),
		),
	)
}

func runSetup(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Welcome to courier-inbox setup!")
	fmt.Fprintln(out)

	answers := answersFromConfig(cfg)
	if err := setupForm(&answers, cfg.Client.AllowInsecure).RunWithContext(cmd.Context()); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(out, "Setup cancelled. No changes were written.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	answers.apply(cfg)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(out, "\nConfiguration saved to %s\n", cfg.ConfigFilePath())

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Setup complete! Next steps:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  1. Check your unread count:")
	fmt.Fprintln(out, "     courier-inbox count --unread")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  2. Browse your inbox:")
	fmt.Fprintln(out, "     courier-inbox tui")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "For more help: courier-inbox --help")
	return nil
}
