// Package config handles loading and managing courier-inbox configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"github.com/sterlingconwell/courier-react/internal/fileutil"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

// Environment variables that override values from config.toml.
const (
	EnvHome      = "COURIER_INBOX_HOME"
	EnvClientKey = "COURIER_CLIENT_KEY"
	EnvUserID    = "COURIER_USER_ID"
	EnvToken     = "COURIER_AUTH_TOKEN"
	EnvAPIURL    = "COURIER_API_URL"
)

// DefaultAPIURL is the hosted inbox GraphQL endpoint.
const DefaultAPIURL = "https://api.courier.com/client/q"

// ClientConfig holds connection parameters for the inbox backend.
type ClientConfig struct {
	APIURL         string `toml:"api_url"`
	ClientKey      string `toml:"client_key"`
	UserID         string `toml:"user_id"`
	Token          string `toml:"token"`            // signed JWT; takes precedence over client_key
	ClientSourceID string `toml:"client_source_id"` // generated per client when empty
	TimeoutSeconds int    `toml:"timeout_seconds"`
	AllowInsecure  bool   `toml:"allow_insecure"` // permit http:// api_url
}

// Timeout returns the request timeout as a duration.
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Configured reports whether the client has enough credentials to bind.
func (c ClientConfig) Configured() bool {
	return c.Token != "" || (c.ClientKey != "" && c.UserID != "")
}

// Tab is a named inbox view backed by one message list.
type Tab struct {
	ID        string   `toml:"id"`
	Label     string   `toml:"label"`
	IsRead    *bool    `toml:"is_read"`
	Tags      []string `toml:"tags"`
	AccountID string   `toml:"account_id"`
}

// Filters returns the list filters for the tab.
func (t Tab) Filters() messages.FilterParams {
	return messages.FilterParams{
		AccountID: t.AccountID,
		Tags:      t.Tags,
		IsRead:    t.IsRead,
	}
}

// DisplayLabel returns the label, falling back to the id.
func (t Tab) DisplayLabel() string {
	if t.Label != "" {
		return t.Label
	}
	return t.ID
}

// InboxConfig holds inbox view configuration.
type InboxConfig struct {
	PageSize int   `toml:"page_size"`
	Tabs     []Tab `toml:"tabs"`
}

// DefaultTabs returns the stock Unread and All Messages tabs.
func DefaultTabs() []Tab {
	unread := false
	return []Tab{
		{ID: "unread", Label: "Unread", IsRead: &unread},
		{ID: "all", Label: "All Messages"},
	}
}

// ServerConfig holds HTTP gateway configuration.
type ServerConfig struct {
	APIPort         int      `toml:"api_port"`         // HTTP server port (default: 8080)
	BindAddr        string   `toml:"bind_addr"`        // default: 127.0.0.1
	APIKey          string   `toml:"api_key"`          // gateway authentication key
	AllowInsecure   bool     `toml:"allow_insecure"`   // permit non-loopback bind without api_key
	CORSOrigins     []string `toml:"cors_origins"`     // empty disables CORS
	CORSCredentials bool     `toml:"cors_credentials"`
	CORSMaxAge      int      `toml:"cors_max_age"`     // seconds
}

// IsLoopback reports whether the bind address only accepts local connections.
func (s ServerConfig) IsLoopback() bool {
	addr := s.BindAddr
	if addr == "" || addr == "localhost" {
		return true
	}
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

// ValidateSecure refuses to expose the gateway beyond loopback without an
// API key, unless allow_insecure is set.
func (s ServerConfig) ValidateSecure() error {
	if s.IsLoopback() || s.APIKey != "" || s.AllowInsecure {
		return nil
	}
	return fmt.Errorf("refusing to bind API server to %s without an api_key\n\n"+
		"Options:\n"+
		"  1. Set [server] api_key in config.toml\n"+
		"  2. Bind to loopback: [server] bind_addr = \"127.0.0.1\"\n"+
		"  3. Add 'allow_insecure = true' to [server] (not recommended)", s.BindAddr)
}

// WatchConfig holds unread watcher configuration.
type WatchConfig struct {
	Schedule string `toml:"schedule"` // 5-field cron expression
}

// Config represents the courier-inbox configuration.
type Config struct {
	Client ClientConfig `toml:"client"`
	Inbox  InboxConfig  `toml:"inbox"`
	Server ServerConfig `toml:"server"`
	Watch  WatchConfig  `toml:"watch"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DefaultHome returns the default courier-inbox home directory.
// Respects the COURIER_INBOX_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv(EnvHome); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".courier-inbox"
	}
	return filepath.Join(home, ".courier-inbox")
}

// NewDefaultConfig returns a configuration with default values rooted at
// DefaultHome.
func NewDefaultConfig() *Config {
	return newDefaultConfig(DefaultHome())
}

func newDefaultConfig(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Client: ClientConfig{
			APIURL:         DefaultAPIURL,
			TimeoutSeconds: 30,
		},
		Inbox: InboxConfig{
			PageSize: messages.DefaultLimit,
		},
		Server: ServerConfig{
			APIPort:  8080,
			BindAddr: "127.0.0.1",
		},
		Watch: WatchConfig{
			Schedule: "*/5 * * * *",
		},
		configPath: filepath.Join(homeDir, "config.toml"),
	}
}

// Load reads the configuration. An explicit path must exist; otherwise
// config.toml is read from homeDir (or DefaultHome when homeDir is empty)
// and a missing file yields defaults. Environment overrides are applied last.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""

	if homeDir != "" {
		homeDir = expandPath(homeDir)
	} else if explicit {
		homeDir = filepath.Dir(expandPath(path))
	} else {
		homeDir = DefaultHome()
	}

	cfg := newDefaultConfig(homeDir)
	if explicit {
		cfg.configPath = expandPath(path)
	}

	if _, err := os.Stat(cfg.configPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", cfg.configPath)
		}
	} else if _, err := toml.DecodeFile(cfg.configPath, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", withBackslashHint(err))
	}

	cfg.applyEnv()
	if cfg.Client.APIURL == "" {
		cfg.Client.APIURL = DefaultAPIURL
	}
	if cfg.Inbox.PageSize <= 0 {
		cfg.Inbox.PageSize = messages.DefaultLimit
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvClientKey); v != "" {
		c.Client.ClientKey = v
	}
	if v := os.Getenv(EnvUserID); v != "" {
		c.Client.UserID = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Client.Token = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.Client.APIURL = v
	}
}

// withBackslashHint adds a hint to TOML escape errors caused by Windows paths
// in double-quoted strings.
func withBackslashHint(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "escape") && !strings.Contains(msg, "hexadecimal") {
		return err
	}
	return fmt.Errorf("%w\n\nhint: backslashes in double-quoted TOML strings are escapes; "+
		"use forward slashes or single quotes for paths", err)
}

// ConfigFilePath returns the path of the config file that was (or would be)
// loaded.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// Tabs returns the configured tabs, or the default tabs when none are set.
func (c *Config) Tabs() []Tab {
	if len(c.Inbox.Tabs) == 0 {
		return DefaultTabs()
	}
	return c.Inbox.Tabs
}

// Tab returns the tab with the given id.
func (c *Config) Tab(id string) (Tab, bool) {
	for _, t := range c.Tabs() {
		if t.ID == id {
			return t, true
		}
	}
	return Tab{}, false
}

// ListSpecs converts the tabs into batched list specs, in tab order.
func (c *Config) ListSpecs() []messages.ListSpec {
	tabs := c.Tabs()
	specs := make([]messages.ListSpec, len(tabs))
	for i, t := range tabs {
		specs[i] = messages.ListSpec{ID: t.ID, Filters: t.Filters()}
	}
	return specs
}

// ScheduleParser parses [watch] schedule expressions: standard 5-field cron
// (minute hour day-of-month month day-of-week). The watcher schedules with
// the same parser so validation and scheduling agree.
func ScheduleParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// Validate checks tab ids, the gateway security posture, and the watch
// schedule. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if err := messages.ValidateListSpecs(c.ListSpecs()); err != nil {
		errs = append(errs, fmt.Errorf("inbox tabs: %w", err))
	}
	if err := c.Server.ValidateSecure(); err != nil {
		errs = append(errs, err)
	}
	if c.Watch.Schedule != "" {
		if _, err := ScheduleParser().Parse(c.Watch.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("watch schedule %q: %w", c.Watch.Schedule, err))
		}
	}
	if c.Client.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("client timeout_seconds must not be negative"))
	}
	return errors.Join(errs...)
}

// Save writes the configuration to ConfigFilePath with owner-only
// permissions, creating the home directory if needed.
func (c *Config) Save() error {
	path := c.ConfigFilePath()
	if err := fileutil.SecureMkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	c.configPath = path
	return nil
}

// expandPath expands a leading ~ or ~/ to the user's home directory. On
// Windows, matching surrounding quotes left by CMD are stripped first.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if runtime.GOOS == "windows" && len(path) >= 2 {
		if (path[0] == '\'' && path[len(path)-1] == '\'') || (path[0] == '"' && path[len(path)-1] == '"') {
			path = path[1 : len(path)-1]
		}
	}
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
