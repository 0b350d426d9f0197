package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

// clearEnv isolates a test from credentials in the developer's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvClientKey, EnvUserID, EnvToken, EnvAPIURL} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	t.Setenv(EnvHome, tmpDir)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if cfg.Client.APIURL != DefaultAPIURL {
		t.Errorf("Client.APIURL = %q, want %q", cfg.Client.APIURL, DefaultAPIURL)
	}
	if cfg.Client.Timeout() != 30*time.Second {
		t.Errorf("Client.Timeout() = %v, want 30s", cfg.Client.Timeout())
	}
	if cfg.Client.Configured() {
		t.Error("Client.Configured() = true with no credentials")
	}
	if cfg.Inbox.PageSize != messages.DefaultLimit {
		t.Errorf("Inbox.PageSize = %d, want %d", cfg.Inbox.PageSize, messages.DefaultLimit)
	}
	if cfg.Server.APIPort != 8080 {
		t.Errorf("Server.APIPort = %d, want 8080", cfg.Server.APIPort)
	}
	if cfg.Server.BindAddr != "127.0.0.1" {
		t.Errorf("Server.BindAddr = %q, want 127.0.0.1", cfg.Server.BindAddr)
	}
	if cfg.Watch.Schedule == "" {
		t.Error("Watch.Schedule should have a default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	t.Setenv(EnvHome, tmpDir)

	writeConfig(t, tmpDir, `
[client]
client_key = "ck-123"
user_id = "user-1"
timeout_seconds = 5

[inbox]
page_size = 25

[[inbox.tabs]]
id = "unread"
label = "Unread"
is_read = false

[[inbox.tabs]]
id = "billing"
tags = ["billing", "invoice"]
account_id = "acct-1"

[server]
api_port = 9090
api_key = "test-secret-key"
`)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Client.Configured() {
		t.Error("Client.Configured() = false, want true")
	}
	if cfg.Client.Timeout() != 5*time.Second {
		t.Errorf("Client.Timeout() = %v, want 5s", cfg.Client.Timeout())
	}
	if cfg.Inbox.PageSize != 25 {
		t.Errorf("Inbox.PageSize = %d, want 25", cfg.Inbox.PageSize)
	}
	if cfg.Server.APIPort != 9090 || cfg.Server.APIKey != "test-secret-key" {
		t.Errorf("Server = %+v", cfg.Server)
	}

	unread := false
	want := []messages.ListSpec{
		{ID: "unread", Filters: messages.FilterParams{IsRead: &unread}},
		{ID: "billing", Filters: messages.FilterParams{AccountID: "acct-1", Tags: []string{"billing", "invoice"}}},
	}
	if diff := cmp.Diff(want, cfg.ListSpecs()); diff != "" {
		t.Errorf("ListSpecs() mismatch (-want +got):\n%s", diff)
	}

	tab, ok := cfg.Tab("billing")
	if !ok || tab.DisplayLabel() != "billing" {
		t.Errorf("Tab(billing) = %+v, %v", tab, ok)
	}
}

func TestDefaultTabs(t *testing.T) {
	cfg := &Config{}
	tabs := cfg.Tabs()
	if len(tabs) != 2 {
		t.Fatalf("len(Tabs()) = %d, want 2", len(tabs))
	}
	if tabs[0].ID != "unread" || tabs[0].IsRead == nil || *tabs[0].IsRead {
		t.Errorf("first default tab = %+v, want unread filter", tabs[0])
	}
	if tabs[1].ID != "all" || tabs[1].DisplayLabel() != "All Messages" || tabs[1].IsRead != nil {
		t.Errorf("second default tab = %+v", tabs[1])
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `
[client]
client_key = "from-file"
user_id = "file-user"
`)
	t.Setenv(EnvClientKey, "from-env")
	t.Setenv(EnvUserID, "")
	t.Setenv(EnvToken, "tok")
	t.Setenv(EnvAPIURL, "https://staging.example.com/q")

	cfg, err := Load("", tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Client.ClientKey != "from-env" {
		t.Errorf("ClientKey = %q, want from-env", cfg.Client.ClientKey)
	}
	if cfg.Client.UserID != "file-user" {
		t.Errorf("UserID = %q, empty env var should not override", cfg.Client.UserID)
	}
	if cfg.Client.Token != "tok" {
		t.Errorf("Token = %q, want tok", cfg.Client.Token)
	}
	if cfg.Client.APIURL != "https://staging.example.com/q" {
		t.Errorf("APIURL = %q", cfg.Client.APIURL)
	}
}

func TestLoadExplicitPathNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml", "")
	if err == nil {
		t.Fatal("Load with explicit nonexistent path should return error")
	}
	if got := err.Error(); !strings.Contains(got, "config file not found") {
		t.Errorf("error = %q, want it to contain %q", got, "config file not found")
	}
}

func TestLoadExplicitPathDerivedHomeDir(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := writeConfig(t, tmpDir, "[inbox]\npage_size = 3\n")

	cfg, err := Load(configPath, "")
	if err != nil {
		t.Fatalf("Load(%q) error = %v", configPath, err)
	}
	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if cfg.ConfigFilePath() != configPath {
		t.Errorf("ConfigFilePath() = %q, want %q", cfg.ConfigFilePath(), configPath)
	}
	if cfg.Inbox.PageSize != 3 {
		t.Errorf("Inbox.PageSize = %d, want 3", cfg.Inbox.PageSize)
	}
}

func TestLoadNonPositivePageSize(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "[inbox]\npage_size = 0\n")

	cfg, err := Load("", tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Inbox.PageSize != messages.DefaultLimit {
		t.Errorf("Inbox.PageSize = %d, want %d", cfg.Inbox.PageSize, messages.DefaultLimit)
	}
}

func TestLoadBackslashErrorHint(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "invalid escape (backslash G)",
			content: "[client]\napi_url = \"C:\\Games\\inbox\"\n",
		},
		{
			name:    "unicode escape (backslash U)",
			content: "[client]\napi_url = \"C:\\Users\\someone\\inbox\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeConfig(t, tmpDir, tt.content)

			_, err := Load("", tmpDir)
			if err == nil {
				t.Fatal("Load should fail on TOML backslash error")
			}
			errMsg := err.Error()
			for _, want := range []string{"hint:", "forward slashes", "single quotes"} {
				if !strings.Contains(errMsg, want) {
					t.Errorf("error should contain %q, got: %s", want, errMsg)
				}
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	homeDir := filepath.Join(t.TempDir(), "nested", "home")

	cfg, err := Load("", homeDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Client.ClientKey = "ck-123"
	cfg.Client.UserID = "user-1"
	cfg.Inbox.Tabs = DefaultTabs()

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(cfg.ConfigFilePath())
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("config perm = %04o, want 0600", perm)
		}
	}

	loaded, err := Load("", homeDir)
	if err != nil {
		t.Fatalf("Load() after Save error = %v", err)
	}
	if loaded.Client.ClientKey != "ck-123" || loaded.Client.UserID != "user-1" {
		t.Errorf("Client = %+v", loaded.Client)
	}
	if diff := cmp.Diff(cfg.ListSpecs(), loaded.ListSpecs()); diff != "" {
		t.Errorf("ListSpecs() mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		wantMsg string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "invalid tab id",
			mutate:  func(c *Config) { c.Inbox.Tabs = []Tab{{ID: "my-tab"}} },
			wantErr: messages.ErrInvalidListID,
		},
		{
			name:    "duplicate tab id",
			mutate:  func(c *Config) { c.Inbox.Tabs = []Tab{{ID: "a"}, {ID: "a"}} },
			wantErr: messages.ErrDuplicateListID,
		},
		{
			name:    "public bind without key",
			mutate:  func(c *Config) { c.Server.BindAddr = "0.0.0.0" },
			wantMsg: "api_key",
		},
		{
			name:    "bad schedule",
			mutate:  func(c *Config) { c.Watch.Schedule = "every minute" },
			wantMsg: "watch schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefaultConfig(t.TempDir())
			tt.mutate(cfg)
			err := cfg.Validate()

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantMsg != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
					t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantMsg)
				}
			default:
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
			}
		})
	}
}

func TestSecurityValidation(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ServerConfig
		wantError bool
	}{
		{"loopback no key", ServerConfig{BindAddr: "127.0.0.1"}, false},
		{"loopback 127.0.0.2 no key", ServerConfig{BindAddr: "127.0.0.2"}, false},
		{"ipv6 loopback no key", ServerConfig{BindAddr: "::1"}, false},
		{"localhost no key", ServerConfig{BindAddr: "localhost"}, false},
		{"empty addr no key", ServerConfig{BindAddr: ""}, false},
		{"non-loopback with key", ServerConfig{BindAddr: "0.0.0.0", APIKey: "secret"}, false},
		{"non-loopback no key", ServerConfig{BindAddr: "0.0.0.0"}, true},
		{"non-loopback ipv6 no key", ServerConfig{BindAddr: "::"}, true},
		{"non-loopback insecure override", ServerConfig{BindAddr: "0.0.0.0", AllowInsecure: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateSecure()
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateSecure() error = %v, wantError = %v", err, tt.wantError)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
		unixOnly bool
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "just tilde", input: "~", expected: home},
		{name: "tilde with slash and path", input: "~/foo", expected: filepath.Join(home, "foo")},
		{name: "tilde with trailing slash only", input: "~/", expected: home},
		{name: "tilde user notation not expanded", input: "~user", expected: "~user"},
		{name: "absolute path unchanged", input: "/var/log/test", expected: "/var/log/test", unixOnly: true},
		{name: "relative path unchanged", input: "relative/path", expected: "relative/path"},
		{name: "nested path after tilde", input: "~/foo/bar", expected: filepath.Join(home, "foo/bar")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.unixOnly && runtime.GOOS == "windows" {
				t.Skip("skipping Unix-specific path test on Windows")
			}
			if got := expandPath(tt.input); got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDefaultHomeExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	t.Setenv(EnvHome, "~/.courier-inbox")
	if got, want := DefaultHome(), filepath.Join(home, ".courier-inbox"); got != want {
		t.Errorf("DefaultHome() = %q, want %q", got, want)
	}
}

func TestNewDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvHome, tmpDir)

	cfg := NewDefaultConfig()
	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if want := filepath.Join(tmpDir, "config.toml"); cfg.ConfigFilePath() != want {
		t.Errorf("ConfigFilePath() = %q, want %q", cfg.ConfigFilePath(), want)
	}
}
