package cmd

import (
	"fmt"

	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/courier"
	"github.com/sterlingconwell/courier-react/internal/messages"
)

// clientParams maps the [client] config section to factory parameters.
func clientParams(c *config.Config) courier.Params {
	return courier.Params{
		APIURL:         c.Client.APIURL,
		ClientKey:      c.Client.ClientKey,
		UserID:         c.Client.UserID,
		Authorization:  c.Client.Token,
		ClientSourceID: c.Client.ClientSourceID,
		Timeout:        c.Client.Timeout(),
		AllowInsecure:  c.Client.AllowInsecure,
	}
}

// newInboxClient builds the client from the loaded config. The result may be
// unbound; commands that need a backend use boundClient.
func newInboxClient() (*messages.Client, error) {
	client, err := courier.New(clientParams(cfg), courier.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create inbox client: %w", err)
	}
	return client, nil
}

// boundClient builds the client and fails with setup instructions when no
// credentials are configured.
func boundClient() (*messages.Client, error) {
	client, err := newInboxClient()
	if err != nil {
		return nil, err
	}
	if !client.Bound() {
		return nil, errNotConfigured()
	}
	return client, nil
}

// errNotConfigured explains how to supply credentials, using the actual
// config file path so it's clear on all platforms.
func errNotConfigured() error {
	configPath := "<config file>"
	if cfg != nil {
		configPath = cfg.ConfigFilePath()
	}
	return fmt.Errorf(`%w

Run 'courier-inbox setup', or add to %s:
  [client]
  client_key = "your-client-key"
  user_id = "your-user-id"

You can also set %s and %s, or %s for a signed token.`,
		messages.ErrNotConfigured, configPath,
		config.EnvClientKey, config.EnvUserID, config.EnvToken)
}
