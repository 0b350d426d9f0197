package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody bounds how much of a failed response is kept for the error.
	maxErrorBody = 4096
)

// Config holds configuration for creating a Client.
type Config struct {
	URL           string
	Headers       map[string]string
	Transport     http.RoundTripper // optional; wraps auth such as oauth2.Transport
	Timeout       time.Duration
	AllowInsecure bool
	Logger        *slog.Logger
}

// Client executes GraphQL operations over HTTP POST.
type Client struct {
	url        string
	headers    map[string]string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new HTTP GraphQL client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, eris.New("graphql URL is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, eris.Wrap(err, "invalid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, eris.Errorf("URL scheme must be http or https, got: %s", parsedURL.Scheme)
	}

	// Enforce HTTPS unless AllowInsecure is set
	if parsedURL.Scheme == "http" && !cfg.AllowInsecure {
		return nil, eris.New("HTTPS required for the inbox API\n\n" +
			"Options:\n" +
			"  1. Use HTTPS: [client] api_url = \"https://api.courier.com/client/q\"\n" +
			"  2. For local testing: add 'allow_insecure = true' to [client] in config.toml")
	}

	if parsedURL.Host == "" {
		return nil, eris.New("graphql URL must include a host (e.g., https://api.courier.com/client/q)")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Client{
		url:     strings.TrimSuffix(cfg.URL, "/"),
		headers: headers,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
		logger: logger,
	}, nil
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("graphql HTTP error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("graphql HTTP error (%d): %s", e.StatusCode, e.Body)
}

// Execute posts the request and decodes the response envelope. GraphQL
// errors inside a 2xx envelope are returned in Response.Errors, not as err.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	c.logger.Debug("graphql request",
		"operation", req.OperationName,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, handleErrorResponse(resp)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "decode response")
	}
	return &out, nil
}

// handleErrorResponse reads a failed response and returns a *StatusError.
// Bodies shaped as a GraphQL envelope or {"message": ...} contribute their
// message.
func handleErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(raw)),
	}

	var envelope struct {
		Message string `json:"message"`
		Errors  Errors `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Message != "":
			statusErr.Message = envelope.Message
		case len(envelope.Errors) > 0:
			statusErr.Message = envelope.Errors[0].Message
		}
	}
	return statusErr
}
