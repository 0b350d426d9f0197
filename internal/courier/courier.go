// Package courier builds inbox clients from connection parameters.
package courier

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sterlingconwell/courier-react/internal/graphql"
	"github.com/sterlingconwell/courier-react/internal/messages"
	"golang.org/x/oauth2"
)

// DefaultAPIURL is the hosted GraphQL endpoint for client-side inbox access.
const DefaultAPIURL = "https://api.courier.com/client/q"

// Header names sent with every request.
const (
	HeaderClientKey      = "x-courier-client-key"
	HeaderUserID         = "x-courier-user-id"
	HeaderClientSourceID = "x-courier-client-source-id"
)

// ErrTokenExpired is returned when the signed token's exp claim has passed.
var ErrTokenExpired = errors.New("authorization token expired")

// Params are the connection parameters for an inbox client. Exactly one of
// Executor, Authorization, or ClientKey+UserID is used, in that order of
// precedence.
type Params struct {
	APIURL         string
	ClientKey      string
	UserID         string
	Authorization  string // signed token (JWT)
	ClientSourceID string
	Executor       graphql.Executor
	Timeout        time.Duration
	AllowInsecure  bool
}

// Mode describes how a client authenticates.
type Mode string

const (
	ModeUnbound  Mode = "unbound"
	ModeExecutor Mode = "executor"
	ModeToken    Mode = "token"
	ModeBasic    Mode = "basic"
)

// Mode reports which credentials New will use.
func (p Params) Mode() Mode {
	switch {
	case p.Executor != nil:
		return ModeExecutor
	case p.Authorization != "":
		return ModeToken
	case p.ClientKey != "" && p.UserID != "":
		return ModeBasic
	default:
		return ModeUnbound
	}
}

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger for the client and its transport.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the clock used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New builds a messages client from p. When p carries no usable credentials
// the returned client is unbound (all reads are no-ops) and err is nil.
// The client is created once and is safe to share.
func New(p Params, opts ...Option) (*messages.Client, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	exec, err := newExecutor(p, o)
	if err != nil {
		return nil, err
	}
	if exec == nil {
		o.logger.Debug("inbox client unbound: no credentials configured")
	}
	return messages.NewClient(exec, messages.WithLogger(o.logger)), nil
}

func newExecutor(p Params, o options) (graphql.Executor, error) {
	mode := p.Mode()
	if mode == ModeUnbound {
		return nil, nil
	}
	if mode == ModeExecutor {
		return p.Executor, nil
	}

	apiURL := p.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	sourceID := p.ClientSourceID
	if sourceID == "" {
		sourceID = uuid.NewString()
	}

	cfg := graphql.Config{
		URL:           apiURL,
		Headers:       map[string]string{HeaderClientSourceID: sourceID},
		Timeout:       p.Timeout,
		AllowInsecure: p.AllowInsecure,
		Logger:        o.logger,
	}

	switch mode {
	case ModeToken:
		if err := checkTokenExpiry(p.Authorization, o.now()); err != nil {
			return nil, err
		}
		cfg.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: p.Authorization,
				TokenType:   "Bearer",
			}),
		}
	case ModeBasic:
		cfg.Headers[HeaderClientKey] = p.ClientKey
		cfg.Headers[HeaderUserID] = p.UserID
	}

	client, err := graphql.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create graphql client: %w", err)
	}
	o.logger.Debug("inbox client created", "mode", mode, "url", client.URL())
	return client, nil
}

// checkTokenExpiry rejects JWTs whose exp claim is in the past. The signature
// is not verified; only the backend can do that. Tokens that are not JWTs
// are passed through unchanged.
func checkTokenExpiry(token string, now time.Time) error {
	exp, ok := TokenExpiry(token)
	if !ok {
		return nil
	}
	if !now.Before(exp) {
		return fmt.Errorf("%w at %s", ErrTokenExpired, exp.UTC().Format(time.RFC3339))
	}
	return nil
}

// TokenExpiry returns the exp claim of a JWT without verifying it.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
