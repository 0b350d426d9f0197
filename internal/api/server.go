// Package api provides the HTTP gateway for the inbox.
package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/messages"
	"github.com/sterlingconwell/courier-react/internal/watch"
)

// MessageClient defines the inbox operations the gateway needs.
type MessageClient interface {
	Bound() bool
	MessageCount(ctx context.Context, params *messages.FilterParams) (messages.Optional[int], error)
	Messages(ctx context.Context, params *messages.MessageParams, after string) (messages.Optional[messages.Page], error)
	MessageLists(ctx context.Context, specs []messages.ListSpec, limit int) (messages.Optional[map[string]messages.Page], error)
}

// UnreadWatcher defines the watcher operations the gateway needs.
type UnreadWatcher interface {
	Status() WatchStatus
	Trigger() error
}

// WatchStatus is an alias for watch.Status.
type WatchStatus = watch.Status

// Server represents the HTTP gateway.
type Server struct {
	cfg         *config.Config
	client      MessageClient
	watcher     UnreadWatcher
	logger      *slog.Logger
	router      chi.Router
	server      *http.Server
	rateLimiter *RateLimiter
}

// NewServer creates a new gateway. client and watcher may be nil.
func NewServer(cfg *config.Config, client MessageClient, watcher UnreadWatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		client:  client,
		watcher: watcher,
		logger:  logger,
	}
	s.router = s.setupRouter()
	return s
}

// Gateway limits. The rate limit applies per client IP.
const (
	requestTimeout  = 60 * time.Second
	rateLimitRPS    = 10
	rateLimitBurst  = 20
	defaultCORSAge  = 86400
	defaultBindAddr = "127.0.0.1"
)

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(CORSMiddleware(s.corsConfig()))

	s.rateLimiter = NewRateLimiter(rateLimitRPS, rateLimitBurst)
	r.Use(RateLimitMiddleware(s.rateLimiter))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", s.handleMessages)
			r.Get("/count", s.handleMessageCount)
		})
		r.Route("/lists", func(r chi.Router) {
			r.Get("/", s.handleTabLists)
			r.Post("/", s.handleMessageLists)
		})
		r.Route("/watch", func(r chi.Router) {
			r.Get("/status", s.handleWatchStatus)
			r.Post("/trigger", s.handleWatchTrigger)
		})
	})

	return r
}

// corsConfig maps [server] settings onto CORS. No origins disables CORS.
func (s *Server) corsConfig() CORSConfig {
	c := DefaultCORSConfig()
	c.AllowedOrigins = s.cfg.Server.CORSOrigins
	c.AllowCredentials = s.cfg.Server.CORSCredentials
	c.MaxAge = s.cfg.Server.CORSMaxAge
	if c.MaxAge == 0 && len(c.AllowedOrigins) > 0 {
		c.MaxAge = defaultCORSAge
	}
	return c
}

// Addr returns the host:port the gateway listens on.
func (s *Server) Addr() string {
	bindAddr := s.cfg.Server.BindAddr
	if bindAddr == "" {
		bindAddr = defaultBindAddr
	}
	return net.JoinHostPort(bindAddr, strconv.Itoa(s.cfg.Server.APIPort))
}

// Start listens until Shutdown. It refuses to start when a non-loopback
// bind has no api_key.
func (s *Server) Start() error {
	if err := s.cfg.Server.ValidateSecure(); err != nil {
		return err
	}
	if s.cfg.Server.APIKey == "" {
		s.logger.Warn("gateway running without authentication; set [server] api_key in config.toml")
	}
	if !s.bound() {
		s.logger.Warn("inbox client not configured; message endpoints will return 503")
	}

	addr := s.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	s.logger.Info("starting inbox gateway", "addr", addr, "watcher", s.watcher != nil)
	return s.server.ListenAndServe()
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down inbox gateway")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs one line per request. Upstream failures log at warn,
// health probes at debug.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			level := slog.LevelInfo
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				level = slog.LevelWarn
			case r.URL.Path == "/health":
				level = slog.LevelDebug
			}
			s.logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// apiKeyFromRequest reads the key from Authorization (optionally
// Bearer-prefixed) or X-API-Key.
func apiKeyFromRequest(r *http.Request) string {
	key := r.Header.Get("Authorization")
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	if rest, ok := strings.CutPrefix(key, "Bearer "); ok {
		return rest
	}
	return key
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := s.cfg.Server.APIKey
		if want == "" {
			next.ServeHTTP(w, r)
			return
		}
		if subtle.ConstantTimeCompare([]byte(apiKeyFromRequest(r)), []byte(want)) != 1 {
			s.logger.Warn("unauthorized gateway request",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HealthResponse reports gateway liveness and what it is wired to.
type HealthResponse struct {
	Status  string `json:"status"`
	Client  string `json:"client"`
	Watcher bool   `json:"watcher"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	client := "unbound"
	if s.bound() {
		client = "bound"
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Client: client, Watcher: s.watcher != nil})
}
