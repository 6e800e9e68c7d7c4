// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package web is the session-based HTTP surface: account pages (login,
// logout, signup, password reset) redirect like form posts, and the feed API
// speaks JSON.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/mail"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/internal/post"
)

// mailTimeout bounds a single best-effort email delivery.
const mailTimeout = 30 * time.Second

// Config holds the surface settings.
type Config struct {
	BaseURL      string
	CookieName   string
	CookieSecure bool
	MailFrom     string
}

// Deps are the collaborators of the surface. Metrics and Logger are optional.
type Deps struct {
	Accounts *auth.Service
	Sessions *auth.SessionStore
	Resets   *auth.PasswordResetService
	Posts    *post.Service
	Mailer   mail.Mailer
	Resolver auth.Resolver
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Server serves the resource surface.
type Server struct {
	cfg      Config
	accounts *auth.Service
	sessions *auth.SessionStore
	resets   *auth.PasswordResetService
	posts    *post.Service
	mailer   mail.Mailer
	resolver auth.Resolver
	metrics  *observability.Metrics
	logger   *slog.Logger

	mailWG sync.WaitGroup
}

// New creates a Server.
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Accounts == nil:
		return nil, oops.Code("WEB_INVALID").Errorf("account service is required")
	case deps.Sessions == nil:
		return nil, oops.Code("WEB_INVALID").Errorf("session store is required")
	case deps.Resets == nil:
		return nil, oops.Code("WEB_INVALID").Errorf("reset service is required")
	case deps.Posts == nil:
		return nil, oops.Code("WEB_INVALID").Errorf("post service is required")
	case deps.Mailer == nil:
		return nil, oops.Code("WEB_INVALID").Errorf("mailer is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = auth.DefaultSessionCookie
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver = auth.NewSessionResolver(deps.Sessions, cfg.CookieName)
	}
	return &Server{
		cfg:      cfg,
		accounts: deps.Accounts,
		sessions: deps.Sessions,
		resets:   deps.Resets,
		posts:    deps.Posts,
		mailer:   deps.Mailer,
		resolver: resolver,
		metrics:  deps.Metrics,
		logger:   logger.With("component", "web"),
	}, nil
}

// Routes registers the surface on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /reset", s.handleResetRequest)
	mux.HandleFunc("GET /reset/{token}", s.handleResetForm)
	mux.HandleFunc("POST /reset/{token}", s.handleResetComplete)

	mux.HandleFunc("GET /feed/posts", s.handleListPosts)
	mux.HandleFunc("POST /feed/post", s.handleCreatePost)
	mux.HandleFunc("GET /feed/post/{postId}", s.handleGetPost)
	mux.HandleFunc("PUT /feed/post/{postId}", s.handleUpdatePost)
	mux.HandleFunc("DELETE /feed/post/{postId}", s.handleDeletePost)
}

// Handler returns the surface with identity resolution and request metrics
// applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	return s.metrics.Instrument(observability.SurfaceWeb, auth.Middleware(s.resolver, s.logger)(mux))
}

// Wait blocks until in-flight email deliveries finish.
func (s *Server) Wait() {
	s.mailWG.Wait()
}

// sendMail delivers msg in the background. Failures are logged and counted
// but never reach the client, which has already been redirected.
func (s *Server) sendMail(ctx context.Context, kind string, msg mail.Message) {
	ctx = context.WithoutCancel(ctx)
	s.mailWG.Add(1)
	go func() {
		defer s.mailWG.Done()
		ctx, cancel := context.WithTimeout(ctx, mailTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, msg); err != nil {
			observability.RecordMailFailure(kind)
			s.logger.WarnContext(ctx, "failed to send email",
				"kind", kind,
				"to", msg.To,
				"error", err)
		}
	}()
}

// NewHTTPServer wraps handler in an http.Server with the timeouts used by
// every listener of the application.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
