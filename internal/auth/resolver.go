// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/feedpress/feedpress/pkg/errutil"
)

// Default transport names.
const (
	DefaultSessionCookie = "feedpress_session"
	DefaultTokenHeader   = "Authorization"
)

// Resolver extracts the requester identity from an incoming request.
// It returns Anonymous when the request carries no usable credential; the
// error is reserved for infrastructure faults.
type Resolver interface {
	Resolve(r *http.Request) (Identity, error)
}

// SessionAuthenticator is the part of SessionStore used by SessionResolver.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, sessionID string) (Identity, error)
}

// TokenVerifier is the part of BearerTokenService used by BearerResolver.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// SessionResolver reads the session id from a cookie.
type SessionResolver struct {
	sessions SessionAuthenticator
	cookie   string
}

// NewSessionResolver creates a SessionResolver reading cookieName.
func NewSessionResolver(sessions SessionAuthenticator, cookieName string) *SessionResolver {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return &SessionResolver{sessions: sessions, cookie: cookieName}
}

// Resolve implements Resolver.
func (r *SessionResolver) Resolve(req *http.Request) (Identity, error) {
	c, err := req.Cookie(r.cookie)
	if err != nil || c.Value == "" {
		return Anonymous, nil
	}
	return r.sessions.Authenticate(req.Context(), c.Value)
}

// BearerResolver reads a bearer token from a request header. Verification
// failures degrade the request to Anonymous instead of rejecting it; handlers
// decide whether anonymous access is allowed.
type BearerResolver struct {
	tokens TokenVerifier
	header string
	logger *slog.Logger
}

// NewBearerResolver creates a BearerResolver reading header.
func NewBearerResolver(tokens TokenVerifier, header string, logger *slog.Logger) *BearerResolver {
	if header == "" {
		header = DefaultTokenHeader
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BearerResolver{tokens: tokens, header: header, logger: logger}
}

// Resolve implements Resolver.
func (r *BearerResolver) Resolve(req *http.Request) (Identity, error) {
	token := BearerToken(req.Header.Get(r.header))
	if token == "" {
		return Anonymous, nil
	}
	identity, err := r.tokens.Verify(token)
	if err != nil {
		r.logger.DebugContext(req.Context(), "bearer token rejected", "code", errutil.Code(err))
		return Anonymous, nil
	}
	return identity, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. A bare token without scheme is accepted as well.
func BearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	scheme, token, found := strings.Cut(value, " ")
	if !found {
		return value
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ChainResolver tries resolvers in order and returns the first
// authenticated identity.
type ChainResolver []Resolver

// Resolve implements Resolver.
func (c ChainResolver) Resolve(req *http.Request) (Identity, error) {
	for _, r := range c {
		identity, err := r.Resolve(req)
		if err != nil {
			return Anonymous, err
		}
		if identity.IsAuthenticated() {
			return identity, nil
		}
	}
	return Anonymous, nil
}

// Middleware resolves the identity of every request and stores it in the
// request context. Resolver faults are logged and answered with 500.
func Middleware(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r)
			if err != nil {
				errutil.LogErrorContext(r.Context(), logger, "failed to resolve request identity", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
