// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedpress/feedpress/internal/auth"
	authmem "github.com/feedpress/feedpress/internal/auth/memory"
	"github.com/feedpress/feedpress/internal/mail"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/internal/post"
	postmem "github.com/feedpress/feedpress/internal/post/memory"
)

const (
	testBaseURL    = "http://feed.test"
	testSigningKey = "0123456789abcdef0123456789abcdef"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	t        *testing.T
	srv      *Server
	handler  http.Handler
	users    *authmem.UserRepository
	sessions *authmem.SessionRepository
	resets   *authmem.ResetTokenRepository
	store    *auth.SessionStore
	tokens   *auth.BearerTokenService
	outbox   *mail.Outbox
	metrics  *observability.Metrics
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := &clock{t: time.Now().UTC()}
	opts := []auth.Option{auth.WithClock(clk.Now)}

	users := authmem.NewUserRepository()
	sessions := authmem.NewSessionRepository()
	resets := authmem.NewResetTokenRepository()

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	accounts, err := auth.NewAuthService(users, hasher, opts...)
	require.NoError(t, err)
	store, err := auth.NewSessionStore(sessions, users, time.Hour, opts...)
	require.NoError(t, err)
	resetSvc, err := auth.NewPasswordResetService(users, resets, hasher, opts...)
	require.NoError(t, err)
	tokens, err := auth.NewBearerTokenService([]byte(testSigningKey), opts...)
	require.NoError(t, err)
	posts, err := post.NewService(postmem.NewRepository(), post.WithClock(clk.Now))
	require.NoError(t, err)

	outbox := &mail.Outbox{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	srv, err := New(Config{
		BaseURL:  testBaseURL + "/",
		MailFrom: "shop@feed.test",
	}, Deps{
		Accounts: accounts,
		Sessions: store,
		Resets:   resetSvc,
		Posts:    posts,
		Mailer:   outbox,
		Resolver: auth.ChainResolver{
			auth.NewSessionResolver(store, auth.DefaultSessionCookie),
			auth.NewBearerResolver(tokens, auth.DefaultTokenHeader, nil),
		},
		Metrics: metrics,
	})
	require.NoError(t, err)

	return &fixture{
		t:        t,
		srv:      srv,
		handler:  srv.Handler(),
		users:    users,
		sessions: sessions,
		resets:   resets,
		store:    store,
		tokens:   tokens,
		outbox:   outbox,
		metrics:  metrics,
		clock:    clk,
	}
}

type requestOpt func(*http.Request)

func withCookie(c *http.Cookie) requestOpt {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withBearer(token string) requestOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (f *fixture) form(path string, values url.Values, opts ...requestOpt) *http.Response {
	f.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req, opts...)
}

func (f *fixture) sendJSON(method, path string, body any, opts ...requestOpt) *http.Response {
	f.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		r = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.do(req, opts...)
}

func (f *fixture) do(req *http.Request, opts ...requestOpt) *http.Response {
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec.Result()
}

// signup registers a user through the surface.
func (f *fixture) signup(email, password string) {
	f.t.Helper()
	resp := f.form("/signup", url.Values{
		"email":           {email},
		"password":        {password},
		"confirmPassword": {password},
		"name":            {strings.Split(email, "@")[0]},
	})
	require.Equal(f.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(f.t, "/login", resp.Header.Get("Location"))
	f.srv.Wait()
}

// resetToken requests a reset for email and returns the token from the link
// in the delivered reset email.
func (f *fixture) resetToken(email string) string {
	f.t.Helper()
	resp := f.form("/reset", url.Values{"email": {email}})
	require.Equal(f.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(f.t, "/", resp.Header.Get("Location"))
	f.srv.Wait()

	msg, ok := f.outbox.Find(email, mail.SubjectReset)
	require.True(f.t, ok, "reset email sent to %s", email)
	require.Contains(f.t, msg.HTML, testBaseURL+"/reset/")
	match := resetLink.FindStringSubmatch(msg.HTML)
	require.Len(f.t, match, 2)
	return match[1]
}

// login returns the session cookie set by a successful login.
func (f *fixture) login(email, password string) *http.Cookie {
	f.t.Helper()
	resp := f.form("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(f.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(f.t, "/", resp.Header.Get("Location"))
	return sessionCookie(f.t, resp)
}

// identity returns the identity registered under email.
func (f *fixture) identity(email string) auth.Identity {
	f.t.Helper()
	user, err := f.users.GetByEmail(context.Background(), email)
	require.NoError(f.t, err)
	return user.Identity()
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == auth.DefaultSessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.DefaultSessionCookie)
	return nil
}

func redirectError(t *testing.T, resp *http.Response) (string, string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return loc.Path, loc.Query().Get("error")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
