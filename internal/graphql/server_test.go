// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedpress/feedpress/internal/auth"
	authmem "github.com/feedpress/feedpress/internal/auth/memory"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/internal/post"
	postmem "github.com/feedpress/feedpress/internal/post/memory"
	"github.com/feedpress/feedpress/pkg/errutil"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	t       *testing.T
	handler http.Handler
	metrics *observability.Metrics
	clock   *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{t: time.Now().UTC()}
	opts := []auth.Option{auth.WithClock(clk.Now)}

	users := authmem.NewUserRepository()
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	accounts, err := auth.NewAuthService(users, hasher, opts...)
	require.NoError(t, err)
	tokens, err := auth.NewBearerTokenService([]byte("0123456789abcdef0123456789abcdef"), opts...)
	require.NoError(t, err)
	posts, err := post.NewService(postmem.NewRepository(), post.WithClock(clk.Now))
	require.NoError(t, err)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	srv, err := New(Deps{
		Accounts: accounts,
		Tokens:   tokens,
		Users:    users,
		Posts:    posts,
		Metrics:  metrics,
	})
	require.NoError(t, err)

	return &fixture{t: t, handler: srv.Handler(), metrics: metrics, clock: clk}
}

type gqlError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions"`
}

type response struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []gqlError                 `json:"errors"`
}

func (f *fixture) exec(token, query string, vars map[string]any) response {
	f.t.Helper()
	raw, err := json.Marshal(Request{Query: query, Variables: vars})
	require.NoError(f.t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(f.t, http.StatusOK, rec.Code)

	var out response
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (r response) field(t *testing.T, name string, dst any) {
	t.Helper()
	require.Empty(t, r.Errors)
	require.Contains(t, r.Data, name)
	require.NoError(t, json.Unmarshal(r.Data[name], dst))
}

func (r response) code(t *testing.T) string {
	t.Helper()
	require.Len(t, r.Errors, 1)
	code, _ := r.Errors[0].Extensions["code"].(string)
	return code
}

const (
	createUserMutation = `mutation($email: String!, $name: String, $password: String!) {
		createUser(userInput: {email: $email, name: $name, password: $password}) { _id email name }
	}`
	loginMutation = `mutation($email: String!, $password: String!) {
		login(email: $email, password: $password) { token userId }
	}`
	createPostMutation = `mutation($title: String!) {
		createPost(postInput: {title: $title, content: "some content here", imageUrl: "images/cat.png"}) {
			_id title creator { _id name }
		}
	}`
	updatePostMutation = `mutation($id: ID!, $title: String!) {
		updatePost(id: $id, postInput: {title: $title, content: "edited content", imageUrl: "images/dog.png"}) { _id title }
	}`
	deletePostMutation = `mutation($id: ID!) { deletePost(id: $id) }`
	postQuery          = `query($id: ID!) { post(id: $id) { _id title } }`
	postsQuery         = `query($page: Int) { posts(page: $page) { totalPosts posts { _id title } } }`
	meQuery            = `{ me { _id email name } }`
)

type userResult struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type postResult struct {
	ID      string     `json:"_id"`
	Title   string     `json:"title"`
	Creator userResult `json:"creator"`
}

func (f *fixture) register(email, name, password string) (userResult, string) {
	f.t.Helper()
	var user userResult
	f.exec("", createUserMutation, map[string]any{"email": email, "name": name, "password": password}).
		field(f.t, "createUser", &user)
	var login authResult
	f.exec("", loginMutation, map[string]any{"email": email, "password": password}).
		field(f.t, "login", &login)
	require.Equal(f.t, user.ID, login.UserID)
	return user, login.Token
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Deps{})
	errutil.AssertErrorCode(t, err, "GRAPHQL_INVALID")
}

func TestCreateUserLoginMe(t *testing.T) {
	f := newFixture(t)

	user, token := f.register("Ada@Example.com", "Ada", "secret-1")
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)

	var me userResult
	f.exec(token, meQuery, nil).field(t, "me", &me)
	assert.Equal(t, user, me)

	assert.Equal(t, auth.CodeUnauthenticated, f.exec("", meQuery, nil).code(t))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(observability.SurfaceGraphQL, observability.ResultSuccess)), 0)
}

func TestCreateUser_Errors(t *testing.T) {
	f := newFixture(t)
	f.register("ada@example.com", "Ada", "secret-1")

	dup := f.exec("", createUserMutation, map[string]any{"email": "ADA@example.com", "name": "Other", "password": "secret-2"})
	assert.Equal(t, auth.CodeConflict, dup.code(t))
	assert.InDelta(t, http.StatusConflict, dup.Errors[0].Extensions["status"], 0)

	invalid := f.exec("", createUserMutation, map[string]any{"email": "nope", "password": "abc"})
	assert.Equal(t, auth.CodeInvalidInput, invalid.code(t))
	assert.InDelta(t, http.StatusUnprocessableEntity, invalid.Errors[0].Extensions["status"], 0)
	fields, ok := invalid.Errors[0].Extensions["fields"].([]any)
	require.True(t, ok)
	assert.Len(t, fields, 2)
}

func TestLogin_FailuresLookAlike(t *testing.T) {
	f := newFixture(t)
	f.register("ada@example.com", "Ada", "secret-1")

	wrong := f.exec("", loginMutation, map[string]any{"email": "ada@example.com", "password": "wrong-one"})
	unknown := f.exec("", loginMutation, map[string]any{"email": "bob@example.com", "password": "secret-1"})

	assert.Equal(t, auth.CodeUnauthenticated, wrong.code(t))
	assert.Equal(t, auth.CodeUnauthenticated, unknown.code(t))
	assert.Equal(t, wrong.Errors[0].Message, unknown.Errors[0].Message)
	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(observability.SurfaceGraphQL, observability.ResultFailure)), 0)
}

func TestPosts_OwnershipAcrossUsers(t *testing.T) {
	f := newFixture(t)
	ada, adaToken := f.register("ada@example.com", "Ada", "secret-1")
	_, bobToken := f.register("bob@example.com", "Bob", "secret-2")

	var created postResult
	f.exec(adaToken, createPostMutation, map[string]any{"title": "First post"}).field(t, "createPost", &created)
	assert.Equal(t, ada.ID, created.Creator.ID)
	assert.Equal(t, "Ada", created.Creator.Name)

	assert.Equal(t, auth.CodeUnauthenticated,
		f.exec("", createPostMutation, map[string]any{"title": "Anonymous"}).code(t))
	assert.Equal(t, auth.CodeForbidden,
		f.exec(bobToken, updatePostMutation, map[string]any{"id": created.ID, "title": "Hijacked"}).code(t))
	assert.Equal(t, auth.CodeForbidden,
		f.exec(bobToken, deletePostMutation, map[string]any{"id": created.ID}).code(t))

	var fetched postResult
	f.exec(bobToken, postQuery, map[string]any{"id": created.ID}).field(t, "post", &fetched)
	assert.Equal(t, "First post", fetched.Title)

	var updated postResult
	f.exec(adaToken, updatePostMutation, map[string]any{"id": created.ID, "title": "Edited post"}).
		field(t, "updatePost", &updated)
	assert.Equal(t, "Edited post", updated.Title)

	var deleted bool
	f.exec(adaToken, deletePostMutation, map[string]any{"id": created.ID}).field(t, "deletePost", &deleted)
	assert.True(t, deleted)

	assert.Equal(t, auth.CodeNotFound, f.exec(adaToken, postQuery, map[string]any{"id": created.ID}).code(t))
	assert.Equal(t, auth.CodeNotFound, f.exec(adaToken, postQuery, map[string]any{"id": "not-an-id"}).code(t))

	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.AuthzDenialsTotal.WithLabelValues(observability.SurfaceGraphQL, auth.CodeForbidden)), 0)
}

func TestPosts_ListAndValidation(t *testing.T) {
	f := newFixture(t)
	_, token := f.register("ada@example.com", "Ada", "secret-1")

	for _, title := range []string{"Post one", "Post two", "Post three"} {
		var p postResult
		f.exec(token, createPostMutation, map[string]any{"title": title}).field(t, "createPost", &p)
		f.clock.Advance(time.Second)
	}

	var page struct {
		TotalPosts int          `json:"totalPosts"`
		Posts      []postResult `json:"posts"`
	}
	f.exec(token, postsQuery, map[string]any{"page": 2}).field(t, "posts", &page)
	assert.Equal(t, 3, page.TotalPosts)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Post one", page.Posts[0].Title)

	f.exec(token, postsQuery, nil).field(t, "posts", &page)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, "Post three", page.Posts[0].Title)

	short := f.exec(token, createPostMutation, map[string]any{"title": "abc"})
	assert.Equal(t, auth.CodeInvalidInput, short.code(t))
}

func TestExpiredTokenIsAnonymous(t *testing.T) {
	f := newFixture(t)
	_, token := f.register("ada@example.com", "Ada", "secret-1")

	f.clock.Advance(auth.BearerTokenExpiry + time.Second)

	assert.Equal(t, auth.CodeUnauthenticated, f.exec(token, meQuery, nil).code(t))
	assert.Equal(t, auth.CodeUnauthenticated,
		f.exec(token, createPostMutation, map[string]any{"title": "Too late"}).code(t))
}

func TestMalformedBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed request body")
}

func TestError_Extensions(t *testing.T) {
	e := &Error{Message: "bad", Code: auth.CodeInvalidInput, Status: 422,
		Fields: []auth.FieldMessage{{Field: "title", Message: "title invalid"}}}

	ext := e.Extensions()
	assert.Equal(t, auth.CodeInvalidInput, ext["code"])
	assert.Equal(t, 422, ext["status"])
	assert.Len(t, ext["fields"], 1)

	bare := (&Error{Code: auth.CodeForbidden, Status: 403}).Extensions()
	assert.NotContains(t, bare, "fields")
}
