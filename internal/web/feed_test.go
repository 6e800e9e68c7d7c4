// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/observability"
)

func validPost(title string) map[string]string {
	return map[string]string{
		"title":    title,
		"content":  "some content here",
		"imageUrl": "images/cat.png",
	}
}

func (f *fixture) createPost(cookie *http.Cookie, title string) postJSON {
	f.t.Helper()
	resp := f.sendJSON(http.MethodPost, "/feed/post", validPost(title), withCookie(cookie))
	require.Equal(f.t, http.StatusCreated, resp.StatusCode)
	body := decode[postResponse](f.t, resp)
	require.NotNil(f.t, body.Post)
	return *body.Post
}

func TestFeed_OwnershipAcrossUsers(t *testing.T) {
	f := newFixture(t)
	f.signup("ada@example.com", "secret-1")
	f.signup("bob@example.com", "secret-2")
	ada := f.login("ada@example.com", "secret-1")
	bob := f.login("bob@example.com", "secret-2")

	created := f.createPost(ada, "First post")
	assert.Equal(t, f.identity("ada@example.com").UserID.String(), created.Creator.ID)
	path := "/feed/post/" + created.ID

	// Anyone signed in can read.
	resp := f.sendJSON(http.MethodGet, path, nil, withCookie(bob))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post fetched!", decode[postResponse](t, resp).Message)

	// Only the creator can change it.
	resp = f.sendJSON(http.MethodPut, path, validPost("Hijacked"), withCookie(bob))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, auth.CodeForbidden, decode[errorBody](t, resp).Code)

	resp = f.sendJSON(http.MethodDelete, path, nil, withCookie(bob))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.sendJSON(http.MethodPut, path, validPost("Anonymous edit"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.sendJSON(http.MethodPut, path, validPost("Edited post"), withCookie(ada))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[postResponse](t, resp)
	assert.Equal(t, "Post updated!", updated.Message)
	assert.Equal(t, "Edited post", updated.Post.Title)

	resp = f.sendJSON(http.MethodDelete, path, nil, withCookie(ada))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Deleted post!", decode[postResponse](t, resp).Message)

	resp = f.sendJSON(http.MethodGet, path, nil, withCookie(ada))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.AuthzDenialsTotal.WithLabelValues(observability.SurfaceWeb, auth.CodeForbidden)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.AuthzDenialsTotal.WithLabelValues(observability.SurfaceWeb, auth.CodeUnauthenticated)), 0)
}

func TestFeed_AnonymousIsRejected(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/feed/posts", nil},
		{http.MethodPost, "/feed/post", validPost("Some title")},
		{http.MethodGet, "/feed/post/" + ulid.Make().String(), nil},
		{http.MethodPut, "/feed/post/not-an-id", validPost("Some title")},
		{http.MethodDelete, "/feed/post/" + ulid.Make().String(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := f.sendJSON(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, auth.CodeUnauthenticated, decode[errorBody](t, resp).Code)
		})
	}
}

func TestFeed_NotFoundAfterAuthentication(t *testing.T) {
	f := newFixture(t)
	f.signup("ada@example.com", "secret-1")
	ada := f.login("ada@example.com", "secret-1")

	for _, id := range []string{ulid.Make().String(), "not-an-id"} {
		resp := f.sendJSON(http.MethodPut, "/feed/post/"+id, validPost("Some title"), withCookie(ada))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, id)
	}
}

func TestFeed_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	f.signup("ada@example.com", "secret-1")
	ada := f.login("ada@example.com", "secret-1")

	resp := f.sendJSON(http.MethodPost, "/feed/post", map[string]string{"title": "abc", "content": "  "}, withCookie(ada))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, auth.CodeInvalidInput, body.Code)
	assert.Equal(t, []auth.FieldMessage{
		{Field: "content", Message: "content invalid"},
		{Field: "imageUrl", Message: "no image provided"},
		{Field: "title", Message: "title invalid"},
	}, body.Data)
}

func TestFeed_MalformedJSON(t *testing.T) {
	f := newFixture(t)
	f.signup("ada@example.com", "secret-1")
	ada := f.login("ada@example.com", "secret-1")

	req := newRawRequest(http.MethodPost, "/feed/post", "{not json", "application/json")
	resp := f.do(req, withCookie(ada))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestFeed_FormBodies(t *testing.T) {
	f := newFixture(t)
	f.signup("ada@example.com", "secret-1")
	ada := f.login("ada@example.com", "secret-1")

	values := url.Values{"title": {"Form post"}, "content": {"posted as a form"}, "imageUrl": {"images/x.png"}}
	req := newRawRequest(http.MethodPost, "/feed/post", values.Encode(), "application/x-www-form-urlencoded")
	resp := f.do(req, withCookie(ada))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[postResponse](t, resp)
	assert.Equal(t, "Form post", body.Post.Title)
	require.NotNil(t, body.Creator)
	assert.Equal(t, "ada", body.Creator.Name)
}

func TestFeed_ListPaginates(t *testing.T) {
	f := newFixture(t)
	f.signup("ada@example.com", "secret-1")
	ada := f.login("ada@example.com", "secret-1")

	for i := 1; i <= 3; i++ {
		f.createPost(ada, fmt.Sprintf("Post number %d", i))
		f.clock.Advance(time.Second)
	}

	resp := f.sendJSON(http.MethodGet, "/feed/posts?page=1", nil, withCookie(ada))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[listResponse](t, resp)
	assert.Equal(t, "Fetched posts successfully.", first.Message)
	assert.Equal(t, 3, first.TotalItems)
	require.Len(t, first.Posts, 2)
	assert.Equal(t, "Post number 3", first.Posts[0].Title)

	resp = f.sendJSON(http.MethodGet, "/feed/posts?page=2", nil, withCookie(ada))
	second := decode[listResponse](t, resp)
	require.Len(t, second.Posts, 1)
	assert.Equal(t, "Post number 1", second.Posts[0].Title)

	resp = f.sendJSON(http.MethodGet, "/feed/posts?page=9", nil, withCookie(ada))
	empty := decode[listResponse](t, resp)
	assert.NotNil(t, empty.Posts)
	assert.Empty(t, empty.Posts)
}

func TestFeed_BearerIdentity(t *testing.T) {
	f := newFixture(t)
	f.signup("ada@example.com", "secret-1")
	token, _, err := f.tokens.Issue(f.identity("ada@example.com"))
	require.NoError(t, err)

	resp := f.sendJSON(http.MethodPost, "/feed/post", validPost("Via token"), withBearer(token))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.sendJSON(http.MethodPost, "/feed/post", validPost("Via token"), withBearer(token+"x"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func newRawRequest(method, path, body, contentType string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}
