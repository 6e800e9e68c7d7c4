// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/post"
)

// creatorJSON identifies the owner of a post.
type creatorJSON struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// postJSON is the wire form of a post.
type postJSON struct {
	ID        string      `json:"_id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	ImageURL  string      `json:"imageUrl"`
	Creator   creatorJSON `json:"creator"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func toPostJSON(p *post.Post) postJSON {
	return postJSON{
		ID:        p.ID.String(),
		Title:     p.Title,
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		Creator:   creatorJSON{ID: p.CreatorID.String()},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type listResponse struct {
	Message    string     `json:"message"`
	Posts      []postJSON `json:"posts"`
	TotalItems int        `json:"totalItems"`
}

type postResponse struct {
	Message string       `json:"message"`
	Post    *postJSON    `json:"post,omitempty"`
	Creator *creatorJSON `json:"creator,omitempty"`
}

// postID parses the path id. An unparseable id becomes the zero id, which
// no post has, so the service reports it as not found after authentication.
func postID(r *http.Request) ulid.ULID {
	id, err := ulid.Parse(r.PathValue("postId"))
	if err != nil {
		return ulid.ULID{}
	}
	return id
}

func readPostInput(w http.ResponseWriter, r *http.Request) (post.Input, error) {
	fields, err := readFields(w, r)
	if err != nil {
		return post.Input{}, err
	}
	return post.Input{
		Title:    fields.Get("title"),
		Content:  fields.Get("content"),
		ImageURL: fields.Get("imageUrl"),
	}, nil
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page = n
		}
	}

	result, err := s.posts.List(r.Context(), auth.IdentityFromContext(r.Context()), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Message:    "Fetched posts successfully.",
		Posts:      lo.Map(result.Posts, func(p *post.Post, _ int) postJSON { return toPostJSON(p) }),
		TotalItems: result.Total,
	})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if err := auth.RequireAuthenticated(identity); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := readPostInput(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.posts.Create(r.Context(), identity, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := toPostJSON(created)
	writeJSON(w, http.StatusCreated, postResponse{
		Message: "Post created successfully!",
		Post:    &body,
		Creator: &creatorJSON{ID: identity.UserID.String(), Name: identity.DisplayName},
	})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	found, err := s.posts.Get(r.Context(), auth.IdentityFromContext(r.Context()), postID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body := toPostJSON(found)
	writeJSON(w, http.StatusOK, postResponse{Message: "Post fetched!", Post: &body})
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if err := auth.RequireAuthenticated(identity); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := readPostInput(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.posts.Update(r.Context(), identity, postID(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body := toPostJSON(updated)
	writeJSON(w, http.StatusOK, postResponse{Message: "Post updated!", Post: &body})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	err := s.posts.Delete(r.Context(), auth.IdentityFromContext(r.Context()), postID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Message: "Deleted post!"})
}
