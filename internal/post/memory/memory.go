// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package memory provides an in-process post.Repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/post"
)

// Repository stores posts in a map.
type Repository struct {
	mu    sync.RWMutex
	posts map[ulid.ULID]*post.Post
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{posts: make(map[ulid.ULID]*post.Post)}
}

// FindByID implements post.Repository.
func (r *Repository) FindByID(_ context.Context, id ulid.ULID) (*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, oops.With("post_id", id.String()).Wrap(auth.ErrNotFound)
	}
	c := *p
	return &c, nil
}

// Save implements post.Repository.
func (r *Repository) Save(_ context.Context, p *post.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *p
	r.posts[c.ID] = &c
	return nil
}

// DeleteByID implements post.Repository.
func (r *Repository) DeleteByID(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return oops.With("post_id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.posts, id)
	return nil
}

// List implements post.Repository.
func (r *Repository) List(_ context.Context, offset, limit int) ([]*post.Post, int, error) {
	r.mu.RLock()
	all := make([]*post.Post, 0, len(r.posts))
	for _, p := range r.posts {
		c := *p
		all = append(all, &c)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.Compare(all[j].ID) > 0
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*post.Post{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

var _ post.Repository = (*Repository)(nil)
