// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package post

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/feedpress/feedpress/internal/auth"
)

// Service applies the feed rules on top of a Repository. Every mutation runs
// RequireAuthenticated, then loads the post, then RequireOwner, so both API
// surfaces report the same error for the same request.
type Service struct {
	repo    Repository
	perPage int
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPerPage sets the List page size.
func WithPerPage(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.perPage = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service.
func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("POST_SERVICE_INVALID").Errorf("post repository is required")
	}
	s := &Service{repo: repo, perPage: DefaultPerPage, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PerPage returns the List page size.
func (s *Service) PerPage() int {
	return s.perPage
}

// Create stores a new post owned by identity.
func (s *Service) Create(ctx context.Context, identity auth.Identity, in Input) (*Post, error) {
	if err := auth.RequireAuthenticated(identity); err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, auth.ValidationError(err)
	}

	now := s.now()
	p := &Post{
		ID:        ulid.Make(),
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		CreatorID: identity.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, oops.Code("POST_CREATE_FAILED").
			With("user_id", identity.UserID.String()).
			Wrap(err)
	}
	return p, nil
}

// Get returns a single post.
func (s *Service) Get(ctx context.Context, identity auth.Identity, id ulid.ULID) (*Post, error) {
	if err := auth.RequireAuthenticated(identity); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// List returns the 1-based page of posts. Pages below 1 are treated as 1;
// pages past the end are empty.
func (s *Service) List(ctx context.Context, identity auth.Identity, page int) (*Page, error) {
	if err := auth.RequireAuthenticated(identity); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	offset := math.MaxInt
	if page-1 <= math.MaxInt/s.perPage {
		offset = (page - 1) * s.perPage
	}
	posts, total, err := s.repo.List(ctx, offset, s.perPage)
	if err != nil {
		return nil, oops.Code("POST_LIST_FAILED").
			With("page", page).
			Wrap(err)
	}
	return &Page{Posts: posts, Total: total}, nil
}

// Update replaces the editable fields of a post owned by identity.
func (s *Service) Update(ctx context.Context, identity auth.Identity, id ulid.ULID, in Input) (*Post, error) {
	p, err := s.loadOwned(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, auth.ValidationError(err)
	}

	p.Title = in.Title
	p.Content = in.Content
	p.ImageURL = in.ImageURL
	p.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, oops.Code("POST_UPDATE_FAILED").
			With("post_id", id.String()).
			Wrap(err)
	}
	return p, nil
}

// Delete removes a post owned by identity.
func (s *Service) Delete(ctx context.Context, identity auth.Identity, id ulid.ULID) error {
	if _, err := s.loadOwned(ctx, identity, id); err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return oops.Code("POST_DELETE_FAILED").
			With("post_id", id.String()).
			Wrap(err)
	}
	return nil
}

func (s *Service) loadOwned(ctx context.Context, identity auth.Identity, id ulid.ULID) (*Post, error) {
	if err := auth.RequireAuthenticated(identity); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(identity, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) load(ctx context.Context, id ulid.ULID) (*Post, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, ErrPostNotFound(id)
		}
		return nil, oops.Code("POST_GET_FAILED").
			With("post_id", id.String()).
			Wrap(err)
	}
	return p, nil
}

// ErrPostNotFound is the NOT_FOUND error for a missing post.
func ErrPostNotFound(id ulid.ULID) error {
	return oops.Code(auth.CodeNotFound).
		With("post_id", id.String()).
		Errorf("could not find post")
}
