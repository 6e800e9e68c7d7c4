// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package post implements the feed's owned resource: posts that only their
// creator may change.
package post

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/oklog/ulid/v2"
)

// MinTextLength is the minimum length of a trimmed title or content.
const MinTextLength = 5

// DefaultPerPage is the page size of List.
const DefaultPerPage = 2

// Post is a feed entry.
type Post struct {
	ID        ulid.ULID
	Title     string
	Content   string
	ImageURL  string
	CreatorID ulid.ULID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerID implements auth.Owned.
func (p *Post) OwnerID() ulid.ULID {
	return p.CreatorID
}

// Input is the user-editable part of a post.
type Input struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

// Normalize returns a copy with surrounding whitespace removed.
func (in Input) Normalize() Input {
	return Input{
		Title:    strings.TrimSpace(in.Title),
		Content:  strings.TrimSpace(in.Content),
		ImageURL: strings.TrimSpace(in.ImageURL),
	}
}

// Validate checks a normalized input.
func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title,
			validation.Required.Error("title invalid"),
			validation.Length(MinTextLength, 0).Error("title invalid")),
		validation.Field(&in.Content,
			validation.Required.Error("content invalid"),
			validation.Length(MinTextLength, 0).Error("content invalid")),
		validation.Field(&in.ImageURL,
			validation.Required.Error("no image provided")),
	)
}

// Page is one page of posts plus the total number of posts.
type Page struct {
	Posts []*Post
	Total int
}

// Repository persists posts. Save inserts or replaces by ID.
type Repository interface {
	FindByID(ctx context.Context, id ulid.ULID) (*Post, error)
	Save(ctx context.Context, post *Post) error
	DeleteByID(ctx context.Context, id ulid.ULID) error
	// List returns posts newest first along with the total count.
	List(ctx context.Context, offset, limit int) ([]*Post, int, error)
}
