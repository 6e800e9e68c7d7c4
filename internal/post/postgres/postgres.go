// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package postgres provides a PostgreSQL post.Repository.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/post"
	"github.com/feedpress/feedpress/internal/store"
)

// Repository implements post.Repository using PostgreSQL.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a new Repository.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

const postColumns = `id, title, content, image_url, creator_id, created_at, updated_at`

// FindByID implements post.Repository.
func (r *Repository) FindByID(ctx context.Context, id ulid.ULID) (*post.Post, error) {
	row := r.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id.String())

	p, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("post_id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get post").
			With("post_id", id.String()).
			Wrap(err)
	}
	return p, nil
}

// Save implements post.Repository.
func (r *Repository) Save(ctx context.Context, p *post.Post) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			image_url = EXCLUDED.image_url,
			updated_at = EXCLUDED.updated_at
	`,
		p.ID.String(),
		p.Title,
		p.Content,
		p.ImageURL,
		p.CreatorID.String(),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return oops.With("operation", "save post").
			With("post_id", p.ID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByID implements post.Repository.
func (r *Repository) DeleteByID(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id.String())
	if err != nil {
		return oops.With("operation", "delete post").
			With("post_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("post_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// List implements post.Repository.
func (r *Repository) List(ctx context.Context, offset, limit int) ([]*post.Post, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, oops.With("operation", "count posts").Wrap(err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		ORDER BY created_at DESC, id DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, oops.With("operation", "list posts").Wrap(err)
	}
	defer rows.Close()

	posts := []*post.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, oops.With("operation", "scan post row").Wrap(err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, oops.With("operation", "iterate posts").Wrap(err)
	}
	return posts, total, nil
}

func scanPost(row pgx.Row) (*post.Post, error) {
	var (
		idStr, creatorStr string
		p                 post.Post
	)
	if err := row.Scan(&idStr, &p.Title, &p.Content, &p.ImageURL, &creatorStr, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
	}

	var err error
	if p.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("POST_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if p.CreatorID, err = ulid.Parse(creatorStr); err != nil {
		return nil, oops.Code("POST_INVALID_CREATOR_ID").With("creator_id", creatorStr).Wrap(err)
	}
	return &p, nil
}

var _ post.Repository = (*Repository)(nil)
