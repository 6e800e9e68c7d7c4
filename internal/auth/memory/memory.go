// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package memory provides in-process implementations of the auth
// repositories. They back the "memory" database driver and the tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/feedpress/feedpress/internal/auth"
)

// Compile-time interface checks.
var (
	_ auth.UserRepository       = (*UserRepository)(nil)
	_ auth.SessionRepository    = (*SessionRepository)(nil)
	_ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)
)

// UserRepository stores users in a map keyed by ID.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.User
	byEmail map[string]ulid.ULID
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[ulid.ULID]*auth.User),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Create implements auth.UserRepository.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return oops.Code(auth.CodeConflict).
			With("email", user.Email).
			Wrap(auth.ErrEmailTaken)
	}
	u := *user
	r.byID[u.ID] = &u
	r.byEmail[u.Email] = u.ID
	return nil
}

// GetByID implements auth.UserRepository.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, oops.With("user_id", id.String()).Wrap(auth.ErrNotFound)
	}
	c := *u
	return &c, nil
}

// GetByEmail implements auth.UserRepository.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	c := *r.byID[id]
	return &c, nil
}

// UpdatePassword implements auth.UserRepository.
func (r *UserRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return oops.With("user_id", id.String()).Wrap(auth.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

// SessionRepository stores sessions keyed by token hash.
type SessionRepository struct {
	mu     sync.RWMutex
	byHash map[string]*auth.Session
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{byHash: make(map[string]*auth.Session)}
}

// Create implements auth.SessionRepository.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := *session
	r.byHash[s.TokenHash] = &s
	return nil
}

// GetByTokenHash implements auth.SessionRepository.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byHash[tokenHash]
	if !ok {
		return nil, oops.Wrap(auth.ErrNotFound)
	}
	c := *s
	return &c, nil
}

// UpdateLastSeen implements auth.SessionRepository.
func (r *SessionRepository) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.byHash {
		if s.ID == id {
			s.LastSeenAt = lastSeen
			return nil
		}
	}
	return oops.With("session_id", id.String()).Wrap(auth.ErrNotFound)
}

// Delete implements auth.SessionRepository.
func (r *SessionRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, s := range r.byHash {
		if s.ID == id {
			delete(r.byHash, hash)
			return nil
		}
	}
	return nil
}

// DeleteExpired implements auth.SessionRepository.
func (r *SessionRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, s := range r.byHash {
		if s.ExpiresAt.Before(before) {
			delete(r.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHash)
}

// ResetTokenRepository stores at most one reset token per user.
type ResetTokenRepository struct {
	mu     sync.RWMutex
	byUser map[ulid.ULID]*auth.ResetToken
}

// NewResetTokenRepository creates an empty ResetTokenRepository.
func NewResetTokenRepository() *ResetTokenRepository {
	return &ResetTokenRepository{byUser: make(map[ulid.ULID]*auth.ResetToken)}
}

// Save implements auth.ResetTokenRepository.
func (r *ResetTokenRepository) Save(_ context.Context, token *auth.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := *token
	r.byUser[t.UserID] = &t
	return nil
}

// GetByTokenHash implements auth.ResetTokenRepository.
func (r *ResetTokenRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.ResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.byUser {
		if t.TokenHash == tokenHash {
			c := *t
			return &c, nil
		}
	}
	return nil, oops.Wrap(auth.ErrNotFound)
}

// DeleteByUser implements auth.ResetTokenRepository.
func (r *ResetTokenRepository) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byUser, userID)
	return nil
}

// DeleteExpired implements auth.ResetTokenRepository.
func (r *ResetTokenRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, t := range r.byUser {
		if t.ExpiresAt.Before(before) {
			delete(r.byUser, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored reset tokens.
func (r *ResetTokenRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
