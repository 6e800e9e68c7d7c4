// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// SessionMeta is optional request metadata recorded with a session.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// SessionStore manages the lifecycle of server-side sessions backing the
// resource-oriented surface.
type SessionStore struct {
	sessions SessionRepository
	users    UserRepository
	ttl      time.Duration
	options
}

// NewSessionStore creates a SessionStore. A ttl <= 0 selects DefaultSessionTTL.
func NewSessionStore(sessions SessionRepository, users UserRepository, ttl time.Duration, opts ...Option) (*SessionStore, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_STORE_INVALID").Errorf("session repository is required")
	}
	if users == nil {
		return nil, oops.Code("SESSION_STORE_INVALID").Errorf("user repository is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: sessions,
		users:    users,
		ttl:      ttl,
		options:  newOptions(opts),
	}, nil
}

// Create allocates a new session bound to the identity and returns the
// plaintext session id for the client. There is no limit on concurrent
// sessions per user.
func (s *SessionStore) Create(ctx context.Context, identity Identity, meta SessionMeta) (string, *Session, error) {
	if err := RequireAuthenticated(identity); err != nil {
		return "", nil, err
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	now := s.now()
	session, err := NewSession(identity.UserID, tokenHash, meta.UserAgent, meta.IPAddress, now, now.Add(s.ttl))
	if err != nil {
		return "", nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "new session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", identity.UserID.String()).
			Wrap(err)
	}

	return token, session, nil
}

// Authenticate returns the identity bound to the session id. Unknown,
// expired and orphaned sessions yield Anonymous with a nil error; only
// storage faults are returned as errors.
func (s *SessionStore) Authenticate(ctx context.Context, sessionID string) (Identity, error) {
	if sessionID == "" {
		return Anonymous, nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(sessionID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Anonymous, nil
		}
		return Anonymous, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	now := s.now()
	if session.IsExpiredAt(now) {
		return Anonymous, nil
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Anonymous, nil
		}
		return Anonymous, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session user").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}

	if err := s.sessions.UpdateLastSeen(ctx, session.ID, now); err != nil {
		s.logger.WarnContext(ctx, "failed to update session last seen",
			"session_id", session.ID.String(),
			"error", err)
	}

	return user.Identity(), nil
}

// Destroy removes the session. Destroying an unknown session is not an error.
func (s *SessionStore) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(sessionID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}
