// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/oops"
)

// Service holds the signup and credential-check logic shared by both API
// surfaces. Surfaces turn the returned Identity into a session or a token.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	options

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new Service.
func NewAuthService(users UserRepository, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	return &Service{
		users:   users,
		hasher:  hasher,
		options: newOptions(opts),
	}, nil
}

// Signup validates the input and registers a new user.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Identity, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return Anonymous, ValidationError(err)
	}
	email := in.Email

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return Anonymous, errEmailTaken(email)
	case !errors.Is(err, ErrNotFound):
		return Anonymous, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Anonymous, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, in.Name, hash, s.now())
	if err != nil {
		return Anonymous, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "new user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Anonymous, errEmailTaken(email)
		}
		return Anonymous, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	return user.Identity(), nil
}

func errEmailTaken(email string) error {
	return oops.Code(CodeConflict).
		With("email", email).
		Errorf("e-mail exists already, pick a different one")
}

// Authenticate checks an email and password. Unknown emails and wrong
// passwords produce the same UNAUTHENTICATED error, and a hash verification
// runs in both cases so response time does not reveal registered emails.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	user, lookupErr := s.users.GetByEmail(ctx, NormalizeEmail(email))

	var targetHash string
	userExists := lookupErr == nil
	switch {
	case userExists:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = s.dummy()
	default:
		return Anonymous, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && userExists {
		return Anonymous, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}
	if !userExists || !valid {
		return Anonymous, errUnauthenticated("invalid email or password")
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	return user.Identity(), nil
}

func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to rehash password", "user_id", user.ID.String(), "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "failed to store upgraded password hash", "user_id", user.ID.String(), "error", err)
	}
}

// dummy returns a hash produced by the configured hasher so that
// verification against it costs the same as against a real credential.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		token, _, err := GenerateSessionToken()
		if err != nil {
			token = "feedpress-dummy-credential"
		}
		hash, err := s.hasher.Hash(token)
		if err != nil {
			s.logger.Error("failed to compute dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
