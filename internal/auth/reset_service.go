// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// PasswordResetService issues and consumes password reset tokens.
type PasswordResetService struct {
	users  UserRepository
	resets ResetTokenRepository
	hasher PasswordHasher
	options
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(
	users UserRepository,
	resets ResetTokenRepository,
	hasher PasswordHasher,
	opts ...Option,
) (*PasswordResetService, error) {
	if users == nil {
		return nil, oops.Code("RESET_SERVICE_INVALID").Errorf("user repository is required")
	}
	if resets == nil {
		return nil, oops.Code("RESET_SERVICE_INVALID").Errorf("reset repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_SERVICE_INVALID").Errorf("password hasher is required")
	}
	return &PasswordResetService{
		users:   users,
		resets:  resets,
		hasher:  hasher,
		options: newOptions(opts),
	}, nil
}

// Issue creates a reset token for the user, replacing any previous one.
// Returns the stored record and the plaintext token value to be emailed.
func (s *PasswordResetService) Issue(ctx context.Context, userID ulid.ULID) (*ResetToken, string, error) {
	token, hash, err := GenerateResetToken()
	if err != nil {
		return nil, "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "GenerateResetToken").
			Wrap(err)
	}

	now := s.now()
	reset, err := NewResetToken(userID, hash, now, now.Add(ResetTokenExpiry))
	if err != nil {
		return nil, "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "NewResetToken").
			Wrap(err)
	}

	if err := s.resets.Save(ctx, reset); err != nil {
		return nil, "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "Save").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return reset, token, nil
}

// RequestReset issues a token for the user registered under email.
// If no user has that email, it returns an empty token and a nil error so
// callers cannot probe for registered addresses.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (string, Identity, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", Anonymous, nil
		}
		return "", Anonymous, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "GetByEmail").
			Wrap(err)
	}

	_, token, err := s.Issue(ctx, user.ID)
	if err != nil {
		return "", Anonymous, err
	}
	return token, user.Identity(), nil
}

// Validate looks up a token value and checks its expiry. Expired tokens are
// removed when detected.
func (s *PasswordResetService) Validate(ctx context.Context, token string) (*ResetToken, error) {
	if token == "" {
		return nil, oops.Code(CodeResetTokenNotFound).Errorf("reset token not found")
	}

	reset, err := s.resets.GetByTokenHash(ctx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeResetTokenNotFound).Errorf("reset token not found")
		}
		return nil, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "GetByTokenHash").
			Wrap(err)
	}

	if reset.IsExpiredAt(s.now()) {
		if err := s.resets.DeleteByUser(ctx, reset.UserID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired reset token",
				"user_id", reset.UserID.String(),
				"error", err)
		}
		return nil, oops.Code(CodeResetTokenExpired).
			With("expired_at", reset.ExpiresAt).
			Errorf("reset token has expired")
	}

	return reset, nil
}

// Consume replaces the user's credential using a valid reset token, clears
// the token and returns the affected identity. The token is checked before
// the new password, and a rejected password leaves the token usable.
func (s *PasswordResetService) Consume(ctx context.Context, token, newPassword string) (Identity, error) {
	reset, err := s.Validate(ctx, token)
	if err != nil {
		return Anonymous, err
	}

	if err := ValidatePassword(newPassword); err != nil {
		return Anonymous, ValidationError(err)
	}

	user, err := s.users.GetByID(ctx, reset.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Anonymous, oops.Code(CodeResetTokenNotFound).Errorf("reset token not found")
		}
		return Anonymous, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "GetByID").
			Wrap(err)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return Anonymous, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "Hash").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return Anonymous, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "UpdatePassword").
			Wrap(err)
	}

	// Tokens are single use.
	if err := s.resets.DeleteByUser(ctx, user.ID); err != nil {
		return Anonymous, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "DeleteByUser").
			Wrap(err)
	}

	return user.Identity(), nil
}
