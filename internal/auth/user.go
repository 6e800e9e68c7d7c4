// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Secret constraints.
const (
	MinPasswordLength = 5
	MaxPasswordLength = 72
)

// User is a registered account. PasswordHash is the stored credential; the
// plaintext secret never reaches this type.
type User struct {
	ID           ulid.ULID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with a fresh ID.
func NewUser(email, name, passwordHash string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Identity returns the immutable identity view of the user.
func (u *User) Identity() Identity {
	name := u.Name
	if name == "" {
		name, _, _ = strings.Cut(u.Email, "@")
	}
	return Identity{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: name,
	}
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupInput is the data needed to register a user.
type SignupInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name"`
}

// Validate checks the shape of the input.
func (in SignupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)),
		validation.Field(&in.ConfirmPassword, validation.By(func(value interface{}) error {
			confirm, _ := value.(string)
			if confirm != "" && confirm != in.Password {
				return errors.New("passwords have to match")
			}
			return nil
		})),
		validation.Field(&in.Name, validation.Length(0, 100)),
	)
}

// ValidatePassword checks a new secret on its own, as used by the reset flow.
func ValidatePassword(password string) error {
	err := validation.Validate(password, validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength))
	if err != nil {
		return validation.Errors{"password": err}
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrEmailTaken if
	// the email is already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by normalized email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the stored credential of a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
