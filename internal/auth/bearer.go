// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Bearer token configuration.
const (
	BearerTokenExpiry   = time.Hour
	MinSigningKeyLength = 32
	tokenIssuer         = "feedpress"
)

// TokenClaims are the claims embedded in a bearer token.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

// BearerTokenService issues and verifies self-contained HS256 tokens.
// Verification never touches storage, so there is no server-side revocation:
// a token stays valid until it expires.
type BearerTokenService struct {
	key []byte
	options
}

// NewBearerTokenService creates a service signing with key. The key is
// process-wide configuration and must be at least MinSigningKeyLength bytes.
func NewBearerTokenService(key []byte, opts ...Option) (*BearerTokenService, error) {
	if len(key) < MinSigningKeyLength {
		return nil, oops.Code("TOKEN_SERVICE_INVALID").
			With("min_length", MinSigningKeyLength).
			Errorf("signing key must be at least %d bytes", MinSigningKeyLength)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &BearerTokenService{key: k, options: newOptions(opts)}, nil
}

// Issue signs a token for the identity, valid for BearerTokenExpiry. iat and
// exp are whole seconds, so exp may fall up to a second before now plus
// BearerTokenExpiry.
func (s *BearerTokenService) Issue(identity Identity) (string, *TokenClaims, error) {
	if err := RequireAuthenticated(identity); err != nil {
		return "", nil, err
	}

	now := s.now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   identity.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(BearerTokenExpiry)),
		},
		UserID: identity.UserID.String(),
		Email:  identity.Email,
		Name:   identity.DisplayName,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, claims, nil
}

// Verify checks the signature and expiry of a token and returns the embedded
// identity. Expired tokens fail with TOKEN_EXPIRED; anything else that does
// not verify fails with TOKEN_SIGNATURE_INVALID.
func (s *BearerTokenService) Verify(tokenString string) (Identity, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Anonymous, oops.Code(CodeTokenExpired).Errorf("token has expired")
		}
		return Anonymous, oops.Code(CodeSignatureInvalid).Errorf("token signature is invalid")
	}
	if !token.Valid {
		return Anonymous, oops.Code(CodeSignatureInvalid).Errorf("token signature is invalid")
	}

	userID, err := ulid.Parse(claims.UserID)
	if err != nil || claims.Subject != claims.UserID {
		return Anonymous, oops.Code(CodeSignatureInvalid).Errorf("token claims are malformed")
	}

	return Identity{
		UserID:      userID,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}, nil
}
