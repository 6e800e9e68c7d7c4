// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Identity is the surface-independent view of who is making a request.
// The zero value is the anonymous identity.
type Identity struct {
	UserID      ulid.ULID
	Email       string
	DisplayName string
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{}

// IsAuthenticated reports whether the identity refers to a user.
func (i Identity) IsAuthenticated() bool {
	return i.UserID.Compare(ulid.ULID{}) != 0
}

type ctxKey string

const identityContextKey ctxKey = "feedpress.auth.identity"

// WithIdentity returns a copy of ctx carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the identity stored in ctx, or Anonymous.
func IdentityFromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok {
		return Anonymous
	}
	return id
}
