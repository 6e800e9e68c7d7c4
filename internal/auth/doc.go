// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package auth provides the credential and authorization core of feedpress.
//
// # Domain Types
//
// Domain types (User, Session, ResetToken) should be created using their
// constructors:
//   - NewUser - creates a User with a normalized email and password hash
//   - NewSession - creates a Session with validated user and expiry
//   - NewResetToken - creates a ResetToken with validated user and expiry
//
// Identity is the value handed to handlers and to the guard; the zero value
// is the anonymous caller.
//
// # Services
//
//   - Service - signup and credential checks shared by both API surfaces
//   - SessionStore - server-side sessions for the resource surface
//   - BearerTokenService - stateless signed tokens for the query surface
//   - PasswordResetService - reset token issue and consumption
//   - Sweeper - removal of expired sessions and reset tokens
//
// RequireAuthenticated and RequireOwner are the only authorization checks;
// they run before every mutation on both surfaces. Resolver strategies turn
// a request into an Identity.
package auth
