// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Owned is implemented by resources that record their creator.
type Owned interface {
	OwnerID() ulid.ULID
}

// RequireAuthenticated fails with UNAUTHENTICATED for the anonymous identity.
func RequireAuthenticated(identity Identity) error {
	if !identity.IsAuthenticated() {
		return errUnauthenticated("not authenticated")
	}
	return nil
}

// RequireOwner fails with UNAUTHENTICATED for the anonymous identity and with
// FORBIDDEN when the identity did not create the resource. Authentication is
// always checked first.
func RequireOwner(identity Identity, resource Owned) error {
	if err := RequireAuthenticated(identity); err != nil {
		return err
	}
	if resource == nil || identity.UserID.Compare(resource.OwnerID()) != 0 {
		return oops.Code(CodeForbidden).
			With("user_id", identity.UserID.String()).
			Errorf("not authorized")
	}
	return nil
}
