// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package graphql

import (
	"context"
	"net/http"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/pkg/errutil"
)

// Error is a resolver error whose code, HTTP-equivalent status and field
// messages are reported in the GraphQL "extensions" object.
type Error struct {
	Message string
	Code    string
	Status  int
	Fields  []auth.FieldMessage
}

func (e *Error) Error() string {
	return e.Message
}

// Extensions implements gqlerrors.ExtendedError.
func (e *Error) Extensions() map[string]any {
	ext := map[string]any{
		"code":   e.Code,
		"status": e.Status,
	}
	if len(e.Fields) > 0 {
		ext["fields"] = e.Fields
	}
	return ext
}

// toError converts a domain error for the client. Internal faults are logged
// and replaced with a generic message.
func (s *Server) toError(ctx context.Context, err error) error {
	code := errutil.Code(err)
	status := auth.HTTPStatus(code)
	if status == http.StatusInternalServerError {
		errutil.LogErrorContext(ctx, s.logger, "graphql resolver failed", err)
		return &Error{Message: "internal server error", Code: "INTERNAL", Status: status}
	}
	if auth.IsDenial(code) {
		s.metrics.ObserveDenial(observability.SurfaceGraphQL, code)
	}
	e := &Error{Message: err.Error(), Code: code, Status: status}
	if code == auth.CodeInvalidInput {
		e.Fields = auth.FieldMessages(err)
	}
	return e
}
