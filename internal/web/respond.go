// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/pkg/errutil"
)

// errorBody is the JSON shape of every failed feed API call.
type errorBody struct {
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Data    []auth.FieldMessage `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(body)
}

// writeError maps a coded error to its status. Internal faults are logged
// and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errutil.Code(err)
	status := auth.HTTPStatus(code)

	if status == http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), s.logger, "request failed", err)
		writeJSON(w, status, errorBody{Message: "internal server error", Code: "INTERNAL"})
		return
	}
	if auth.IsDenial(code) {
		s.metrics.ObserveDenial(observability.SurfaceWeb, code)
	}

	body := errorBody{Message: err.Error(), Code: code}
	if code == auth.CodeInvalidInput {
		body.Data = auth.FieldMessages(err)
	}
	writeJSON(w, status, body)
}

// firstFieldMessage picks one validation message for a redirect.
func firstFieldMessage(err error, fallback string) string {
	fields := auth.FieldMessages(err)
	if len(fields) == 0 {
		return fallback
	}
	return fields[0].Message
}

// internalError logs err and writes a bare 500 for the account pages.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	errutil.LogErrorContext(r.Context(), s.logger, msg, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
