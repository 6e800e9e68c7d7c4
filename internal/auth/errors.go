// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"errors"
	"net/http"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by UserRepository.Create when the email is
// already registered.
var ErrEmailTaken = errors.New("email already registered")

// Error codes shared by both API surfaces. Each surface decides the wire
// representation; anything without one of these codes is an internal fault.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeResetTokenNotFound = "RESET_TOKEN_NOT_FOUND"
	CodeResetTokenExpired  = "RESET_TOKEN_EXPIRED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeSignatureInvalid   = "TOKEN_SIGNATURE_INVALID"
)

// HTTPStatus maps an error code to the HTTP status both surfaces report.
// Unknown codes are internal faults.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case CodeUnauthenticated, CodeTokenExpired, CodeSignatureInvalid:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeResetTokenNotFound, CodeResetTokenExpired:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsDenial reports whether code is an authentication or authorization denial.
func IsDenial(code string) bool {
	switch code {
	case CodeUnauthenticated, CodeForbidden, CodeTokenExpired, CodeSignatureInvalid:
		return true
	default:
		return false
	}
}

// ValidationError converts ozzo validation errors into an INVALID_INPUT error
// whose "fields" context maps field names to messages.
func ValidationError(err error) error {
	fields := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	} else if err != nil {
		fields["input"] = err.Error()
	}
	return oops.Code(CodeInvalidInput).
		With("fields", fields).
		Errorf("validation failed, entered data is incorrect")
}

// FieldMessages returns the sorted field-level messages carried by an
// INVALID_INPUT error.
func FieldMessages(err error) []FieldMessage {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	fields, ok := oopsErr.Context()["fields"].(map[string]string)
	if !ok {
		return nil
	}
	out := make([]FieldMessage, 0, len(fields))
	for field, msg := range fields {
		out = append(out, FieldMessage{Field: field, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// FieldMessage is a single validation failure.
type FieldMessage struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func errUnauthenticated(msg string) error {
	return oops.Code(CodeUnauthenticated).Errorf("%s", msg)
}
