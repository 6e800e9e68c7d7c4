// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package web

import (
	"net/http"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/mail"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/pkg/errutil"
)

// Messages shown on redirected pages.
const (
	MsgInvalidLogin  = "Invalid email or password."
	MsgEmailTaken    = "E-Mail exists already, please pick a different one."
	MsgInvalidInput  = "Validation failed, entered data is incorrect."
	MsgResetInvalid  = "Reset link is invalid."
	MsgResetExpired  = "Reset link has expired, please request a new one."
	MsgMalformedForm = "Could not read the submitted form."
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		redirectWithError(w, r, "/login", MsgMalformedForm)
		return
	}

	identity, err := s.accounts.Authenticate(r.Context(), fields.Get("email"), fields.Get("password"))
	if err != nil {
		if errutil.HasCode(err, auth.CodeUnauthenticated) {
			s.metrics.ObserveLogin(observability.SurfaceWeb, observability.ResultFailure)
			redirectWithError(w, r, "/login", MsgInvalidLogin)
			return
		}
		s.metrics.ObserveLogin(observability.SurfaceWeb, observability.ResultError)
		s.internalError(w, r, "login failed", err)
		return
	}

	value, session, err := s.sessions.Create(r.Context(), identity, sessionMeta(r))
	if err != nil {
		s.metrics.ObserveLogin(observability.SurfaceWeb, observability.ResultError)
		s.internalError(w, r, "session create failed", err)
		return
	}

	s.metrics.ObserveLogin(observability.SurfaceWeb, observability.ResultSuccess)
	s.logger.InfoContext(r.Context(), "user logged in", "user_id", identity.UserID.String())
	s.setSessionCookie(w, value, session)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.cfg.CookieName); err == nil {
		if err := s.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			s.internalError(w, r, "session destroy failed", err)
			return
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		redirectWithError(w, r, "/signup", MsgMalformedForm)
		return
	}

	identity, err := s.accounts.Signup(r.Context(), auth.SignupInput{
		Email:           fields.Get("email"),
		Password:        fields.Get("password"),
		ConfirmPassword: fields.Get("confirmPassword"),
		Name:            fields.Get("name"),
	})
	if err != nil {
		s.metrics.ObserveSignup(observability.SurfaceWeb, observability.ResultFailure)
		switch errutil.Code(err) {
		case auth.CodeConflict:
			redirectWithError(w, r, "/signup", MsgEmailTaken)
		case auth.CodeInvalidInput:
			redirectWithError(w, r, "/signup", firstFieldMessage(err, MsgInvalidInput))
		default:
			s.internalError(w, r, "signup failed", err)
		}
		return
	}

	s.metrics.ObserveSignup(observability.SurfaceWeb, observability.ResultSuccess)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	s.sendMail(r.Context(), "signup", mail.SignupMessage(s.cfg.MailFrom, identity.Email))
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		redirectWithError(w, r, "/reset", MsgMalformedForm)
		return
	}

	token, identity, err := s.resets.RequestReset(r.Context(), fields.Get("email"))
	if err != nil {
		s.metrics.ObserveReset(observability.ResetStageRequest, observability.ResultError)
		s.internalError(w, r, "reset request failed", err)
		return
	}

	s.metrics.ObserveReset(observability.ResetStageRequest, observability.ResultSuccess)
	// Same response whether or not the address is registered.
	http.Redirect(w, r, "/", http.StatusSeeOther)
	if token != "" {
		link := s.cfg.BaseURL + "/reset/" + token
		s.sendMail(r.Context(), "reset", mail.ResetMessage(s.cfg.MailFrom, identity.Email, link))
	}
}

// resetFormBody confirms that a reset link can be used.
type resetFormBody struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId"`
	Token  string `json:"passwordToken"`
}

func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	reset, err := s.resets.Validate(r.Context(), token)
	if err != nil {
		s.resetFailure(w, r, observability.ResetStageVerify, err)
		return
	}
	writeJSON(w, http.StatusOK, resetFormBody{
		Valid:  true,
		UserID: reset.UserID.String(),
		Token:  token,
	})
}

func (s *Server) handleResetComplete(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	fields, err := readFields(w, r)
	if err != nil {
		redirectWithError(w, r, "/reset/"+token, MsgMalformedForm)
		return
	}

	identity, err := s.resets.Consume(r.Context(), token, fields.Get("password"))
	if err != nil {
		if errutil.HasCode(err, auth.CodeInvalidInput) {
			s.metrics.ObserveReset(observability.ResetStageComplete, observability.ResultFailure)
			redirectWithError(w, r, "/reset/"+token, firstFieldMessage(err, MsgInvalidInput))
			return
		}
		s.resetFailure(w, r, observability.ResetStageComplete, err)
		return
	}

	s.metrics.ObserveReset(observability.ResetStageComplete, observability.ResultSuccess)
	s.logger.InfoContext(r.Context(), "password reset completed", "user_id", identity.UserID.String())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// resetFailure answers a failed reset step and counts it under stage.
func (s *Server) resetFailure(w http.ResponseWriter, r *http.Request, stage string, err error) {
	switch errutil.Code(err) {
	case auth.CodeResetTokenExpired:
		s.metrics.ObserveReset(stage, observability.ResultFailure)
		redirectWithError(w, r, "/reset", MsgResetExpired)
	case auth.CodeResetTokenNotFound:
		s.metrics.ObserveReset(stage, observability.ResultFailure)
		redirectWithError(w, r, "/reset", MsgResetInvalid)
	default:
		s.metrics.ObserveReset(stage, observability.ResultError)
		s.internalError(w, r, "password reset failed", err)
	}
}
