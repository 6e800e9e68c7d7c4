// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package web

import (
	"encoding/json"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/oops"

	"github.com/feedpress/feedpress/internal/auth"
)

const maxBodyBytes = 1 << 20

// readFields returns the request body as flat string fields. JSON objects and
// url-encoded or multipart forms are accepted.
func readFields(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, malformedBody(err)
		}
		values := url.Values{}
		for k, v := range body {
			switch tv := v.(type) {
			case nil:
			case string:
				values.Set(k, tv)
			default:
				values.Set(k, fmt.Sprint(tv))
			}
		}
		return values, nil
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, malformedBody(err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, malformedBody(err)
	}
	return r.PostForm, nil
}

func malformedBody(err error) error {
	return oops.Code(auth.CodeInvalidInput).
		With("fields", map[string]string{"body": "malformed request body"}).
		Wrap(err)
}

// sessionMeta extracts the client details recorded with a session.
func sessionMeta(r *http.Request) auth.SessionMeta {
	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return auth.SessionMeta{
		UserAgent: r.UserAgent(),
		IPAddress: ip,
	}
}

// redirectWithError sends the client back to path with a message the page
// can display.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, message string) {
	target := path
	if message != "" {
		target += "?" + url.Values{"error": {message}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, value string, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
