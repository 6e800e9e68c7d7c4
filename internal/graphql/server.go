// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package graphql is the bearer-token query surface. It shares the account
// and post services with the web surface, so both report the same outcome
// for the same request.
package graphql

import (
	"encoding/json"
	"log/slog"
	"net/http"

	gql "github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/samber/oops"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/internal/post"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators of the surface. Metrics and Logger are optional.
type Deps struct {
	Accounts *auth.Service
	Tokens   *auth.BearerTokenService
	Users    auth.UserRepository
	Posts    *post.Service
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Server executes GraphQL requests.
type Server struct {
	accounts *auth.Service
	tokens   *auth.BearerTokenService
	users    auth.UserRepository
	posts    *post.Service
	metrics  *observability.Metrics
	logger   *slog.Logger
	schema   gql.Schema
}

// New builds the schema and the Server.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Accounts == nil:
		return nil, oops.Code("GRAPHQL_INVALID").Errorf("account service is required")
	case deps.Tokens == nil:
		return nil, oops.Code("GRAPHQL_INVALID").Errorf("token service is required")
	case deps.Users == nil:
		return nil, oops.Code("GRAPHQL_INVALID").Errorf("user repository is required")
	case deps.Posts == nil:
		return nil, oops.Code("GRAPHQL_INVALID").Errorf("post service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		users:    deps.Users,
		posts:    deps.Posts,
		metrics:  deps.Metrics,
		logger:   logger.With("component", "graphql"),
	}
	schema, err := s.buildSchema()
	if err != nil {
		return nil, oops.Code("GRAPHQL_SCHEMA_INVALID").Wrap(err)
	}
	s.schema = schema
	return s, nil
}

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Handler returns the POST /graphql endpoint with bearer identity resolution
// and request metrics applied.
func (s *Server) Handler() http.Handler {
	resolver := auth.NewBearerResolver(s.tokens, auth.DefaultTokenHeader, s.logger)
	return s.metrics.Instrument(observability.SurfaceGraphQL,
		auth.Middleware(resolver, s.logger)(http.HandlerFunc(s.serveHTTP)))
}

// Routes registers the endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.Handle("POST /graphql", s.Handler())
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &gql.Result{
			Errors: []gqlerrors.FormattedError{{Message: "malformed request body"}},
		})
		return
	}

	result := gql.Do(gql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(body)
}
