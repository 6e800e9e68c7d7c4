// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package graphql

import (
	"errors"

	gql "github.com/graphql-go/graphql"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/internal/post"
	"github.com/feedpress/feedpress/pkg/errutil"
)

func userSource(id ulid.ULID, email, name string) map[string]any {
	return map[string]any{
		"_id":   id.String(),
		"email": email,
		"name":  name,
	}
}

func postSource(p *post.Post) map[string]any {
	return map[string]any{
		"_id":       p.ID.String(),
		"title":     p.Title,
		"content":   p.Content,
		"imageUrl":  p.ImageURL,
		"creatorId": p.CreatorID,
		"createdAt": p.CreatedAt,
		"updatedAt": p.UpdatedAt,
	}
}

// parseID turns an unparseable id into the zero id, which no post has.
func parseID(raw any) ulid.ULID {
	s, _ := raw.(string)
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}
	}
	return id
}

func stringArg(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func postInput(raw any) post.Input {
	m, _ := raw.(map[string]any)
	return post.Input{
		Title:    stringArg(m, "title"),
		Content:  stringArg(m, "content"),
		ImageURL: stringArg(m, "imageUrl"),
	}
}

func (s *Server) resolveCreateUser(p gql.ResolveParams) (any, error) {
	in, _ := p.Args["userInput"].(map[string]any)
	identity, err := s.accounts.Signup(p.Context, auth.SignupInput{
		Email:    stringArg(in, "email"),
		Password: stringArg(in, "password"),
		Name:     stringArg(in, "name"),
	})
	if err != nil {
		s.metrics.ObserveSignup(observability.SurfaceGraphQL, observability.ResultFailure)
		return nil, s.toError(p.Context, err)
	}
	s.metrics.ObserveSignup(observability.SurfaceGraphQL, observability.ResultSuccess)
	return userSource(identity.UserID, identity.Email, identity.DisplayName), nil
}

func (s *Server) resolveLogin(p gql.ResolveParams) (any, error) {
	email, _ := p.Args["email"].(string)
	password, _ := p.Args["password"].(string)

	identity, err := s.accounts.Authenticate(p.Context, email, password)
	if err != nil {
		result := observability.ResultError
		if auth.IsDenial(errutil.Code(err)) {
			result = observability.ResultFailure
		}
		s.metrics.ObserveLogin(observability.SurfaceGraphQL, result)
		return nil, s.toError(p.Context, err)
	}

	token, _, err := s.tokens.Issue(identity)
	if err != nil {
		s.metrics.ObserveLogin(observability.SurfaceGraphQL, observability.ResultError)
		return nil, s.toError(p.Context, err)
	}
	s.metrics.ObserveLogin(observability.SurfaceGraphQL, observability.ResultSuccess)
	return map[string]any{
		"token":  token,
		"userId": identity.UserID.String(),
	}, nil
}

func (s *Server) resolveMe(p gql.ResolveParams) (any, error) {
	identity := auth.IdentityFromContext(p.Context)
	if err := auth.RequireAuthenticated(identity); err != nil {
		return nil, s.toError(p.Context, err)
	}
	return userSource(identity.UserID, identity.Email, identity.DisplayName), nil
}

func (s *Server) resolvePosts(p gql.ResolveParams) (any, error) {
	page, ok := p.Args["page"].(int)
	if !ok {
		page = 1
	}
	result, err := s.posts.List(p.Context, auth.IdentityFromContext(p.Context), page)
	if err != nil {
		return nil, s.toError(p.Context, err)
	}
	return map[string]any{
		"posts":      lo.Map(result.Posts, func(item *post.Post, _ int) map[string]any { return postSource(item) }),
		"totalPosts": result.Total,
	}, nil
}

func (s *Server) resolvePost(p gql.ResolveParams) (any, error) {
	found, err := s.posts.Get(p.Context, auth.IdentityFromContext(p.Context), parseID(p.Args["id"]))
	if err != nil {
		return nil, s.toError(p.Context, err)
	}
	return postSource(found), nil
}

func (s *Server) resolveCreatePost(p gql.ResolveParams) (any, error) {
	created, err := s.posts.Create(p.Context, auth.IdentityFromContext(p.Context), postInput(p.Args["postInput"]))
	if err != nil {
		return nil, s.toError(p.Context, err)
	}
	return postSource(created), nil
}

func (s *Server) resolveUpdatePost(p gql.ResolveParams) (any, error) {
	updated, err := s.posts.Update(p.Context, auth.IdentityFromContext(p.Context),
		parseID(p.Args["id"]), postInput(p.Args["postInput"]))
	if err != nil {
		return nil, s.toError(p.Context, err)
	}
	return postSource(updated), nil
}

func (s *Server) resolveDeletePost(p gql.ResolveParams) (any, error) {
	if err := s.posts.Delete(p.Context, auth.IdentityFromContext(p.Context), parseID(p.Args["id"])); err != nil {
		return nil, s.toError(p.Context, err)
	}
	return true, nil
}

// resolveCreator loads the owner of a post. A deleted owner still resolves
// to its id.
func (s *Server) resolveCreator(p gql.ResolveParams) (any, error) {
	src, _ := p.Source.(map[string]any)
	creatorID, _ := src["creatorId"].(ulid.ULID)

	user, err := s.users.GetByID(p.Context, creatorID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return userSource(creatorID, "", ""), nil
		}
		return nil, s.toError(p.Context, err)
	}
	return userSource(user.ID, user.Email, user.Name), nil
}
