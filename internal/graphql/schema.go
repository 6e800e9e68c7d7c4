// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package graphql

import (
	gql "github.com/graphql-go/graphql"
)

func (s *Server) buildSchema() (gql.Schema, error) {
	userType := gql.NewObject(gql.ObjectConfig{
		Name: "User",
		Fields: gql.Fields{
			"_id":   &gql.Field{Type: gql.NewNonNull(gql.ID)},
			"email": &gql.Field{Type: gql.NewNonNull(gql.String)},
			"name":  &gql.Field{Type: gql.String},
		},
	})

	postType := gql.NewObject(gql.ObjectConfig{
		Name: "Post",
		Fields: gql.Fields{
			"_id":       &gql.Field{Type: gql.NewNonNull(gql.ID)},
			"title":     &gql.Field{Type: gql.NewNonNull(gql.String)},
			"content":   &gql.Field{Type: gql.NewNonNull(gql.String)},
			"imageUrl":  &gql.Field{Type: gql.NewNonNull(gql.String)},
			"creator":   &gql.Field{Type: gql.NewNonNull(userType), Resolve: s.resolveCreator},
			"createdAt": &gql.Field{Type: gql.NewNonNull(gql.DateTime)},
			"updatedAt": &gql.Field{Type: gql.NewNonNull(gql.DateTime)},
		},
	})

	authDataType := gql.NewObject(gql.ObjectConfig{
		Name: "AuthData",
		Fields: gql.Fields{
			"token":  &gql.Field{Type: gql.NewNonNull(gql.String)},
			"userId": &gql.Field{Type: gql.NewNonNull(gql.String)},
		},
	})

	postDataType := gql.NewObject(gql.ObjectConfig{
		Name: "PostData",
		Fields: gql.Fields{
			"posts":      &gql.Field{Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(postType)))},
			"totalPosts": &gql.Field{Type: gql.NewNonNull(gql.Int)},
		},
	})

	userInputType := gql.NewInputObject(gql.InputObjectConfig{
		Name: "UserInputData",
		Fields: gql.InputObjectConfigFieldMap{
			"email":    &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
			"name":     &gql.InputObjectFieldConfig{Type: gql.String},
			"password": &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
		},
	})

	postInputType := gql.NewInputObject(gql.InputObjectConfig{
		Name: "PostInputData",
		Fields: gql.InputObjectConfigFieldMap{
			"title":    &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
			"content":  &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
			"imageUrl": &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
		},
	})

	query := gql.NewObject(gql.ObjectConfig{
		Name: "RootQuery",
		Fields: gql.Fields{
			"posts": &gql.Field{
				Type:    gql.NewNonNull(postDataType),
				Args:    gql.FieldConfigArgument{"page": &gql.ArgumentConfig{Type: gql.Int}},
				Resolve: s.resolvePosts,
			},
			"post": &gql.Field{
				Type:    gql.NewNonNull(postType),
				Args:    gql.FieldConfigArgument{"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}},
				Resolve: s.resolvePost,
			},
			"me": &gql.Field{
				Type:    gql.NewNonNull(userType),
				Resolve: s.resolveMe,
			},
		},
	})

	mutation := gql.NewObject(gql.ObjectConfig{
		Name: "RootMutation",
		Fields: gql.Fields{
			"createUser": &gql.Field{
				Type:    gql.NewNonNull(userType),
				Args:    gql.FieldConfigArgument{"userInput": &gql.ArgumentConfig{Type: gql.NewNonNull(userInputType)}},
				Resolve: s.resolveCreateUser,
			},
			"login": &gql.Field{
				Type: gql.NewNonNull(authDataType),
				Args: gql.FieldConfigArgument{
					"email":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
					"password": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
				},
				Resolve: s.resolveLogin,
			},
			"createPost": &gql.Field{
				Type:    gql.NewNonNull(postType),
				Args:    gql.FieldConfigArgument{"postInput": &gql.ArgumentConfig{Type: gql.NewNonNull(postInputType)}},
				Resolve: s.resolveCreatePost,
			},
			"updatePost": &gql.Field{
				Type: gql.NewNonNull(postType),
				Args: gql.FieldConfigArgument{
					"id":        &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
					"postInput": &gql.ArgumentConfig{Type: gql.NewNonNull(postInputType)},
				},
				Resolve: s.resolveUpdatePost,
			},
			"deletePost": &gql.Field{
				Type:    gql.NewNonNull(gql.Boolean),
				Args:    gql.FieldConfigArgument{"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}},
				Resolve: s.resolveDeletePost,
			},
		},
	})

	//nolint:wrapcheck // wrapped by New
	return gql.NewSchema(gql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
