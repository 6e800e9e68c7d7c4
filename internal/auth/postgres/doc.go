// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package postgres provides PostgreSQL implementations of auth repositories.
package postgres
