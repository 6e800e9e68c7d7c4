// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

//go:build tools

// Package main pins test tooling to go.mod so the integration suite can be
// run with `go run github.com/onsi/ginkgo/v2/ginkgo -tags integration ./...`.
package main

import (
	_ "github.com/onsi/ginkgo/v2/ginkgo"
	_ "github.com/onsi/gomega"
	_ "github.com/stretchr/testify/mock"
)
