// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/feedpress/feedpress/internal/store"
)

var (
	suiteCtx  context.Context
	container *postgres.PostgresContainer
	connStr   string
	pool      *pgxpool.Pool
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

var _ = BeforeSuite(func() {
	suiteCtx = context.Background()

	var err error
	container, err = postgres.Run(suiteCtx,
		"postgres:16-alpine",
		postgres.WithDatabase("feedpress"),
		postgres.WithUsername("feedpress"),
		postgres.WithPassword("feedpress"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err = container.ConnectionString(suiteCtx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = store.Connect(suiteCtx, connStr, store.WithMaxConns(4))
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		Expect(container.Terminate(suiteCtx)).To(Succeed())
	}
})

// truncate empties every feedpress table between specs.
func truncate() {
	_, err := pool.Exec(suiteCtx, `TRUNCATE posts, reset_tokens, sessions, users`)
	Expect(err).NotTo(HaveOccurred())
}
