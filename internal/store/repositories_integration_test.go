// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

//go:build integration

package store_test

import (
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/feedpress/feedpress/internal/auth"
	authpg "github.com/feedpress/feedpress/internal/auth/postgres"
	"github.com/feedpress/feedpress/internal/post"
	postpg "github.com/feedpress/feedpress/internal/post/postgres"
	"github.com/feedpress/feedpress/pkg/errutil"
)

var _ = Describe("PostgreSQL repositories", func() {
	var (
		users    *authpg.UserRepository
		sessions *authpg.SessionRepository
		resets   *authpg.ResetTokenRepository
		posts    *postpg.Repository
		owner    *auth.User
		now      time.Time
	)

	BeforeEach(func() {
		truncate()
		users = authpg.NewUserRepository(pool)
		sessions = authpg.NewSessionRepository(pool)
		resets = authpg.NewResetTokenRepository(pool)
		posts = postpg.NewRepository(pool)
		now = time.Now().UTC().Truncate(time.Microsecond)

		var err error
		owner, err = auth.NewUser("Owner@Example.com", "Owner", "hash", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(suiteCtx, owner)).To(Succeed())
	})

	Describe("users", func() {
		It("finds a user by normalized email", func() {
			found, err := users.GetByEmail(suiteCtx, "owner@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(owner.ID))
			Expect(found.Name).To(Equal("Owner"))
		})

		It("rejects a duplicate email as a conflict", func() {
			dup, err := auth.NewUser("owner@example.com", "Other", "hash", now)
			Expect(err).NotTo(HaveOccurred())

			err = users.Create(suiteCtx, dup)
			Expect(err).To(MatchError(auth.ErrEmailTaken))
			Expect(errutil.Code(err)).To(Equal(auth.CodeConflict))
		})

		It("replaces the password hash", func() {
			Expect(users.UpdatePassword(suiteCtx, owner.ID, "new-hash")).To(Succeed())

			found, err := users.GetByID(suiteCtx, owner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.PasswordHash).To(Equal("new-hash"))
		})
	})

	Describe("sessions", func() {
		It("round trips and sweeps expired sessions", func() {
			live, err := auth.NewSession(owner.ID, "live-hash", "ua", "10.0.0.1", now, now.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			stale, err := auth.NewSession(owner.ID, "stale-hash", "", "", now.Add(-2*time.Hour), now.Add(-time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(suiteCtx, live)).To(Succeed())
			Expect(sessions.Create(suiteCtx, stale)).To(Succeed())

			found, err := sessions.GetByTokenHash(suiteCtx, "live-hash")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.UserID).To(Equal(owner.ID))
			Expect(found.ExpiresAt).To(BeTemporally("==", live.ExpiresAt))

			removed, err := sessions.DeleteExpired(suiteCtx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(int64(1)))

			_, err = sessions.GetByTokenHash(suiteCtx, "stale-hash")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("reset tokens", func() {
		It("keeps at most one token per user", func() {
			first, err := auth.NewResetToken(owner.ID, "first-hash", now, now.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(resets.Save(suiteCtx, first)).To(Succeed())

			Expect(resets.DeleteByUser(suiteCtx, owner.ID)).To(Succeed())
			second, err := auth.NewResetToken(owner.ID, "second-hash", now, now.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(resets.Save(suiteCtx, second)).To(Succeed())

			_, err = resets.GetByTokenHash(suiteCtx, "first-hash")
			Expect(err).To(MatchError(auth.ErrNotFound))

			found, err := resets.GetByTokenHash(suiteCtx, "second-hash")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.UserID).To(Equal(owner.ID))
		})
	})

	Describe("posts", func() {
		It("pages newest first and upserts edits", func() {
			for i, title := range []string{"first", "second", "third"} {
				p := &post.Post{
					ID:        ulid.Make(),
					Title:     title,
					Content:   "content",
					ImageURL:  "images/" + title + ".png",
					CreatorID: owner.ID,
					CreatedAt: now.Add(time.Duration(i) * time.Minute),
					UpdatedAt: now.Add(time.Duration(i) * time.Minute),
				}
				Expect(posts.Save(suiteCtx, p)).To(Succeed())
			}

			page, total, err := posts.List(suiteCtx, 0, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(3))
			Expect(page).To(HaveLen(2))
			Expect(page[0].Title).To(Equal("third"))

			edited := page[0]
			edited.Title = "third, edited"
			Expect(posts.Save(suiteCtx, edited)).To(Succeed())

			found, err := posts.FindByID(suiteCtx, edited.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Title).To(Equal("third, edited"))
			Expect(found.CreatorID).To(Equal(owner.ID))

			Expect(posts.DeleteByID(suiteCtx, edited.ID)).To(Succeed())
			Expect(posts.DeleteByID(suiteCtx, edited.ID)).To(MatchError(auth.ErrNotFound))
		})
	})
})
