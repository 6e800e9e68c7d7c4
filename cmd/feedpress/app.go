// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/feedpress/feedpress/internal/auth"
	authmem "github.com/feedpress/feedpress/internal/auth/memory"
	authpg "github.com/feedpress/feedpress/internal/auth/postgres"
	"github.com/feedpress/feedpress/internal/config"
	"github.com/feedpress/feedpress/internal/graphql"
	"github.com/feedpress/feedpress/internal/mail"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/internal/post"
	postmem "github.com/feedpress/feedpress/internal/post/memory"
	postpg "github.com/feedpress/feedpress/internal/post/postgres"
	"github.com/feedpress/feedpress/internal/store"
	"github.com/feedpress/feedpress/internal/web"
)

// storage holds the repositories selected by database.driver.
type storage struct {
	users    auth.UserRepository
	sessions auth.SessionRepository
	resets   auth.ResetTokenRepository
	posts    post.Repository
	ready    func() bool
	close    func()
}

// openStorage connects the configured driver. The memory driver keeps
// everything in process and loses it on exit.
func openStorage(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return &storage{
			users:    authmem.NewUserRepository(),
			sessions: authmem.NewSessionRepository(),
			resets:   authmem.NewResetTokenRepository(),
			posts:    postmem.NewRepository(),
			ready:    func() bool { return true },
			close:    func() {},
		}, nil
	case config.DriverPostgres:
		if cfg.AutoMigrate {
			if err := migrateUp(cfg.URL); err != nil {
				return nil, err
			}
		}
		pool, err := store.Connect(ctx, cfg.URL,
			store.WithRetries(cfg.ConnectRetries),
			store.WithMaxConns(cfg.MaxConns),
			store.WithLogger(logger))
		if err != nil {
			return nil, err //nolint:wrapcheck // store errors carry codes
		}
		return &storage{
			users:    authpg.NewUserRepository(pool),
			sessions: authpg.NewSessionRepository(pool),
			resets:   authpg.NewResetTokenRepository(pool),
			posts:    postpg.NewRepository(pool),
			ready: func() bool {
				pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return pool.Ping(pingCtx) == nil
			},
			close: pool.Close,
		}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("driver", cfg.Driver).
			Errorf("unknown database driver %q", cfg.Driver)
	}
}

func migrateUp(databaseURL string) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err //nolint:wrapcheck // store errors carry codes
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	return migrator.Up() //nolint:wrapcheck // store errors carry codes
}

// newMailer selects the mail driver.
func newMailer(cfg config.MailConfig, logger *slog.Logger) (mail.Mailer, error) {
	if cfg.Driver == config.MailSMTP {
		m, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		})
		if err != nil {
			return nil, err //nolint:wrapcheck // mail errors carry codes
		}
		return m, nil
	}
	return mail.NewLogMailer(logger), nil
}

// application is the assembled process: both API surfaces on one handler
// plus the background sweeper.
type application struct {
	handler http.Handler
	web     *web.Server
	sweeper *auth.Sweeper
}

// newApplication wires services over st. metrics may be nil.
func newApplication(cfg *config.Config, st *storage, metrics *observability.Metrics, logger *slog.Logger) (*application, error) {
	opts := []auth.Option{auth.WithLogger(logger)}

	hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors carry codes
	}
	accounts, err := auth.NewAuthService(st.users, hasher, opts...)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors carry codes
	}
	sessions, err := auth.NewSessionStore(st.sessions, st.users, cfg.Auth.SessionTTL, opts...)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors carry codes
	}
	resets, err := auth.NewPasswordResetService(st.users, st.resets, hasher, opts...)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors carry codes
	}
	tokens, err := auth.NewBearerTokenService([]byte(cfg.Auth.JWTSecret), opts...)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors carry codes
	}
	sweeper, err := auth.NewSweeper(st.sessions, st.resets, cfg.Auth.SweepInterval, opts...)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors carry codes
	}
	posts, err := post.NewService(st.posts, post.WithPerPage(cfg.Feed.PerPage))
	if err != nil {
		return nil, err //nolint:wrapcheck // post errors carry codes
	}
	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}

	webSrv, err := web.New(web.Config{
		BaseURL:      cfg.HTTP.BaseURL,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
		MailFrom:     cfg.Mail.From,
	}, web.Deps{
		Accounts: accounts,
		Sessions: sessions,
		Resets:   resets,
		Posts:    posts,
		Mailer:   mailer,
		Resolver: auth.ChainResolver{
			auth.NewSessionResolver(sessions, cfg.Auth.CookieName),
			auth.NewBearerResolver(tokens, auth.DefaultTokenHeader, logger),
		},
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // web errors carry codes
	}

	gqlSrv, err := graphql.New(graphql.Deps{
		Accounts: accounts,
		Tokens:   tokens,
		Users:    st.users,
		Posts:    posts,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // graphql errors carry codes
	}

	mux := http.NewServeMux()
	gqlSrv.Routes(mux)
	mux.Handle("/", webSrv.Handler())

	return &application{handler: mux, web: webSrv, sweeper: sweeper}, nil
}
