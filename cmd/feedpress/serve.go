// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/feedpress/feedpress/internal/config"
	"github.com/feedpress/feedpress/internal/logging"
	"github.com/feedpress/feedpress/internal/observability"
	"github.com/feedpress/feedpress/internal/web"
)

const shutdownTimeout = 10 * time.Second

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StorageOpener opens the repositories.
	// Default: openStorage
	StorageOpener func(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*storage, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// Listen opens the public listener.
	// Default: net.Listen
	Listen func(network, address string) (net.Listener, error)

	// Started is called with the bound address once requests are accepted.
	Started func(addr string)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web and GraphQL surfaces",
		Long: `Start the HTTP listener serving the session-based web API and the
bearer-token GraphQL endpoint, plus the metrics and health server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("http-addr", ":8080", "listen address of the API surfaces")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("database-driver", config.DriverPostgres, "storage driver (postgres or memory)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")

	return cmd
}

// runServe starts the process with injectable dependencies.
// If deps is nil, default implementations are used.
func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StorageOpener == nil {
		deps.StorageOpener = openStorage
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.Listen == nil {
		deps.Listen = net.Listen
	}

	logger := logging.SetDefault("feedpress", version, logging.Options{
		Format: cfg.Log.Format,
		Level:  logging.ParseLevel(cfg.Log.Level),
		Writer: cmd.ErrOrStderr(),
	})

	logger.Info("starting feedpress",
		"http_addr", cfg.HTTP.Addr,
		"database_driver", cfg.Database.Driver,
		"hasher", cfg.Auth.Hasher,
		"mail_driver", cfg.Mail.Driver,
	)

	st, err := deps.StorageOpener(ctx, cfg.Database, logger)
	if err != nil {
		return oops.With("operation", "open storage").Wrap(err)
	}
	defer st.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, st.ready)
		metrics = obsServer.Metrics()
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	app, err := newApplication(cfg, st, metrics, logger)
	if err != nil {
		stopObservability(obsServer)
		return oops.With("operation", "build application").Wrap(err)
	}

	listener, err := deps.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpServer := web.NewHTTPServer(cfg.HTTP.Addr, app.handler)
	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()
	go app.sweeper.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Feedpress started")
	logger.Info("feedpress ready", "http_addr", listener.Addr().String())
	if deps.Started != nil {
		deps.Started(listener.Addr().String())
	}

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr = <-errChan:
		logger.Error("http server error", "error", serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	cancel()
	app.web.Wait()
	stopObservability(obsServer)

	logger.Info("shutdown complete")
	if serveErr != nil {
		return oops.Code("SERVE_FAILED").Wrap(serveErr)
	}
	return nil
}

func stopObservability(s ObservabilityServer) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when the server reports an error. It
// returns when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
