// Package app wires configuration, storage, the two domain services,
// and the HTTP transport into a running process. Grounded on the
// teacher's internal/app.Run, trimmed to this service's single
// "api" mode — there is no worker/seed mode here, since neither
// domain service has a background job to run.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nospoilers/core/internal/audit"
	"github.com/nospoilers/core/internal/authsvc"
	"github.com/nospoilers/core/internal/clock"
	"github.com/nospoilers/core/internal/config"
	"github.com/nospoilers/core/internal/contentsvc"
	"github.com/nospoilers/core/internal/cryptostore"
	"github.com/nospoilers/core/internal/idgen"
	"github.com/nospoilers/core/internal/platform"
	"github.com/nospoilers/core/internal/ratelimit"
	"github.com/nospoilers/core/internal/securestore"
	"github.com/nospoilers/core/internal/telemetry"
	"github.com/nospoilers/core/internal/transport"
)

// Run is the process entry point: it builds every collaborator from
// cfg and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting nospoilers", "listen", cfg.ListenAddr(), "storage_backend", cfg.StorageBackend)

	metricsReg := telemetry.NewRegistry()

	kvBackend, limiter, suspicion, cleanup, err := buildStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building storage: %w", err)
	}
	defer cleanup()

	kv, err := cryptostore.New(kvBackend, cfg.StorageSecret)
	if err != nil {
		return fmt.Errorf("constructing cryptostore: %w", err)
	}

	c := clock.System{}
	ids := idgen.UUID{}

	auditLog := audit.New(logger, c, ids)
	auditLog.Start()
	defer auditLog.Close()

	secrets := securestore.NewMemoryStore(cfg.EnforceSecureStorage)

	policy := authsvc.TransportPolicy{
		APIBaseURL:           cfg.APIBaseURL,
		CookieName:           cfg.CookieName,
		Platform:             cfg.Platform,
		EnforceSecureStorage: cfg.EnforceSecureStorage,
	}

	signingKey, err := sessionSigningKey(cfg.SessionSigningKey)
	if err != nil {
		return err
	}

	authSvc, err := authsvc.New(kv, secrets, c, ids, limiter, suspicion, auditLog, policy, signingKey)
	if err != nil {
		return fmt.Errorf("constructing auth service: %w", err)
	}

	contentSvc := contentsvc.New(kv, c, ids)

	srv := transport.NewServer(transport.Config{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		CookieName:     cfg.CookieName,
		DevMode:        cfg.DevMode,
		WebPlatform:    cfg.Platform == "web",
	}, logger, metricsReg, authSvc, contentSvc)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv.Router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildStorage selects the cryptostore.Backend, ratelimit.Limiter, and
// ratelimit.SuspicionTracker implementations for cfg.StorageBackend.
// "memory" (the default, and what every test in this repo uses) needs
// no cleanup; "redis" dials out and returns a close func.
func buildStorage(ctx context.Context, cfg *config.Config) (cryptostore.Backend, ratelimit.Limiter, ratelimit.SuspicionTracker, func(), error) {
	switch cfg.StorageBackend {
	case "redis":
		client, err := platform.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				slog.Error("closing redis", "error", err)
			}
		}
		return cryptostore.NewRedisBackend(client), ratelimit.NewRedisLimiter(client), ratelimit.NewRedisSuspicionTracker(client), cleanup, nil
	case "memory", "":
		return cryptostore.NewMemoryBackend(), ratelimit.NewMemoryLimiter(clock.System{}), ratelimit.NewMemorySuspicionTracker(clock.System{}), func() {}, nil
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// sessionSigningKey decodes the configured signing key. A raw string
// of at least 32 bytes is used directly, matching how authsvc.New
// validates it.
func sessionSigningKey(configured string) ([]byte, error) {
	if len(configured) >= 32 {
		return []byte(configured), nil
	}
	return nil, fmt.Errorf("session signing key must be at least 32 bytes, got %d", len(configured))
}
