package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agendai/agendai-go/internal/clientstore"
	"github.com/agendai/agendai-go/internal/config"
	"github.com/agendai/agendai-go/internal/infra/client"
	"github.com/agendai/agendai-go/internal/infra/observability"
	"github.com/agendai/agendai-go/internal/infra/resilience"
	"github.com/agendai/agendai-go/internal/reconcile"
	"github.com/agendai/agendai-go/internal/shell"
	"github.com/agendai/agendai-go/internal/viewloader"

	"go.uber.org/zap"
)

// env is everything one shell invocation runs on.
type env struct {
	cfg     *config.ShellConfig
	logger  *zap.Logger
	metrics *observability.Metrics

	primary   *clientstore.Store
	secondary *clientstore.Store
	offline   *clientstore.Store

	reconciler *reconcile.Reconciler
	api        *client.APIClient
	loader     *viewloader.Loader
	app        *shell.App
}

func newEnv(ctx context.Context, cfg *config.ShellConfig, logger *zap.Logger) (*env, error) {
	e := &env{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	e.primary = clientstore.New("primary", clientstore.NewMemory(), logger)

	if cfg.RedisAddr != "" {
		r, err := clientstore.NewRedis(ctx, cfg.RedisAddr, "agendai:")
		if err != nil {
			return nil, fmt.Errorf("secondary tier: %w", err)
		}
		e.secondary = clientstore.New("secondary", r, logger)
	} else {
		e.secondary = clientstore.New("secondary", clientstore.NewMemory(), logger)
	}

	b, err := clientstore.OpenBadger(cfg.OfflineDir)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("offline tier: %w", err)
	}
	e.offline = clientstore.New("offline", b, logger)

	e.reconciler = reconcile.New(e.primary, e.secondary, e.offline, logger, reconcile.WithMetrics(e.metrics))

	e.api = client.NewAPIClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.APIURL, resilience.Config{
		MaxRetries:     cfg.HealthRetries,
		InitialBackoff: cfg.RetryBackoff,
		MaxConcurrency: 4,
	})

	fetcher, err := viewloader.NewHTTPFetcher(cfg.APIURL, cfg.HTTPTimeout)
	if err != nil {
		e.Close()
		return nil, err
	}
	opts := append(shell.Hooks(e.reconciler, e.primary), viewloader.WithSettleDelay(cfg.SettleDelay))
	e.loader = viewloader.New(fetcher, viewloader.NewDocument(), logger, opts...)

	e.app, err = shell.New(e.primary, e.api, e.loader, logger)
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// waitForAPI polls the health endpoint with bounded exponential backoff.
func (e *env) waitForAPI(ctx context.Context) (*client.HealthStatus, error) {
	var status *client.HealthStatus
	cfg := resilience.Config{MaxRetries: e.cfg.HealthRetries, InitialBackoff: e.cfg.RetryBackoff}
	err := resilience.RetryNotify(ctx, cfg, func() error {
		s, err := e.api.Health(ctx)
		if err != nil {
			return err
		}
		status = s
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		e.logger.Warn("api unreachable, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("api %s unreachable after %d attempts: %w", e.cfg.APIURL, e.cfg.HealthRetries+1, err)
	}
	return status, nil
}

func (e *env) Close() {
	for _, s := range []*clientstore.Store{e.primary, e.secondary, e.offline} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			e.logger.Warn("close tier", zap.String("tier", s.Name()), zap.Error(err))
		}
	}
}
