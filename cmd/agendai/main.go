package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agendai/agendai-go/internal/config"
	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/handler"
	"github.com/agendai/agendai-go/internal/infra/cache"
	"github.com/agendai/agendai-go/internal/infra/memstore"
	"github.com/agendai/agendai-go/internal/infra/observability"
	"github.com/agendai/agendai-go/internal/infra/sqlstore"
	"github.com/agendai/agendai-go/internal/port"
	"github.com/agendai/agendai-go/internal/service"
	"github.com/agendai/agendai-go/web"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// backend is what the services need from a datastore.
type backend interface {
	port.UserStore
	port.PlanStore
	port.CompanyStore
	port.Pinger
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("database", cfg.DBDSN != ""),
		zap.Bool("demo_auth", cfg.DemoAuth),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("jwt_ttl", cfg.JWTTTL),
		zap.Int("login_rate_limit", cfg.LoginRateLimit),
		zap.String("views_dir", cfg.ViewsDir),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "agendai-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	// --- Services ---
	authSvc := service.NewAuthService(store, store, cfg.JWTSecret, cfg.JWTTTL, logger,
		service.WithDemoAuth(cfg.DemoAuth),
		service.WithMetrics(metrics),
	)
	if cfg.DemoAuth {
		logger.Warn("DEMO_AUTH enabled: fixed demo credentials are accepted")
	}
	planSvc := service.NewPlanService(store, store, cache.New[[]domain.Plan](cfg.CacheTTL), metrics, logger)
	companySvc := service.NewCompanyService(store, store, logger)

	// --- Views ---
	views := handler.NewViewServer(web.FS(), logger)
	if cfg.ViewsDir != "" {
		views = handler.NewViewServer(os.DirFS(cfg.ViewsDir), logger)
		if err := views.Watch(ctx, cfg.ViewsDir); err != nil {
			logger.Fatal("failed to watch views", zap.Error(err))
		}
		logger.Info("serving views from disk", zap.String("dir", cfg.ViewsDir))
	}

	// --- Router ---
	router := handler.NewRouter(authSvc, planSvc, companySvc, metrics, logger, handler.Options{
		AppVersion:     cfg.AppVersion,
		CORSOrigins:    cfg.CORSOrigins,
		LoginRateLimit: cfg.LoginRateLimit,
		Development:    cfg.LogLevel == "debug",
		Views:          views,
		Pingers:        map[string]port.Pinger{"store": store},
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("version", cfg.AppVersion))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore connects to MySQL when DB_DSN is set, otherwise seeds an
// in-memory store.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (backend, func(), error) {
	if cfg.DBDSN == "" {
		logger.Warn("DB_DSN not set: using seeded in-memory store")
		mem := memstore.New()
		adminPassword, companyPassword := cfg.AdminPassword, cfg.CompanyPassword
		if adminPassword == "" {
			adminPassword = "admin123"
		}
		if companyPassword == "" {
			companyPassword = "empresa123"
		}
		if err := mem.Seed(ctx, adminPassword, companyPassword); err != nil {
			return nil, nil, err
		}
		return mem, func() {}, nil
	}

	db, err := sqlstore.Open(ctx, cfg.DBDSN, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := ensureAdmin(ctx, db, cfg, logger); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}, nil
}

// ensureAdmin creates the bootstrap admin when ADMIN_PASSWORD is set and the
// account does not exist yet.
func ensureAdmin(ctx context.Context, db *sqlstore.Store, cfg *config.Config, logger *zap.Logger) error {
	if cfg.AdminPassword == "" {
		return nil
	}
	existing, err := db.GetUserByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := service.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := domain.User{
		ID:           uuid.NewString(),
		Name:         "Administrador",
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.UserStatusActive,
	}
	if err := db.PutUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("bootstrap admin created", zap.String("email", cfg.AdminEmail))
	return nil
}
