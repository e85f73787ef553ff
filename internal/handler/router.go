package handler

import (
	"net/http"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/observability"
	"github.com/agendai/agendai-go/internal/port"
	"github.com/agendai/agendai-go/internal/service"
	"github.com/agendai/agendai-go/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/unrolled/secure"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options carries the router settings that are not services.
type Options struct {
	AppVersion     string
	CORSOrigins    []string
	LoginRateLimit int // attempts per minute per client; 0 disables throttling
	Development    bool
	Views          *ViewServer          // nil serves the embedded web files
	Pingers        map[string]port.Pinger // reported by /healthz
}

// NewRouter creates the HTTP router with all routes and middleware.
// Any service may be nil; its routes are then not mounted.
func NewRouter(authSvc *service.AuthService, planSvc *service.PlanService, companySvc *service.CompanyService, metrics *observability.Metrics, logger *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "same-origin",
		IsDevelopment:      opts.Development,
	})

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(secureMiddleware.Handler)
	r.Use(corsMiddleware.Handler)

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.Pingers, logger))
	r.Get("/readyz", readyzHandler())
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	// --- Shell page & fragments ---
	views := opts.Views
	if views == nil {
		views = NewViewServer(web.FS(), logger)
	}
	r.Get("/", views.shellPageHandler())
	r.Get("/views/*", views.fragmentHandler())

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHealthHandler(opts.AppVersion))

		if authSvc == nil {
			return
		}
		requireAuth := JWTAuthMiddleware(authSvc, logger)
		adminOnly := RequireRole(domain.RoleAdmin, logger)

		// =============================================
		// Autenticação
		// =============================================
		r.With(newLoginLimiter(opts.LoginRateLimit).middleware(logger)).
			Post("/auth/login", authLoginHandler(authSvc, logger))
		r.With(requireAuth).Get("/auth/me", authMeHandler(authSvc, logger))

		// =============================================
		// Planos: leitura pública, escrita admin
		// =============================================
		if planSvc != nil {
			r.Route("/plans", func(r chi.Router) {
				r.Get("/", listPlansHandler(planSvc, logger))
				r.Get("/{id}", getPlanHandler(planSvc, logger))

				r.Group(func(r chi.Router) {
					r.Use(requireAuth, adminOnly)
					r.Post("/", createPlanHandler(planSvc, logger))
					r.Put("/{id}", updatePlanHandler(planSvc, logger))
					r.Delete("/{id}", deletePlanHandler(planSvc, logger))
				})
			})
		}

		// =============================================
		// Empresas: admin
		// =============================================
		if companySvc != nil {
			r.Route("/companies", func(r chi.Router) {
				r.Use(requireAuth, adminOnly)
				r.Get("/", listCompaniesHandler(companySvc, logger))
				r.Post("/", createCompanyHandler(companySvc, logger))
				r.Get("/{id}", getCompanyHandler(companySvc, logger))
				r.Put("/{id}", updateCompanyHandler(companySvc, logger))
				r.Delete("/{id}", deleteCompanyHandler(companySvc, logger))
			})
		}

		if metrics != nil {
			r.With(requireAuth, adminOnly).Get("/metrics/summary", metricsSummaryHandler(metrics))
		}
	})

	return r
}
