package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/observability"
	"github.com/agendai/agendai-go/internal/port"

	"go.uber.org/zap"
)

// ============================================================
// Métricas & Health
// ============================================================

func apiHealthHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.APIHealth{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   version,
		})
	}
}

func healthzHandler(pingers map[string]port.Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "agendai-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		names := make([]string, 0, len(pingers))
		for name := range pingers {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			start := time.Now()
			err := pingers[name].Ping(ctx)
			cancel()

			status := "healthy"
			if err != nil {
				logger.Warn("healthz: dependency degraded", zap.String("dependency", name), zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: name, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Summary())
	}
}
