package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// APIHealth is returned by GET /api/health.
type APIHealth struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// MetricsSummary is returned by GET /api/metrics/summary.
type MetricsSummary struct {
	LoginSuccess   int64   `json:"loginSuccess"`
	LoginFailure   int64   `json:"loginFailure"`
	LoginDemo      int64   `json:"loginDemo"`
	CacheHitRate   float64 `json:"cacheHitRate"`
	ErrorResponses int64   `json:"errorResponses"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
