package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/handler"
	"github.com/agendai/agendai-go/internal/infra/cache"
	"github.com/agendai/agendai-go/internal/infra/memstore"
	"github.com/agendai/agendai-go/internal/infra/observability"
	"github.com/agendai/agendai-go/internal/service"

	"go.uber.org/zap"
)

type apiServer struct {
	t   *testing.T
	url string
}

func (s *apiServer) call(method, path, token string, body any) (int, []byte) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.url+path, &buf)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

// TestIntegration_AdminPlanLifecycle runs the real router over the seeded
// in-memory store: login, plan CRUD and the referential delete guard.
func TestIntegration_AdminPlanLifecycle(t *testing.T) {
	// --- Build service ---
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memstore.New()
	if err := store.Seed(context.Background(), "admin123", "empresa123"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	authSvc := service.NewAuthService(store, store, "integration-secret", time.Hour, logger, service.WithMetrics(metrics))
	planSvc := service.NewPlanService(store, store, cache.New[[]domain.Plan](5*time.Minute), metrics, logger)
	companySvc := service.NewCompanyService(store, store, logger)

	srv := httptest.NewServer(handler.NewRouter(authSvc, planSvc, companySvc, metrics, logger, handler.Options{AppVersion: "it"}))
	defer srv.Close()
	api := &apiServer{t: t, url: srv.URL}

	// --- Login ---
	code, raw := api.call(http.MethodPost, "/api/auth/login", "", domain.LoginRequest{Email: "admin@agendai.com", Password: "admin123"})
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", code, raw)
	}
	var login domain.LoginResponse
	if err := json.Unmarshal(raw, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.User.Role != domain.RoleAdmin || login.Token == "" {
		t.Fatalf("unexpected login response: %+v", login)
	}
	token := login.Token

	// --- Create plan ---
	code, raw = api.call(http.MethodPost, "/api/plans", token, domain.PlanRequest{
		Name:     "Premium",
		Price:    199.9,
		Features: map[string]bool{"relatorios": true},
	})
	if code != http.StatusCreated {
		t.Fatalf("create plan: expected 201, got %d: %s", code, raw)
	}
	var plan domain.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	planPath := fmt.Sprintf("/api/plans/%d", plan.ID)

	// --- Public read sees it ---
	code, raw = api.call(http.MethodGet, planPath, "", nil)
	if code != http.StatusOK || !strings.Contains(string(raw), `"relatorios":true`) {
		t.Fatalf("get plan: %d %s", code, raw)
	}

	// --- Company references it ---
	code, raw = api.call(http.MethodPost, "/api/companies", token, domain.CompanyRequest{
		Name:   "Pet Shop Amigo",
		CNPJ:   "44.555.666/0001-77",
		Email:  "contato@petamigo.com.br",
		PlanID: plan.ID,
	})
	if code != http.StatusCreated {
		t.Fatalf("create company: expected 201, got %d: %s", code, raw)
	}
	var company domain.Company
	if err := json.Unmarshal(raw, &company); err != nil {
		t.Fatalf("decode company: %v", err)
	}
	if company.PlanName != "Premium" {
		t.Errorf("expected planName copied from plan, got %q", company.PlanName)
	}

	// --- Delete guard ---
	code, raw = api.call(http.MethodDelete, planPath, token, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("delete referenced plan: expected 400, got %d: %s", code, raw)
	}
	if code, _ = api.call(http.MethodGet, planPath, "", nil); code != http.StatusOK {
		t.Fatalf("plan must remain after blocked delete, got %d", code)
	}

	// --- Remove reference, then delete ---
	if code, raw = api.call(http.MethodDelete, "/api/companies/"+company.ID, token, nil); code != http.StatusOK {
		t.Fatalf("delete company: %d %s", code, raw)
	}
	if code, raw = api.call(http.MethodDelete, planPath, token, nil); code != http.StatusOK {
		t.Fatalf("delete plan: %d %s", code, raw)
	}
	if code, _ = api.call(http.MethodGet, planPath, "", nil); code != http.StatusNotFound {
		t.Fatalf("deleted plan: expected 404, got %d", code)
	}

	// --- Metrics ---
	code, raw = api.call(http.MethodGet, "/metrics", "", nil)
	if code != http.StatusOK {
		t.Fatalf("metrics: %d", code)
	}
	if !strings.Contains(string(raw), `outcome="success"`) {
		t.Errorf("expected login success counter in metrics output")
	}

	t.Logf("Integration test passed: plan %d created, guarded and deleted", plan.ID)
}

// TestIntegration_CompanyUserBoundaries checks that a company token reads
// plans but cannot write them or reach admin routes.
func TestIntegration_CompanyUserBoundaries(t *testing.T) {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memstore.New()
	if err := store.Seed(context.Background(), "admin123", "empresa123"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	authSvc := service.NewAuthService(store, store, "integration-secret", time.Hour, logger)
	planSvc := service.NewPlanService(store, store, cache.New[[]domain.Plan](5*time.Minute), metrics, logger)
	companySvc := service.NewCompanyService(store, store, logger)

	srv := httptest.NewServer(handler.NewRouter(authSvc, planSvc, companySvc, metrics, logger, handler.Options{}))
	defer srv.Close()
	api := &apiServer{t: t, url: srv.URL}

	code, raw := api.call(http.MethodPost, "/api/auth/login", "", domain.LoginRequest{Email: "empresa@agendai.com", Password: "empresa123"})
	if code != http.StatusOK {
		t.Fatalf("login: %d %s", code, raw)
	}
	var login domain.LoginResponse
	if err := json.Unmarshal(raw, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	code, raw = api.call(http.MethodGet, "/api/auth/me", login.Token, nil)
	if code != http.StatusOK || !strings.Contains(string(raw), memstore.SeedCompanyID) {
		t.Fatalf("me: %d %s", code, raw)
	}

	if code, _ = api.call(http.MethodGet, "/api/plans", login.Token, nil); code != http.StatusOK {
		t.Errorf("list plans: expected 200, got %d", code)
	}
	if code, _ = api.call(http.MethodPost, "/api/plans", login.Token, domain.PlanRequest{Name: "x"}); code != http.StatusForbidden {
		t.Errorf("create plan as company: expected 403, got %d", code)
	}
	if code, _ = api.call(http.MethodGet, "/api/companies", login.Token, nil); code != http.StatusForbidden {
		t.Errorf("list companies as company: expected 403, got %d", code)
	}
	if code, _ = api.call(http.MethodGet, "/api/companies", "", nil); code != http.StatusUnauthorized {
		t.Errorf("list companies without token: expected 401, got %d", code)
	}

	// Demo credentials are rejected while demo auth is off.
	if code, _ = api.call(http.MethodPost, "/api/auth/login", "", domain.LoginRequest{Email: "admin@agendai.com", Password: "admin"}); code != http.StatusUnauthorized {
		t.Errorf("demo login with demo auth off: expected 401, got %d", code)
	}
}
