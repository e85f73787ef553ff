package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *APIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAPIClient(srv.Client(), srv.URL+"/", resilience.Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 4,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req domain.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "admin" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Credenciais inválidas"})
			return
		}
		writeJSON(w, http.StatusOK, domain.LoginResponse{
			User:  domain.AuthUser{ID: "u1", Email: req.Email, Role: domain.RoleAdmin},
			Token: "tok",
		})
	}))

	resp, err := c.Login(context.Background(), "admin@agendai.com", "admin")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, domain.RoleAdmin, resp.User.Role)
}

func TestLogin_ClientErrorIsNotRetriedAndKeepsBreakerClosed(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Pagamento em atraso. Regularize para continuar"})
	}))

	for i := 0; i < 6; i++ {
		_, err := c.Login(context.Background(), "empresa@agendai.com", "x")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.Status)
		assert.Equal(t, "Pagamento em atraso. Regularize para continuar", apiErr.Message)
	}
	assert.Equal(t, int32(6), calls.Load())
	assert.Zero(t, c.cb.Counts().TotalFailures)
}

func TestListPlans_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, []domain.Plan{{ID: 1, Name: "Básico", Features: map[string]bool{"agenda": true}}})
	}))

	plans, err := c.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.True(t, plans[0].Features["agenda"])
	assert.Equal(t, int32(3), calls.Load())
}

func TestListPlans_PersistentFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Erro interno do servidor"})
	}))

	_, err := c.ListPlans(context.Background())

	var extErr *domain.ErrExternalService
	require.ErrorAs(t, err, &extErr)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestMe_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token não fornecido"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": domain.AuthUser{ID: "u1", Role: domain.RoleCompany}})
	}))

	me, err := c.Me(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)

	_, err = c.Me(context.Background(), "")
	assert.True(t, IsClientError(err))
}

func TestHealth(t *testing.T) {
	var calls atomic.Int32
	up := atomic.Bool{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !up.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, HealthStatus{Status: "ok", Version: "1.0.0"})
	}))

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.False(t, IsClientError(err))
	assert.Equal(t, int32(1), calls.Load(), "health is never retried by the client")

	up.Store(true)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(&APIError{Status: 404}))
	assert.False(t, IsClientError(&APIError{Status: 502}))
	assert.False(t, IsClientError(errors.New("x")))
	assert.False(t, IsClientError(nil))
}
