// Package client talks to the AgendAI REST API from the terminal shell.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// APIError is a 4xx answer from the API, carrying its {"error": msg} body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsClientError reports whether err is a 4xx answer.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status < 500
}

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// APIClient calls the backend with a circuit breaker, a bulkhead and, for
// idempotent reads, retry with backoff.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewAPIClient creates a client for baseURL.
func NewAPIClient(httpClient *http.Client, baseURL string, cfg resilience.Config) *APIClient {
	return &APIClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb: resilience.NewCircuitBreakerWith("agendai-api", func(err error) bool {
			return err == nil || IsClientError(err)
		}),
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:      cfg,
	}
}

// Login exchanges credentials for a user and token.
func (c *APIClient) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	ctx, span := tracer.Start(ctx, "APIClient.Login")
	defer span.End()
	span.SetAttributes(attribute.String("email", email))

	var out domain.LoginResponse
	body := domain.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user behind token.
func (c *APIClient) Me(ctx context.Context, token string) (*domain.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "APIClient.Me")
	defer span.End()

	var out struct {
		User domain.AuthUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out, true); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ListPlans returns the public plan list.
func (c *APIClient) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	ctx, span := tracer.Start(ctx, "APIClient.ListPlans")
	defer span.End()

	var plans []domain.Plan
	if err := c.do(ctx, http.MethodGet, "/api/plans", "", nil, &plans, true); err != nil {
		return nil, err
	}
	return plans, nil
}

// ListCompanies returns every company (admin token required).
func (c *APIClient) ListCompanies(ctx context.Context, token string) ([]domain.Company, error) {
	ctx, span := tracer.Start(ctx, "APIClient.ListCompanies")
	defer span.End()

	var companies []domain.Company
	if err := c.do(ctx, http.MethodGet, "/api/companies", token, nil, &companies, true); err != nil {
		return nil, err
	}
	return companies, nil
}

// Health checks the API once, without retry.
func (c *APIClient) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, span := tracer.Start(ctx, "APIClient.Health")
	defer span.End()

	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/api/health", "", nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path, token string, in, out any, retry bool) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: method + " " + path}
	}
	defer c.bulkhead.Release()

	call := func() error { return c.roundTrip(ctx, method, path, token, in, out) }

	_, err := c.cb.Execute(func() (any, error) {
		if !retry {
			return nil, call()
		}
		var clientErr error
		err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			err := call()
			if IsClientError(err) {
				clientErr = err
				return nil
			}
			return err
		})
		if err == nil {
			err = clientErr
		}
		return nil, err
	})
	if err != nil {
		if IsClientError(err) {
			return err
		}
		return &domain.ErrExternalService{Service: "agendai-api", Err: err}
	}
	return nil
}

func (c *APIClient) roundTrip(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
