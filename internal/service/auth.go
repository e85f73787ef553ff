// Package service: AuthService handles login, JWT issuance and token
// validation for the admin and company dashboards.
package service

import (
	"errors"
	"strings"
	"time"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/observability"
	"github.com/agendai/agendai-go/internal/port"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// validate is shared by every service; validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// AuthService orchestrates authentication flows.
type AuthService struct {
	users     port.UserStore
	companies port.CompanyStore
	jwtSecret []byte
	tokenTTL  time.Duration
	demoAuth  bool
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithDemoAuth enables the fixed demo credentials (admin@agendai.com / empresa@agendai.com).
func WithDemoAuth(enabled bool) AuthOption {
	return func(s *AuthService) { s.demoAuth = enabled }
}

// WithMetrics records login outcomes.
func WithMetrics(m *observability.Metrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

// NewAuthService creates a new auth service.
func NewAuthService(users port.UserStore, companies port.CompanyStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:     users,
		companies: companies,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrLogin(outcome)
	}
}

// validationError converts validator output into the first ErrValidation.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domain.ErrValidation{
			Field:   strings.ToLower(fe.Field()[:1]) + fe.Field()[1:],
			Message: validationMessage(fe),
		}
	}
	return &domain.ErrValidation{Message: err.Error()}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obrigatório"
	case "email":
		return "email inválido"
	case "oneof":
		return "valor deve ser um de: " + fe.Param()
	case "gte":
		return "valor deve ser maior ou igual a " + fe.Param()
	case "max":
		return "tamanho máximo é " + fe.Param()
	case "len":
		return "tamanho deve ser " + fe.Param()
	default:
		return "valor inválido"
	}
}
