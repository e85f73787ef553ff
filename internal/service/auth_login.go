package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/agendai/agendai-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// demoAccount is a fixed login accepted only when demo auth is enabled.
type demoAccount struct {
	password string
	user     domain.AuthUser
}

var demoAccounts = map[string]demoAccount{
	"admin@agendai.com": {
		password: "admin",
		user: domain.AuthUser{
			ID:    "demo-admin",
			Name:  "Administrador",
			Email: "admin@agendai.com",
			Role:  domain.RoleAdmin,
		},
	},
	"empresa@agendai.com": {
		password: "empresa",
		user: domain.AuthUser{
			ID:          "demo-company",
			Name:        "Empresa Demo",
			Email:       "empresa@agendai.com",
			Role:        domain.RoleCompany,
			CompanyID:   "demo-company-1",
			CompanyName: "Empresa Demo",
		},
	},
}

// ============================================================
// Login: POST /api/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, &domain.ErrValidation{Message: "Email e senha são obrigatórios"}
	}
	span.SetAttributes(attribute.String("email", req.Email))

	if s.demoAuth {
		if demo, ok := demoAccounts[req.Email]; ok && demo.password == req.Password {
			s.logger.Warn("DEMO_AUTH: login via demo credentials", zap.String("email", req.Email))
			s.countLogin("demo")
			return s.issue(demo.user)
		}
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		s.countLogin("failure")
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: invalid password", zap.String("user_id", user.ID))
		s.countLogin("failure")
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}

	if user.Status == domain.UserStatusInactive {
		s.logger.Warn("login: inactive user", zap.String("user_id", user.ID))
		s.countLogin("inactive")
		return nil, &domain.ErrAccountInactive{Reason: domain.InactiveReasonUser}
	}

	authUser := domain.AuthUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}

	if user.Role == domain.RoleCompany {
		company, err := s.companies.GetCompany(ctx, user.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("get company: %w", err)
		}
		if company == nil || company.Status == domain.CompanyStatusInactive {
			s.logger.Warn("login: inactive company",
				zap.String("user_id", user.ID),
				zap.String("company_id", user.CompanyID),
			)
			s.countLogin("inactive")
			return nil, &domain.ErrAccountInactive{Reason: domain.InactiveReasonCompany}
		}
		if company.PaymentStatus == domain.PaymentStatusOverdue {
			s.logger.Warn("login: payment overdue", zap.String("company_id", company.ID))
			s.countLogin("inactive")
			return nil, &domain.ErrAccountInactive{Reason: domain.InactiveReasonPayment}
		}
		authUser.CompanyID = company.ID
		authUser.CompanyName = company.Name
	}

	s.countLogin("success")
	s.logger.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role),
	)
	return s.issue(authUser)
}

func (s *AuthService) issue(user domain.AuthUser) (*domain.LoginResponse, error) {
	token, err := s.signToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.LoginResponse{User: user, Token: token}, nil
}

// Me resolves the user behind a validated token.
func (s *AuthService) Me(ctx context.Context, claims *Claims) (*domain.AuthUser, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Me")
	defer span.End()

	if s.demoAuth {
		for _, demo := range demoAccounts {
			if demo.user.ID == claims.ID {
				u := demo.user
				return &u, nil
			}
		}
	}

	user, err := s.users.GetUserByID(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: claims.ID}
	}

	me := &domain.AuthUser{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, CompanyID: user.CompanyID}
	if user.CompanyID != "" {
		if company, err := s.companies.GetCompany(ctx, user.CompanyID); err == nil && company != nil {
			me.CompanyName = company.Name
		}
	}
	return me, nil
}

// HashPassword returns the bcrypt hash used for stored credentials.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

const bcryptCost = 10
