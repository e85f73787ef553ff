package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var companyTracer = otel.Tracer("service/companies")

// CompanyService manages tenant companies for the admin dashboard.
type CompanyService struct {
	companies port.CompanyStore
	plans     port.PlanStore
	logger    *zap.Logger
}

// NewCompanyService creates the company service.
func NewCompanyService(companies port.CompanyStore, plans port.PlanStore, logger *zap.Logger) *CompanyService {
	return &CompanyService{companies: companies, plans: plans, logger: logger}
}

func (s *CompanyService) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.ListCompanies")
	defer span.End()

	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

func (s *CompanyService) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.GetCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", id))

	company, err := s.companies.GetCompany(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if company == nil {
		return nil, &domain.ErrNotFound{Resource: "company", ID: id}
	}
	return company, nil
}

func (s *CompanyService) CreateCompany(ctx context.Context, req *domain.CompanyRequest) (*domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.CreateCompany")
	defer span.End()

	company, err := s.fromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCNPJ(ctx, company.CNPJ, ""); err != nil {
		return nil, err
	}

	company.ID = uuid.NewString()
	company.CreatedAt = time.Now().UTC()

	created, err := s.companies.CreateCompany(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	s.logger.Info("company created",
		zap.String("company_id", created.ID),
		zap.String("cnpj", created.CNPJ),
	)
	return created, nil
}

func (s *CompanyService) UpdateCompany(ctx context.Context, id string, req *domain.CompanyRequest) (*domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.UpdateCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", id))

	existing, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}

	company, err := s.fromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCNPJ(ctx, company.CNPJ, id); err != nil {
		return nil, err
	}
	company.ID = existing.ID
	company.CreatedAt = existing.CreatedAt

	updated, err := s.companies.UpdateCompany(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}

	s.logger.Info("company updated", zap.String("company_id", id))
	return updated, nil
}

func (s *CompanyService) DeleteCompany(ctx context.Context, id string) error {
	ctx, span := companyTracer.Start(ctx, "CompanyService.DeleteCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", id))

	if _, err := s.GetCompany(ctx, id); err != nil {
		return err
	}
	if err := s.companies.DeleteCompany(ctx, id); err != nil {
		return fmt.Errorf("delete company: %w", err)
	}

	s.logger.Info("company deleted", zap.String("company_id", id))
	return nil
}

// fromRequest validates req and resolves the plan name copied onto the company.
func (s *CompanyService) fromRequest(ctx context.Context, req *domain.CompanyRequest) (*domain.Company, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.State = strings.ToUpper(strings.TrimSpace(req.State))
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	cnpj := NormalizeDigits(req.CNPJ)
	if len(cnpj) != 14 {
		return nil, &domain.ErrValidation{Field: "cnpj", Message: "CNPJ deve ter 14 dígitos"}
	}

	company := &domain.Company{
		Name:          req.Name,
		CNPJ:          cnpj,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Zip:           NormalizeDigits(req.Zip),
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		Category:      req.Category,
	}
	if company.Status == "" {
		company.Status = domain.CompanyStatusTrial
	}
	if company.PaymentStatus == "" {
		company.PaymentStatus = domain.PaymentStatusOK
	}

	if req.PlanID > 0 {
		plan, err := s.plans.GetPlan(ctx, req.PlanID)
		if err != nil {
			return nil, fmt.Errorf("get plan: %w", err)
		}
		if plan == nil {
			return nil, &domain.ErrValidation{Field: "planId", Message: "plano não encontrado"}
		}
		company.PlanID = plan.ID
		company.PlanName = plan.Name
	}
	return company, nil
}

func (s *CompanyService) ensureUniqueCNPJ(ctx context.Context, cnpj, selfID string) error {
	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return fmt.Errorf("list companies: %w", err)
	}
	for _, c := range companies {
		if c.ID != selfID && NormalizeDigits(c.CNPJ) == cnpj {
			return &domain.ErrConflict{Message: "CNPJ já cadastrado"}
		}
	}
	return nil
}

// NormalizeDigits strips every non-digit rune (CNPJ, CEP and phone masks).
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
