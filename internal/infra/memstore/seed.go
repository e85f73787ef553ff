package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/agendai/agendai-go/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// SeedCompanyID is the id of the sample company created by Seed.
const SeedCompanyID = "5b0c7f62-3a1e-4c53-9d2a-0f1e6a7c9b11"

// Seed loads the sample catalogue: three plans, one company and one admin
// plus one company user. Passwords are stored as bcrypt hashes.
func (s *Store) Seed(ctx context.Context, adminPassword, companyPassword string) error {
	adminHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	companyHash, err := bcrypt.GenerateFromPassword([]byte(companyPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash company password: %w", err)
	}

	plans := []domain.Plan{
		{
			Name: "Básico", Price: 49.90, Appointments: 100, Professionals: 1, Services: 5,
			Status: domain.PlanStatusActive, Description: "Para profissionais autônomos",
			Features: map[string]bool{"agenda": true, "lembretes": true, "relatorios": false},
		},
		{
			Name: "Profissional", Price: 99.90, Appointments: 500, Professionals: 5, Services: 20,
			Status: domain.PlanStatusActive, Highlight: true, Description: "Para pequenos negócios",
			Features: map[string]bool{"agenda": true, "lembretes": true, "relatorios": true},
		},
		{
			Name: "Empresarial", Price: 199.90, Appointments: 0, Professionals: 0, Services: 0,
			Status: domain.PlanStatusActive, Description: "Agendamentos ilimitados",
			Features: map[string]bool{"agenda": true, "lembretes": true, "relatorios": true, "api": true},
		},
	}

	var professional *domain.Plan
	for i := range plans {
		created, err := s.CreatePlan(ctx, &plans[i])
		if err != nil {
			return err
		}
		if created.Name == "Profissional" {
			professional = created
		}
	}

	_, err = s.CreateCompany(ctx, &domain.Company{
		ID:            SeedCompanyID,
		Name:          "Barbearia Central",
		CNPJ:          "12345678000190",
		Email:         "contato@barbeariacentral.com.br",
		Phone:         "11987654321",
		Address:       "Rua das Flores, 100",
		City:          "São Paulo",
		State:         "SP",
		Zip:           "01001000",
		PlanID:        professional.ID,
		PlanName:      professional.Name,
		Status:        domain.CompanyStatusActive,
		PaymentStatus: domain.PaymentStatusOK,
		Category:      "barbearia",
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	s.PutUser(domain.User{
		ID:           "a7d4c2e0-1f3b-4b8e-9c61-2d5f8e0a4b7c",
		Name:         "Administrador",
		Email:        "admin@agendai.com",
		PasswordHash: string(adminHash),
		Role:         domain.RoleAdmin,
		Status:       domain.UserStatusActive,
	})
	s.PutUser(domain.User{
		ID:           "c3e9b1f4-6a2d-4e7f-8b50-9a1c3d5e7f20",
		Name:         "Empresa Demo",
		Email:        "empresa@agendai.com",
		PasswordHash: string(companyHash),
		Role:         domain.RoleCompany,
		CompanyID:    SeedCompanyID,
		Status:       domain.UserStatusActive,
	})
	return nil
}
