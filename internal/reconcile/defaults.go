package reconcile

import (
	"time"

	"github.com/agendai/agendai-go/internal/domain"
)

// DefaultCompanies is the sample data seeded when every tier is empty and the
// collection was never cleared on purpose.
func DefaultCompanies() []domain.Company {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	return []domain.Company{
		{
			ID: "1", Name: "Barbearia Central", CNPJ: "12345678000190", Email: "contato@barbeariacentral.com.br",
			Phone: "11987654321", City: "São Paulo", State: "SP", PlanID: 2, PlanName: "Profissional",
			Status: domain.CompanyStatusActive, PaymentStatus: domain.PaymentStatusOK, Category: "barbearia", CreatedAt: created,
		},
		{
			ID: "2", Name: "Clínica Bem Estar", CNPJ: "98765432000110", Email: "agenda@bemestar.com.br",
			Phone: "21912345678", City: "Rio de Janeiro", State: "RJ", PlanID: 3, PlanName: "Empresarial",
			Status: domain.CompanyStatusActive, PaymentStatus: domain.PaymentStatusOK, Category: "saude", CreatedAt: created.AddDate(0, 1, 0),
		},
		{
			ID: "3", Name: "Studio Beleza", CNPJ: "11222333000144", Email: "oi@studiobeleza.com.br",
			Phone: "31999887766", City: "Belo Horizonte", State: "MG", PlanID: 1, PlanName: "Básico",
			Status: domain.CompanyStatusTrial, PaymentStatus: domain.PaymentStatusOK, Category: "estetica", CreatedAt: created.AddDate(0, 2, 0),
		},
	}
}
