package service_test

import (
	"context"
	"testing"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/memstore"
	"github.com/agendai/agendai-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCompanyFixture(t *testing.T) (*service.CompanyService, *memstore.Store, *domain.Plan) {
	t.Helper()
	store := memstore.New()
	plan, err := store.CreatePlan(context.Background(), &domain.Plan{Name: "Profissional"})
	require.NoError(t, err)
	return service.NewCompanyService(store, store, zap.NewNop()), store, plan
}

func validCompany(planID int64) *domain.CompanyRequest {
	return &domain.CompanyRequest{
		Name:   "Clínica Bem Estar",
		CNPJ:   "12.345.678/0001-90",
		Email:  "Contato@BemEstar.com.br",
		State:  "sp",
		Zip:    "01001-000",
		PlanID: planID,
	}
}

func TestCompanyService_Create(t *testing.T) {
	svc, _, plan := newCompanyFixture(t)

	c, err := svc.CreateCompany(context.Background(), validCompany(plan.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "12345678000190", c.CNPJ)
	assert.Equal(t, "contato@bemestar.com.br", c.Email)
	assert.Equal(t, "SP", c.State)
	assert.Equal(t, "01001000", c.Zip)
	assert.Equal(t, "Profissional", c.PlanName)
	assert.Equal(t, domain.CompanyStatusTrial, c.Status)
	assert.Equal(t, domain.PaymentStatusOK, c.PaymentStatus)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestCompanyService_CreateRejectsBadInput(t *testing.T) {
	svc, _, plan := newCompanyFixture(t)

	shortCNPJ := validCompany(plan.ID)
	shortCNPJ.CNPJ = "123"
	_, err := svc.CreateCompany(context.Background(), shortCNPJ)
	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cnpj", verr.Field)

	badEmail := validCompany(plan.ID)
	badEmail.Email = "not-an-email"
	_, err = svc.CreateCompany(context.Background(), badEmail)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	unknownPlan := validCompany(999)
	_, err = svc.CreateCompany(context.Background(), unknownPlan)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "planId", verr.Field)
}

func TestCompanyService_DuplicateCNPJ(t *testing.T) {
	svc, _, plan := newCompanyFixture(t)
	ctx := context.Background()

	first, err := svc.CreateCompany(ctx, validCompany(plan.ID))
	require.NoError(t, err)

	dup := validCompany(plan.ID)
	dup.CNPJ = "12345678000190"
	_, err = svc.CreateCompany(ctx, dup)
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)

	// Updating a company with its own CNPJ is not a conflict.
	same := validCompany(plan.ID)
	same.Name = "Clínica Renovada"
	updated, err := svc.UpdateCompany(ctx, first.ID, same)
	require.NoError(t, err)
	assert.Equal(t, "Clínica Renovada", updated.Name)
	assert.Equal(t, first.CreatedAt, updated.CreatedAt)
}

func TestCompanyService_Delete(t *testing.T) {
	svc, store, plan := newCompanyFixture(t)
	ctx := context.Background()

	c, err := svc.CreateCompany(ctx, validCompany(plan.ID))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteCompany(ctx, c.ID))

	left, err := store.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)

	err = svc.DeleteCompany(ctx, c.ID)
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestNormalizeDigits(t *testing.T) {
	assert.Equal(t, "12345678000190", service.NormalizeDigits("12.345.678/0001-90"))
	assert.Equal(t, "", service.NormalizeDigits("abc"))
}
