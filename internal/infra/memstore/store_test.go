package memstore

import (
	"context"
	"testing"

	"github.com/agendai/agendai-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestStore_PlanIDsAutoincrement(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, err := s.CreatePlan(ctx, &domain.Plan{Name: "A"})
	require.NoError(t, err)
	b, err := s.CreatePlan(ctx, &domain.Plan{Name: "B"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.NotNil(t, a.Features)
}

func TestStore_MalformedFeaturesDecodeEmpty(t *testing.T) {
	s := New()
	ctx := context.Background()

	p, err := s.CreatePlan(ctx, &domain.Plan{Name: "A", Features: map[string]bool{"agenda": true}})
	require.NoError(t, err)

	s.SetPlanFeaturesRaw(p.ID, []byte("{not json"))

	got, err := s.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{}, got.Features)
}

func TestStore_UpdateMissingPlan(t *testing.T) {
	s := New()
	_, err := s.UpdatePlan(context.Background(), &domain.Plan{ID: 42})

	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestStore_UserLookupIsCaseInsensitive(t *testing.T) {
	s := New()
	s.PutUser(domain.User{ID: "u1", Email: "Ana@Example.com"})

	u, err := s.GetUserByEmail(context.Background(), "ANA@example.COM")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)

	missing, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_CountCompaniesByPlan(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, _ = s.CreateCompany(ctx, &domain.Company{ID: "c1", PlanID: 1})
	_, _ = s.CreateCompany(ctx, &domain.Company{ID: "c2", PlanID: 1})
	_, _ = s.CreateCompany(ctx, &domain.Company{ID: "c3", PlanID: 2})

	n, err := s.CountCompaniesByPlan(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.DeleteCompany(ctx, "c1"))
	n, _ = s.CountCompaniesByPlan(ctx, 1)
	assert.Equal(t, int64(1), n)
}

func TestStore_Seed(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, "admin", "empresa"))

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 3)

	company, err := s.GetCompany(ctx, SeedCompanyID)
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(t, "Profissional", company.PlanName)

	admin, err := s.GetUserByEmail(ctx, "admin@agendai.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin")))
}
