// Package memstore is an in-process implementation of the store ports, used
// when no database is configured and as the backing store in tests.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agendai/agendai-go/internal/domain"
)

type planRow struct {
	plan     domain.Plan
	features []byte
}

// Store keeps users, plans and companies in memory.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	plans      map[int64]planRow
	companies  map[string]domain.Company
	nextPlanID int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		plans:      make(map[int64]planRow),
		companies:  make(map[string]domain.Company),
		nextPlanID: 1,
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// --- Users ---

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	s.users[u.ID] = u
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// --- Plans ---

func (s *Store) ListPlans(_ context.Context) ([]domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := make([]domain.Plan, 0, len(s.plans))
	for _, row := range s.plans {
		plans = append(plans, row.materialize())
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}

func (s *Store) GetPlan(_ context.Context, id int64) (*domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	p := row.materialize()
	return &p, nil
}

func (s *Store) CreatePlan(_ context.Context, plan *domain.Plan) (*domain.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p := *plan
	p.ID = s.nextPlanID
	p.CreatedAt = now
	p.UpdatedAt = now
	s.nextPlanID++

	s.plans[p.ID] = newPlanRow(p)
	out := s.plans[p.ID].materialize()
	return &out, nil
}

func (s *Store) UpdatePlan(_ context.Context, plan *domain.Plan) (*domain.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.plans[plan.ID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "plan", ID: strconv.FormatInt(plan.ID, 10)}
	}
	p := *plan
	p.CreatedAt = existing.plan.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	s.plans[p.ID] = newPlanRow(p)
	out := s.plans[p.ID].materialize()
	return &out, nil
}

func (s *Store) DeletePlan(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.plans, id)
	return nil
}

// SetPlanFeaturesRaw overwrites the stored features blob verbatim.
func (s *Store) SetPlanFeaturesRaw(id int64, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.plans[id]; ok {
		row.features = raw
		s.plans[id] = row
	}
}

func newPlanRow(p domain.Plan) planRow {
	raw := domain.EncodeFeatures(p.Features)
	p.Features = nil
	return planRow{plan: p, features: raw}
}

func (r planRow) materialize() domain.Plan {
	p := r.plan
	p.Features = domain.DecodeFeatures(r.features)
	return p
}

// --- Companies ---

func (s *Store) ListCompanies(_ context.Context) ([]domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetCompany(_ context.Context, id string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) CreateCompany(_ context.Context, company *domain.Company) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *company
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.companies[c.ID] = c
	return &c, nil
}

func (s *Store) UpdateCompany(_ context.Context, company *domain.Company) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.companies[company.ID]; !ok {
		return nil, &domain.ErrNotFound{Resource: "company", ID: company.ID}
	}
	c := *company
	s.companies[c.ID] = c
	return &c, nil
}

func (s *Store) DeleteCompany(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.companies, id)
	return nil
}

func (s *Store) CountCompaniesByPlan(_ context.Context, planID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.companies {
		if c.PlanID == planID {
			n++
		}
	}
	return n, nil
}
