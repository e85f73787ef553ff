package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agendai/agendai-go/internal/domain"

	"gorm.io/gorm"
)

// --- Users ---

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	u := row.toDomain()
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u := row.toDomain()
	return &u, nil
}

// PutUser inserts or replaces a user row.
func (s *Store) PutUser(ctx context.Context, u domain.User) error {
	row := userRow{
		ID:           u.ID,
		Name:         u.Name,
		Email:        strings.ToLower(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CompanyID:    u.CompanyID,
		Status:       u.Status,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

// --- Plans ---

func (s *Store) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	var rows []planRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	plans := make([]domain.Plan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.toDomain())
	}
	return plans, nil
}

func (s *Store) GetPlan(ctx context.Context, id int64) (*domain.Plan, error) {
	var row planRow
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query plan: %w", err)
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) CreatePlan(ctx context.Context, plan *domain.Plan) (*domain.Plan, error) {
	row := planRowFrom(plan)
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert plan: %w", err)
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) UpdatePlan(ctx context.Context, plan *domain.Plan) (*domain.Plan, error) {
	row := planRowFrom(plan)
	res := s.db.WithContext(ctx).Model(&planRow{ID: plan.ID}).
		Select("name", "price", "appointments", "professionals", "services", "status", "highlight", "description", "features", "updated_at").
		Updates(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("update plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &domain.ErrNotFound{Resource: "plan", ID: strconv.FormatInt(plan.ID, 10)}
	}
	return s.GetPlan(ctx, plan.ID)
}

func (s *Store) DeletePlan(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&planRow{}, id).Error; err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}

// --- Companies ---

func (s *Store) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	var rows []companyRow
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	out := make([]domain.Company, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	var row companyRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query company: %w", err)
	}
	c := row.toDomain()
	return &c, nil
}

func (s *Store) CreateCompany(ctx context.Context, company *domain.Company) (*domain.Company, error) {
	row := companyRowFrom(company)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &domain.ErrConflict{Message: "CNPJ já cadastrado"}
		}
		return nil, fmt.Errorf("insert company: %w", err)
	}
	c := row.toDomain()
	return &c, nil
}

func (s *Store) UpdateCompany(ctx context.Context, company *domain.Company) (*domain.Company, error) {
	row := companyRowFrom(company)
	res := s.db.WithContext(ctx).Model(&companyRow{ID: company.ID}).
		Select("name", "cnpj", "email", "phone", "address", "city", "state", "zip", "plan_id", "plan_name", "status", "payment_status", "category").
		Updates(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("update company: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &domain.ErrNotFound{Resource: "company", ID: company.ID}
	}
	return s.GetCompany(ctx, company.ID)
}

func (s *Store) DeleteCompany(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&companyRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return nil
}

func (s *Store) CountCompaniesByPlan(ctx context.Context, planID int64) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&companyRow{}).Where("plan_id = ?", planID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return n, nil
}
