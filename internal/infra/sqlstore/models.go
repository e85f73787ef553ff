package sqlstore

import (
	"time"

	"github.com/agendai/agendai-go/internal/domain"

	"gorm.io/datatypes"
)

type userRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:150;not null"`
	Email        string `gorm:"size:150;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password;size:255;not null"`
	Role         string `gorm:"size:20;not null"`
	CompanyID    string `gorm:"size:36;index"`
	Status       string `gorm:"size:20;default:active"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CompanyID:    r.CompanyID,
		Status:       r.Status,
	}
}

type planRow struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	Name          string  `gorm:"size:100;not null"`
	Price         float64 `gorm:"type:decimal(10,2);not null"`
	Appointments  int
	Professionals int
	Services      int
	Status        string `gorm:"size:20;default:active"`
	Highlight     bool
	Description   string         `gorm:"type:text"`
	Features      datatypes.JSON `gorm:"type:json"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (planRow) TableName() string { return "plans" }

func planRowFrom(p *domain.Plan) planRow {
	return planRow{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		Appointments:  p.Appointments,
		Professionals: p.Professionals,
		Services:      p.Services,
		Status:        p.Status,
		Highlight:     p.Highlight,
		Description:   p.Description,
		Features:      datatypes.JSON(domain.EncodeFeatures(p.Features)),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r planRow) toDomain() domain.Plan {
	return domain.Plan{
		ID:            r.ID,
		Name:          r.Name,
		Price:         r.Price,
		Appointments:  r.Appointments,
		Professionals: r.Professionals,
		Services:      r.Services,
		Status:        r.Status,
		Highlight:     r.Highlight,
		Description:   r.Description,
		Features:      domain.DecodeFeatures(r.Features),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type companyRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	Name          string `gorm:"size:150;not null"`
	CNPJ          string `gorm:"column:cnpj;size:14;uniqueIndex"`
	Email         string `gorm:"size:150"`
	Phone         string `gorm:"size:20"`
	Address       string `gorm:"size:255"`
	City          string `gorm:"size:100"`
	State         string `gorm:"size:2"`
	Zip           string `gorm:"size:8"`
	PlanID        *int64 `gorm:"index"`
	PlanName      string `gorm:"size:100"`
	Status        string `gorm:"size:20;default:trial"`
	PaymentStatus string `gorm:"size:20;default:ok"`
	Category      string `gorm:"size:50"`
	CreatedAt     time.Time
}

func (companyRow) TableName() string { return "companies" }

func companyRowFrom(c *domain.Company) companyRow {
	row := companyRow{
		ID:            c.ID,
		Name:          c.Name,
		CNPJ:          c.CNPJ,
		Email:         c.Email,
		Phone:         c.Phone,
		Address:       c.Address,
		City:          c.City,
		State:         c.State,
		Zip:           c.Zip,
		PlanName:      c.PlanName,
		Status:        c.Status,
		PaymentStatus: c.PaymentStatus,
		Category:      c.Category,
		CreatedAt:     c.CreatedAt,
	}
	if c.PlanID > 0 {
		id := c.PlanID
		row.PlanID = &id
	}
	return row
}

func (r companyRow) toDomain() domain.Company {
	c := domain.Company{
		ID:            r.ID,
		Name:          r.Name,
		CNPJ:          r.CNPJ,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		Zip:           r.Zip,
		PlanName:      r.PlanName,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		Category:      r.Category,
		CreatedAt:     r.CreatedAt,
	}
	if r.PlanID != nil {
		c.PlanID = *r.PlanID
	}
	return c
}
