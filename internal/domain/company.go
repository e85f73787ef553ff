package domain

import "time"

// Company is a tenant of the platform. PlanName is copied from the plan at
// write time, not joined when read.
type Company struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CNPJ          string    `json:"cnpj"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Zip           string    `json:"zip"`
	PlanID        int64     `json:"planId,omitempty"`
	PlanName      string    `json:"planName"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	Category      string    `json:"category"`
	CreatedAt     time.Time `json:"createdAt"`
}

const (
	CompanyStatusActive   = "active"
	CompanyStatusInactive = "inactive"
	CompanyStatusTrial    = "trial"

	PaymentStatusOK      = "ok"
	PaymentStatusOverdue = "overdue"
)

// CompanyRequest is the body for POST /api/companies and PUT /api/companies/{id}.
type CompanyRequest struct {
	Name          string `json:"name" validate:"required,max=150"`
	CNPJ          string `json:"cnpj" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state" validate:"omitempty,len=2"`
	Zip           string `json:"zip"`
	PlanID        int64  `json:"planId" validate:"gte=0"`
	Status        string `json:"status" validate:"omitempty,oneof=active inactive trial"`
	PaymentStatus string `json:"paymentStatus" validate:"omitempty,oneof=ok overdue"`
	Category      string `json:"category"`
}

// DeletionEntry is one row of the client-side deletion log.
type DeletionEntry struct {
	ID           string    `json:"id"`
	Nome         string    `json:"nome"`
	DataExclusao time.Time `json:"dataExclusao"`
	Usuario      string    `json:"usuario"`
}

// Tombstone marks a company id as intentionally deleted.
type Tombstone struct {
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deletedAt"`
}
