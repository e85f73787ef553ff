package domain

import (
	"encoding/json"
	"time"
)

// Plan is a subscription plan offered to companies.
type Plan struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	Appointments  int             `json:"appointments"`
	Professionals int             `json:"professionals"`
	Services      int             `json:"services"`
	Status        string          `json:"status"`
	Highlight     bool            `json:"highlight"`
	Description   string          `json:"description"`
	Features      map[string]bool `json:"features"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

const (
	PlanStatusActive   = "active"
	PlanStatusInactive = "inactive"
)

// PlanRequest is the body for POST /api/plans and PUT /api/plans/{id}.
type PlanRequest struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Price         float64         `json:"price" validate:"gte=0"`
	Appointments  int             `json:"appointments" validate:"gte=0"`
	Professionals int             `json:"professionals" validate:"gte=0"`
	Services      int             `json:"services" validate:"gte=0"`
	Status        string          `json:"status" validate:"omitempty,oneof=active inactive"`
	Highlight     bool            `json:"highlight"`
	Description   string          `json:"description" validate:"max=1000"`
	Features      map[string]bool `json:"features"`
}

// DecodeFeatures turns a stored features blob into a map. Empty, null or
// malformed input yields an empty map, never nil.
func DecodeFeatures(raw []byte) map[string]bool {
	features := map[string]bool{}
	if len(raw) == 0 {
		return features
	}
	var decoded map[string]bool
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded == nil {
		return features
	}
	return decoded
}

// EncodeFeatures serializes features for storage; nil encodes as "{}".
func EncodeFeatures(features map[string]bool) []byte {
	if features == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(features)
	if err != nil {
		return []byte("{}")
	}
	return b
}
