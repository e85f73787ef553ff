package domain

// ============================================================
// Auth: Request / Response types (matches frontend API contract)
// ============================================================

// Roles carried in the JWT payload and in the client session.
const (
	RoleAdmin   = "admin"
	RoleCompany = "company"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the body for 200 from POST /api/auth/login.
type LoginResponse struct {
	User  AuthUser `json:"user"`
	Token string   `json:"token"`
}

// AuthUser is the public view of an authenticated user.
type AuthUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	CompanyID   string `json:"companyId,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// User is a stored account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	CompanyID    string `json:"companyId,omitempty"`
	Status       string `json:"status"`
}

// Session is what the client shell persists after a successful login.
type Session struct {
	UserType string   `json:"userType"`
	UserData AuthUser `json:"userData"`
	Token    string   `json:"token,omitempty"`
}

// Valid reports whether the session carries enough data to be trusted by the router.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	return (s.UserType == RoleAdmin || s.UserType == RoleCompany) && s.UserData.ID != ""
}
