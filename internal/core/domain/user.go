package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role attached to every authenticated caller.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// User represents a registered person. Registration always creates a customer.
type User struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number"`
	Address      *string   `json:"address,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"` // Never expose
	CreatedAt    time.Time `json:"created_at"`
}

// Caller is the authenticated identity making a request.
type Caller struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin returns true if the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
