// Package user defines user accounts and roles.
package user

import (
	"fmt"
	"strings"
	"time"
)

// Role tags the account category a user signs in under.
type Role string

const (
	RoleIndividual Role = "individual"
	RoleCorporate  Role = "corporate"
	RoleGovernment Role = "government"
	RoleMerchant   Role = "merchant"
	RoleAgent      Role = "agent"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a role tag.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleIndividual:
		return RoleIndividual, nil
	case RoleCorporate:
		return RoleCorporate, nil
	case RoleGovernment:
		return RoleGovernment, nil
	case RoleMerchant:
		return RoleMerchant, nil
	case RoleAgent:
		return RoleAgent, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unsupported role %q", raw)
	}
}

// Status is a user's lifecycle state. Users are never hard-deleted.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// User is an account identity. A record is created on first sign-in and only
// mutated by profile updates and status changes afterwards.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	CompanyID    string    `json:"company_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
