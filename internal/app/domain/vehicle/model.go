// Package vehicle defines registered vehicles and their approval lifecycle.
package vehicle

import (
	"time"

	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
)

// Status is a vehicle's approval state. A vehicle starts pending and moves
// exactly once to approved or rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Vehicle is a registered vehicle awaiting or holding approval. Registration
// numbers are globally unique.
type Vehicle struct {
	ID           string    `json:"id"`
	Registration string    `json:"registration"`
	OwnerID      string    `json:"owner_id"`
	CompanyID    string    `json:"company_id,omitempty"`
	FuelKind     fuel.Kind `json:"fuel_kind"`
	Status       Status    `json:"status"`
	ApprovedBy   string    `json:"approved_by,omitempty"`
	ApprovedAt   time.Time `json:"approved_at,omitempty"`
	RejectReason string    `json:"reject_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
