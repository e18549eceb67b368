// Package coupon defines single-use fuel coupons.
package coupon

import (
	"time"

	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
)

// Status is a coupon's lifecycle state. Only active coupons can be redeemed;
// every other state is terminal.
type Status string

const (
	StatusActive      Status = "active"
	StatusUsed        Status = "used"
	StatusDeactivated Status = "deactivated"
	StatusExpired     Status = "expired"
)

// Coupon is a code redeemable once for a fixed fuel quantity.
type Coupon struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Kind        fuel.Kind `json:"fuel_kind"`
	Quantity    float64   `json:"quantity"`
	Status      Status    `json:"status"`
	Description string    `json:"description,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	CreatedBy   string    `json:"created_by"`
	RedeemedBy  string    `json:"redeemed_by,omitempty"`
	RedeemedAt  time.Time `json:"redeemed_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Expirable reports whether the coupon should be flipped to expired at now.
func (c Coupon) Expirable(now time.Time) bool {
	return c.Status == StatusActive && !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
