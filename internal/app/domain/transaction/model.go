// Package transaction defines immutable fuel transaction records.
package transaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
)

// Kind categorises a transaction.
type Kind string

const (
	KindPurchase         Kind = "purchase"
	KindUsage            Kind = "usage"
	KindTransfer         Kind = "transfer"
	KindTopUp            Kind = "topup"
	KindCouponRedemption Kind = "coupon_redemption"
)

// ParseKind validates a transaction kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindPurchase:
		return KindPurchase, nil
	case KindUsage:
		return KindUsage, nil
	case KindTransfer:
		return KindTransfer, nil
	case KindTopUp:
		return KindTopUp, nil
	case KindCouponRedemption:
		return KindCouponRedemption, nil
	default:
		return "", fmt.Errorf("unsupported transaction kind %q", raw)
	}
}

// Status is a transaction's settlement state. Records are append-only; the
// only permitted mutation is pending → completed/failed/cancelled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a settlement status.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusFailed:
		return StatusFailed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unsupported transaction status %q", raw)
	}
}

// Transaction is an immutable record of a fuel movement.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	VehicleID   string    `json:"vehicle_id,omitempty"`
	MerchantID  string    `json:"merchant_id,omitempty"`
	EmployeeID  string    `json:"employee_id,omitempty"`
	Kind        Kind      `json:"kind"`
	FuelKind    fuel.Kind `json:"fuel_kind"`
	Quantity    float64   `json:"quantity"`
	AmountValue float64   `json:"amount_value"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}
