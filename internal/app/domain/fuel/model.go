// Package fuel defines fuel kinds and per-user fuel balances.
package fuel

import (
	"fmt"
	"strings"
	"time"
)

// Kind enumerates the supported fuel kinds.
type Kind string

const (
	KindPetrol Kind = "petrol"
	KindDiesel Kind = "diesel"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindPetrol, KindDiesel}
}

// ParseKind normalises and validates a fuel kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindPetrol:
		return KindPetrol, nil
	case KindDiesel:
		return KindDiesel, nil
	default:
		return "", fmt.Errorf("unsupported fuel kind %q", raw)
	}
}

// Tag returns the three-letter tag used in coupon codes.
func (k Kind) Tag() string {
	if len(k) < 3 {
		return strings.ToUpper(string(k))
	}
	return strings.ToUpper(string(k)[:3])
}

// Balance is the stored quantity of one fuel kind for one user. Exactly one
// row exists per (user, kind) pair; rows are created lazily at zero.
type Balance struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"fuel_kind"`
	Quantity  float64   `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
