// Package merchant defines fuel station merchants and withdrawal requests.
package merchant

import "time"

// Merchant is a station entity accumulating a pending balance from completed
// purchases, reduced by approved withdrawals.
type Merchant struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	StationName    string    `json:"station_name"`
	Address        string    `json:"address,omitempty"`
	PendingBalance float64   `json:"pending_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WithdrawalStatus is a withdrawal request's state.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

// Withdrawal is a merchant's request to cash out accumulated pending balance.
type Withdrawal struct {
	ID          string           `json:"id"`
	MerchantID  string           `json:"merchant_id"`
	Amount      float64          `json:"amount"`
	Status      WithdrawalStatus `json:"status"`
	ProcessedBy string           `json:"processed_by,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	ProcessedAt time.Time        `json:"processed_at,omitempty"`
}
