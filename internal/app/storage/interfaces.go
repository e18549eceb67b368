// Package storage declares the persistence interfaces the services depend on.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/petrolink/fuelhub/internal/app/domain/coupon"
	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/domain/merchant"
	"github.com/petrolink/fuelhub/internal/app/domain/transaction"
	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/app/domain/vehicle"
)

// Sentinel errors shared by every store implementation. Services translate
// them into the API error taxonomy.
var (
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate reports a unique-constraint violation (coupon code,
	// vehicle registration).
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict reports a conditional update that found the record in a
	// state other than the one required for the transition.
	ErrConflict = errors.New("state conflict")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// BalanceStore persists per-user fuel balances. ApplyBalanceDelta must be an
// atomic increment-in-place: concurrent deltas to the same (user, kind) pair
// may not lose updates.
type BalanceStore interface {
	ApplyBalanceDelta(ctx context.Context, userID string, kind fuel.Kind, delta float64) (fuel.Balance, error)
	GetBalance(ctx context.Context, userID string, kind fuel.Kind) (fuel.Balance, error)
	ListBalances(ctx context.Context, userID string) ([]fuel.Balance, error)
}

// CouponStore persists coupons. RedeemCoupon performs the conditional
// active→used transition and the matching balance credit as one atomic unit
// of work; it returns ErrConflict when the code exists but is not active and
// ErrNotFound when it does not exist.
type CouponStore interface {
	CreateCoupon(ctx context.Context, c coupon.Coupon) (coupon.Coupon, error)
	GetCoupon(ctx context.Context, id string) (coupon.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (coupon.Coupon, error)
	ListCoupons(ctx context.Context) ([]coupon.Coupon, error)
	RedeemCoupon(ctx context.Context, code, redeemerID string) (coupon.Coupon, fuel.Balance, error)
	TransitionCoupon(ctx context.Context, id string, from, to coupon.Status) (coupon.Coupon, error)
	ListExpirableCoupons(ctx context.Context, now time.Time) ([]coupon.Coupon, error)
}

// TransactionStore persists append-only transaction records.
// UpdateTransactionStatus only succeeds while the record is pending.
// The Settle operations apply the balance movements and append the completed
// record in one atomic unit of work.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error)
	GetTransaction(ctx context.Context, id string) (transaction.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]transaction.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status transaction.Status) (transaction.Transaction, error)
	SettlePurchase(ctx context.Context, t transaction.Transaction) (transaction.Transaction, fuel.Balance, error)
	SettleTransfer(ctx context.Context, t transaction.Transaction, recipientID string) (transaction.Transaction, error)
	SettleTopUp(ctx context.Context, t transaction.Transaction) (transaction.Transaction, fuel.Balance, error)
}

// VehicleStore persists vehicles. CreateVehicle returns ErrDuplicate when the
// registration number is taken; the approve/reject transitions are
// conditional on the pending state and return ErrConflict otherwise.
type VehicleStore interface {
	CreateVehicle(ctx context.Context, v vehicle.Vehicle) (vehicle.Vehicle, error)
	GetVehicle(ctx context.Context, id string) (vehicle.Vehicle, error)
	ListVehicles(ctx context.Context, ownerID string) ([]vehicle.Vehicle, error)
	ListPendingVehicles(ctx context.Context) ([]vehicle.Vehicle, error)
	ApproveVehicle(ctx context.Context, id, approverID string) (vehicle.Vehicle, error)
	RejectVehicle(ctx context.Context, id, approverID, reason string) (vehicle.Vehicle, error)
}

// MerchantStore persists merchants and withdrawal requests.
// ProcessWithdrawal transitions pending→approved/rejected and, on approval,
// decrements the merchant pending balance in the same unit of work.
type MerchantStore interface {
	CreateMerchant(ctx context.Context, m merchant.Merchant) (merchant.Merchant, error)
	GetMerchant(ctx context.Context, id string) (merchant.Merchant, error)
	GetMerchantByUser(ctx context.Context, userID string) (merchant.Merchant, error)
	AddMerchantBalance(ctx context.Context, id string, delta float64) (merchant.Merchant, error)

	CreateWithdrawal(ctx context.Context, w merchant.Withdrawal) (merchant.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id string) (merchant.Withdrawal, error)
	ListWithdrawals(ctx context.Context, merchantID string) ([]merchant.Withdrawal, error)
	ProcessWithdrawal(ctx context.Context, id string, approve bool, processorID, notes string) (merchant.Withdrawal, error)
	CompleteWithdrawal(ctx context.Context, id string) (merchant.Withdrawal, error)
}

// DashboardStats aggregates platform-wide counts and sums.
type DashboardStats struct {
	TotalUsers         int64     `json:"total_users"`
	TotalVehicles      int64     `json:"total_vehicles"`
	PendingVehicles    int64     `json:"pending_vehicles"`
	TotalTransactions  int64     `json:"total_transactions"`
	TotalCoupons       int64     `json:"total_coupons"`
	ActiveCoupons      int64     `json:"active_coupons"`
	TotalFuelIssued    float64   `json:"total_fuel_issued"`
	PendingWithdrawals int64     `json:"pending_withdrawals"`
	MerchantPendingSum float64   `json:"merchant_pending_sum"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// StatsStore computes dashboard aggregates.
type StatsStore interface {
	DashboardStats(ctx context.Context) (DashboardStats, error)
}
