package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/petrolink/fuelhub/internal/app/domain/coupon"
	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/domain/merchant"
	"github.com/petrolink/fuelhub/internal/app/domain/transaction"
	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/app/domain/vehicle"
	"github.com/petrolink/fuelhub/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu                 sync.RWMutex
	nextID             int64
	users              map[string]user.User
	usersByEmail       map[string]string
	balances           map[string]fuel.Balance // key: userID + "/" + kind
	coupons            map[string]coupon.Coupon
	couponsByCode      map[string]string
	transactions       map[string]transaction.Transaction
	vehicles           map[string]vehicle.Vehicle
	vehiclesByRegistry map[string]string
	merchants          map[string]merchant.Merchant
	merchantsByUser    map[string]string
	withdrawals        map[string]merchant.Withdrawal
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.BalanceStore = (*Store)(nil)
var _ storage.CouponStore = (*Store)(nil)
var _ storage.TransactionStore = (*Store)(nil)
var _ storage.VehicleStore = (*Store)(nil)
var _ storage.MerchantStore = (*Store)(nil)
var _ storage.StatsStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:             1,
		users:              make(map[string]user.User),
		usersByEmail:       make(map[string]string),
		balances:           make(map[string]fuel.Balance),
		coupons:            make(map[string]coupon.Coupon),
		couponsByCode:      make(map[string]string),
		transactions:       make(map[string]transaction.Transaction),
		vehicles:           make(map[string]vehicle.Vehicle),
		vehiclesByRegistry: make(map[string]string),
		merchants:          make(map[string]merchant.Merchant),
		merchantsByUser:    make(map[string]string),
		withdrawals:        make(map[string]merchant.Withdrawal),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func balanceKey(userID string, kind fuel.Kind) string {
	return userID + "/" + string(kind)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, exists := s.usersByEmail[email]; exists {
		return user.User{}, fmt.Errorf("user email %s: %w", email, storage.ErrDuplicate)
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrDuplicate)
	}

	now := time.Now().UTC()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.usersByEmail[email] = u.ID
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}

	u.Email = original.Email
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return user.User{}, fmt.Errorf("user email %s: %w", email, storage.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// BalanceStore implementation -------------------------------------------------

func (s *Store) ApplyBalanceDelta(_ context.Context, userID string, kind fuel.Kind, delta float64) (fuel.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyBalanceDeltaLocked(userID, kind, delta), nil
}

func (s *Store) applyBalanceDeltaLocked(userID string, kind fuel.Kind, delta float64) fuel.Balance {
	key := balanceKey(userID, kind)
	now := time.Now().UTC()

	bal, ok := s.balances[key]
	if !ok {
		bal = fuel.Balance{ID: s.nextIDLocked(), UserID: userID, Kind: kind, CreatedAt: now}
	}
	bal.Quantity += delta
	bal.UpdatedAt = now
	s.balances[key] = bal
	return bal
}

func (s *Store) GetBalance(_ context.Context, userID string, kind fuel.Kind) (fuel.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bal, ok := s.balances[balanceKey(userID, kind)]
	if !ok {
		return fuel.Balance{}, fmt.Errorf("balance %s/%s: %w", userID, kind, storage.ErrNotFound)
	}
	return bal, nil
}

func (s *Store) ListBalances(_ context.Context, userID string) ([]fuel.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []fuel.Balance
	for _, kind := range fuel.Kinds() {
		if bal, ok := s.balances[balanceKey(userID, kind)]; ok {
			result = append(result, bal)
		}
	}
	return result, nil
}

// CouponStore implementation --------------------------------------------------

func (s *Store) CreateCoupon(_ context.Context, c coupon.Coupon) (coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.couponsByCode[c.Code]; exists {
		return coupon.Coupon{}, fmt.Errorf("coupon code %s: %w", c.Code, storage.ErrDuplicate)
	}
	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = coupon.StatusActive
	}

	s.coupons[c.ID] = c
	s.couponsByCode[c.Code] = c.ID
	return c, nil
}

func (s *Store) GetCoupon(_ context.Context, id string) (coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coupons[id]
	if !ok {
		return coupon.Coupon{}, fmt.Errorf("coupon %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetCouponByCode(_ context.Context, code string) (coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.couponsByCode[code]
	if !ok {
		return coupon.Coupon{}, fmt.Errorf("coupon code %s: %w", code, storage.ErrNotFound)
	}
	return s.coupons[id], nil
}

func (s *Store) ListCoupons(_ context.Context) ([]coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]coupon.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) RedeemCoupon(_ context.Context, code, redeemerID string) (coupon.Coupon, fuel.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.couponsByCode[code]
	if !ok {
		return coupon.Coupon{}, fuel.Balance{}, fmt.Errorf("coupon code %s: %w", code, storage.ErrNotFound)
	}
	c := s.coupons[id]
	now := time.Now().UTC()
	if c.Status != coupon.StatusActive {
		return coupon.Coupon{}, fuel.Balance{}, fmt.Errorf("coupon code %s: %w", code, storage.ErrConflict)
	}
	if !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(now) {
		return coupon.Coupon{}, fuel.Balance{}, fmt.Errorf("coupon code %s: %w", code, storage.ErrConflict)
	}
	c.Status = coupon.StatusUsed
	c.RedeemedBy = redeemerID
	c.RedeemedAt = now
	c.UpdatedAt = now
	s.coupons[id] = c

	bal := s.applyBalanceDeltaLocked(redeemerID, c.Kind, c.Quantity)
	s.createTransactionLocked(transaction.Transaction{
		UserID:      redeemerID,
		Kind:        transaction.KindCouponRedemption,
		FuelKind:    c.Kind,
		Quantity:    c.Quantity,
		Status:      transaction.StatusCompleted,
		CompletedAt: now,
	})
	return c, bal, nil
}

func (s *Store) TransitionCoupon(_ context.Context, id string, from, to coupon.Status) (coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[id]
	if !ok {
		return coupon.Coupon{}, fmt.Errorf("coupon %s: %w", id, storage.ErrNotFound)
	}
	if c.Status != from {
		return coupon.Coupon{}, fmt.Errorf("coupon %s: %w", id, storage.ErrConflict)
	}
	c.Status = to
	c.UpdatedAt = time.Now().UTC()
	s.coupons[id] = c
	return c, nil
}

func (s *Store) ListExpirableCoupons(_ context.Context, now time.Time) ([]coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []coupon.Coupon
	for _, c := range s.coupons {
		if c.Expirable(now) {
			result = append(result, c)
		}
	}
	return result, nil
}

// TransactionStore implementation ---------------------------------------------

func (s *Store) CreateTransaction(_ context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createTransactionLocked(t), nil
}

func (s *Store) createTransactionLocked(t transaction.Transaction) transaction.Transaction {
	if t.ID == "" {
		t.ID = s.nextIDLocked()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = transaction.StatusPending
	}
	s.transactions[t.ID] = t
	return t
}

func (s *Store) GetTransaction(_ context.Context, id string) (transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return transaction.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []transaction.Transaction
	for _, t := range s.transactions {
		if userID == "" || t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id string, status transaction.Status) (transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return transaction.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	if t.Status != transaction.StatusPending {
		return transaction.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrConflict)
	}

	t.Status = status
	if status == transaction.StatusCompleted {
		t.CompletedAt = time.Now().UTC()
	}
	s.transactions[id] = t
	return t, nil
}

func (s *Store) SettlePurchase(_ context.Context, t transaction.Transaction) (transaction.Transaction, fuel.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal := s.applyBalanceDeltaLocked(t.UserID, t.FuelKind, -t.Quantity)

	if t.MerchantID != "" {
		m, ok := s.merchants[t.MerchantID]
		if !ok {
			return transaction.Transaction{}, fuel.Balance{}, fmt.Errorf("merchant %s: %w", t.MerchantID, storage.ErrNotFound)
		}
		m.PendingBalance += t.AmountValue
		m.UpdatedAt = time.Now().UTC()
		s.merchants[t.MerchantID] = m
	}

	t.Status = transaction.StatusCompleted
	t.CompletedAt = time.Now().UTC()
	return s.createTransactionLocked(t), bal, nil
}

func (s *Store) SettleTopUp(_ context.Context, t transaction.Transaction) (transaction.Transaction, fuel.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal := s.applyBalanceDeltaLocked(t.UserID, t.FuelKind, t.Quantity)

	t.Status = transaction.StatusCompleted
	t.CompletedAt = time.Now().UTC()
	return s.createTransactionLocked(t), bal, nil
}

func (s *Store) SettleTransfer(_ context.Context, t transaction.Transaction, recipientID string) (transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyBalanceDeltaLocked(t.UserID, t.FuelKind, -t.Quantity)
	s.applyBalanceDeltaLocked(recipientID, t.FuelKind, t.Quantity)

	t.Status = transaction.StatusCompleted
	t.CompletedAt = time.Now().UTC()
	return s.createTransactionLocked(t), nil
}

// VehicleStore implementation -------------------------------------------------

func (s *Store) CreateVehicle(_ context.Context, v vehicle.Vehicle) (vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	registration := strings.ToUpper(strings.TrimSpace(v.Registration))
	if _, exists := s.vehiclesByRegistry[registration]; exists {
		return vehicle.Vehicle{}, fmt.Errorf("registration %s: %w", registration, storage.ErrDuplicate)
	}
	if v.ID == "" {
		v.ID = s.nextIDLocked()
	}

	now := time.Now().UTC()
	v.Registration = registration
	v.Status = vehicle.StatusPending
	v.CreatedAt = now
	v.UpdatedAt = now

	s.vehicles[v.ID] = v
	s.vehiclesByRegistry[registration] = v.ID
	return v, nil
}

func (s *Store) GetVehicle(_ context.Context, id string) (vehicle.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[id]
	if !ok {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, storage.ErrNotFound)
	}
	return v, nil
}

func (s *Store) ListVehicles(_ context.Context, ownerID string) ([]vehicle.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []vehicle.Vehicle
	for _, v := range s.vehicles {
		if ownerID == "" || v.OwnerID == ownerID {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListPendingVehicles(_ context.Context) ([]vehicle.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []vehicle.Vehicle
	for _, v := range s.vehicles {
		if v.Status == vehicle.StatusPending {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ApproveVehicle(_ context.Context, id, approverID string) (vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[id]
	if !ok {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, storage.ErrNotFound)
	}
	if v.Status != vehicle.StatusPending {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, storage.ErrConflict)
	}

	now := time.Now().UTC()
	v.Status = vehicle.StatusApproved
	v.ApprovedBy = approverID
	v.ApprovedAt = now
	v.UpdatedAt = now
	s.vehicles[id] = v
	return v, nil
}

func (s *Store) RejectVehicle(_ context.Context, id, approverID, reason string) (vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[id]
	if !ok {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, storage.ErrNotFound)
	}
	if v.Status != vehicle.StatusPending {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, storage.ErrConflict)
	}

	v.Status = vehicle.StatusRejected
	v.ApprovedBy = approverID
	v.RejectReason = reason
	v.UpdatedAt = time.Now().UTC()
	s.vehicles[id] = v
	return v, nil
}

// MerchantStore implementation ------------------------------------------------

func (s *Store) CreateMerchant(_ context.Context, m merchant.Merchant) (merchant.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.merchantsByUser[m.UserID]; exists {
		return merchant.Merchant{}, fmt.Errorf("merchant for user %s: %w", m.UserID, storage.ErrDuplicate)
	}
	if m.ID == "" {
		m.ID = s.nextIDLocked()
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	s.merchants[m.ID] = m
	s.merchantsByUser[m.UserID] = m.ID
	return m, nil
}

func (s *Store) GetMerchant(_ context.Context, id string) (merchant.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.merchants[id]
	if !ok {
		return merchant.Merchant{}, fmt.Errorf("merchant %s: %w", id, storage.ErrNotFound)
	}
	return m, nil
}

func (s *Store) GetMerchantByUser(_ context.Context, userID string) (merchant.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.merchantsByUser[userID]
	if !ok {
		return merchant.Merchant{}, fmt.Errorf("merchant for user %s: %w", userID, storage.ErrNotFound)
	}
	return s.merchants[id], nil
}

func (s *Store) AddMerchantBalance(_ context.Context, id string, delta float64) (merchant.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.merchants[id]
	if !ok {
		return merchant.Merchant{}, fmt.Errorf("merchant %s: %w", id, storage.ErrNotFound)
	}
	m.PendingBalance += delta
	m.UpdatedAt = time.Now().UTC()
	s.merchants[id] = m
	return m, nil
}

func (s *Store) CreateWithdrawal(_ context.Context, w merchant.Withdrawal) (merchant.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.merchants[w.MerchantID]; !ok {
		return merchant.Withdrawal{}, fmt.Errorf("merchant %s: %w", w.MerchantID, storage.ErrNotFound)
	}
	if w.ID == "" {
		w.ID = s.nextIDLocked()
	}
	w.Status = merchant.WithdrawalPending
	w.CreatedAt = time.Now().UTC()

	s.withdrawals[w.ID] = w
	return w, nil
}

func (s *Store) GetWithdrawal(_ context.Context, id string) (merchant.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return merchant.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", id, storage.ErrNotFound)
	}
	return w, nil
}

func (s *Store) ListWithdrawals(_ context.Context, merchantID string) ([]merchant.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []merchant.Withdrawal
	for _, w := range s.withdrawals {
		if merchantID == "" || w.MerchantID == merchantID {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ProcessWithdrawal(_ context.Context, id string, approve bool, processorID, notes string) (merchant.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return merchant.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", id, storage.ErrNotFound)
	}
	if w.Status != merchant.WithdrawalPending {
		return merchant.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", id, storage.ErrConflict)
	}

	now := time.Now().UTC()
	if approve {
		m, ok := s.merchants[w.MerchantID]
		if !ok {
			return merchant.Withdrawal{}, fmt.Errorf("merchant %s: %w", w.MerchantID, storage.ErrNotFound)
		}
		m.PendingBalance -= w.Amount
		m.UpdatedAt = now
		s.merchants[w.MerchantID] = m
		w.Status = merchant.WithdrawalApproved
	} else {
		w.Status = merchant.WithdrawalRejected
	}
	w.ProcessedBy = processorID
	w.Notes = notes
	w.ProcessedAt = now
	s.withdrawals[id] = w
	return w, nil
}

func (s *Store) CompleteWithdrawal(_ context.Context, id string) (merchant.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return merchant.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", id, storage.ErrNotFound)
	}
	if w.Status != merchant.WithdrawalApproved {
		return merchant.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", id, storage.ErrConflict)
	}
	w.Status = merchant.WithdrawalCompleted
	w.ProcessedAt = time.Now().UTC()
	s.withdrawals[id] = w
	return w, nil
}

// StatsStore implementation ---------------------------------------------------

func (s *Store) DashboardStats(_ context.Context) (storage.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := storage.DashboardStats{
		TotalUsers:        int64(len(s.users)),
		TotalVehicles:     int64(len(s.vehicles)),
		TotalTransactions: int64(len(s.transactions)),
		TotalCoupons:      int64(len(s.coupons)),
	}
	for _, v := range s.vehicles {
		if v.Status == vehicle.StatusPending {
			stats.PendingVehicles++
		}
	}
	for _, c := range s.coupons {
		if c.Status == coupon.StatusActive {
			stats.ActiveCoupons++
		}
	}
	for _, t := range s.transactions {
		if t.Status == transaction.StatusCompleted && (t.Kind == transaction.KindTopUp || t.Kind == transaction.KindCouponRedemption) {
			stats.TotalFuelIssued += t.Quantity
		}
	}
	for _, w := range s.withdrawals {
		if w.Status == merchant.WithdrawalPending {
			stats.PendingWithdrawals++
		}
	}
	for _, m := range s.merchants {
		stats.MerchantPendingSum += m.PendingBalance
	}
	return stats, nil
}
