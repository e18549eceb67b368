package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/petrolink/fuelhub/internal/app/domain/coupon"
	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/domain/merchant"
	"github.com/petrolink/fuelhub/internal/app/domain/transaction"
	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/app/domain/vehicle"
	"github.com/petrolink/fuelhub/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.BalanceStore = (*Store)(nil)
var _ storage.CouponStore = (*Store)(nil)
var _ storage.TransactionStore = (*Store)(nil)
var _ storage.VehicleStore = (*Store)(nil)
var _ storage.MerchantStore = (*Store)(nil)
var _ storage.StatsStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the Postgres error code for unique-constraint breaches.
const uniqueViolation = "23505"

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return storage.ErrDuplicate
	}
	return err
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time.UTC()
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Status == "" {
		u.Status = user.StatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, status, company_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Status, u.CompanyID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()

	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET name = $2, password_hash = $3, role = $4, status = $5, company_id = $6, updated_at = $7
		WHERE id = $1
		RETURNING email, created_at
	`, u.ID, u.Name, u.PasswordHash, u.Role, u.Status, u.CompanyID, u.UpdatedAt)
	if err := row.Scan(&u.Email, &u.CreatedAt); err != nil {
		return user.User{}, translate(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, role, status, company_id, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, role, status, company_id, created_at, updated_at
		FROM users
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))))
}

func (s *Store) scanUser(row *sql.Row) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Status, &u.CompanyID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, password_hash, role, status, company_id, created_at, updated_at
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Status, &u.CompanyID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// --- BalanceStore ------------------------------------------------------------

func (s *Store) ApplyBalanceDelta(ctx context.Context, userID string, kind fuel.Kind, delta float64) (fuel.Balance, error) {
	return applyBalanceDelta(ctx, s.db, userID, kind, delta)
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// applyBalanceDelta performs the lazy-init upsert with an in-place increment
// so concurrent deltas never lose updates.
func applyBalanceDelta(ctx context.Context, q execQuerier, userID string, kind fuel.Kind, delta float64) (fuel.Balance, error) {
	now := time.Now().UTC()
	bal := fuel.Balance{UserID: userID, Kind: kind, UpdatedAt: now}

	row := q.QueryRowContext(ctx, `
		INSERT INTO fuel_balances (id, user_id, fuel_kind, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, fuel_kind) DO UPDATE
		SET quantity = fuel_balances.quantity + EXCLUDED.quantity,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, quantity, created_at
	`, uuid.NewString(), userID, kind, delta, now)
	if err := row.Scan(&bal.ID, &bal.Quantity, &bal.CreatedAt); err != nil {
		return fuel.Balance{}, translate(err)
	}
	bal.CreatedAt = bal.CreatedAt.UTC()
	return bal, nil
}

func (s *Store) GetBalance(ctx context.Context, userID string, kind fuel.Kind) (fuel.Balance, error) {
	var bal fuel.Balance
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, fuel_kind, quantity, created_at, updated_at
		FROM fuel_balances
		WHERE user_id = $1 AND fuel_kind = $2
	`, userID, kind)
	if err := row.Scan(&bal.ID, &bal.UserID, &bal.Kind, &bal.Quantity, &bal.CreatedAt, &bal.UpdatedAt); err != nil {
		return fuel.Balance{}, translate(err)
	}
	return bal, nil
}

func (s *Store) ListBalances(ctx context.Context, userID string) ([]fuel.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, fuel_kind, quantity, created_at, updated_at
		FROM fuel_balances
		WHERE user_id = $1
		ORDER BY fuel_kind
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fuel.Balance
	for rows.Next() {
		var bal fuel.Balance
		if err := rows.Scan(&bal.ID, &bal.UserID, &bal.Kind, &bal.Quantity, &bal.CreatedAt, &bal.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, bal)
	}
	return result, rows.Err()
}

// --- CouponStore -------------------------------------------------------------

const couponColumns = `id, code, fuel_kind, quantity, status, description, expires_at, created_by, redeemed_by, redeemed_at, created_at, updated_at`

func (s *Store) CreateCoupon(ctx context.Context, c coupon.Coupon) (coupon.Coupon, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = coupon.StatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coupons (id, code, fuel_kind, quantity, status, description, expires_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.Code, c.Kind, c.Quantity, c.Status, c.Description, toNullTime(c.ExpiresAt), c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return coupon.Coupon{}, translate(err)
	}
	return c, nil
}

func (s *Store) GetCoupon(ctx context.Context, id string) (coupon.Coupon, error) {
	return scanCoupon(s.db.QueryRowContext(ctx, `
		SELECT `+couponColumns+` FROM coupons WHERE id = $1
	`, id))
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (coupon.Coupon, error) {
	return scanCoupon(s.db.QueryRowContext(ctx, `
		SELECT `+couponColumns+` FROM coupons WHERE code = $1
	`, code))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (coupon.Coupon, error) {
	var (
		c          coupon.Coupon
		expiresAt  sql.NullTime
		redeemedBy sql.NullString
		redeemedAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Code, &c.Kind, &c.Quantity, &c.Status, &c.Description, &expiresAt, &c.CreatedBy, &redeemedBy, &redeemedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return coupon.Coupon{}, translate(err)
	}
	c.ExpiresAt = fromNullTime(expiresAt)
	c.RedeemedAt = fromNullTime(redeemedAt)
	if redeemedBy.Valid {
		c.RedeemedBy = redeemedBy.String
	}
	return c, nil
}

func (s *Store) ListCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCoupons(rows)
}

func collectCoupons(rows *sql.Rows) ([]coupon.Coupon, error) {
	var result []coupon.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// RedeemCoupon flips the coupon active→used, credits the redeemer's balance
// and appends the redemption record inside one database transaction. The
// conditional UPDATE keyed on status and expiry prevents double redemption
// under concurrent requests and rejects coupons past expires_at even before
// the sweeper has flipped them.
func (s *Store) RedeemCoupon(ctx context.Context, code, redeemerID string) (coupon.Coupon, fuel.Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coupon.Coupon{}, fuel.Balance{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	c, err := scanCoupon(tx.QueryRowContext(ctx, `
		UPDATE coupons
		SET status = $2, redeemed_by = $3, redeemed_at = $4, updated_at = $4
		WHERE code = $1 AND status = $5 AND (expires_at IS NULL OR expires_at > $4)
		RETURNING `+couponColumns+`
	`, code, coupon.StatusUsed, redeemerID, now, coupon.StatusActive))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return coupon.Coupon{}, fuel.Balance{}, err
		}
		// Distinguish a missing code from a spent one.
		var exists bool
		if scanErr := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM coupons WHERE code = $1)`, code).Scan(&exists); scanErr != nil {
			return coupon.Coupon{}, fuel.Balance{}, scanErr
		}
		if exists {
			return coupon.Coupon{}, fuel.Balance{}, fmt.Errorf("coupon code %s: %w", code, storage.ErrConflict)
		}
		return coupon.Coupon{}, fuel.Balance{}, fmt.Errorf("coupon code %s: %w", code, storage.ErrNotFound)
	}

	bal, err := applyBalanceDelta(ctx, tx, redeemerID, c.Kind, c.Quantity)
	if err != nil {
		return coupon.Coupon{}, fuel.Balance{}, err
	}

	if _, err := insertTransaction(ctx, tx, transaction.Transaction{
		UserID:      redeemerID,
		Kind:        transaction.KindCouponRedemption,
		FuelKind:    c.Kind,
		Quantity:    c.Quantity,
		Status:      transaction.StatusCompleted,
		CreatedAt:   now,
		CompletedAt: now,
	}); err != nil {
		return coupon.Coupon{}, fuel.Balance{}, err
	}

	if err := tx.Commit(); err != nil {
		return coupon.Coupon{}, fuel.Balance{}, err
	}
	return c, bal, nil
}

func (s *Store) TransitionCoupon(ctx context.Context, id string, from, to coupon.Status) (coupon.Coupon, error) {
	c, err := scanCoupon(s.db.QueryRowContext(ctx, `
		UPDATE coupons
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+couponColumns+`
	`, id, from, to, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return coupon.Coupon{}, s.couponTransitionFailure(ctx, id)
		}
		return coupon.Coupon{}, err
	}
	return c, nil
}

func (s *Store) couponTransitionFailure(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM coupons WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("coupon %s: %w", id, storage.ErrConflict)
	}
	return fmt.Errorf("coupon %s: %w", id, storage.ErrNotFound)
}

func (s *Store) ListExpirableCoupons(ctx context.Context, now time.Time) ([]coupon.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+couponColumns+`
		FROM coupons
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $2
	`, coupon.StatusActive, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCoupons(rows)
}

// --- TransactionStore --------------------------------------------------------

const txnColumns = `id, user_id, vehicle_id, merchant_id, employee_id, kind, fuel_kind, quantity, amount_value, status, created_at, completed_at`

func (s *Store) CreateTransaction(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	t, err := insertTransaction(ctx, s.db, t)
	return t, translate(err)
}

func insertTransaction(ctx context.Context, q execQuerier, t transaction.Transaction) (transaction.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = transaction.StatusPending
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, vehicle_id, merchant_id, employee_id, kind, fuel_kind, quantity, amount_value, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.UserID, t.VehicleID, t.MerchantID, t.EmployeeID, t.Kind, t.FuelKind, t.Quantity, t.AmountValue, t.Status, t.CreatedAt, toNullTime(t.CompletedAt))
	if err != nil {
		return transaction.Transaction{}, err
	}
	return t, nil
}

func scanTransaction(row rowScanner) (transaction.Transaction, error) {
	var (
		t           transaction.Transaction
		completedAt sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.VehicleID, &t.MerchantID, &t.EmployeeID, &t.Kind, &t.FuelKind, &t.Quantity, &t.AmountValue, &t.Status, &t.CreatedAt, &completedAt); err != nil {
		return transaction.Transaction{}, translate(err)
	}
	t.CompletedAt = fromNullTime(completedAt)
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (transaction.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx, `
		SELECT `+txnColumns+` FROM transactions WHERE id = $1
	`, id))
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txnColumns+`
		FROM transactions
		WHERE $1 = '' OR user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id string, status transaction.Status) (transaction.Transaction, error) {
	var completedAt sql.NullTime
	if status == transaction.StatusCompleted {
		completedAt = toNullTime(time.Now().UTC())
	}

	t, err := scanTransaction(s.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = $2, completed_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+txnColumns+`
	`, id, status, completedAt, transaction.StatusPending))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			var exists bool
			if scanErr := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); scanErr != nil {
				return transaction.Transaction{}, scanErr
			}
			if exists {
				return transaction.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrConflict)
			}
			return transaction.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
		}
		return transaction.Transaction{}, err
	}
	return t, nil
}

// SettlePurchase debits the buyer's balance, credits the merchant's pending
// balance and appends the completed record in one database transaction.
func (s *Store) SettlePurchase(ctx context.Context, t transaction.Transaction) (transaction.Transaction, fuel.Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}
	defer tx.Rollback()

	bal, err := applyBalanceDelta(ctx, tx, t.UserID, t.FuelKind, -t.Quantity)
	if err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}

	if t.MerchantID != "" {
		result, err := tx.ExecContext(ctx, `
			UPDATE merchants
			SET pending_balance = pending_balance + $2, updated_at = $3
			WHERE id = $1
		`, t.MerchantID, t.AmountValue, time.Now().UTC())
		if err != nil {
			return transaction.Transaction{}, fuel.Balance{}, err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return transaction.Transaction{}, fuel.Balance{}, fmt.Errorf("merchant %s: %w", t.MerchantID, storage.ErrNotFound)
		}
	}

	t.Status = transaction.StatusCompleted
	t.CompletedAt = time.Now().UTC()
	t, err = insertTransaction(ctx, tx, t)
	if err != nil {
		return transaction.Transaction{}, fuel.Balance{}, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}
	return t, bal, nil
}

// SettleTopUp credits the user's balance and appends the completed record in
// one database transaction.
func (s *Store) SettleTopUp(ctx context.Context, t transaction.Transaction) (transaction.Transaction, fuel.Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}
	defer tx.Rollback()

	bal, err := applyBalanceDelta(ctx, tx, t.UserID, t.FuelKind, t.Quantity)
	if err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}

	t.Status = transaction.StatusCompleted
	t.CompletedAt = time.Now().UTC()
	t, err = insertTransaction(ctx, tx, t)
	if err != nil {
		return transaction.Transaction{}, fuel.Balance{}, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}
	return t, bal, nil
}

// SettleTransfer moves quantity between two users' balances and appends the
// completed record in one database transaction.
func (s *Store) SettleTransfer(ctx context.Context, t transaction.Transaction, recipientID string) (transaction.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transaction.Transaction{}, err
	}
	defer tx.Rollback()

	if _, err := applyBalanceDelta(ctx, tx, t.UserID, t.FuelKind, -t.Quantity); err != nil {
		return transaction.Transaction{}, err
	}
	if _, err := applyBalanceDelta(ctx, tx, recipientID, t.FuelKind, t.Quantity); err != nil {
		return transaction.Transaction{}, err
	}

	t.Status = transaction.StatusCompleted
	t.CompletedAt = time.Now().UTC()
	t, err = insertTransaction(ctx, tx, t)
	if err != nil {
		return transaction.Transaction{}, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return transaction.Transaction{}, err
	}
	return t, nil
}

// --- VehicleStore ------------------------------------------------------------

const vehicleColumns = `id, registration, owner_id, company_id, fuel_kind, status, approved_by, approved_at, reject_reason, created_at, updated_at`

func (s *Store) CreateVehicle(ctx context.Context, v vehicle.Vehicle) (vehicle.Vehicle, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	v.Registration = strings.ToUpper(strings.TrimSpace(v.Registration))
	v.Status = vehicle.StatusPending
	v.CreatedAt = now
	v.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vehicles (id, registration, owner_id, company_id, fuel_kind, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.ID, v.Registration, v.OwnerID, v.CompanyID, v.FuelKind, v.Status, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return vehicle.Vehicle{}, translate(err)
	}
	return v, nil
}

func scanVehicle(row rowScanner) (vehicle.Vehicle, error) {
	var (
		v          vehicle.Vehicle
		approvedBy sql.NullString
		approvedAt sql.NullTime
	)
	if err := row.Scan(&v.ID, &v.Registration, &v.OwnerID, &v.CompanyID, &v.FuelKind, &v.Status, &approvedBy, &approvedAt, &v.RejectReason, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return vehicle.Vehicle{}, translate(err)
	}
	if approvedBy.Valid {
		v.ApprovedBy = approvedBy.String
	}
	v.ApprovedAt = fromNullTime(approvedAt)
	return v, nil
}

func (s *Store) GetVehicle(ctx context.Context, id string) (vehicle.Vehicle, error) {
	return scanVehicle(s.db.QueryRowContext(ctx, `
		SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1
	`, id))
}

func (s *Store) ListVehicles(ctx context.Context, ownerID string) ([]vehicle.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE $1 = '' OR owner_id = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVehicles(rows)
}

func (s *Store) ListPendingVehicles(ctx context.Context) ([]vehicle.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE status = $1
		ORDER BY created_at
	`, vehicle.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVehicles(rows)
}

func collectVehicles(rows *sql.Rows) ([]vehicle.Vehicle, error) {
	var result []vehicle.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (s *Store) ApproveVehicle(ctx context.Context, id, approverID string) (vehicle.Vehicle, error) {
	now := time.Now().UTC()
	v, err := scanVehicle(s.db.QueryRowContext(ctx, `
		UPDATE vehicles
		SET status = $2, approved_by = $3, approved_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING `+vehicleColumns+`
	`, id, vehicle.StatusApproved, approverID, now, vehicle.StatusPending))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return vehicle.Vehicle{}, s.vehicleTransitionFailure(ctx, id)
		}
		return vehicle.Vehicle{}, err
	}
	return v, nil
}

func (s *Store) RejectVehicle(ctx context.Context, id, approverID, reason string) (vehicle.Vehicle, error) {
	now := time.Now().UTC()
	v, err := scanVehicle(s.db.QueryRowContext(ctx, `
		UPDATE vehicles
		SET status = $2, approved_by = $3, reject_reason = $4, updated_at = $5
		WHERE id = $1 AND status = $6
		RETURNING `+vehicleColumns+`
	`, id, vehicle.StatusRejected, approverID, reason, now, vehicle.StatusPending))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return vehicle.Vehicle{}, s.vehicleTransitionFailure(ctx, id)
		}
		return vehicle.Vehicle{}, err
	}
	return v, nil
}

func (s *Store) vehicleTransitionFailure(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("vehicle %s: %w", id, storage.ErrConflict)
	}
	return fmt.Errorf("vehicle %s: %w", id, storage.ErrNotFound)
}

// --- MerchantStore -----------------------------------------------------------

func (s *Store) CreateMerchant(ctx context.Context, m merchant.Merchant) (merchant.Merchant, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchants (id, user_id, station_name, address, pending_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.UserID, m.StationName, m.Address, m.PendingBalance, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return merchant.Merchant{}, translate(err)
	}
	return m, nil
}

func scanMerchant(row rowScanner) (merchant.Merchant, error) {
	var m merchant.Merchant
	if err := row.Scan(&m.ID, &m.UserID, &m.StationName, &m.Address, &m.PendingBalance, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return merchant.Merchant{}, translate(err)
	}
	return m, nil
}

func (s *Store) GetMerchant(ctx context.Context, id string) (merchant.Merchant, error) {
	return scanMerchant(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, station_name, address, pending_balance, created_at, updated_at
		FROM merchants
		WHERE id = $1
	`, id))
}

func (s *Store) GetMerchantByUser(ctx context.Context, userID string) (merchant.Merchant, error) {
	return scanMerchant(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, station_name, address, pending_balance, created_at, updated_at
		FROM merchants
		WHERE user_id = $1
	`, userID))
}

func (s *Store) AddMerchantBalance(ctx context.Context, id string, delta float64) (merchant.Merchant, error) {
	return scanMerchant(s.db.QueryRowContext(ctx, `
		UPDATE merchants
		SET pending_balance = pending_balance + $2, updated_at = $3
		WHERE id = $1
		RETURNING id, user_id, station_name, address, pending_balance, created_at, updated_at
	`, id, delta, time.Now().UTC()))
}

const withdrawalColumns = `id, merchant_id, amount, status, processed_by, notes, created_at, processed_at`

func (s *Store) CreateWithdrawal(ctx context.Context, w merchant.Withdrawal) (merchant.Withdrawal, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.Status = merchant.WithdrawalPending
	w.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO withdrawals (id, merchant_id, amount, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.ID, w.MerchantID, w.Amount, w.Status, w.Notes, w.CreatedAt)
	if err != nil {
		return merchant.Withdrawal{}, translate(err)
	}
	return w, nil
}

func scanWithdrawal(row rowScanner) (merchant.Withdrawal, error) {
	var (
		w           merchant.Withdrawal
		processedBy sql.NullString
		processedAt sql.NullTime
	)
	if err := row.Scan(&w.ID, &w.MerchantID, &w.Amount, &w.Status, &processedBy, &w.Notes, &w.CreatedAt, &processedAt); err != nil {
		return merchant.Withdrawal{}, translate(err)
	}
	if processedBy.Valid {
		w.ProcessedBy = processedBy.String
	}
	w.ProcessedAt = fromNullTime(processedAt)
	return w, nil
}

func (s *Store) GetWithdrawal(ctx context.Context, id string) (merchant.Withdrawal, error) {
	return scanWithdrawal(s.db.QueryRowContext(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1
	`, id))
}

func (s *Store) ListWithdrawals(ctx context.Context, merchantID string) ([]merchant.Withdrawal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE $1 = '' OR merchant_id = $1
		ORDER BY created_at DESC
	`, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []merchant.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// ProcessWithdrawal transitions a pending request and, on approval, deducts
// the amount from the merchant's pending balance in the same transaction.
func (s *Store) ProcessWithdrawal(ctx context.Context, id string, approve bool, processorID, notes string) (merchant.Withdrawal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return merchant.Withdrawal{}, err
	}
	defer tx.Rollback()

	status := merchant.WithdrawalRejected
	if approve {
		status = merchant.WithdrawalApproved
	}
	now := time.Now().UTC()

	w, err := scanWithdrawal(tx.QueryRowContext(ctx, `
		UPDATE withdrawals
		SET status = $2, processed_by = $3, notes = $4, processed_at = $5
		WHERE id = $1 AND status = $6
		RETURNING `+withdrawalColumns+`
	`, id, status, processorID, notes, now, merchant.WithdrawalPending))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			var exists bool
			if scanErr := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM withdrawals WHERE id = $1)`, id).Scan(&exists); scanErr != nil {
				return merchant.Withdrawal{}, scanErr
			}
			if exists {
				return merchant.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", id, storage.ErrConflict)
			}
			return merchant.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", id, storage.ErrNotFound)
		}
		return merchant.Withdrawal{}, err
	}

	if approve {
		result, err := tx.ExecContext(ctx, `
			UPDATE merchants
			SET pending_balance = pending_balance - $2, updated_at = $3
			WHERE id = $1
		`, w.MerchantID, w.Amount, now)
		if err != nil {
			return merchant.Withdrawal{}, err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return merchant.Withdrawal{}, fmt.Errorf("merchant %s: %w", w.MerchantID, storage.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return merchant.Withdrawal{}, err
	}
	return w, nil
}

func (s *Store) CompleteWithdrawal(ctx context.Context, id string) (merchant.Withdrawal, error) {
	w, err := scanWithdrawal(s.db.QueryRowContext(ctx, `
		UPDATE withdrawals
		SET status = $2, processed_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+withdrawalColumns+`
	`, id, merchant.WithdrawalCompleted, time.Now().UTC(), merchant.WithdrawalApproved))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			var exists bool
			if scanErr := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM withdrawals WHERE id = $1)`, id).Scan(&exists); scanErr != nil {
				return merchant.Withdrawal{}, scanErr
			}
			if exists {
				return merchant.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", id, storage.ErrConflict)
			}
			return merchant.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", id, storage.ErrNotFound)
		}
		return merchant.Withdrawal{}, err
	}
	return w, nil
}

// --- StatsStore --------------------------------------------------------------

func (s *Store) DashboardStats(ctx context.Context) (storage.DashboardStats, error) {
	var stats storage.DashboardStats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM vehicles),
			(SELECT COUNT(*) FROM vehicles WHERE status = 'pending'),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COUNT(*) FROM coupons),
			(SELECT COUNT(*) FROM coupons WHERE status = 'active'),
			(SELECT COALESCE(SUM(quantity), 0) FROM transactions WHERE status = 'completed' AND kind IN ('topup', 'coupon_redemption')),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'),
			(SELECT COALESCE(SUM(pending_balance), 0) FROM merchants)
	`)
	if err := row.Scan(
		&stats.TotalUsers,
		&stats.TotalVehicles,
		&stats.PendingVehicles,
		&stats.TotalTransactions,
		&stats.TotalCoupons,
		&stats.ActiveCoupons,
		&stats.TotalFuelIssued,
		&stats.PendingWithdrawals,
		&stats.MerchantPendingSum,
	); err != nil {
		return storage.DashboardStats{}, err
	}
	return stats, nil
}
