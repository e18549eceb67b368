// Package merchants manages station merchants and withdrawal requests.
package merchants

import (
	"context"
	"strings"

	"github.com/petrolink/fuelhub/internal/app/domain/merchant"
	"github.com/petrolink/fuelhub/internal/app/storage"
	"github.com/petrolink/fuelhub/internal/errors"
	"github.com/petrolink/fuelhub/pkg/logger"
)

// Service manages merchant records and the withdrawal workflow.
type Service struct {
	store storage.MerchantStore
	log   *logger.Logger
}

// New constructs a merchant service.
func New(store storage.MerchantStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("merchants")
	}
	return &Service{store: store, log: log}
}

// Ensure returns the merchant record for userID, creating it on first use.
func (s *Service) Ensure(ctx context.Context, userID, stationName, address string) (merchant.Merchant, error) {
	if strings.TrimSpace(userID) == "" {
		return merchant.Merchant{}, errors.Validation("user_id is required")
	}

	existing, err := s.store.GetMerchantByUser(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return merchant.Merchant{}, err
	}

	stationName = strings.TrimSpace(stationName)
	if stationName == "" {
		return merchant.Merchant{}, errors.Validation("station_name is required")
	}
	created, err := s.store.CreateMerchant(ctx, merchant.Merchant{
		UserID:      userID,
		StationName: stationName,
		Address:     strings.TrimSpace(address),
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return s.store.GetMerchantByUser(ctx, userID)
		}
		return merchant.Merchant{}, err
	}
	s.log.WithField("merchant_id", created.ID).
		WithField("user_id", userID).
		WithField("station_name", stationName).
		Info("merchant created")
	return created, nil
}

// Get returns one merchant by id.
func (s *Service) Get(ctx context.Context, id string) (merchant.Merchant, error) {
	return s.store.GetMerchant(ctx, id)
}

// GetByUser returns the merchant owned by userID.
func (s *Service) GetByUser(ctx context.Context, userID string) (merchant.Merchant, error) {
	return s.store.GetMerchantByUser(ctx, userID)
}

// RequestWithdrawal opens a pending withdrawal against the merchant's pending
// balance. The balance is only moved when the request is approved.
func (s *Service) RequestWithdrawal(ctx context.Context, merchantID string, amount float64) (merchant.Withdrawal, error) {
	if amount <= 0 {
		return merchant.Withdrawal{}, errors.Validation("amount must be positive")
	}
	m, err := s.store.GetMerchant(ctx, merchantID)
	if err != nil {
		return merchant.Withdrawal{}, err
	}
	if amount > m.PendingBalance {
		return merchant.Withdrawal{}, errors.Conflict("amount exceeds pending balance")
	}

	w, err := s.store.CreateWithdrawal(ctx, merchant.Withdrawal{
		MerchantID: merchantID,
		Amount:     amount,
		Status:     merchant.WithdrawalPending,
	})
	if err != nil {
		return merchant.Withdrawal{}, err
	}
	s.log.WithField("withdrawal_id", w.ID).
		WithField("merchant_id", merchantID).
		WithField("amount", amount).
		Info("withdrawal requested")
	return w, nil
}

// ListWithdrawals returns withdrawals, optionally filtered by merchant.
func (s *Service) ListWithdrawals(ctx context.Context, merchantID string) ([]merchant.Withdrawal, error) {
	return s.store.ListWithdrawals(ctx, merchantID)
}

// ProcessWithdrawal approves or rejects a pending request. Approval debits
// the merchant's pending balance in the same storage unit of work; a request
// that already left the pending state surfaces as a conflict.
func (s *Service) ProcessWithdrawal(ctx context.Context, id string, approve bool, processorID, notes string) (merchant.Withdrawal, error) {
	w, err := s.store.ProcessWithdrawal(ctx, id, approve, processorID, strings.TrimSpace(notes))
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return merchant.Withdrawal{}, errors.Conflict("withdrawal is not pending")
		}
		return merchant.Withdrawal{}, err
	}
	s.log.WithField("withdrawal_id", id).
		WithField("approved", approve).
		WithField("processed_by", processorID).
		Info("withdrawal processed")
	return w, nil
}

// CompleteWithdrawal marks an approved request as paid out.
func (s *Service) CompleteWithdrawal(ctx context.Context, id string) (merchant.Withdrawal, error) {
	w, err := s.store.CompleteWithdrawal(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return merchant.Withdrawal{}, errors.Conflict("withdrawal is not approved")
		}
		return merchant.Withdrawal{}, err
	}
	s.log.WithField("withdrawal_id", id).Info("withdrawal completed")
	return w, nil
}
