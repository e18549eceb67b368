// Package transactions records and settles fuel movements.
package transactions

import (
	"context"
	"strings"

	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/domain/transaction"
	"github.com/petrolink/fuelhub/internal/app/metrics"
	"github.com/petrolink/fuelhub/internal/app/storage"
	"github.com/petrolink/fuelhub/internal/errors"
	"github.com/petrolink/fuelhub/pkg/logger"
)

// Service appends transaction records and runs the settlement flows.
type Service struct {
	store     storage.TransactionStore
	balances  storage.BalanceStore
	merchants storage.MerchantStore
	log       *logger.Logger
}

// New constructs a transaction service.
func New(store storage.TransactionStore, balances storage.BalanceStore, merchants storage.MerchantStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("transactions")
	}
	return &Service{store: store, balances: balances, merchants: merchants, log: log}
}

func validate(t transaction.Transaction) error {
	if strings.TrimSpace(t.UserID) == "" {
		return errors.Validation("user_id is required")
	}
	if _, err := transaction.ParseKind(string(t.Kind)); err != nil {
		return errors.Validation(err.Error())
	}
	if _, err := fuel.ParseKind(string(t.FuelKind)); err != nil {
		return errors.Validation(err.Error())
	}
	if t.Quantity <= 0 {
		return errors.Validation("quantity must be positive")
	}
	if t.AmountValue < 0 {
		return errors.Validation("amount_value cannot be negative")
	}
	return nil
}

// Record appends a pending transaction without moving any balance.
func (s *Service) Record(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	if err := validate(t); err != nil {
		return transaction.Transaction{}, err
	}
	t.Status = transaction.StatusPending
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.log.WithField("transaction_id", created.ID).
		WithField("kind", string(created.Kind)).
		WithField("user_id", created.UserID).
		Info("transaction recorded")
	return created, nil
}

// Purchase settles a fuel purchase at a merchant station: the buyer's balance
// is debited, the merchant's pending balance is credited and the completed
// record is appended, all in one storage unit of work.
func (s *Service) Purchase(ctx context.Context, t transaction.Transaction) (transaction.Transaction, fuel.Balance, error) {
	t.Kind = transaction.KindPurchase
	if err := validate(t); err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}
	if t.MerchantID != "" && s.merchants != nil {
		if _, err := s.merchants.GetMerchant(ctx, t.MerchantID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return transaction.Transaction{}, fuel.Balance{}, errors.NotFound("merchant not found")
			}
			return transaction.Transaction{}, fuel.Balance{}, err
		}
	}

	bal, err := s.balances.GetBalance(ctx, t.UserID, t.FuelKind)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return transaction.Transaction{}, fuel.Balance{}, err
	}
	if bal.Quantity < t.Quantity {
		return transaction.Transaction{}, fuel.Balance{}, errors.Conflict("insufficient fuel balance")
	}

	settled, newBal, err := s.store.SettlePurchase(ctx, t)
	metrics.RecordSettlement(string(transaction.KindPurchase), err == nil)
	if err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}
	s.log.WithField("transaction_id", settled.ID).
		WithField("user_id", settled.UserID).
		WithField("merchant_id", settled.MerchantID).
		WithField("quantity", settled.Quantity).
		Info("purchase settled")
	return settled, newBal, nil
}

// Transfer moves fuel from t.UserID to recipientID and appends the completed
// record in one storage unit of work.
func (s *Service) Transfer(ctx context.Context, t transaction.Transaction, recipientID string) (transaction.Transaction, error) {
	t.Kind = transaction.KindTransfer
	if err := validate(t); err != nil {
		return transaction.Transaction{}, err
	}
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return transaction.Transaction{}, errors.Validation("recipient_id is required")
	}
	if recipientID == t.UserID {
		return transaction.Transaction{}, errors.Validation("cannot transfer to yourself")
	}

	bal, err := s.balances.GetBalance(ctx, t.UserID, t.FuelKind)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return transaction.Transaction{}, err
	}
	if bal.Quantity < t.Quantity {
		return transaction.Transaction{}, errors.Conflict("insufficient fuel balance")
	}

	settled, err := s.store.SettleTransfer(ctx, t, recipientID)
	metrics.RecordSettlement(string(transaction.KindTransfer), err == nil)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.log.WithField("transaction_id", settled.ID).
		WithField("from", settled.UserID).
		WithField("to", recipientID).
		WithField("quantity", settled.Quantity).
		Info("transfer settled")
	return settled, nil
}

// TopUp credits a user's balance and appends a completed topup record.
func (s *Service) TopUp(ctx context.Context, t transaction.Transaction) (transaction.Transaction, fuel.Balance, error) {
	t.Kind = transaction.KindTopUp
	t.MerchantID = ""
	if err := validate(t); err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}

	settled, bal, err := s.store.SettleTopUp(ctx, t)
	metrics.RecordSettlement(string(transaction.KindTopUp), err == nil)
	if err != nil {
		return transaction.Transaction{}, fuel.Balance{}, err
	}
	s.log.WithField("transaction_id", settled.ID).
		WithField("user_id", settled.UserID).
		WithField("quantity", settled.Quantity).
		Info("topup settled")
	return settled, bal, nil
}

// Get returns one transaction by id.
func (s *Service) Get(ctx context.Context, id string) (transaction.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// List returns transactions, newest first, optionally filtered by user.
func (s *Service) List(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

// UpdateStatus moves a pending transaction to a terminal settlement state.
func (s *Service) UpdateStatus(ctx context.Context, id string, status transaction.Status) (transaction.Transaction, error) {
	parsed, err := transaction.ParseStatus(string(status))
	if err != nil {
		return transaction.Transaction{}, errors.Validation(err.Error())
	}
	if parsed == transaction.StatusPending {
		return transaction.Transaction{}, errors.Validation("status must be a terminal state")
	}

	updated, err := s.store.UpdateTransactionStatus(ctx, id, parsed)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return transaction.Transaction{}, errors.Conflict("transaction is not pending")
		}
		return transaction.Transaction{}, err
	}
	s.log.WithField("transaction_id", id).WithField("status", string(parsed)).Info("transaction status updated")
	return updated, nil
}
