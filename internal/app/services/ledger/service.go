// Package ledger adjusts and reports per-user fuel balances.
package ledger

import (
	"context"
	"strings"

	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/metrics"
	"github.com/petrolink/fuelhub/internal/app/storage"
	"github.com/petrolink/fuelhub/internal/errors"
	"github.com/petrolink/fuelhub/pkg/logger"
)

// Service mediates balance reads and deltas.
type Service struct {
	store storage.BalanceStore
	log   *logger.Logger
}

// New constructs a ledger service.
func New(store storage.BalanceStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{store: store, log: log}
}

// ApplyDelta moves a user's balance for one fuel kind by delta litres. The
// store performs the increment atomically; a row is created at zero first if
// the user has never held that kind.
func (s *Service) ApplyDelta(ctx context.Context, userID string, kind fuel.Kind, delta float64) (fuel.Balance, error) {
	if strings.TrimSpace(userID) == "" {
		return fuel.Balance{}, errors.Validation("user_id is required")
	}
	if _, err := fuel.ParseKind(string(kind)); err != nil {
		return fuel.Balance{}, errors.Validation(err.Error())
	}

	bal, err := s.store.ApplyBalanceDelta(ctx, userID, kind, delta)
	if err != nil {
		return fuel.Balance{}, err
	}
	metrics.RecordBalanceDelta(string(kind))
	s.log.WithField("user_id", userID).
		WithField("fuel_kind", string(kind)).
		WithField("delta", delta).
		Info("balance adjusted")
	return bal, nil
}

// Balances returns one entry per supported fuel kind for the user, filling in
// zero balances for kinds the user has never held.
func (s *Service) Balances(ctx context.Context, userID string) ([]fuel.Balance, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.Validation("user_id is required")
	}

	stored, err := s.store.ListBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	byKind := make(map[fuel.Kind]fuel.Balance, len(stored))
	for _, b := range stored {
		byKind[b.Kind] = b
	}

	result := make([]fuel.Balance, 0, len(fuel.Kinds()))
	for _, kind := range fuel.Kinds() {
		if b, ok := byKind[kind]; ok {
			result = append(result, b)
			continue
		}
		result = append(result, fuel.Balance{UserID: userID, Kind: kind})
	}
	return result, nil
}
