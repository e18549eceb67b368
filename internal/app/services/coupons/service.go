// Package coupons issues, redeems and expires single-use fuel coupons.
package coupons

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/petrolink/fuelhub/internal/app/domain/coupon"
	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/metrics"
	"github.com/petrolink/fuelhub/internal/app/storage"
	"github.com/petrolink/fuelhub/internal/errors"
	"github.com/petrolink/fuelhub/pkg/logger"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffixLen   = 6
	maxCodeAttempts = 5
)

// ErrCodeSpaceExhausted reports that code generation kept colliding with
// existing coupons. The caller should retry the request.
var ErrCodeSpaceExhausted = fmt.Errorf("coupon code generation exhausted %d attempts", maxCodeAttempts)

// Service manages the coupon lifecycle.
type Service struct {
	store storage.CouponStore
	log   *logger.Logger
}

// New constructs a coupon service.
func New(store storage.CouponStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("coupons")
	}
	return &Service{store: store, log: log}
}

// Create issues a new active coupon. Codes follow the shape
// FUEL-<KIND>-<QTY>L-<SUFFIX>; generation retries a bounded number of times
// on code collision before giving up.
func (s *Service) Create(ctx context.Context, kind fuel.Kind, quantity float64, description string, expiresAt time.Time, creatorID string) (coupon.Coupon, error) {
	if _, err := fuel.ParseKind(string(kind)); err != nil {
		return coupon.Coupon{}, errors.Validation(err.Error())
	}
	if quantity <= 0 {
		return coupon.Coupon{}, errors.Validation("quantity must be positive")
	}
	if !expiresAt.IsZero() && expiresAt.Before(time.Now().UTC()) {
		return coupon.Coupon{}, errors.Validation("expires_at is in the past")
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode(kind, quantity)
		if err != nil {
			return coupon.Coupon{}, errors.Internal("failed to generate coupon code", err)
		}
		created, err := s.store.CreateCoupon(ctx, coupon.Coupon{
			Code:        code,
			Kind:        kind,
			Quantity:    quantity,
			Status:      coupon.StatusActive,
			Description: strings.TrimSpace(description),
			ExpiresAt:   expiresAt,
			CreatedBy:   creatorID,
		})
		if err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				continue
			}
			return coupon.Coupon{}, err
		}
		s.log.WithField("coupon_id", created.ID).
			WithField("fuel_kind", string(kind)).
			WithField("quantity", quantity).
			WithField("created_by", creatorID).
			Info("coupon issued")
		return created, nil
	}
	return coupon.Coupon{}, errors.Internal("coupon code space exhausted", ErrCodeSpaceExhausted)
}

// Redeem spends an active coupon for redeemerID. The store performs the
// status flip, the balance credit and the redemption record as one unit of
// work, so a code can be spent exactly once.
func (s *Service) Redeem(ctx context.Context, code, redeemerID string) (coupon.Coupon, fuel.Balance, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return coupon.Coupon{}, fuel.Balance{}, errors.Validation("code is required")
	}

	c, bal, err := s.store.RedeemCoupon(ctx, code, redeemerID)
	metrics.RecordCouponRedemption(err == nil)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrNotFound) {
			return coupon.Coupon{}, fuel.Balance{}, errors.Validation("Coupon not found or already used")
		}
		return coupon.Coupon{}, fuel.Balance{}, err
	}
	s.log.WithField("coupon_id", c.ID).
		WithField("user_id", redeemerID).
		WithField("quantity", c.Quantity).
		Info("coupon redeemed")
	return c, bal, nil
}

// Deactivate withdraws an active coupon from circulation.
func (s *Service) Deactivate(ctx context.Context, id, actorID string) (coupon.Coupon, error) {
	c, err := s.store.TransitionCoupon(ctx, id, coupon.StatusActive, coupon.StatusDeactivated)
	if err != nil {
		return coupon.Coupon{}, err
	}
	s.log.WithField("coupon_id", id).WithField("actor_id", actorID).Info("coupon deactivated")
	return c, nil
}

// Get returns one coupon by id.
func (s *Service) Get(ctx context.Context, id string) (coupon.Coupon, error) {
	return s.store.GetCoupon(ctx, id)
}

// List returns every coupon, oldest first.
func (s *Service) List(ctx context.Context) ([]coupon.Coupon, error) {
	return s.store.ListCoupons(ctx)
}

// ExpireDue flips every active coupon whose expiry has passed. It returns the
// number of coupons expired; races with concurrent redemptions lose quietly.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListExpirableCoupons(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, c := range due {
		if _, err := s.store.TransitionCoupon(ctx, c.ID, coupon.StatusActive, coupon.StatusExpired); err != nil {
			if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired++
	}
	if expired > 0 {
		s.log.WithField("count", expired).Info("expired coupons swept")
	}
	return expired, nil
}

func generateCode(kind fuel.Kind, quantity float64) (string, error) {
	buf := make([]byte, codeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	// FormatFloat keeps large quantities in plain decimal notation.
	qty := strconv.FormatFloat(quantity, 'f', -1, 64)
	return fmt.Sprintf("FUEL-%s-%sL-%s", kind.Tag(), qty, buf), nil
}
