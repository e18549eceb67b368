package coupons

import (
	"context"
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/petrolink/fuelhub/internal/app/domain/coupon"
	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/domain/transaction"
	"github.com/petrolink/fuelhub/internal/app/storage/memory"
)

var codePattern = regexp.MustCompile(`^FUEL-[A-Z]{3}-[0-9.]+L-[A-Z0-9]{6}$`)

func TestService_CreateCodeShape(t *testing.T) {
	svc := New(memory.New(), nil)

	c, err := svc.Create(context.Background(), fuel.KindPetrol, 50, "ration issue", time.Time{}, "admin-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !codePattern.MatchString(c.Code) {
		t.Fatalf("unexpected code shape: %s", c.Code)
	}
	if c.Status != coupon.StatusActive {
		t.Fatalf("new coupon should be active: %s", c.Status)
	}
	if c.CreatedBy != "admin-1" {
		t.Fatalf("creator not recorded: %s", c.CreatedBy)
	}
}

func TestGenerateCodeLargeQuantity(t *testing.T) {
	code, err := generateCode(fuel.KindPetrol, 1_000_000)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(code, "FUEL-PET-1000000L-") {
		t.Fatalf("quantity not rendered in plain decimal: %s", code)
	}
	if !codePattern.MatchString(code) {
		t.Fatalf("unexpected code shape: %s", code)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Create(context.Background(), fuel.Kind("lpg"), 10, "", time.Time{}, "admin-1"); err == nil {
		t.Fatal("expected error for unsupported kind")
	}
	if _, err := svc.Create(context.Background(), fuel.KindDiesel, 0, "", time.Time{}, "admin-1"); err == nil {
		t.Fatal("expected error for zero quantity")
	}
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := svc.Create(context.Background(), fuel.KindDiesel, 10, "", past, "admin-1"); err == nil {
		t.Fatal("expected error for past expiry")
	}
}

func TestService_RedeemOnce(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	c, err := svc.Create(context.Background(), fuel.KindDiesel, 30, "", time.Time{}, "admin-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	redeemed, bal, err := svc.Redeem(context.Background(), c.Code, "user-1")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeemed.Status != coupon.StatusUsed {
		t.Fatalf("coupon not marked used: %s", redeemed.Status)
	}
	if redeemed.RedeemedBy != "user-1" {
		t.Fatalf("redeemer not recorded: %s", redeemed.RedeemedBy)
	}
	if math.Abs(bal.Quantity-30) > 1e-9 {
		t.Fatalf("balance not credited: %v", bal.Quantity)
	}

	txns, err := store.ListTransactions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].Kind != transaction.KindCouponRedemption {
		t.Fatalf("redemption record missing: %+v", txns)
	}

	// Second attempt must fail without a second credit.
	if _, _, err := svc.Redeem(context.Background(), c.Code, "user-2"); err == nil {
		t.Fatal("expected double redemption to fail")
	}
	bal2, err := store.GetBalance(context.Background(), "user-1", fuel.KindDiesel)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if math.Abs(bal2.Quantity-30) > 1e-9 {
		t.Fatalf("balance changed after failed redemption: %v", bal2.Quantity)
	}
}

func TestService_RedeemExpired(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	// Seed an active coupon already past its expiry, as happens between
	// sweeper runs.
	seeded, err := store.CreateCoupon(context.Background(), coupon.Coupon{
		Code:      "FUEL-PET-10L-EXPIRD",
		Kind:      fuel.KindPetrol,
		Quantity:  10,
		Status:    coupon.StatusActive,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
		CreatedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	if _, _, err := svc.Redeem(context.Background(), seeded.Code, "user-1"); err == nil {
		t.Fatal("expected expired coupon redemption to fail")
	}

	balances, err := store.ListBalances(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list balances: %v", err)
	}
	if len(balances) != 0 {
		t.Fatalf("expired coupon credited balance: %+v", balances)
	}
	txns, err := store.ListTransactions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 0 {
		t.Fatalf("expired coupon produced a redemption record: %+v", txns)
	}
}

func TestService_RedeemUnknownCode(t *testing.T) {
	svc := New(memory.New(), nil)

	_, _, err := svc.Redeem(context.Background(), "FUEL-PET-10L-ZZZZZZ", "user-1")
	if err == nil {
		t.Fatal("expected error for unknown code")
	}
	if err.Error() != "Coupon not found or already used" {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestService_Deactivate(t *testing.T) {
	svc := New(memory.New(), nil)

	c, err := svc.Create(context.Background(), fuel.KindPetrol, 20, "", time.Time{}, "admin-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	deactivated, err := svc.Deactivate(context.Background(), c.ID, "admin-1")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.Status != coupon.StatusDeactivated {
		t.Fatalf("unexpected status: %s", deactivated.Status)
	}
	if _, _, err := svc.Redeem(context.Background(), c.Code, "user-1"); err == nil {
		t.Fatal("deactivated coupon should not redeem")
	}
	if _, err := svc.Deactivate(context.Background(), c.ID, "admin-1"); err == nil {
		t.Fatal("second deactivation should conflict")
	}
}

func TestService_ExpireDue(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	soon := time.Now().UTC().Add(time.Minute)
	expiring, err := svc.Create(context.Background(), fuel.KindPetrol, 10, "", soon, "admin-1")
	if err != nil {
		t.Fatalf("create expiring: %v", err)
	}
	if _, err := svc.Create(context.Background(), fuel.KindPetrol, 10, "", time.Time{}, "admin-1"); err != nil {
		t.Fatalf("create open-ended: %v", err)
	}

	expired, err := svc.ExpireDue(context.Background(), time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("expire due: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired coupon, got %d", expired)
	}
	got, err := svc.Get(context.Background(), expiring.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != coupon.StatusExpired {
		t.Fatalf("coupon not expired: %s", got.Status)
	}
}
