package merchants

import (
	"context"
	"math"
	"testing"

	"github.com/petrolink/fuelhub/internal/app/domain/merchant"
	"github.com/petrolink/fuelhub/internal/app/storage/memory"
)

func TestService_EnsureIdempotent(t *testing.T) {
	svc := New(memory.New(), nil)

	first, err := svc.Ensure(context.Background(), "merchant-user", "North Station", "1 Pump Rd")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := svc.Ensure(context.Background(), "merchant-user", "Other Name", "")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if second.ID != first.ID || second.StationName != "North Station" {
		t.Fatalf("ensure not idempotent: %+v", second)
	}
}

func TestService_WithdrawalLifecycle(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	m, err := svc.Ensure(context.Background(), "merchant-user", "North Station", "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := store.AddMerchantBalance(context.Background(), m.ID, 120); err != nil {
		t.Fatalf("seed pending balance: %v", err)
	}

	if _, err := svc.RequestWithdrawal(context.Background(), m.ID, 200); err == nil {
		t.Fatal("expected error for amount above pending balance")
	}
	if _, err := svc.RequestWithdrawal(context.Background(), m.ID, 0); err == nil {
		t.Fatal("expected error for zero amount")
	}

	w, err := svc.RequestWithdrawal(context.Background(), m.ID, 80)
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}
	if w.Status != merchant.WithdrawalPending {
		t.Fatalf("new request should be pending: %s", w.Status)
	}

	processed, err := svc.ProcessWithdrawal(context.Background(), w.ID, true, "admin-1", "ok")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed.Status != merchant.WithdrawalApproved {
		t.Fatalf("unexpected status: %s", processed.Status)
	}

	got, err := svc.Get(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("get merchant: %v", err)
	}
	if math.Abs(got.PendingBalance-40) > 1e-9 {
		t.Fatalf("pending balance not debited on approval: %v", got.PendingBalance)
	}

	if _, err := svc.ProcessWithdrawal(context.Background(), w.ID, false, "admin-1", ""); err == nil {
		t.Fatal("reprocessing should conflict")
	}

	completed, err := svc.CompleteWithdrawal(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != merchant.WithdrawalCompleted {
		t.Fatalf("unexpected status: %s", completed.Status)
	}
}

func TestService_RejectionKeepsBalance(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	m, err := svc.Ensure(context.Background(), "merchant-user", "North Station", "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := store.AddMerchantBalance(context.Background(), m.ID, 100); err != nil {
		t.Fatalf("seed pending balance: %v", err)
	}

	w, err := svc.RequestWithdrawal(context.Background(), m.ID, 60)
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}
	rejected, err := svc.ProcessWithdrawal(context.Background(), w.ID, false, "admin-1", "mismatched bank details")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rejected.Status != merchant.WithdrawalRejected {
		t.Fatalf("unexpected status: %s", rejected.Status)
	}
	if rejected.Notes != "mismatched bank details" {
		t.Fatalf("notes not stored: %q", rejected.Notes)
	}

	got, err := svc.Get(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("get merchant: %v", err)
	}
	if math.Abs(got.PendingBalance-100) > 1e-9 {
		t.Fatalf("rejection must not move balance: %v", got.PendingBalance)
	}

	if _, err := svc.CompleteWithdrawal(context.Background(), w.ID); err == nil {
		t.Fatal("completing a rejected request should conflict")
	}
}
