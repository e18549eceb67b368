package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/storage/memory"
)

func TestService_ApplyDelta(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	bal, err := svc.ApplyDelta(context.Background(), "user-1", fuel.KindPetrol, 25)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if math.Abs(bal.Quantity-25) > 1e-9 {
		t.Fatalf("unexpected quantity: %v", bal.Quantity)
	}

	bal, err = svc.ApplyDelta(context.Background(), "user-1", fuel.KindPetrol, -10)
	if err != nil {
		t.Fatalf("apply negative delta: %v", err)
	}
	if math.Abs(bal.Quantity-15) > 1e-9 {
		t.Fatalf("delta not accumulated: %v", bal.Quantity)
	}
}

func TestService_ApplyDeltaValidation(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.ApplyDelta(context.Background(), "", fuel.KindPetrol, 1); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if _, err := svc.ApplyDelta(context.Background(), "user-1", fuel.Kind("kerosene"), 1); err == nil {
		t.Fatal("expected error for unsupported fuel kind")
	}
}

func TestService_BalancesZeroFilled(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	if _, err := svc.ApplyDelta(context.Background(), "user-1", fuel.KindDiesel, 40); err != nil {
		t.Fatalf("apply delta: %v", err)
	}

	balances, err := svc.Balances(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(balances) != len(fuel.Kinds()) {
		t.Fatalf("expected one entry per kind, got %d", len(balances))
	}
	byKind := make(map[fuel.Kind]float64)
	for _, b := range balances {
		byKind[b.Kind] = b.Quantity
	}
	if byKind[fuel.KindPetrol] != 0 {
		t.Fatalf("petrol should be zero-filled: %v", byKind[fuel.KindPetrol])
	}
	if math.Abs(byKind[fuel.KindDiesel]-40) > 1e-9 {
		t.Fatalf("diesel balance lost: %v", byKind[fuel.KindDiesel])
	}
}
