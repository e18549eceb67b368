package vehicles

import (
	"context"
	"testing"

	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/domain/vehicle"
	"github.com/petrolink/fuelhub/internal/app/storage/memory"
)

func register(t *testing.T, svc *Service, registration, owner string) vehicle.Vehicle {
	t.Helper()
	v, err := svc.Register(context.Background(), vehicle.Vehicle{
		Registration: registration,
		OwnerID:      owner,
		FuelKind:     fuel.KindPetrol,
	})
	if err != nil {
		t.Fatalf("register %s: %v", registration, err)
	}
	return v
}

func TestService_Register(t *testing.T) {
	svc := New(memory.New(), nil)

	v := register(t, svc, " kbz 123a ", "owner-1")
	if v.Registration != "KBZ 123A" {
		t.Fatalf("registration not normalised: %q", v.Registration)
	}
	if v.Status != vehicle.StatusPending {
		t.Fatalf("new vehicle should be pending: %s", v.Status)
	}

	if _, err := svc.Register(context.Background(), vehicle.Vehicle{
		Registration: "KBZ 123A",
		OwnerID:      "owner-2",
		FuelKind:     fuel.KindDiesel,
	}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestService_RegisterValidation(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Register(context.Background(), vehicle.Vehicle{OwnerID: "owner-1", FuelKind: fuel.KindPetrol}); err == nil {
		t.Fatal("expected error for empty registration")
	}
	if _, err := svc.Register(context.Background(), vehicle.Vehicle{Registration: "AAA 111", FuelKind: fuel.KindPetrol}); err == nil {
		t.Fatal("expected error for empty owner")
	}
	if _, err := svc.Register(context.Background(), vehicle.Vehicle{Registration: "AAA 111", OwnerID: "owner-1"}); err == nil {
		t.Fatal("expected error for missing fuel kind")
	}
}

func TestService_ApproveOnce(t *testing.T) {
	svc := New(memory.New(), nil)
	v := register(t, svc, "KAA 001", "owner-1")

	approved, err := svc.Approve(context.Background(), v.ID, "admin-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != vehicle.StatusApproved {
		t.Fatalf("unexpected status: %s", approved.Status)
	}
	if approved.ApprovedBy != "admin-1" || approved.ApprovedAt.IsZero() {
		t.Fatalf("approval metadata missing: %+v", approved)
	}

	if _, err := svc.Approve(context.Background(), v.ID, "admin-2"); err == nil {
		t.Fatal("second approval should conflict")
	}
	if _, err := svc.Reject(context.Background(), v.ID, "admin-2", "late"); err == nil {
		t.Fatal("reject after approval should conflict")
	}
}

func TestService_Reject(t *testing.T) {
	svc := New(memory.New(), nil)
	v := register(t, svc, "KAA 002", "owner-1")

	if _, err := svc.Reject(context.Background(), v.ID, "admin-1", ""); err == nil {
		t.Fatal("expected error for empty reason")
	}

	rejected, err := svc.Reject(context.Background(), v.ID, "admin-1", "registration papers missing")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != vehicle.StatusRejected {
		t.Fatalf("unexpected status: %s", rejected.Status)
	}
	if rejected.RejectReason != "registration papers missing" {
		t.Fatalf("reason not stored: %q", rejected.RejectReason)
	}
}

func TestService_ListPending(t *testing.T) {
	svc := New(memory.New(), nil)
	a := register(t, svc, "KAA 010", "owner-1")
	register(t, svc, "KAA 011", "owner-2")

	if _, err := svc.Approve(context.Background(), a.ID, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	pending, err := svc.ListPending(context.Background())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Registration != "KAA 011" {
		t.Fatalf("unexpected pending set: %+v", pending)
	}
}
