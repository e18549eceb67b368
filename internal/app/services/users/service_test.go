package users

import (
	"context"
	"testing"

	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/app/storage/memory"
	"github.com/petrolink/fuelhub/internal/errors"
)

func TestService_EnsureIdempotent(t *testing.T) {
	svc := New(memory.New(), nil)

	first, err := svc.Ensure(context.Background(), " Driver@Example.COM ", "Asha", "hunter2", user.RoleIndividual)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.Email != "driver@example.com" {
		t.Fatalf("email not normalised: %s", first.Email)
	}
	if first.Status != user.StatusActive {
		t.Fatalf("new account should be active: %s", first.Status)
	}

	second, err := svc.Ensure(context.Background(), "driver@example.com", "Different Name", "other", user.RoleAdmin)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("ensure created a second account: %s vs %s", second.ID, first.ID)
	}
	if second.Role != user.RoleIndividual {
		t.Fatalf("existing account mutated: %s", second.Role)
	}
}

func TestService_Authenticate(t *testing.T) {
	svc := New(memory.New(), nil)

	u, err := svc.Ensure(context.Background(), "driver@example.com", "Asha", "hunter2", user.RoleIndividual)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	got, err := svc.Authenticate(context.Background(), "driver@example.com", "hunter2")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("unexpected account: %s", got.ID)
	}

	if _, err := svc.Authenticate(context.Background(), "driver@example.com", "wrong"); errors.HTTPStatus(err) != 401 {
		t.Fatalf("expected 401 for bad password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@example.com", "hunter2"); errors.HTTPStatus(err) != 401 {
		t.Fatalf("expected 401 for unknown email, got %v", err)
	}

	if _, err := svc.SetStatus(context.Background(), u.ID, user.StatusSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "driver@example.com", "hunter2"); errors.HTTPStatus(err) != 403 {
		t.Fatalf("expected 403 for suspended account, got %v", err)
	}
}

func TestService_UpdateKeepsEmail(t *testing.T) {
	svc := New(memory.New(), nil)

	u, err := svc.Ensure(context.Background(), "driver@example.com", "Asha", "hunter2", user.RoleIndividual)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	updated, err := svc.Update(context.Background(), user.User{ID: u.ID, Name: "Asha N.", Role: user.RoleCorporate, CompanyID: "co-1"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "driver@example.com" {
		t.Fatalf("email must be immutable: %s", updated.Email)
	}
	if updated.Name != "Asha N." || updated.Role != user.RoleCorporate || updated.CompanyID != "co-1" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := svc.Update(context.Background(), user.User{ID: u.ID, Role: user.Role("pilot")}); err == nil {
		t.Fatal("expected error for unsupported role")
	}
}
