//go:build integration && postgres

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/joho/godotenv"

	"github.com/petrolink/fuelhub/internal/app"
	"github.com/petrolink/fuelhub/internal/app/auth"
	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/app/storage/postgres"
	"github.com/petrolink/fuelhub/internal/platform/database"
	"github.com/petrolink/fuelhub/internal/platform/migrations"
)

// Runs core flows against a real Postgres to cover migrations and the
// SQL-backed store paths the memory store cannot.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load() // allow .env for local runs
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Driver: "postgres", DSN: dsn})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := postgres.New(db)
	application, err := app.New(app.Stores{
		Users:        store,
		Balances:     store,
		Coupons:      store,
		Transactions: store,
		Vehicles:     store,
		Merchants:    store,
		Stats:        store,
	}, app.Options{Auth: auth.NewManager("integration-secret", 0)}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { application.Stop(ctx) })

	handler := NewHandler(application, Config{AuditSink: NewPostgresAuditSink(db)}, nil)
	server := httptest.NewServer(handler)
	defer server.Close()
	client := server.Client()

	if resp, err := client.Get(server.URL + "/healthz"); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz failed: %v", err)
	}

	agent, err := application.Users.Ensure(ctx, "pg-agent@example.com", "Agent", "agentpass", user.RoleAgent)
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}
	driver, err := application.Users.Ensure(ctx, "pg-driver@example.com", "Driver", "driverpass", user.RoleIndividual)
	if err != nil {
		t.Fatalf("ensure driver: %v", err)
	}
	_ = agent

	h := handler
	agentToken := login(t, h, "pg-agent@example.com", "agentpass")
	driverToken := login(t, h, "pg-driver@example.com", "driverpass")

	resp := do(t, h, http.MethodPost, "/api/coupons", agentToken, marshal(t, map[string]any{
		"fuel_kind": "petrol",
		"quantity":  12.5,
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("issue coupon: %d: %s", resp.Code, resp.Body.String())
	}
	var issued struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &issued); err != nil {
		t.Fatalf("unmarshal coupon: %v", err)
	}

	resp = do(t, h, http.MethodPost, "/api/coupons/redeem", driverToken, marshal(t, map[string]string{
		"code": issued.Code,
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("redeem: %d: %s", resp.Code, resp.Body.String())
	}
	resp = do(t, h, http.MethodPost, "/api/coupons/redeem", driverToken, marshal(t, map[string]string{
		"code": issued.Code,
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("second redeem: expected 400, got %d", resp.Code)
	}

	txns, err := application.Transactions.List(ctx, driver.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected one redemption record, got %d", len(txns))
	}
}
