package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/petrolink/fuelhub/internal/app"
	"github.com/petrolink/fuelhub/internal/app/auth"
	"github.com/petrolink/fuelhub/internal/app/domain/coupon"
	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/app/storage/memory"
)

func newTestAPI(t *testing.T) (*app.Application, http.Handler) {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{
		Auth: auth.NewManager("handler-test-secret", 0),
	}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { application.Stop(context.Background()) })

	return application, NewHandler(application, Config{}, nil)
}

func marshal(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(raw)
}

func do(t *testing.T, h http.Handler, method, path, token string, body *bytes.Reader) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func seedUser(t *testing.T, application *app.Application, email, password string, role user.Role) user.User {
	t.Helper()
	u, err := application.Users.Ensure(context.Background(), email, email, password, role)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func login(t *testing.T, h http.Handler, email, password string) string {
	t.Helper()
	resp := do(t, h, http.MethodPost, "/auth/login", "", marshal(t, map[string]string{
		"username": email,
		"password": password,
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, resp.Code, resp.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	if out.Token == "" {
		t.Fatal("expected a token")
	}
	return out.Token
}

func TestHealthz(t *testing.T) {
	_, h := newTestAPI(t)

	resp := do(t, h, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	_, h := newTestAPI(t)

	resp := do(t, h, http.MethodPost, "/auth/register", "", marshal(t, map[string]string{
		"email":    "driver@example.com",
		"name":     "Driver",
		"password": "hunter22",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if bytes.Contains(resp.Body.Bytes(), []byte("password_hash")) {
		t.Fatal("password hash leaked in response")
	}

	login(t, h, "driver@example.com", "hunter22")

	resp = do(t, h, http.MethodPost, "/auth/login", "", marshal(t, map[string]string{
		"username": "driver@example.com",
		"password": "wrong",
	}))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.Code)
	}
}

func TestRegisterRejectsPrivilegedRoles(t *testing.T) {
	_, h := newTestAPI(t)

	for _, role := range []string{"admin", "agent"} {
		resp := do(t, h, http.MethodPost, "/auth/register", "", marshal(t, map[string]string{
			"email":    role + "@example.com",
			"password": "hunter22",
			"role":     role,
		}))
		if resp.Code != http.StatusForbidden {
			t.Fatalf("role %s: expected 403, got %d", role, resp.Code)
		}
	}
}

func TestCouponIssueAndRedeem(t *testing.T) {
	application, h := newTestAPI(t)
	seedUser(t, application, "agent@example.com", "agentpass", user.RoleAgent)
	seedUser(t, application, "driver@example.com", "driverpass", user.RoleIndividual)
	agentToken := login(t, h, "agent@example.com", "agentpass")
	driverToken := login(t, h, "driver@example.com", "driverpass")

	resp := do(t, h, http.MethodPost, "/api/coupons", driverToken, marshal(t, map[string]any{
		"fuel_kind": "petrol",
		"quantity":  25.0,
	}))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("driver issuing coupon: expected 403, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodPost, "/api/coupons", agentToken, marshal(t, map[string]any{
		"fuel_kind":   "petrol",
		"quantity":    25.0,
		"description": "monthly allocation",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("issue coupon: expected 201, got %d: %s", resp.Code, resp.Body.String())
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
		t.Fatalf("redeem: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodPost, "/api/coupons/redeem", driverToken, marshal(t, map[string]string{
		"code": issued.Code,
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("second redeem: expected 400, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodGet, "/api/fuel-balances", driverToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("balances: expected 200, got %d", resp.Code)
	}
	var balances map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &balances); err != nil {
		t.Fatalf("unmarshal balances: %v", err)
	}
	if balances["petrol"] != "25.00" {
		t.Fatalf("expected petrol balance 25.00, got %q", balances["petrol"])
	}
}

func TestRedeemExpiredCouponRejected(t *testing.T) {
	mem := memory.New()
	application, err := app.New(app.Stores{
		Users:        mem,
		Balances:     mem,
		Coupons:      mem,
		Transactions: mem,
		Vehicles:     mem,
		Merchants:    mem,
		Stats:        mem,
	}, app.Options{Auth: auth.NewManager("handler-test-secret", 0)}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { application.Stop(context.Background()) })
	h := NewHandler(application, Config{}, nil)

	seedUser(t, application, "driver@example.com", "driverpass", user.RoleIndividual)
	driverToken := login(t, h, "driver@example.com", "driverpass")

	// Active but past expiry, as happens between sweeper runs.
	seeded, err := mem.CreateCoupon(context.Background(), coupon.Coupon{
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

	resp := do(t, h, http.MethodPost, "/api/coupons/redeem", driverToken, marshal(t, map[string]string{
		"code": seeded.Code,
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expired redeem: expected 400, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodGet, "/api/fuel-balances", driverToken, nil)
	var balances map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &balances); err != nil {
		t.Fatalf("unmarshal balances: %v", err)
	}
	if balances["petrol"] != "0.00" {
		t.Fatalf("expected petrol balance 0.00, got %q", balances["petrol"])
	}
}

func TestVehicleApprovalFlow(t *testing.T) {
	application, h := newTestAPI(t)
	seedUser(t, application, "driver@example.com", "driverpass", user.RoleIndividual)
	seedUser(t, application, "agent@example.com", "agentpass", user.RoleAgent)
	driverToken := login(t, h, "driver@example.com", "driverpass")
	agentToken := login(t, h, "agent@example.com", "agentpass")

	resp := do(t, h, http.MethodPost, "/api/vehicles", driverToken, marshal(t, map[string]string{
		"registration": "kbz 123a",
		"fuel_kind":    "diesel",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("register vehicle: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var registered struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &registered); err != nil {
		t.Fatalf("unmarshal vehicle: %v", err)
	}
	if registered.Status != "pending" {
		t.Fatalf("expected pending vehicle, got %s", registered.Status)
	}

	resp = do(t, h, http.MethodPatch, "/api/vehicles/"+registered.ID+"/approve", driverToken, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("driver approving: expected 403, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodGet, "/api/vehicles/pending", agentToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("pending list: expected 200, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodPatch, "/api/vehicles/"+registered.ID+"/approve", agentToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodPatch, "/api/vehicles/"+registered.ID+"/reject", agentToken, marshal(t, map[string]string{
		"reason": "already approved",
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("reject after approve: expected 400, got %d", resp.Code)
	}
}

func TestPurchaseAndWithdrawalFlow(t *testing.T) {
	application, h := newTestAPI(t)
	admin := seedUser(t, application, "admin@example.com", "adminpass", user.RoleAdmin)
	driver := seedUser(t, application, "driver@example.com", "driverpass", user.RoleIndividual)
	seedUser(t, application, "station@example.com", "stationpass", user.RoleMerchant)
	adminToken := login(t, h, "admin@example.com", "adminpass")
	merchantToken := login(t, h, "station@example.com", "stationpass")
	driverToken := login(t, h, "driver@example.com", "driverpass")
	_ = admin

	resp := do(t, h, http.MethodPost, "/api/merchants/me", merchantToken, marshal(t, map[string]string{
		"station_name": "Shell Westlands",
		"address":      "Waiyaki Way",
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("merchant ensure: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	// Fund the buyer before the sale is recorded.
	resp = do(t, h, http.MethodPost, "/api/transactions/top-up", adminToken, marshal(t, map[string]any{
		"user_id":      driver.ID,
		"fuel_kind":    "petrol",
		"quantity":     50.0,
		"amount_value": 9100.0,
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("top-up: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodPost, "/api/transactions/fuel-purchase", merchantToken, marshal(t, map[string]any{
		"user_id":      driver.ID,
		"fuel_kind":    "petrol",
		"quantity":     20.0,
		"amount_value": 3640.0,
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("purchase: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodGet, "/api/fuel-balances", driverToken, nil)
	var balances map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &balances); err != nil {
		t.Fatalf("unmarshal balances: %v", err)
	}
	if balances["petrol"] != "30.00" {
		t.Fatalf("expected petrol balance 30.00 after purchase, got %q", balances["petrol"])
	}

	resp = do(t, h, http.MethodGet, "/api/merchants/me", merchantToken, nil)
	var m struct {
		PendingBalance float64 `json:"pending_balance"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal merchant: %v", err)
	}
	if m.PendingBalance != 3640.0 {
		t.Fatalf("expected pending balance 3640, got %v", m.PendingBalance)
	}

	resp = do(t, h, http.MethodPost, "/api/withdrawals", merchantToken, marshal(t, map[string]any{
		"amount": 3000.0,
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("withdrawal request: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var wd struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &wd); err != nil {
		t.Fatalf("unmarshal withdrawal: %v", err)
	}

	resp = do(t, h, http.MethodPatch, "/api/withdrawals/"+wd.ID, merchantToken, marshal(t, map[string]any{
		"approve": true,
	}))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("merchant processing own withdrawal: expected 403, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodPatch, "/api/withdrawals/"+wd.ID, adminToken, marshal(t, map[string]any{
		"approve": true,
		"notes":   "mpesa batch 7",
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("process withdrawal: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodPatch, "/api/withdrawals/"+wd.ID+"/complete", adminToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("complete withdrawal: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestTransferBetweenUsers(t *testing.T) {
	application, h := newTestAPI(t)
	admin := seedUser(t, application, "admin@example.com", "adminpass", user.RoleAdmin)
	_ = admin
	sender := seedUser(t, application, "sender@example.com", "senderpass", user.RoleIndividual)
	recipient := seedUser(t, application, "recipient@example.com", "recipientpass", user.RoleIndividual)
	adminToken := login(t, h, "admin@example.com", "adminpass")
	senderToken := login(t, h, "sender@example.com", "senderpass")
	recipientToken := login(t, h, "recipient@example.com", "recipientpass")

	resp := do(t, h, http.MethodPost, "/api/transactions/top-up", adminToken, marshal(t, map[string]any{
		"user_id":   sender.ID,
		"fuel_kind": "diesel",
		"quantity":  40.0,
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("top-up: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodPost, "/api/transactions/transfer", senderToken, marshal(t, map[string]any{
		"recipient_id": recipient.ID,
		"fuel_kind":    "diesel",
		"quantity":     15.0,
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("transfer: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodGet, "/api/fuel-balances", recipientToken, nil)
	var balances map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &balances); err != nil {
		t.Fatalf("unmarshal balances: %v", err)
	}
	if balances["diesel"] != "15.00" {
		t.Fatalf("expected diesel balance 15.00, got %q", balances["diesel"])
	}

	resp = do(t, h, http.MethodPost, "/api/transactions/transfer", senderToken, marshal(t, map[string]any{
		"recipient_id": recipient.ID,
		"fuel_kind":    "diesel",
		"quantity":     999.0,
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("overdrawn transfer: expected 400, got %d", resp.Code)
	}
}

func TestDashboardAndUsersRequireAdmin(t *testing.T) {
	application, h := newTestAPI(t)
	seedUser(t, application, "admin@example.com", "adminpass", user.RoleAdmin)
	seedUser(t, application, "driver@example.com", "driverpass", user.RoleIndividual)
	adminToken := login(t, h, "admin@example.com", "adminpass")
	driverToken := login(t, h, "driver@example.com", "driverpass")

	resp := do(t, h, http.MethodGet, "/api/dashboard/stats", driverToken, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("driver dashboard: expected 403, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodGet, "/api/dashboard/stats", adminToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin dashboard: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodGet, "/api/users", driverToken, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("driver listing users: expected 403, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodGet, "/api/users", adminToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin listing users: expected 200, got %d", resp.Code)
	}

	resp = do(t, h, http.MethodGet, "/api/audit?limit=5", adminToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("audit: expected 200, got %d", resp.Code)
	}
	var entries []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal audit entries: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected audit entries to be recorded")
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	_, h := newTestAPI(t)

	for _, path := range []string{"/api/fuel-balances", "/api/transactions", "/api/vehicles"} {
		resp := do(t, h, http.MethodGet, path, "", nil)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token, got %d", path, resp.Code)
		}
	}
}
