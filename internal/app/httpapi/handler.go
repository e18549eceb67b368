// Package httpapi exposes the REST API over the application services.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/petrolink/fuelhub/internal/app"
	"github.com/petrolink/fuelhub/internal/app/auth"
	"github.com/petrolink/fuelhub/internal/app/domain/fuel"
	"github.com/petrolink/fuelhub/internal/app/domain/transaction"
	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/app/domain/vehicle"
	"github.com/petrolink/fuelhub/internal/app/metrics"
	"github.com/petrolink/fuelhub/internal/app/storage"
	"github.com/petrolink/fuelhub/internal/errors"
	"github.com/petrolink/fuelhub/pkg/logger"
)

// Config carries optional handler dependencies.
type Config struct {
	AuditSink AuditSink
	AuditMax  int
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns the API handler with auditing and metrics attached.
func NewHandler(application *app.Application, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{
		app:   application,
		audit: newAuditLog(cfg.AuditMax, cfg.AuditSink),
		log:   log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/auth/login", h.login)
	mux.HandleFunc("/auth/register", h.register)
	mux.HandleFunc("/api/fuel-balances", h.fuelBalances)
	mux.HandleFunc("/api/coupons", h.coupons)
	mux.HandleFunc("/api/coupons/", h.couponResources)
	mux.HandleFunc("/api/vehicles", h.vehicles)
	mux.HandleFunc("/api/vehicles/", h.vehicleResources)
	mux.HandleFunc("/api/transactions", h.transactions)
	mux.HandleFunc("/api/transactions/", h.transactionResources)
	mux.HandleFunc("/api/merchants/me", h.merchantMe)
	mux.HandleFunc("/api/withdrawals", h.withdrawals)
	mux.HandleFunc("/api/withdrawals/", h.withdrawalResources)
	mux.HandleFunc("/api/dashboard/stats", h.dashboardStats)
	mux.HandleFunc("/api/users", h.users)
	mux.HandleFunc("/api/users/", h.userResources)
	mux.HandleFunc("/api/audit", h.auditEntries)

	return metrics.InstrumentHandler(h.withAudit(mux))
}

// withAudit records an audit entry for every request.
func (h *handler) withAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := auditEntry{
			Time:       time.Now().UTC(),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		}
		if principal, err := h.app.Auth.FromHeader(r.Header.Get("Authorization")); err == nil {
			entry.User = principal.UserID
			entry.Role = string(principal.Role)
		}
		h.audit.add(entry)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// --- auth helpers ------------------------------------------------------------

func (h *handler) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, err := h.app.Auth.FromHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeFailure(w, err)
		return auth.Principal{}, false
	}
	return principal, true
}

func (h *handler) require(w http.ResponseWriter, r *http.Request, perm auth.Permission) (auth.Principal, bool) {
	principal, ok := h.principal(w, r)
	if !ok {
		return auth.Principal{}, false
	}
	if !principal.Can(perm) {
		writeFailure(w, errors.Forbidden("Insufficient permissions"))
		return auth.Principal{}, false
	}
	return principal, true
}

// --- infrastructure endpoints ------------------------------------------------

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeFailure(w, errors.Validation(err.Error()))
		return
	}

	account, err := h.app.Users.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}
	token, err := h.app.Auth.Issue(&account)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  account,
	})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeFailure(w, errors.Validation(err.Error()))
		return
	}
	role := user.RoleIndividual
	if payload.Role != "" {
		parsed, err := user.ParseRole(payload.Role)
		if err != nil {
			writeFailure(w, errors.Validation(err.Error()))
			return
		}
		// Privileged roles are assigned by an administrator, never self-claimed.
		if parsed == user.RoleAdmin || parsed == user.RoleAgent {
			writeFailure(w, errors.Forbidden("Role cannot be self-assigned"))
			return
		}
		role = parsed
	}
	if payload.Password == "" {
		writeFailure(w, errors.Validation("password is required"))
		return
	}

	account, err := h.app.Users.Ensure(r.Context(), payload.Email, payload.Name, payload.Password, role)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// --- balances ----------------------------------------------------------------

func (h *handler) fuelBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	balances, err := h.app.Ledger.Balances(r.Context(), principal.UserID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	out := make(map[string]string, len(balances))
	for _, b := range balances {
		out[string(b.Kind)] = fmt.Sprintf("%.2f", b.Quantity)
	}
	writeJSON(w, http.StatusOK, out)
}

// --- coupons -----------------------------------------------------------------

func (h *handler) coupons(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		principal, ok := h.require(w, r, auth.PermIssueCoupons)
		if !ok {
			return
		}
		var payload struct {
			FuelKind    string     `json:"fuel_kind"`
			Quantity    float64    `json:"quantity"`
			Description string     `json:"description"`
			ExpiresAt   *time.Time `json:"expires_at"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeFailure(w, errors.Validation(err.Error()))
			return
		}
		var expiresAt time.Time
		if payload.ExpiresAt != nil {
			expiresAt = payload.ExpiresAt.UTC()
		}
		created, err := h.app.Coupons.Create(r.Context(), fuel.Kind(payload.FuelKind), payload.Quantity, payload.Description, expiresAt, principal.UserID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		if _, ok := h.require(w, r, auth.PermIssueCoupons); !ok {
			return
		}
		list, err := h.app.Coupons.List(r.Context())
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) couponResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/coupons"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if parts[0] == "redeem" && len(parts) == 1 {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		principal, ok := h.require(w, r, auth.PermRedeemCoupons)
		if !ok {
			return
		}
		var payload struct {
			Code string `json:"code"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeFailure(w, errors.Validation(err.Error()))
			return
		}
		redeemed, balance, err := h.app.Coupons.Redeem(r.Context(), payload.Code, principal.UserID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"coupon":  redeemed,
			"balance": balance,
		})
		return
	}

	couponID := parts[0]
	if len(parts) == 2 && parts[1] == "deactivate" {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		principal, ok := h.require(w, r, auth.PermIssueCoupons)
		if !ok {
			return
		}
		updated, err := h.app.Coupons.Deactivate(r.Context(), couponID, principal.UserID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, ok := h.require(w, r, auth.PermIssueCoupons); !ok {
			return
		}
		c, err := h.app.Coupons.Get(r.Context(), couponID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

// --- vehicles ----------------------------------------------------------------

func (h *handler) vehicles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		principal, ok := h.require(w, r, auth.PermRegisterVehicle)
		if !ok {
			return
		}
		var payload struct {
			Registration string `json:"registration"`
			FuelKind     string `json:"fuel_kind"`
			CompanyID    string `json:"company_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeFailure(w, errors.Validation(err.Error()))
			return
		}
		created, err := h.app.Vehicles.Register(r.Context(), vehicle.Vehicle{
			Registration: payload.Registration,
			OwnerID:      principal.UserID,
			CompanyID:    payload.CompanyID,
			FuelKind:     fuel.Kind(payload.FuelKind),
		})
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		ownerID := principal.UserID
		if principal.Can(auth.PermApproveVehicles) {
			ownerID = r.URL.Query().Get("owner_id")
		}
		list, err := h.app.Vehicles.List(r.Context(), ownerID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) vehicleResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/vehicles"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if parts[0] == "pending" && len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, ok := h.require(w, r, auth.PermApproveVehicles); !ok {
			return
		}
		list, err := h.app.Vehicles.ListPending(r.Context())
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	vehicleID := parts[0]
	if len(parts) == 2 {
		switch parts[1] {
		case "approve":
			if r.Method != http.MethodPatch {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			principal, ok := h.require(w, r, auth.PermApproveVehicles)
			if !ok {
				return
			}
			approved, err := h.app.Vehicles.Approve(r.Context(), vehicleID, principal.UserID)
			if err != nil {
				writeFailure(w, err)
				return
			}
			writeJSON(w, http.StatusOK, approved)
			return
		case "reject":
			if r.Method != http.MethodPatch {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			principal, ok := h.require(w, r, auth.PermApproveVehicles)
			if !ok {
				return
			}
			var payload struct {
				Reason string `json:"reason"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeFailure(w, errors.Validation(err.Error()))
				return
			}
			rejected, err := h.app.Vehicles.Reject(r.Context(), vehicleID, principal.UserID, payload.Reason)
			if err != nil {
				writeFailure(w, err)
				return
			}
			writeJSON(w, http.StatusOK, rejected)
			return
		}
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		v, err := h.app.Vehicles.Get(r.Context(), vehicleID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		if v.OwnerID != principal.UserID && !principal.Can(auth.PermApproveVehicles) {
			writeFailure(w, errors.Forbidden("Not your vehicle"))
			return
		}
		writeJSON(w, http.StatusOK, v)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

// --- transactions ------------------------------------------------------------

func (h *handler) transactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	userID := principal.UserID
	if principal.Can(auth.PermViewDashboard) {
		userID = r.URL.Query().Get("user_id")
	}
	list, err := h.app.Transactions.List(r.Context(), userID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) transactionResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/transactions"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if len(parts) == 1 {
		switch parts[0] {
		case "fuel-purchase":
			h.fuelPurchase(w, r)
			return
		case "transfer":
			h.transfer(w, r)
			return
		case "top-up":
			h.topUp(w, r)
			return
		default:
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			principal, ok := h.principal(w, r)
			if !ok {
				return
			}
			txn, err := h.app.Transactions.Get(r.Context(), parts[0])
			if err != nil {
				writeFailure(w, err)
				return
			}
			if txn.UserID != principal.UserID && !principal.Can(auth.PermViewDashboard) {
				writeFailure(w, errors.Forbidden("Not your transaction"))
				return
			}
			writeJSON(w, http.StatusOK, txn)
			return
		}
	}

	if len(parts) == 2 && parts[1] == "status" {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, ok := h.require(w, r, auth.PermSettleTxns); !ok {
			return
		}
		var payload struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeFailure(w, errors.Validation(err.Error()))
			return
		}
		updated, err := h.app.Transactions.UpdateStatus(r.Context(), parts[0], transaction.Status(payload.Status))
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) fuelPurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := h.require(w, r, auth.PermRecordPurchase)
	if !ok {
		return
	}
	var payload struct {
		UserID      string  `json:"user_id"`
		VehicleID   string  `json:"vehicle_id"`
		FuelKind    string  `json:"fuel_kind"`
		Quantity    float64 `json:"quantity"`
		AmountValue float64 `json:"amount_value"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeFailure(w, errors.Validation(err.Error()))
		return
	}

	// The station attendant records the sale against their own merchant
	// record; the buyer comes from the payload.
	merchantID := ""
	if m, err := h.app.Merchants.GetByUser(r.Context(), principal.UserID); err == nil {
		merchantID = m.ID
	} else if !errors.Is(err, storage.ErrNotFound) {
		writeFailure(w, err)
		return
	}

	settled, balance, err := h.app.Transactions.Purchase(r.Context(), transaction.Transaction{
		UserID:      payload.UserID,
		VehicleID:   payload.VehicleID,
		MerchantID:  merchantID,
		EmployeeID:  principal.UserID,
		FuelKind:    fuel.Kind(payload.FuelKind),
		Quantity:    payload.Quantity,
		AmountValue: payload.AmountValue,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": settled,
		"balance":     balance,
	})
}

func (h *handler) transfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := h.require(w, r, auth.PermTransferFuel)
	if !ok {
		return
	}
	var payload struct {
		RecipientID string  `json:"recipient_id"`
		FuelKind    string  `json:"fuel_kind"`
		Quantity    float64 `json:"quantity"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeFailure(w, errors.Validation(err.Error()))
		return
	}

	settled, err := h.app.Transactions.Transfer(r.Context(), transaction.Transaction{
		UserID:   principal.UserID,
		FuelKind: fuel.Kind(payload.FuelKind),
		Quantity: payload.Quantity,
	}, payload.RecipientID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, settled)
}

func (h *handler) topUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := h.require(w, r, auth.PermTopUp)
	if !ok {
		return
	}
	var payload struct {
		UserID      string  `json:"user_id"`
		FuelKind    string  `json:"fuel_kind"`
		Quantity    float64 `json:"quantity"`
		AmountValue float64 `json:"amount_value"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeFailure(w, errors.Validation(err.Error()))
		return
	}
	userID := principal.UserID
	if payload.UserID != "" && principal.Can(auth.PermManageUsers) {
		userID = payload.UserID
	}

	settled, balance, err := h.app.Transactions.TopUp(r.Context(), transaction.Transaction{
		UserID:      userID,
		FuelKind:    fuel.Kind(payload.FuelKind),
		Quantity:    payload.Quantity,
		AmountValue: payload.AmountValue,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": settled,
		"balance":     balance,
	})
}

// --- merchants and withdrawals -----------------------------------------------

func (h *handler) merchantMe(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		principal, ok := h.require(w, r, auth.PermWithdraw)
		if !ok {
			return
		}
		m, err := h.app.Merchants.GetByUser(r.Context(), principal.UserID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)

	case http.MethodPost:
		principal, ok := h.require(w, r, auth.PermWithdraw)
		if !ok {
			return
		}
		var payload struct {
			StationName string `json:"station_name"`
			Address     string `json:"address"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeFailure(w, errors.Validation(err.Error()))
			return
		}
		m, err := h.app.Merchants.Ensure(r.Context(), principal.UserID, payload.StationName, payload.Address)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) withdrawals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		principal, ok := h.require(w, r, auth.PermWithdraw)
		if !ok {
			return
		}
		var payload struct {
			Amount float64 `json:"amount"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeFailure(w, errors.Validation(err.Error()))
			return
		}
		m, err := h.app.Merchants.GetByUser(r.Context(), principal.UserID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		created, err := h.app.Merchants.RequestWithdrawal(r.Context(), m.ID, payload.Amount)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		merchantID := ""
		if !principal.Can(auth.PermProcessPayout) {
			m, err := h.app.Merchants.GetByUser(r.Context(), principal.UserID)
			if err != nil {
				writeFailure(w, err)
				return
			}
			merchantID = m.ID
		}
		list, err := h.app.Merchants.ListWithdrawals(r.Context(), merchantID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) withdrawalResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/withdrawals"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	withdrawalID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		principal, ok := h.require(w, r, auth.PermProcessPayout)
		if !ok {
			return
		}
		var payload struct {
			Approve *bool  `json:"approve"`
			Notes   string `json:"notes"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeFailure(w, errors.Validation(err.Error()))
			return
		}
		if payload.Approve == nil {
			writeFailure(w, errors.Validation("approve is required"))
			return
		}
		processed, err := h.app.Merchants.ProcessWithdrawal(r.Context(), withdrawalID, *payload.Approve, principal.UserID, payload.Notes)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, processed)
		return
	}

	if len(parts) == 2 && parts[1] == "complete" {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, ok := h.require(w, r, auth.PermProcessPayout); !ok {
			return
		}
		completed, err := h.app.Merchants.CompleteWithdrawal(r.Context(), withdrawalID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, completed)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

// --- dashboard, users, audit -------------------------------------------------

func (h *handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.require(w, r, auth.PermViewDashboard); !ok {
		return
	}
	stats, err := h.app.Dashboard.Stats(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.require(w, r, auth.PermManageUsers); !ok {
		return
	}
	list, err := h.app.Users.List(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) userResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	userID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			principal, ok := h.principal(w, r)
			if !ok {
				return
			}
			if userID != principal.UserID && !principal.Can(auth.PermManageUsers) {
				writeFailure(w, errors.Forbidden("Insufficient permissions"))
				return
			}
			u, err := h.app.Users.Get(r.Context(), userID)
			if err != nil {
				writeFailure(w, err)
				return
			}
			writeJSON(w, http.StatusOK, u)
		case http.MethodPatch:
			if _, ok := h.require(w, r, auth.PermManageUsers); !ok {
				return
			}
			var payload struct {
				Name      string `json:"name"`
				Role      string `json:"role"`
				CompanyID string `json:"company_id"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeFailure(w, errors.Validation(err.Error()))
				return
			}
			updated, err := h.app.Users.Update(r.Context(), user.User{
				ID:        userID,
				Name:      payload.Name,
				Role:      user.Role(payload.Role),
				CompanyID: payload.CompanyID,
			})
			if err != nil {
				writeFailure(w, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "status" {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, ok := h.require(w, r, auth.PermManageUsers); !ok {
			return
		}
		var payload struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeFailure(w, errors.Validation(err.Error()))
			return
		}
		updated, err := h.app.Users.SetStatus(r.Context(), userID, user.Status(payload.Status))
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.require(w, r, auth.PermManageUsers); !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, errors.Validation("limit must be an integer"))
			return
		}
		limit = parsed
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

// --- JSON helpers ------------------------------------------------------------

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeFailure maps service and storage errors onto the API status taxonomy.
func writeFailure(w http.ResponseWriter, err error) {
	if svcErr := errors.GetServiceError(err); svcErr != nil {
		writeJSON(w, svcErr.HTTPStatus, map[string]interface{}{"error": svcErr})
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicate), errors.Is(err, storage.ErrConflict):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]interface{}{"error": map[string]string{"message": err.Error()}})
}
