// Package auth issues and verifies access tokens and maps roles to the
// permissions the HTTP layer enforces.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/errors"
)

// Permission names a single guarded capability. The set is closed; handlers
// check permissions, never role strings.
type Permission string

const (
	PermManageUsers     Permission = "users:manage"
	PermIssueCoupons    Permission = "coupons:issue"
	PermRedeemCoupons   Permission = "coupons:redeem"
	PermApproveVehicles Permission = "vehicles:approve"
	PermRegisterVehicle Permission = "vehicles:register"
	PermRecordPurchase  Permission = "transactions:purchase"
	PermTransferFuel    Permission = "transactions:transfer"
	PermTopUp           Permission = "transactions:topup"
	PermWithdraw        Permission = "withdrawals:request"
	PermProcessPayout   Permission = "withdrawals:process"
	PermSettleTxns      Permission = "transactions:settle"
	PermViewDashboard   Permission = "dashboard:view"
)

var rolePermissions = map[user.Role][]Permission{
	user.RoleIndividual: {PermRedeemCoupons, PermRegisterVehicle, PermTransferFuel},
	user.RoleCorporate:  {PermRedeemCoupons, PermRegisterVehicle, PermTransferFuel, PermTopUp},
	user.RoleGovernment: {PermRedeemCoupons, PermRegisterVehicle, PermTransferFuel, PermTopUp},
	user.RoleMerchant:   {PermRecordPurchase, PermWithdraw},
	user.RoleAgent:      {PermIssueCoupons, PermApproveVehicles},
	user.RoleAdmin: {
		PermManageUsers, PermIssueCoupons, PermRedeemCoupons, PermApproveVehicles,
		PermRegisterVehicle, PermRecordPurchase, PermTransferFuel, PermTopUp,
		PermWithdraw, PermProcessPayout, PermSettleTxns, PermViewDashboard,
	},
}

// Allowed reports whether role carries perm.
func Allowed(role user.Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	UserID string
	Role   user.Role
}

// Can reports whether the principal holds perm.
func (p Principal) Can(perm Permission) bool {
	return Allowed(p.Role, perm)
}

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for u valid for the manager's TTL.
func (m *Manager) Issue(u *user.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Internal("failed to sign token", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns the principal it carries.
func (m *Manager) Verify(tokenString string) (Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.InvalidToken(nil).WithDetails("method", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Principal{}, errors.InvalidToken(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, errors.InvalidToken(nil)
	}
	role, err := user.ParseRole(claims.Role)
	if err != nil {
		return Principal{}, errors.InvalidToken(err)
	}
	return Principal{UserID: claims.UserID, Role: role}, nil
}

// FromHeader verifies the Authorization header value of a request.
func (m *Manager) FromHeader(header string) (Principal, error) {
	if header == "" {
		return Principal{}, errors.Unauthorized("Missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return Principal{}, errors.Unauthorized("Invalid Authorization header format")
	}
	return m.Verify(parts[1])
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Internal("failed to hash password", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
