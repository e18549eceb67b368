package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/errors"
)

func TestIssueAndVerify(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)
	u := &user.User{ID: "u-1", Email: "driver@example.com", Role: user.RoleIndividual}

	token, err := mgr.Issue(u)
	require.NoError(t, err)

	principal, err := mgr.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", principal.UserID)
	require.Equal(t, user.RoleIndividual, principal.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).Issue(&user.User{ID: "u-1", Role: user.RoleAdmin})
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Verify(token)
	require.Error(t, err)
	require.Equal(t, 401, errors.HTTPStatus(err))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)
	mgr.ttl = -time.Minute
	token, err := mgr.Issue(&user.User{ID: "u-1", Role: user.RoleAdmin})
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	require.Error(t, err)
}

func TestFromHeader(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)
	token, err := mgr.Issue(&user.User{ID: "u-2", Role: user.RoleAgent})
	require.NoError(t, err)

	principal, err := mgr.FromHeader("Bearer " + token)
	require.NoError(t, err)
	require.Equal(t, "u-2", principal.UserID)

	_, err = mgr.FromHeader("")
	require.Error(t, err)
	_, err = mgr.FromHeader("Basic abc")
	require.Error(t, err)
}

func TestRolePermissions(t *testing.T) {
	require.True(t, Allowed(user.RoleAdmin, PermProcessPayout))
	require.True(t, Allowed(user.RoleAgent, PermIssueCoupons))
	require.False(t, Allowed(user.RoleIndividual, PermIssueCoupons))
	require.False(t, Allowed(user.RoleMerchant, PermApproveVehicles))

	p := Principal{UserID: "u-3", Role: user.RoleMerchant}
	require.True(t, p.Can(PermWithdraw))
	require.False(t, p.Can(PermViewDashboard))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.True(t, CheckPassword(hash, "hunter2"))
	require.False(t, CheckPassword(hash, "hunter3"))
}
