package auth

import (
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/config"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider() *Provider {
	return NewProvider(config.GetDefaultConfig())
}

func TestGenerateAndValidate(t *testing.T) {
	p := newTestProvider()

	tests := []struct {
		name       string
		tenantID   string
		role       string
		wantTenant string
		wantCap    types.Capability
	}{
		{"member", "ten_acme", "", "ten_acme", types.CapabilityTenantMember},
		{"admin", "ten_acme", types.RoleClaimAdmin, "ten_acme", types.CapabilityTenantAdmin},
		{"operator drops tenant claim", "ten_acme", types.RoleClaimPlatformOperator, "", types.CapabilityPlatformOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := p.GenerateToken("user_1", tt.tenantID, tt.role)
			require.NoError(t, err)

			claims, err := p.ValidateToken(token)
			require.NoError(t, err)
			assert.Equal(t, "user_1", claims.UserID)
			assert.Equal(t, tt.wantTenant, claims.TenantID)
			assert.Equal(t, tt.wantCap, claims.Capability)
		})
	}
}

func TestValidateRejects(t *testing.T) {
	p := newTestProvider()

	expired := NewProvider(config.GetDefaultConfig())
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expiredToken, err := expired.GenerateToken("user_1", "ten_acme", "")
	require.NoError(t, err)

	other := config.GetDefaultConfig()
	other.Auth.Secret = "another-secret"
	forgedToken, err := NewProvider(other).GenerateToken("user_1", "ten_acme", "")
	require.NoError(t, err)

	unknownRole, err := p.GenerateToken("user_1", "ten_acme", "superuser")
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		ClaimTenantID: "ten_acme",
	}).SignedString([]byte(config.GetDefaultConfig().Auth.Secret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expiredToken,
		"forged":       forgedToken,
		"unknown role": unknownRole,
		"no user":      noUser,
		"garbage":      "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, ierr.IsUnauthenticated(err))
		})
	}
}

func TestSetupToken(t *testing.T) {
	token, hash, err := NewSetupToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, hash)

	assert.NoError(t, VerifySetupToken(hash, token))
	assert.True(t, ierr.IsValidation(VerifySetupToken(hash, token+"x")))
}
