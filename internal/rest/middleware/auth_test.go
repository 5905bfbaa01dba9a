package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/auth"
	"github.com/flexprice/tenantcore/internal/config"
	domainTenant "github.com/flexprice/tenantcore/internal/domain/tenant"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/metrics"
	"github.com/flexprice/tenantcore/internal/tenancy"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolvedRouter(t *testing.T, handlers ...gin.HandlerFunc) (*gin.Engine, *auth.Provider) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	provider := auth.NewProvider(config.GetDefaultConfig())
	tenants := testutil.NewInMemoryTenantStore()
	for _, id := range []string{"ten_acme", "ten_globex"} {
		now := time.Now().UTC()
		require.NoError(t, tenants.Create(ctx, &domainTenant.Tenant{
			ID:        id,
			Name:      id,
			Status:    types.TenantStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}

	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(TenantContextMiddleware(tenancy.NewResolver(provider, tenants, logger.NewNopLogger()), metrics.NewMetrics()))
	chain := append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, types.GetTenantID(c.Request.Context()))
	})
	r.GET("/probe", chain...)
	return r, provider
}

func probe(t *testing.T, r *gin.Engine, provider *auth.Provider, tenantID, role, selector string) *httptest.ResponseRecorder {
	token, err := provider.GenerateToken("user_1", tenantID, role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(types.HeaderAuthorization, "Bearer "+token)
	if selector != "" {
		req.Header.Set(types.HeaderTenantID, selector)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTenantContextMiddleware(t *testing.T) {
	r, provider := newResolvedRouter(t)

	t.Run("claim is authoritative", func(t *testing.T) {
		w := probe(t, r, provider, "ten_acme", types.RoleClaimMember, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ten_acme", w.Body.String())
	})

	t.Run("matching selector", func(t *testing.T) {
		w := probe(t, r, provider, "ten_acme", types.RoleClaimMember, "ten_acme")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ten_acme", w.Body.String())
	})

	t.Run("mismatched selector", func(t *testing.T) {
		w := probe(t, r, provider, "ten_acme", types.RoleClaimMember, "ten_globex")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "access denied", decodeError(t, w)["message"])
		assert.NotContains(t, w.Body.String(), "ten_globex")
	})

	t.Run("missing credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("platform operator ignores selector", func(t *testing.T) {
		w := probe(t, r, provider, "", types.RoleClaimPlatformOperator, "ten_globex")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, types.PlatformTenantID, w.Body.String())
	})
}

func TestRequireCapability(t *testing.T) {
	r, provider := newResolvedRouter(t, RequireCapability(types.CapabilityTenantAdmin))

	tests := []struct {
		name     string
		tenantID string
		role     string
		want     int
	}{
		{"member is rejected", "ten_acme", types.RoleClaimMember, http.StatusForbidden},
		{"admin passes", "ten_acme", types.RoleClaimAdmin, http.StatusOK},
		{"operator holds no tenant capability", "", types.RoleClaimPlatformOperator, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := probe(t, r, provider, tt.tenantID, tt.role, "")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
