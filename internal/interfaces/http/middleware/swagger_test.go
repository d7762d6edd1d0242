package middleware

import (
	"net/http"
	"net/netip"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/infrastructure/auth"
	"github.com/cloudfly/dian-service/internal/infrastructure/config"
	"github.com/cloudfly/dian-service/internal/testutil"
)

func TestSwaggerProtection(t *testing.T) {
	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "test-secret-key-32-characters-long", Issuer: "dian-service"})

	newEngine := func(cfg SwaggerConfig) *gin.Engine {
		engine := gin.New()
		engine.GET("/swagger/*any", SwaggerProtection(cfg, JWTAuth(jwtService, zap.NewNop())), func(c *gin.Context) {
			c.String(http.StatusOK, "docs")
		})
		return engine
	}

	t.Run("disabled answers not found", func(t *testing.T) {
		w := testutil.Do(newEngine(SwaggerConfig{}), http.MethodGet, "/swagger/index.html", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
	})

	t.Run("enabled and open", func(t *testing.T) {
		w := testutil.Do(newEngine(SwaggerConfig{Enabled: true}), http.MethodGet, "/swagger/index.html", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "docs", w.Body.String())
	})

	// httptest requests arrive from 192.0.2.1
	t.Run("client inside allowed range", func(t *testing.T) {
		cfg := SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.0.2.0/24"}}
		w := testutil.Do(newEngine(cfg), http.MethodGet, "/swagger/index.html", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("client outside allowed list", func(t *testing.T) {
		cfg := SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1", "not-an-ip"}}
		w := testutil.Do(newEngine(cfg), http.MethodGet, "/swagger/index.html", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
	})

	t.Run("auth required without token", func(t *testing.T) {
		w := testutil.Do(newEngine(SwaggerConfig{Enabled: true, RequireAuth: true}), http.MethodGet, "/swagger/index.html", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "docs")
	})

	t.Run("auth required with token", func(t *testing.T) {
		token, err := jwtService.IssueToken(testutil.TenantID, "erp", time.Minute)
		require.NoError(t, err)

		w := testutil.Do(newEngine(SwaggerConfig{Enabled: true, RequireAuth: true}), http.MethodGet, "/swagger/index.html",
			http.Header{AuthHeaderKey: {BearerPrefix + token}})

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestParsePrefixes(t *testing.T) {
	prefixes := parsePrefixes([]string{" 10.1.2.3 ", "172.16.5.9/12", "::1", "bogus", "10.0.0.0/99"})
	require.Len(t, prefixes, 3)

	assert.True(t, ipAllowed(netip.MustParseAddr("10.1.2.3"), prefixes))
	assert.False(t, ipAllowed(netip.MustParseAddr("10.1.2.4"), prefixes))
	assert.True(t, ipAllowed(netip.MustParseAddr("172.31.255.1"), prefixes))
	assert.True(t, ipAllowed(netip.MustParseAddr("::1"), prefixes))
	assert.False(t, ipAllowed(netip.Addr{}, prefixes))
}
