package router

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/infrastructure/auth"
	"github.com/cloudfly/dian-service/internal/infrastructure/config"
	"github.com/cloudfly/dian-service/internal/infrastructure/worker"
	"github.com/cloudfly/dian-service/internal/interfaces/http/handler"
	"github.com/cloudfly/dian-service/internal/interfaces/http/middleware"
	"github.com/cloudfly/dian-service/internal/testutil"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type idleStats struct{}

func (idleStats) Stats() worker.Stats { return worker.Stats{Workers: 2} }

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func newRouter(t *testing.T, validator middleware.TokenValidator) *gin.Engine {
	t.Helper()
	system := handler.NewSystemHandler("dian-service", "test", okPinger{}, idleStats{})
	r, err := New(Config{ServiceName: "dian-service", Auth: validator}, system, zap.NewNop())
	require.NoError(t, err)
	return r.Register(pingRoutes{}).Setup()
}

func TestRouter_Open(t *testing.T) {
	engine := newRouter(t, nil)

	assert.Equal(t, http.StatusOK, testutil.Do(engine, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, testutil.Do(engine, http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, testutil.Do(engine, http.MethodGet, "/api/v1/dian/workers", nil).Code)

	w := testutil.Do(engine, http.MethodGet, "/api/v1/ping", nil)
	assert.Equal(t, "pong", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_AuthGuardsAPIOnly(t *testing.T) {
	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "test-secret-key-32-characters-long"})
	engine := newRouter(t, jwtService)

	assert.Equal(t, http.StatusOK, testutil.Do(engine, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, testutil.Do(engine, http.MethodGet, "/api/v1/ping", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, testutil.Do(engine, http.MethodGet, "/api/v1/dian/workers", nil).Code)

	token, err := jwtService.IssueToken(testutil.TenantID, "erp", time.Minute)
	require.NoError(t, err)
	w := testutil.Do(engine, http.MethodGet, "/api/v1/ping", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_InvalidTrustedProxy(t *testing.T) {
	system := handler.NewSystemHandler("dian-service", "test", okPinger{}, idleStats{})
	_, err := New(Config{TrustedProxies: []string{"not-an-ip"}}, system, zap.NewNop())
	assert.Error(t, err)
}

func TestRouter_Swagger(t *testing.T) {
	system := handler.NewSystemHandler("dian-service", "test", okPinger{}, idleStats{})
	newEngine := func(cfg Config) *gin.Engine {
		r, err := New(cfg, system, zap.NewNop())
		require.NoError(t, err)
		return r.Setup()
	}

	t.Run("disabled by default", func(t *testing.T) {
		w := testutil.Do(newEngine(Config{}), http.MethodGet, "/swagger/doc.json", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("serves the document routes", func(t *testing.T) {
		engine := newEngine(Config{Swagger: middleware.SwaggerConfig{Enabled: true}})

		w := testutil.Do(engine, http.MethodGet, "/swagger/doc.json", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"/dian/documents/{id}"`)
		assert.Contains(t, body, `"/dian/documents/by-source"`)
		assert.Contains(t, body, `"/dian/workers"`)
		assert.Contains(t, body, `"basePath": "/api/v1"`)
	})

	t.Run("behind api auth", func(t *testing.T) {
		jwtService := auth.NewJWTService(config.JWTConfig{Secret: "test-secret-key-32-characters-long"})
		engine := newEngine(Config{Auth: jwtService, Swagger: middleware.SwaggerConfig{Enabled: true, RequireAuth: true}})

		assert.Equal(t, http.StatusUnauthorized, testutil.Do(engine, http.MethodGet, "/swagger/doc.json", nil).Code)

		token, err := jwtService.IssueToken(testutil.TenantID, "erp", time.Minute)
		require.NoError(t, err)
		w := testutil.Do(engine, http.MethodGet, "/swagger/doc.json", http.Header{"Authorization": {"Bearer " + token}})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
