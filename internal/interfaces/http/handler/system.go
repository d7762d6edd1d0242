package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cloudfly/dian-service/internal/infrastructure/worker"
	"github.com/cloudfly/dian-service/internal/interfaces/http/dto"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolStats exposes worker pool counters
type PoolStats interface {
	Stats() worker.Stats
}

// SystemHandler serves liveness, readiness and worker pool status
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	db        Pinger
	pool      PoolStats
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, db Pinger, pool PoolStats) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		db:        db,
		pool:      pool,
	}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Name      string `json:"name" example:"dian-service"`
	Version   string `json:"version" example:"1.4.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// ReadyResponse is the readiness payload
type ReadyResponse struct {
	Status string `json:"status" example:"ready"`
}

// Health godoc
// @ID           getSystemHealth
// @Summary      Liveness probe
// @Description  Reports the process is up, with build and uptime details
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Ready godoc
// @ID           getSystemReady
// @Summary      Readiness probe
// @Description  Pings the document store
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=ReadyResponse}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "database unavailable")
		return
	}
	h.Success(c, ReadyResponse{Status: "ready"})
}

// Workers godoc
// @ID           getDianWorkers
// @Summary      Worker pool status
// @Description  Returns the counters of the document worker pool
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=worker.Stats}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /dian/workers [get]
func (h *SystemHandler) Workers(c *gin.Context) {
	h.Success(c, h.pool.Stats())
}
