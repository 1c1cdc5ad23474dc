package handlers

import (
	"net/http"
	"time"

	"eventpulse/backend/internal/api"
	"eventpulse/backend/internal/dedup"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles service-level HTTP requests
type SystemHandler struct {
	orch      *dedup.Orchestrator
	startedAt time.Time
	version   string
}

func NewSystemHandler(orch *dedup.Orchestrator, version string) *SystemHandler {
	return &SystemHandler{
		orch:      orch,
		startedAt: time.Now(),
		version:   version,
	}
}

// HealthResponse wraps the engine health status with service metadata
type HealthResponse struct {
	dedup.HealthStatus
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Health reports engine health. Degraded components return 503 so load
// balancers can rotate the instance out.
func (h *SystemHandler) Health(c *gin.Context) {
	status := h.orch.HealthCheck()

	response := HealthResponse{
		HealthStatus: status,
		Version:      h.version,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
	}

	code := http.StatusOK
	if status.Status == dedup.HealthError {
		code = http.StatusServiceUnavailable
	}

	api.SendSuccess(c, code, response)
}
