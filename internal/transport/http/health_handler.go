package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler exposes liveness plus cache statistics.
type HealthHandler struct {
	startedAt time.Time
	stats     func() map[string]interface{}
}

// NewHealthHandler creates a health handler. stats may be nil.
func NewHealthHandler(stats func() map[string]interface{}) *HealthHandler {
	return &HealthHandler{
		startedAt: time.Now(),
		stats:     stats,
	}
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(h.startedAt).String(),
		"service": "lcgate",
	}
	if h.stats != nil {
		body["cache"] = h.stats()
	}

	render.JSON(w, r, body)
}
