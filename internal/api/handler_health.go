package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lorry-parking-backend/internal/clock"
)

const healthTimeout = 2 * time.Second

// Health handles GET /api/health.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.WithError(err).Error("health check: database unreachable")
		respondFail(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondOK(c, http.StatusOK, nil, gin.H{
		"db":        h.storeName(),
		"timestamp": clock.ISO(h.clock.Now()),
	})
}

// storeName identifies the database without exposing credentials: the file
// path for SQLite, the driver name otherwise.
func (h *Handler) storeName() string {
	if h.cfg.Database.Driver == "sqlite" || h.cfg.Database.Driver == "sqlite3" {
		return h.cfg.Database.DSN
	}
	return h.cfg.Database.Driver
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, stats, nil)
}
