package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.store.Settings(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, settings, nil)
}

// UpdateSettings handles POST /api/settings.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.DailyRate) == 0 || string(req.DailyRate) == "null" {
		respondFail(c, http.StatusBadRequest, "daily_rate required")
		return
	}
	rate, err := decimalFromJSON(req.DailyRate)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid rate")
		return
	}

	if err := h.store.SetDailyRate(c.Request.Context(), rate); err != nil {
		h.respondError(c, err)
		return
	}
	h.log.WithField("daily_rate", rate.String()).Info("daily rate updated")
	respondOK(c, http.StatusOK, gin.H{"daily_rate": rate.InexactFloat64()}, nil)
}
