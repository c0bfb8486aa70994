package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lorry-parking-backend/internal/mw"
	"lorry-parking-backend/internal/store"
)

// respondOK writes the success envelope. Extra top-level fields go in fields;
// data is omitted when nil.
func respondOK(c *gin.Context, status int, data any, fields gin.H) {
	body := gin.H{"ok": true}
	if data != nil {
		body["data"] = data
	}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func respondMessage(c *gin.Context, msg string) {
	respondOK(c, http.StatusOK, nil, gin.H{"message": msg})
}

func respondFail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}

// respondError maps store errors to status codes. Anything unclassified is
// logged and reported without detail.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		respondFail(c, http.StatusNotFound, "Record not found")
	case errors.Is(err, store.ErrJobNotFound):
		respondFail(c, http.StatusNotFound, "Job not found")
	case errors.Is(err, store.ErrNotFound):
		respondFail(c, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrValidation):
		respondFail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		respondFail(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		h.log.WithError(err).
			WithField("request_id", mw.RequestID(c)).
			Error("request failed")
		respondFail(c, http.StatusInternalServerError, "internal server error")
	}
}
