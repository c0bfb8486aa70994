package api

import (
	"time"

	"github.com/sirupsen/logrus"

	"lorry-parking-backend/config"
	"lorry-parking-backend/internal/clock"
	"lorry-parking-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store store.Store
	cfg   *config.Config
	clock clock.Clock
	loc   *time.Location
	log   logrus.FieldLogger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, cfg *config.Config, log logrus.FieldLogger) *Handler {
	return &Handler{
		store: s,
		cfg:   cfg,
		clock: clock.System{},
		loc:   clock.LoadLocation(cfg.Billing.Timezone),
		log:   log,
	}
}
