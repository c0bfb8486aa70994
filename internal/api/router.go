package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"lorry-parking-backend/config"
	"lorry-parking-backend/internal/mw"
	"lorry-parking-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.Config, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestLogger(log), gin.Recovery(), mw.CORS(cfg.Server.CORSOrigins))

	handler := NewHandler(s, cfg, log)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter, mw.FlushOnWrite(cacheStore))
	{
		api.GET("/health", handler.Health)
		api.GET("/stats", caching, handler.GetStats)

		api.GET("/settings", handler.GetSettings)
		api.POST("/settings", handler.UpdateSettings)

		api.GET("/records", handler.ListRecords)
		api.POST("/records", handler.CreateRecord)
		api.DELETE("/records", handler.DeleteAllRecords)
		api.GET("/records/:id", handler.GetRecord)
		api.PATCH("/records/:id/exit", handler.CloseRecord)
		api.DELETE("/records/:id", handler.DeleteRecord)
		api.GET("/next-token", handler.NextToken)

		api.POST("/import", handler.ImportRecords)
	}

	// The print relay is polled by the workstation every few seconds, so it
	// sits outside the per-IP limiter.
	printQueue := r.Group("/api/print-queue", mw.PrintAuth(cfg.PrintRelay.Secret))
	{
		printQueue.POST("", handler.EnqueuePrintJob)
		printQueue.GET("", handler.ListPrintJobs)
		printQueue.DELETE("", handler.PurgePrintJobs)
		printQueue.GET("/pending", handler.PendingPrintJobs)
		printQueue.PATCH("/:id/ack", handler.AcknowledgePrintJob)
		printQueue.DELETE("/:id", handler.DeletePrintJob)
	}

	r.NoRoute(staticFallback(cfg.Server.PublicDir))
	return r
}
