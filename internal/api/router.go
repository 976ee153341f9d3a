package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"chemviz-backend/config"
	"chemviz-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, handler *Handler, responseCache *mw.ResponseCache) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	caching := responseCache.Handler()

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/", GetIndex)

		api.POST("/upload", handler.Upload)
		api.GET("/summary", caching, handler.GetSummary)
		api.GET("/history", caching, handler.GetHistory)
		api.GET("/history/:id", caching, handler.GetDataset)
		api.GET("/report/:id", caching, handler.GetReport)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
