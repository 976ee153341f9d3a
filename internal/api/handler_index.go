package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

var indexRoutes = map[string]string{
	"upload":        "/api/upload",
	"summary":       "/api/summary",
	"history":       "/api/history",
	"subscriptions": "/api/subscriptions",
	"vapid":         "/api/vapid_public_key",
}

// GetIndex handles GET /api/ and lists the absolute URL of every endpoint.
func GetIndex(c *gin.Context) {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	base := scheme + "://" + c.Request.Host

	urls := make(gin.H, len(indexRoutes))
	for name, path := range indexRoutes {
		urls[name] = base + path
	}
	c.JSON(http.StatusOK, urls)
}
