package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc checks a backing service. A nil PingFunc always passes.
type PingFunc func(ctx context.Context) error

// Health reports store reachability and, when given, the product cache counters.
func Health(ping PingFunc, stats func() map[string]interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /health"
		defer handlePanic(c, route)

		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				requestLogger(c).Warn("health check failed", slog.Any("error", err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
				return
			}
		}
		body := gin.H{"status": "ok", "time": time.Now().UTC()}
		if stats != nil {
			body["cache"] = stats()
		}
		c.JSON(http.StatusOK, body)
	}
}
