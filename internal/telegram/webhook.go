package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthFunc reports whether the process can serve updates.
type HealthFunc func(ctx context.Context) error

// NewWebhookRouter builds the HTTP ingress for webhook mode: POST path forwards to
// updates, GET /healthz runs health.
func NewWebhookRouter(path string, updates http.Handler, health HealthFunc, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	log := logger.With("component", "webhook")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.POST(path, gin.WrapH(updates))
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := health(ctx); err != nil {
			log.WarnContext(ctx, "Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.DebugContext(c.Request.Context(), "Webhook request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
