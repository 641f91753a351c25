package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"comment-pilot/internal/config"
	"comment-pilot/internal/handler"
	"comment-pilot/internal/metrics"
	"comment-pilot/internal/middleware"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Webhook    *handler.WebhookHandler
	Moderation *handler.ModerationHandler
	Health     *handler.HealthHandler
}

// Setup builds the gin engine with all routes and middleware.
func Setup(cfg *config.Config, h Handlers, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(nil))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Platform webhook: verified by token handshake, not JWT
	r.GET("/webhook", h.Webhook.Verify)
	r.POST("/webhook", h.Webhook.Receive)

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.Auth.SecretKey))
	{
		api.PATCH("/comments/:id/hidden", h.Moderation.SetHidden)
		api.DELETE("/comments/:id", h.Moderation.Delete)
		api.POST("/comments/:id/reply", h.Moderation.Reply)
		api.GET("/comments/:id/status", h.Moderation.Status)
		api.PATCH("/media/:id/processing", h.Moderation.SetMediaProcessing)
	}

	return r
}
