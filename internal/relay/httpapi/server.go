// Package httpapi serves the relay over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/lovabuddy/internal/observability"
	"github.com/yungbote/lovabuddy/internal/platform/logger"
	"github.com/yungbote/lovabuddy/internal/relay/config"
	"github.com/yungbote/lovabuddy/internal/relay/handoff"
	"github.com/yungbote/lovabuddy/internal/relay/service"
	"github.com/yungbote/lovabuddy/internal/relay/tts"
)

type Deps struct {
	Relay    *service.Service
	Speech   *tts.Service
	Handoffs *handoff.Store
	Metrics  *observability.Metrics
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(context.Context) error
}

func NewServer(cfg *config.Config, log *logger.Logger, deps Deps) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           NewHandler(cfg, log, deps),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
	}
}

func NewHandler(cfg *config.Config, log *logger.Logger, deps Deps) *gin.Engine {
	if log == nil {
		log = logger.Nop()
	}
	h := &handlers{log: log.With("component", "httpapi"), cfg: cfg, deps: deps}

	r := gin.New()
	r.Use(otelgin.Middleware("lovabuddy-relay"))
	r.Use(attachTraceContext())
	r.Use(requestLogger(log))
	r.Use(recoverer(log))
	r.Use(corsMiddleware(cfg.HTTP.CORSOrigins))
	r.Use(metrics(deps.Metrics))

	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("/")
	api.Use(bodyLimit(cfg.HTTP.MaxRequestBytes))
	if cfg.AuthEnabled() {
		api.Use(requireAuth(cfg.Auth, log))
	}
	{
		api.POST("/analyze/describe", h.describe)
		api.POST("/analyze/drawing", h.drawing)

		api.POST("/conversation/plan", h.plan)
		api.POST("/conversation/final", h.final)
		api.POST("/conversation/improve", h.improve)

		api.POST("/tts", h.speak)
		api.POST("/tts/batch", h.speakBatch)

		api.GET("/handoff/:id", h.getHandoff)
		api.POST("/handoff/:id/consume", h.consumeHandoff)

		api.POST("/cards/render", h.renderCard)
	}

	r.NoRoute(func(c *gin.Context) {
		writeError(c, errNoRoute)
	})
	return r
}

type handlers struct {
	log  *logger.Logger
	cfg  *config.Config
	deps Deps
}
