package router

import (
	"net/http"

	"emotion-character-demo/backend/internal/api"
	"emotion-character-demo/backend/internal/ws"
	"emotion-character-demo/backend/pkg/config"
	"emotion-character-demo/backend/pkg/di"
	"emotion-character-demo/backend/pkg/errors"
	"emotion-character-demo/backend/pkg/logger"
	"emotion-character-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported by the health endpoints; set at build time
var Version = "dev"

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates the engine with the global middleware chain
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		container.Logger.LogError(err, "Invalid trusted proxies, trusting none")
		_ = engine.SetTrustedProxies(nil)
	}

	// request id first so every later log line carries it
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	engine.Use(limitBody(cfg.Security.MaxBodySize))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	c := r.Container
	limit := r.Config.Recommendation.DefaultLimit

	health := c.Health.Handler(Version)
	r.Engine.GET("/health", health)
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jwtAuth := middleware.JWTAuthMiddleware(c.JWTService)
	// the limiter keys on the user id, so it runs after authentication
	limited := c.RateLimiter.Middleware()

	v1 := r.Engine.Group("/api/v1")
	v1.GET("/health", health)

	protected := v1.Group("")
	protected.Use(jwtAuth, limited)
	{
		api.NewCharacterHandler(c.CharacterService, c.RecommendationService, limit).RegisterRoutes(protected)
		api.NewEmotionHandler(c.EmotionService, c.RecommendationService, limit).RegisterRoutes(protected)
		api.NewConversationHandler(c.ConversationService, c.Orchestrator).RegisterRoutes(protected)
		api.NewCreditHandler(c.CreditService).RegisterRoutes(protected)
	}

	wsHandler := ws.NewHandler(c.Hub, c.Orchestrator, c.ConversationService, r.Config.Security.AllowedOrigins, r.Logger)
	r.Engine.GET("/ws/conversations/:id", jwtAuth, limited, wsHandler.ServeConversation)
}

func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
