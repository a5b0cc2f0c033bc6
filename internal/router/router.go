package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/notify-engine/internal/handler/health"
	"github.com/jwalitptl/notify-engine/internal/handler/prometheus"
	"github.com/jwalitptl/notify-engine/internal/middleware"
	"github.com/jwalitptl/notify-engine/pkg/logger"
)

// Handler is implemented by every resource handler package.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	// RateLimit is requests per second per client IP; zero disables
	// the limiter.
	RateLimit float64
	RateBurst int
	CORS      middleware.CORSConfig
	// AuthEnabled gates the admin surface behind bearer tokens. The
	// trigger ingress is always authenticated when auth is on.
	AuthEnabled bool
}

type Router struct {
	engine  *gin.Engine
	config  Config
	auth    *middleware.AuthMiddleware
	healthH *health.Handler
	promH   *prometheus.Handler

	workflowH Handler
	gatewayH  Handler
	templateH Handler
	messageH  Handler
	triggerH  Handler
}

func New(
	log *logger.Logger,
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	promH *prometheus.Handler,
	workflowH Handler,
	gatewayH Handler,
	templateH Handler,
	messageH Handler,
	triggerH Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	middleware.RegisterValidators()
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		promH.Middleware(),
		middleware.CORS(config.CORS),
	)

	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(config.RateLimit, config.RateBurst)
		engine.Use(limiter.RateLimit())
	}

	return &Router{
		engine:    engine,
		config:    config,
		auth:      auth,
		healthH:   healthH,
		promH:     promH,
		workflowH: workflowH,
		gatewayH:  gatewayH,
		templateH: templateH,
		messageH:  messageH,
		triggerH:  triggerH,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.promH.Handler())

	api := r.engine.Group("/api/v1")
	r.healthH.RegisterRoutes(api)

	protected := api.Group("")
	if r.config.AuthEnabled {
		protected.Use(r.auth.Authenticate())
	}

	r.workflowH.RegisterRoutes(protected)
	r.gatewayH.RegisterRoutes(protected)
	r.templateH.RegisterRoutes(protected)
	r.messageH.RegisterRoutes(protected)
	r.triggerH.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
