package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/slotwise/booking-api/internal/handler/appointmenttype"
	"github.com/slotwise/booking-api/internal/handler/auth"
	"github.com/slotwise/booking-api/internal/handler/availability"
	"github.com/slotwise/booking-api/internal/handler/billing"
	"github.com/slotwise/booking-api/internal/handler/booking"
	"github.com/slotwise/booking-api/internal/handler/calendar"
	"github.com/slotwise/booking-api/internal/handler/health"
	"github.com/slotwise/booking-api/internal/handler/organization"
	"github.com/slotwise/booking-api/internal/handler/public"
	"github.com/slotwise/booking-api/internal/handler/user"
	"github.com/slotwise/booking-api/internal/middleware"
	"github.com/slotwise/booking-api/pkg/logger"
)

type Handlers struct {
	Health          *health.Handler
	Auth            *auth.Handler
	Organization    *organization.Handler
	User            *user.Handler
	AppointmentType *appointmenttype.Handler
	Availability    *availability.Handler
	Booking         *booking.Handler
	Billing         *billing.Handler
	Calendar        *calendar.Handler
	Public          *public.Handler
}

type Config struct {
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	MetricsPrefix  string
	Release        bool
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func New(authMW *middleware.AuthMiddleware, handlers Handlers, log *logger.Logger, cfg Config) *Router {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	engine := gin.New()
	r := &Router{
		engine:   engine,
		auth:     authMW,
		handlers: handlers,
		metrics:  newRouterMetrics(cfg.MetricsPrefix),
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		r.metricsMiddleware(),
		middleware.CORS(cfg.CORS),
	)
	if cfg.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	r.setup()
	return r
}

func (r *Router) setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	r.handlers.Health.RegisterRoutes(api)

	// Unauthenticated surface: signup, login, the customer booking page,
	// the Stripe webhook and the Google OAuth callback.
	r.handlers.Auth.RegisterRoutes(api)
	r.handlers.Organization.RegisterPublicRoutes(api)
	r.handlers.Public.RegisterRoutes(api)
	r.handlers.Billing.RegisterWebhookRoutes(api)
	r.handlers.Calendar.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.handlers.Organization.RegisterRoutes(protected)
	r.handlers.User.RegisterRoutes(protected)
	r.handlers.AppointmentType.RegisterRoutes(protected)
	r.handlers.Availability.RegisterRoutes(protected)
	r.handlers.Booking.RegisterRoutes(protected)
	r.handlers.Calendar.RegisterRoutes(protected)

	billingGroup := protected.Group("")
	billingGroup.Use(r.auth.RequireOwner())
	r.handlers.Billing.RegisterRoutes(billingGroup)
}

func (r *Router) Engine() *gin.Engine { return r.engine }

func newRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// FullPath keeps the route template, avoiding per-id label blowup.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
