package router

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/assessment-api/internal/handler"
	"github.com/jwalitptl/assessment-api/internal/middleware"
	"github.com/jwalitptl/assessment-api/pkg/metrics"
)

// Handler registers a resource's routes on a router group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit   rate.Limit
	RateBurst   int
	CORSConfig  middleware.CORSConfig
	ReleaseMode bool
}

type Router struct {
	engine      *gin.Engine
	auth        *middleware.AuthMiddleware
	authH       Handler
	patientH    Handler
	assessmentH Handler
	h           *handler.Handler
	metrics     *metrics.Metrics
}

func NewRouter(
	cfg Config,
	auth *middleware.AuthMiddleware,
	authH Handler,
	patientH Handler,
	assessmentH Handler,
	h *handler.Handler,
	m *metrics.Metrics,
) *Router {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	useJSONFieldNames()

	engine := gin.New()

	r := &Router{
		engine:      engine,
		auth:        auth,
		authH:       authH,
		patientH:    patientH,
		assessmentH: assessmentH,
		h:           h,
		metrics:     m,
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
	)

	engine.Use(middleware.CORS(cfg.CORSConfig))

	if cfg.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)

	// Public routes: register, token, token refresh.
	r.authH.RegisterRoutes(api)

	// Every record endpoint, list and mutate alike, requires a resolved
	// clinician identity.
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.patientH.RegisterRoutes(protected)
	r.assessmentH.RegisterRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.HTTPErrorsTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}

// useJSONFieldNames makes binding validation errors report JSON field
// names instead of Go struct field names.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
