package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/akeren/waitlister-api/internal/log"
	apperrors "github.com/akeren/waitlister-api/pkg/errors"
	"github.com/akeren/waitlister-api/pkg/ratelimit"
	"github.com/akeren/waitlister-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	DefaultPort         = "8080"
	DefaultMaxBodyBytes = int64(1 << 20)
	DefaultHSTSMaxAge   = int64(31536000)
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

// HSTSConfig controls Strict-Transport-Security on HTTPS requests.
type HSTSConfig struct {
	Enabled           bool
	MaxAge            int64
	IncludeSubdomains bool
}

type RouterConfig struct {
	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration

	// TrustedProxies are the CIDRs whose X-Forwarded-For is believed when
	// resolving the client IP. Empty trusts no proxy.
	TrustedProxies []string
	// AllowedOrigins lists the CORS origins; "*" allows any. Empty denies
	// cross-origin browser requests.
	AllowedOrigins []string
	MaxBodyBytes   int64
	HSTS           HSTSConfig
}

type RouterService struct {
	engine          *gin.Engine
	server          *http.Server
	logger          *log.Logger
	config          RouterConfig
	rateLimiter     ratelimit.RateLimiter
	redisClient     *redis.Client
	metricsRegistry *prometheus.Registry

	handlerToControllerMap map[string]*RESTController
	handlerLimiters        map[string]ratelimit.RateLimiter
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	if mode, ok := os.LookupEnv("GIN_MODE"); ok && mode != "" {
		logger.Info("Setting Gin mode", "mode", mode)
		gin.SetMode(mode)
	}

	cfg := withDefaults(routerConfig)

	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery())

	if utils.IsTracingEnabled() {
		ginRouter.Use(otelgin.Middleware(utils.OTelServiceName()))
		logger.Info("Tracing middleware enabled")
	}

	if err := ginRouter.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Error("Invalid trusted proxies; trusting none", "error", err)
		_ = ginRouter.SetTrustedProxies(nil)
	} else if len(cfg.TrustedProxies) == 0 {
		logger.Info("Trusted proxies disabled; client IP is the remote address")
	}

	if len(cfg.AllowedOrigins) == 0 {
		logger.Warn("No CORS origins configured; cross-origin requests get no CORS headers")
	}

	var redisClient *redis.Client
	if provider, ok := cache.(RedisClientProvider); ok {
		redisClient = provider.GetClient()
	}

	rs := &RouterService{
		engine:                 ginRouter,
		logger:                 logger,
		config:                 cfg,
		redisClient:            redisClient,
		handlerToControllerMap: make(map[string]*RESTController),
		handlerLimiters:        make(map[string]ratelimit.RateLimiter),
	}

	rs.initRateLimiting()

	// /metrics is mounted ahead of the request middleware and so bypasses it.
	rs.mountMetrics()

	ginRouter.Use(
		rs.securityHeadersMiddleware(),
		rs.maxBodySizeMiddleware(),
		rs.corsMiddleware(),
		rs.rateLimitMiddleware(),
		rs.timeoutMiddleware(),
		rs.requestContextMiddleware(),
		rs.requestLoggingMiddleware(),
	)

	ginRouter.HandleMethodNotAllowed = true
	ginRouter.RedirectTrailingSlash = true

	ginRouter.NoRoute(func(c *gin.Context) {
		abortWithError(c, apperrors.NewNotFoundError("Route not found"))
	})
	ginRouter.NoMethod(func(c *gin.Context) {
		abortWithError(c, apperrors.NewMethodNotAllowedError("Method not allowed"))
	})

	// Handlers run on the request goroutine; the server timeouts bound them.
	rs.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           ginRouter,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized",
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout.String(),
		"max_body_bytes", cfg.MaxBodyBytes,
	)
	return rs
}

func withDefaults(in *RouterConfig) RouterConfig {
	var cfg RouterConfig
	if in != nil {
		cfg = *in
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.HSTS.MaxAge <= 0 {
		cfg.HSTS.MaxAge = DefaultHSTSMaxAge
	}
	return cfg
}

func (routerService *RouterService) initRateLimiting() {
	redisClient := routerService.redisClient
	if redisClient != nil {
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			routerService.logger.Warn("Redis unreachable for rate limiting, falling back to in-memory", "error", err)
			redisClient = nil
		}
	}

	routerService.rateLimiter = ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: routerService.config.RateLimitRequests,
		Window:   routerService.config.RateLimitWindow,
		Redis:    redisClient,
		Logger:   routerService.logger,
	})

	backend := "memory"
	if redisClient != nil {
		backend = "redis"
	}
	routerService.logger.Info("Rate limiting initialized",
		"backend", backend,
		"requests", routerService.config.RateLimitRequests,
		"window", routerService.config.RateLimitWindow.String(),
	)
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) Cleanup() {
	if routerService.rateLimiter != nil {
		if err := routerService.rateLimiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"handlers", controller.handlerCount,
	)
}

func (routerService *RouterService) RunHTTPServer() error {
	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	if err := routerService.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		routerService.logger.Error("HTTP server stopped", "error", err)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server")
	return routerService.server.Shutdown(ctx)
}
