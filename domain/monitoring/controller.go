package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/akeren/waitlister-api/config/router"
	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/pkg/ratelimit"
)

const (
	StatusUp       = "up"
	StatusDown     = "down"
	StatusDisabled = "disabled"

	healthCheckTimeout = 3 * time.Second
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Store       string `json:"store"`
	StoreDriver string `json:"store_driver"`
	Cache       string `json:"cache"`
	Uptime      int    `json:"uptime"` // seconds
}

type MonitoringController struct {
	store       Pinger
	storeDriver string
	cache       Pinger
	logger      *log.Logger
	startTime   time.Time
}

func NewMonitoringController(store Pinger, storeDriver string, cache Pinger, logger *log.Logger) *router.RESTController {
	ctrl := &MonitoringController{
		store:       store,
		storeDriver: storeDriver,
		cache:       cache,
		logger:      logger,
		startTime:   time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {
			monitoringRateLimiter := createMonitoringRateLimiter()

			routerService.AddGetHandler(controller, monitoringRateLimiter, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(c)
			})
		},
	)
}

func createMonitoringRateLimiter() ratelimit.RateLimiter {
	const monitoringRequestsPerMinute = 60

	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: monitoringRequestsPerMinute,
		Window:   time.Minute,
	})
}

func (ctrl *MonitoringController) healthCheck(c *router.RequestContext) *router.ServiceResult {
	logger := router.GetLogger(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := ctrl.performHealthChecks(ctx, logger)

	if status.Store != StatusUp {
		return router.ErrorResult(http.StatusServiceUnavailable, "Waitlist store is unreachable", status)
	}
	return router.OKResult(status, "Health check completed")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		StoreDriver: ctrl.storeDriver,
		Uptime:      int(time.Since(ctrl.startTime).Seconds()),
	}

	status.Store = pingStatus(ctx, ctrl.store)
	if status.Store != StatusUp {
		logger.Error("Store health check failed", "driver", ctrl.storeDriver)
	}

	status.Cache = pingStatus(ctx, ctrl.cache)
	if status.Cache == StatusDown {
		logger.Warn("Cache health check failed")
	}

	return status
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return StatusDisabled
	}
	if err := p.Ping(ctx); err != nil {
		return StatusDown
	}
	return StatusUp
}
