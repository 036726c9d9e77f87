package router

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/waitlister-api/internal/log"
	apperrors "github.com/akeren/waitlister-api/pkg/errors"
	"github.com/gin-gonic/gin"
)

const (
	correlationHeader = "X-Correlation-ID"
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, " + correlationHeader
	corsExposeHeaders = correlationHeader + ", X-RateLimit-Limit, X-RateLimit-Window, Retry-After"
)

// abortWithError stops the chain and renders err in the response envelope.
func abortWithError(c *gin.Context, err error) {
	result := ResultFromError(err)
	c.AbortWithStatusJSON(result.StatusCode, result.ToJSON())
}

// requestContextMiddleware attaches the correlation ID and a logger carrying
// it to the request context, and echoes the ID back to the caller.
func (routerService *RouterService) requestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(correlationHeader))
		if id == "" {
			id = log.GenerateCorrelationID()
		}

		ctx := context.WithValue(c.Request.Context(), log.CorrelatedIDKey, id)
		ctx = context.WithValue(ctx, log.LoggerKeyForContext, routerService.logger.WithCorrelationID(ctx))
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlationHeader, id)
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		logger := GetLogger(c)
		if status >= http.StatusInternalServerError {
			logger.Error("HTTP request", attrs...)
			return
		}
		logger.Info("HTTP request", attrs...)
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	hsts := ""
	if routerService.config.HSTS.Enabled {
		hsts = fmt.Sprintf("max-age=%d", routerService.config.HSTS.MaxAge)
		if routerService.config.HSTS.IncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		if hsts != "" && isHTTPS(c) {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}

// isHTTPS also honours X-Forwarded-Proto for TLS terminated at a proxy.
func isHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.config.MaxBodyBytes

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abortWithError(c, apperrors.NewPayloadTooLargeError("Request payload too large"))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	anyOrigin := false
	allowed := make(map[string]struct{}, len(routerService.config.AllowedOrigins))
	for _, origin := range routerService.config.AllowedOrigins {
		if origin == "*" {
			anyOrigin = true
		}
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if _, ok := allowed[origin]; !ok && !anyOrigin {
			GetLogger(c).Debug("CORS origin not allowed", "origin", origin)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// timeoutMiddleware bounds the request context. Handlers stay on the request
// goroutine since gin.Context is not safe for concurrent use.
func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	timeout := routerService.config.RequestTimeout

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			GetLogger(c).Warn("Request timed out", "timeout", timeout.String())
			abortWithError(c, apperrors.NewRequestTimeoutError("Request timeout", ctx.Err()))
		}
	}
}

// rateLimitMiddleware applies the handler's own limiter when one was bound at
// registration, counting under "ratelimit:<METHOD-route>:<ip>". Every other
// route shares the default limiter keyed by "ratelimit:<ip>".
func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		handlerKey := keyForPathAndMethod(c.FullPath(), c.Request.Method)

		if _, mapped := routerService.handlerToControllerMap[handlerKey]; !mapped {
			// NoRoute and NoMethod render their own envelope.
			if c.FullPath() == "" {
				c.Next()
				return
			}
			routerService.logger.Error("Handler has no controller mapping", "route", handlerKey)
			abortWithError(c, apperrors.NewNotFoundError("Route not found"))
			return
		}

		limiter, key := routerService.rateLimiter, "ratelimit:"+clientIP
		if override, ok := routerService.handlerLimiters[handlerKey]; ok {
			limiter, key = override, fmt.Sprintf("ratelimit:%s:%s", handlerKey, clientIP)
		}
		if limiter == nil {
			c.Next()
			return
		}

		limit, window := limiter.GetLimitDetails()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Window", window.String())

		limited, err := limiter.IsLimited(c.Request.Context(), key)
		if err != nil {
			routerService.logger.Error("Rate limiter error; allowing request", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}
		if !limited {
			c.Next()
			return
		}

		retryAfter := max(int(math.Ceil(window.Seconds())), 1)
		routerService.logger.Warn("Rate limit exceeded", "client_ip", clientIP, "route", handlerKey)
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
			Limit:      limit,
			Window:     window.String(),
			RetryAfter: strconv.Itoa(retryAfter),
		}).ToJSON())
	}
}
