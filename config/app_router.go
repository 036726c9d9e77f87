package config

import (
	"github.com/akeren/waitlister-api/config/router"
	"github.com/akeren/waitlister-api/pkg/utils"
)

// NewRouterConfig collects the HTTP surface settings: port, limits, proxy
// trust, CORS and HSTS. HSTS defaults on outside development.
func NewRouterConfig(appConfig *AppConfig, appEnv string) *router.RouterConfig {
	cfg := &router.RouterConfig{
		Port:           envString("APP_PORT", router.DefaultPort),
		TrustedProxies: parseTrustedProxies(utils.GetEnvList("TRUSTED_PROXIES")),
		AllowedOrigins: utils.GetEnvList("CORS_ALLOWED_ORIGIN"),
		MaxBodyBytes:   utils.GetEnvPositiveInt64("MAX_REQUEST_BODY_BYTES", router.DefaultMaxBodyBytes),
		HSTS: router.HSTSConfig{
			Enabled:           utils.GetEnvBool("HSTS_ENABLED", !IsDevelopmentEnv(appEnv)),
			MaxAge:            utils.GetEnvPositiveInt64("HSTS_MAX_AGE", router.DefaultHSTSMaxAge),
			IncludeSubdomains: utils.GetEnvBool("HSTS_INCLUDE_SUBDOMAINS", true),
		},
	}
	if appConfig != nil {
		cfg.RateLimitRequests = appConfig.RateLimitRequests
		cfg.RateLimitWindow = appConfig.RateLimitWindow
		cfg.RequestTimeout = appConfig.RequestTimeout
	}
	return cfg
}

// parseTrustedProxies expands a lone "*" to every address; any other list is
// passed through as CIDRs or IPs.
func parseTrustedProxies(entries []string) []string {
	if len(entries) == 1 && entries[0] == "*" {
		return []string{"0.0.0.0/0", "::/0"}
	}
	return entries
}
