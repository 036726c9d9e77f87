package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/pkg/utils"
	"github.com/joho/godotenv"
)

const AppEnvKey = "APP_ENV"

var developmentEnvs = map[string]bool{
	"":            true,
	"dev":         true,
	"development": true,
	"local":       true,
	"test":        true,
	"testing":     true,
}

// InitializeEnvFile loads .env without overriding variables already set.
// SKIP_DOTENV=true turns it off.
func InitializeEnvFile(logger *log.Logger) {
	if utils.GetEnvBool("SKIP_DOTENV", false) {
		logger.Info("Skipping .env file", "reason", "SKIP_DOTENV=true")
		return
	}

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file loaded", "error", err.Error())
		return
	}

	logger.Info("Environment loaded from .env")
}

// envString returns the variable without surrounding whitespace or one pair
// of matching quotes, or fallback when that leaves nothing.
func envString(key, fallback string) string {
	if v := sanitizeEnv(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return s
}

func GetAppEnv() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(AppEnvKey)))
}

// IsDevelopmentEnv reports whether appEnv names a non-production deployment.
// An unset APP_ENV counts as development.
func IsDevelopmentEnv(appEnv string) bool {
	return developmentEnvs[strings.ToLower(strings.TrimSpace(appEnv))]
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	if IsDevelopmentEnv(appEnv) {
		return nil
	}
	return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: \"\", dev, development, local, test, testing)", AppEnvKey, strings.ToLower(strings.TrimSpace(appEnv)))
}

// ValidateAdminAuth requires ADMIN_AUTH_SECRET outside development so the
// listing and count routes are never served unauthenticated in production.
func ValidateAdminAuth(appEnv, secret string) error {
	if strings.TrimSpace(secret) != "" || IsDevelopmentEnv(appEnv) {
		return nil
	}
	return fmt.Errorf("ADMIN_AUTH_SECRET must be set when %s=%q", AppEnvKey, strings.ToLower(strings.TrimSpace(appEnv)))
}
