package config

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/pkg/constants"
)

func TestValidateAutoMigrateAllowed_AllowsDevLikeEnvs(t *testing.T) {
	allowed := []string{"", "dev", "development", "local", "test", "testing", "DEV", "  Local  "}

	for _, env := range allowed {
		env := env
		t.Run(env, func(t *testing.T) {
			if err := ValidateAutoMigrateAllowed(env); err != nil {
				t.Fatalf("expected no error for env %q, got %v", env, err)
			}
		})
	}
}

func TestValidateAutoMigrateAllowed_RejectsProdAndOtherEnvs(t *testing.T) {
	rejected := []string{"prod", "production", "staging", "preprod", " Production ", "qa"}

	for _, env := range rejected {
		env := env
		t.Run(env, func(t *testing.T) {
			if err := ValidateAutoMigrateAllowed(env); err == nil {
				t.Fatalf("expected error for env %q, got nil", env)
			}
		})
	}
}

func TestParseStoreDriver(t *testing.T) {
	cases := map[string]string{
		"":          StoreDriverPostgres,
		"postgres":  StoreDriverPostgres,
		"mongo":     StoreDriverMongo,
		" MongoDB ": StoreDriverMongo,
		"dynamo":    StoreDriverPostgres,
	}

	for raw, want := range cases {
		if got := ParseStoreDriver(raw); got != want {
			t.Fatalf("ParseStoreDriver(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNewAppConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "REGISTRATION_RATE_LIMIT",
		"STORE_DRIVER", "STORE_OPERATION_TIMEOUT", "COUNT_CACHE_TTL", "ADMIN_AUTH_SECRET",
	} {
		t.Setenv(key, "")
	}

	cfg := NewAppConfig()

	if cfg.RateLimitRequests != constants.DefaultRateLimitRequests {
		t.Fatalf("unexpected rate limit requests %d", cfg.RateLimitRequests)
	}
	if cfg.RegistrationRateLimit != constants.DefaultRegistrationRateLimit {
		t.Fatalf("unexpected registration rate limit %d", cfg.RegistrationRateLimit)
	}
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("unexpected store driver %q", cfg.StoreDriver)
	}
	if cfg.StoreOperationTimeout != constants.DefaultStoreOperationTimeout {
		t.Fatalf("unexpected store timeout %s", cfg.StoreOperationTimeout)
	}
	if cfg.CountCacheTTL != constants.DefaultCountCacheTTL {
		t.Fatalf("unexpected count cache ttl %s", cfg.CountCacheTTL)
	}
	if cfg.AdminAuthSecret != "" {
		t.Fatalf("expected admin gate disabled by default")
	}
}

func TestNewAppConfig_ReadsOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("STORE_OPERATION_TIMEOUT", "2s")
	t.Setenv("REGISTRATION_RATE_LIMIT", "5")
	t.Setenv("ADMIN_AUTH_SECRET", "\"s3cret\"")

	cfg := NewAppConfig()

	if cfg.StoreDriver != StoreDriverMongo {
		t.Fatalf("expected mongo driver, got %q", cfg.StoreDriver)
	}
	if cfg.StoreOperationTimeout != 2*time.Second {
		t.Fatalf("expected 2s timeout, got %s", cfg.StoreOperationTimeout)
	}
	if cfg.RegistrationRateLimit != 5 {
		t.Fatalf("expected registration limit 5, got %d", cfg.RegistrationRateLimit)
	}
	if cfg.AdminAuthSecret != "s3cret" {
		t.Fatalf("expected quotes stripped from secret, got %q", cfg.AdminAuthSecret)
	}
}

func TestBuildDSNFromEnv_PrefersDatabaseURL(t *testing.T) {
	logger := log.NewLogger(io.Discard, slog.LevelError)

	dsn, err := buildDSNFromEnv("postgres://u:p@db:5432/waitlist", logger, (&DBConfig{}).withDefaults())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if dsn != "postgres://u:p@db:5432/waitlist" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}

func TestBuildDSNFromEnv_ReportsMissingVars(t *testing.T) {
	for _, key := range []string{"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_DB_NAME"} {
		t.Setenv(key, "")
	}
	logger := log.NewLogger(io.Discard, slog.LevelError)

	_, err := buildDSNFromEnv("", logger, (&DBConfig{}).withDefaults())
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_HOST") {
		t.Fatalf("expected missing vars error, got %v", err)
	}
}

func TestBuildDSNFromEnv_UsesConfiguredSSLMode(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("POSTGRES_USER", "waitlister")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB_NAME", "waitlister")
	t.Setenv("POSTGRES_SSLMODE", "")
	logger := log.NewLogger(io.Discard, slog.LevelError)

	dsn, err := buildDSNFromEnv("", logger, (&DBConfig{SSLMode: "disable"}).withDefaults())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !strings.Contains(dsn, "sslmode=disable") || !strings.Contains(dsn, "port=5432") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}

func TestNewMongo_RequiresURI(t *testing.T) {
	logger := log.NewLogger(io.Discard, slog.LevelError)

	_, err := NewMongo(logger, &MongoConfig{Database: "waitlister"}, 1)
	if err != ErrMongoNotConfigured {
		t.Fatalf("expected ErrMongoNotConfigured, got %v", err)
	}
}

func TestValidateAdminAuth(t *testing.T) {
	cases := []struct {
		env     string
		secret  string
		wantErr bool
	}{
		{env: "", secret: "", wantErr: false},
		{env: "development", secret: "", wantErr: false},
		{env: "test", secret: "  ", wantErr: false},
		{env: "production", secret: "", wantErr: true},
		{env: " Prod ", secret: "   ", wantErr: true},
		{env: "staging", secret: "", wantErr: true},
		{env: "production", secret: "s3cret", wantErr: false},
	}

	for _, tc := range cases {
		err := ValidateAdminAuth(tc.env, tc.secret)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ValidateAdminAuth(%q, %q) error = %v, wantErr %v", tc.env, tc.secret, err, tc.wantErr)
		}
	}
}

func TestLoadApplicationConfiguration_RefusesOpenAdminInProduction(t *testing.T) {
	t.Setenv("SKIP_DOTENV", "true")
	t.Setenv(AppEnvKey, "production")
	t.Setenv("ADMIN_AUTH_SECRET", "")
	logger := log.NewLogger(io.Discard, slog.LevelError)

	cfg, err := LoadApplicationConfiguration(logger, false)
	if err == nil || !strings.Contains(err.Error(), "ADMIN_AUTH_SECRET") {
		t.Fatalf("expected ADMIN_AUTH_SECRET error, got %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected no configuration, got %+v", cfg)
	}
}

func TestEnvString(t *testing.T) {
	t.Setenv("WAITLIST_TEST_VALUE", "  'quoted'  ")
	if got := envString("WAITLIST_TEST_VALUE", "fallback"); got != "quoted" {
		t.Fatalf("expected quotes and spaces stripped, got %q", got)
	}

	t.Setenv("WAITLIST_TEST_VALUE", `""`)
	if got := envString("WAITLIST_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for empty quoted value, got %q", got)
	}

	t.Setenv("WAITLIST_TEST_VALUE", `"mismatched'`)
	if got := envString("WAITLIST_TEST_VALUE", "fallback"); got != `"mismatched'` {
		t.Fatalf("expected mismatched quotes kept, got %q", got)
	}
}
