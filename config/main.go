package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/waitlister-api/config/router"
	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/internal/models"
	"github.com/akeren/waitlister-api/pkg/constants"
	"github.com/akeren/waitlister-api/pkg/mongodb"
	"github.com/akeren/waitlister-api/pkg/utils"
	"gorm.io/gorm"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

// ApplicationConfig holds every long-lived handle the service owns. Exactly
// one of DB and Mongo is set, depending on AppConfig.StoreDriver.
type ApplicationConfig struct {
	DB              *gorm.DB
	Mongo           *mongodb.Client
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	RequestTimeout        time.Duration
	RegistrationRateLimit int

	StoreDriver           string
	StoreOperationTimeout time.Duration
	StoreConnectAttempts  int
	CountCacheTTL         time.Duration

	// AdminAuthSecret signs the bearer tokens accepted on listing and count.
	// Empty disables the gate, which is only allowed in development.
	AdminAuthSecret string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		RateLimitRequests:     utils.GetEnvPositiveInt("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:       utils.GetEnvPositiveDuration("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow()),
		RequestTimeout:        utils.GetEnvPositiveDuration("REQUEST_TIMEOUT", 30*time.Second),
		RegistrationRateLimit: utils.GetEnvPositiveInt("REGISTRATION_RATE_LIMIT", constants.DefaultRegistrationRateLimit),
		StoreDriver:           ParseStoreDriver(utils.GetEnvTrimmed("STORE_DRIVER")),
		StoreOperationTimeout: utils.GetEnvPositiveDuration("STORE_OPERATION_TIMEOUT", constants.DefaultStoreOperationTimeout),
		StoreConnectAttempts:  utils.GetEnvPositiveInt("STORE_CONNECT_ATTEMPTS", constants.DefaultStoreConnectAttempts),
		CountCacheTTL:         utils.GetEnvPositiveDuration("COUNT_CACHE_TTL", constants.DefaultCountCacheTTL),
		AdminAuthSecret:       envString("ADMIN_AUTH_SECRET", ""),
	}
}

// ParseStoreDriver maps STORE_DRIVER onto a supported driver; anything
// unrecognised selects postgres.
func ParseStoreDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mongo", "mongodb":
		return StoreDriverMongo
	default:
		return StoreDriverPostgres
	}
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.Mongo != nil {
		CloseMongo(ac.Mongo, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		_ = CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	appConfig := NewAppConfig()
	appEnv := GetAppEnv()

	if err := ValidateAdminAuth(appEnv, appConfig.AdminAuthSecret); err != nil {
		return nil, err
	}
	if appConfig.AdminAuthSecret == "" {
		logger.Warn("ADMIN_AUTH_SECRET not set; listing and count are open", "app_env", appEnv)
	}

	if autoMigrate {
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	applicationConfig := &ApplicationConfig{
		Logger:          logger,
		Config:          appConfig,
		TracingShutdown: tracingShutdown,
	}

	switch appConfig.StoreDriver {
	case StoreDriverMongo:
		mongoClient, err := NewMongo(logger, NewMongoConfig(), appConfig.StoreConnectAttempts)
		if err != nil {
			return nil, err
		}
		applicationConfig.Mongo = mongoClient
	default:
		db, err := NewDatabase(logger, &DBConfig{ConnectAttempts: appConfig.StoreConnectAttempts})
		if err != nil {
			return nil, err
		}
		applicationConfig.DB = db

		if autoMigrate {
			if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
				CloseDatabase(db, logger)
				return nil, err
			}
		}
	}

	if autoMigrate && appConfig.StoreDriver == StoreDriverMongo {
		logger.Info("--auto-migrate has no effect with the mongo store; indexes are ensured at startup")
	}

	applicationConfig.Cache = NewCacheConfig().NewCacheOrNil(logger)

	applicationConfig.RouterService = router.CreateRouterService(logger, applicationConfig.Cache, NewRouterConfig(appConfig, appEnv))

	logger.Info("Application configuration loaded successfully",
		"store", appConfig.StoreDriver,
		"store_timeout", appConfig.StoreOperationTimeout.String(),
		"cache", applicationConfig.Cache != nil,
	)

	return applicationConfig, nil
}

// StoreDescription is a short human label for logs and the CLI.
func (ac *ApplicationConfig) StoreDescription() string {
	if ac.Config == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s (timeout %s)", ac.Config.StoreDriver, ac.Config.StoreOperationTimeout)
}
