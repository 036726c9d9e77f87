package domain

import (
	"github.com/akeren/waitlister-api/config"
	"github.com/akeren/waitlister-api/domain/monitoring"
	"github.com/akeren/waitlister-api/domain/waitlist"
)

// NewWaitlistFactory maps the loaded application configuration onto the
// waitlist domain's dependencies and settings.
func NewWaitlistFactory(appConfig *config.ApplicationConfig) *waitlist.DefaultWaitlistServiceFactory {
	deps := waitlist.Dependencies{
		DB:     appConfig.DB,
		Logger: appConfig.Logger,
	}
	if appConfig.Mongo != nil {
		deps.Mongo = appConfig.Mongo.Database()
	}
	if appConfig.Cache != nil {
		deps.Cache = appConfig.Cache
	}

	settings := waitlist.Settings{}
	if appConfig.Config != nil {
		settings = waitlist.Settings{
			StoreTimeout:          appConfig.Config.StoreOperationTimeout,
			CountCacheTTL:         appConfig.Config.CountCacheTTL,
			RegistrationRateLimit: appConfig.Config.RegistrationRateLimit,
			AdminAuthSecret:       appConfig.Config.AdminAuthSecret,
		}
	}

	return waitlist.NewWaitlistServiceFactory(deps, settings)
}

func SetupCoreDomain(appConfig *config.ApplicationConfig) error {
	waitlistFactory := NewWaitlistFactory(appConfig)

	repository, err := waitlistFactory.CreateRepository()
	if err != nil {
		return err
	}

	waitlistController, err := waitlistFactory.CreateController()
	if err != nil {
		return err
	}

	var cache monitoring.Pinger
	if appConfig.Cache != nil {
		cache = appConfig.Cache
	}

	storeDriver := config.StoreDriverPostgres
	if appConfig.Config != nil {
		storeDriver = appConfig.Config.StoreDriver
	}

	appConfig.RouterService.MountController(
		monitoring.NewMonitoringControllerFactory(repository, storeDriver, cache, appConfig.Logger).CreateController(),
	)
	appConfig.RouterService.MountController(waitlistController)

	return nil
}
