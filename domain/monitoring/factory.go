package monitoring

import (
	"github.com/akeren/waitlister-api/config/router"
	"github.com/akeren/waitlister-api/internal/log"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	store       Pinger
	storeDriver string
	cache       Pinger
	logger      *log.Logger
}

func NewMonitoringControllerFactory(store Pinger, storeDriver string, cache Pinger, logger *log.Logger) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		store:       store,
		storeDriver: storeDriver,
		cache:       cache,
		logger:      logger,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.store, f.storeDriver, f.cache, f.logger)
}
