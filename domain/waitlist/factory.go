package waitlist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akeren/waitlister-api/config/router"
	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/pkg/circuitbreaker"
	"github.com/akeren/waitlister-api/pkg/factory"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

var ErrNoStore = errors.New("waitlist: no store configured")

// StoreCache is the cache handle shared by the count cache and the
// registration rate limiter.
type StoreCache interface {
	Cache
	Ping(ctx context.Context) error
}

type Dependencies struct {
	// Exactly one of DB and Mongo is expected; Mongo wins when both are set.
	DB     *gorm.DB
	Mongo  *mongo.Database
	Cache  StoreCache
	Logger *log.Logger
}

type Settings struct {
	StoreTimeout          time.Duration
	CountCacheTTL         time.Duration
	RegistrationRateLimit int
	AdminAuthSecret       string
	Breaker               *circuitbreaker.Config
}

type WaitlistServiceFactory interface {
	CreateRepository() (WaitlistRepository, error)
	CreateService() (WaitlistService, error)
	CreateController() (*router.RESTController, error)
}

type DefaultWaitlistServiceFactory struct {
	deps     Dependencies
	settings Settings
	metrics  *Metrics

	once       sync.Once
	repository WaitlistRepository
	repoErr    error
}

func NewWaitlistServiceFactory(deps Dependencies, settings Settings) *DefaultWaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		deps:     deps,
		settings: settings,
		metrics:  NewMetrics(),
	}
}

// CreateRepository builds the store-backed repository once and guards it with
// a circuit breaker. Later calls return the same instance.
func (f *DefaultWaitlistServiceFactory) CreateRepository() (WaitlistRepository, error) {
	f.once.Do(func() {
		var base WaitlistRepository

		switch {
		case f.deps.Mongo != nil:
			base, f.repoErr = NewMongoWaitlistRepository(context.Background(), f.deps.Mongo, f.settings.StoreTimeout)
		case f.deps.DB != nil:
			base = NewWaitlistRepository(f.deps.DB, f.settings.StoreTimeout)
		default:
			f.repoErr = ErrNoStore
		}

		if f.repoErr != nil {
			return
		}
		f.repository = NewCircuitBreakerRepository(base, f.settings.Breaker, f.deps.Logger)
	})

	return f.repository, f.repoErr
}

func (f *DefaultWaitlistServiceFactory) CreateService() (WaitlistService, error) {
	repository, err := f.CreateRepository()
	if err != nil {
		return nil, err
	}

	var cache Cache
	if f.deps.Cache != nil {
		cache = f.deps.Cache
	}

	return NewWaitlistService(f.deps.Logger, repository, ServiceConfig{
		Cache:         cache,
		CountCacheTTL: f.settings.CountCacheTTL,
		Metrics:       f.metrics,
	}), nil
}

func (f *DefaultWaitlistServiceFactory) CreateController() (*router.RESTController, error) {
	service, err := f.CreateService()
	if err != nil {
		return nil, err
	}

	opts := ControllerOptions{
		AdminGuard: router.AdminAuthMiddleware(f.settings.AdminAuthSecret, f.deps.Logger),
		Metrics:    f.metrics,
	}

	if f.settings.RegistrationRateLimit > 0 {
		var limiterCache factory.Cache
		if f.deps.Cache != nil {
			limiterCache = f.deps.Cache
		}
		opts.RegistrationLimiter = factory.
			NewDefaultRateLimiterFactory(f.settings.RegistrationRateLimit, time.Minute, limiterCache, f.deps.Logger).
			CreateRateLimiter()
	}

	return NewWaitlistController(service, opts), nil
}
