package waitlist

import (
	"context"
	"errors"

	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/internal/models"
	"github.com/akeren/waitlister-api/pkg/circuitbreaker"
	apperrors "github.com/akeren/waitlister-api/pkg/errors"
)

// breakerRepository fails fast with a 503 once the store has produced enough
// consecutive infrastructure errors. Conflicts and other caller-side outcomes
// never trip it.
type breakerRepository struct {
	next    WaitlistRepository
	breaker circuitbreaker.CircuitBreaker
}

func NewCircuitBreakerRepository(next WaitlistRepository, cfg *circuitbreaker.Config, logger *log.Logger) WaitlistRepository {
	if cfg == nil {
		cfg = circuitbreaker.DefaultConfig()
	}

	guarded := *cfg
	guarded.IsFailure = apperrors.IsInfrastructureError
	guarded.OnStateChange = func(from, to circuitbreaker.CircuitState) {
		if logger != nil {
			logger.Warn("Waitlist store circuit changed state", "from", from.String(), "to", to.String())
		}
		if cfg.OnStateChange != nil {
			cfg.OnStateChange(from, to)
		}
	}

	return &breakerRepository{
		next:    next,
		breaker: circuitbreaker.NewCircuitBreaker(&guarded),
	}
}

func (br *breakerRepository) call(fn func() error) error {
	err := br.breaker.Call(fn)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return apperrors.NewServiceUnavailableError(MsgStoreUnavailable, err)
	}
	return err
}

func (br *breakerRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	var created *models.WaitlistEntry
	err := br.call(func() error {
		var err error
		created, err = br.next.CreateEntry(ctx, entry)
		return err
	})
	return created, err
}

func (br *breakerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := br.call(func() error {
		var err error
		exists, err = br.next.ExistsByEmail(ctx, email)
		return err
	})
	return exists, err
}

func (br *breakerRepository) ListEntries(ctx context.Context, filter ListFilter) ([]*models.WaitlistEntry, int64, error) {
	var (
		entries []*models.WaitlistEntry
		total   int64
	)
	err := br.call(func() error {
		var err error
		entries, total, err = br.next.ListEntries(ctx, filter)
		return err
	})
	return entries, total, err
}

func (br *breakerRepository) CountEntries(ctx context.Context) (*EntryCounts, error) {
	var counts *EntryCounts
	err := br.call(func() error {
		var err error
		counts, err = br.next.CountEntries(ctx)
		return err
	})
	return counts, err
}

// Ping bypasses the breaker so health checks see the real store state.
func (br *breakerRepository) Ping(ctx context.Context) error {
	return br.next.Ping(ctx)
}
