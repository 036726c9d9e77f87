package waitlist

//go:generate mockgen -source=repository.go -destination=mock_repository_test.go -package=waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/waitlister-api/internal/models"
	apperrors "github.com/akeren/waitlister-api/pkg/errors"
	"gorm.io/gorm"
)

const (
	MsgDuplicateEmail   = "This email is already on the waitlist"
	MsgStoreUnavailable = "The waitlist is temporarily unavailable, please try again shortly"
	MsgStoreFailure     = "Unable to process the waitlist request, please try again shortly"
)

type WaitlistRepository interface {
	// CreateEntry persists a new entry. A unique-email violation yields a conflict error.
	CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
	// ExistsByEmail reports whether an entry with the normalized email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// ListEntries returns one window of entries, newest first, plus the total matching the filter.
	ListEntries(ctx context.Context, filter ListFilter) ([]*models.WaitlistEntry, int64, error)
	// CountEntries computes total/notified/not-notified from one grouped aggregate.
	CountEntries(ctx context.Context) (*EntryCounts, error)
	// Ping checks store reachability.
	Ping(ctx context.Context) error
}

type waitlistRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewWaitlistRepository(db *gorm.DB, timeout time.Duration) WaitlistRepository {
	return &waitlistRepository{db: db, timeout: timeout}
}

func (wr *waitlistRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	ctx, cancel := withStoreTimeout(ctx, wr.timeout)
	defer cancel()

	if err := wr.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.NewConflictError(MsgDuplicateEmail, err)
		}
		return nil, storeError(ctx, err)
	}

	return entry, nil
}

func (wr *waitlistRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := withStoreTimeout(ctx, wr.timeout)
	defer cancel()

	var count int64
	err := wr.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, storeError(ctx, err)
	}

	return count > 0, nil
}

func (wr *waitlistRepository) ListEntries(ctx context.Context, filter ListFilter) ([]*models.WaitlistEntry, int64, error) {
	ctx, cancel := withStoreTimeout(ctx, wr.timeout)
	defer cancel()

	scoped := func() *gorm.DB {
		query := wr.db.WithContext(ctx).Model(&models.WaitlistEntry{})
		if filter.Notified != nil {
			query = query.Where("notified = ?", *filter.Notified)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, storeError(ctx, err)
	}

	if !filter.reaches(total) {
		return []*models.WaitlistEntry{}, total, nil
	}

	entries := make([]*models.WaitlistEntry, 0, filter.capacity(total))
	err := scoped().
		Order("created_at DESC").
		Order("id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, storeError(ctx, err)
	}

	return entries, total, nil
}

func (wr *waitlistRepository) CountEntries(ctx context.Context) (*EntryCounts, error) {
	ctx, cancel := withStoreTimeout(ctx, wr.timeout)
	defer cancel()

	var groups []struct {
		Notified bool
		Total    int64
	}

	err := wr.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Select("notified, COUNT(*) AS total").
		Group("notified").
		Scan(&groups).Error
	if err != nil {
		return nil, storeError(ctx, err)
	}

	counts := &EntryCounts{}
	for _, g := range groups {
		if g.Notified {
			counts.Notified += g.Total
		} else {
			counts.NotNotified += g.Total
		}
	}
	counts.Total = counts.Notified + counts.NotNotified

	return counts, nil
}

func (wr *waitlistRepository) Ping(ctx context.Context) error {
	ctx, cancel := withStoreTimeout(ctx, wr.timeout)
	defer cancel()

	sqlDB, err := wr.db.DB()
	if err != nil {
		return storeError(ctx, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storeError(ctx, err)
	}
	return nil
}

func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError wraps a driver failure. Deadlines surface as 503 so callers retry;
// everything else is a generic 500. The cause is kept for logs only.
func storeError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewServiceUnavailableError(MsgStoreUnavailable, err)
	}
	return apperrors.NewDatabaseError(MsgStoreFailure, err)
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}
