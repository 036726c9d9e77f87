package waitlist

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/akeren/waitlister-api/internal/models"
	apperrors "github.com/akeren/waitlister-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every pooled connection to :memory: would otherwise see its own database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.ModelRegistry...))
	return db
}

func seedEntries(t *testing.T, repo WaitlistRepository, n int, notifiedEvery int) []*models.WaitlistEntry {
	t.Helper()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]*models.WaitlistEntry, 0, n)
	for i := 0; i < n; i++ {
		entry := &models.WaitlistEntry{
			Email:     fmt.Sprintf("user%02d@example.com", i),
			Name:      fmt.Sprintf("User %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Notified:  notifiedEvery > 0 && i%notifiedEvery == 0,
		}
		created, err := repo.CreateEntry(context.Background(), entry)
		require.NoError(t, err)
		entries = append(entries, created)
	}
	return entries
}

func TestWaitlistRepository_CreateEntry(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t), time.Second)
	ctx := context.Background()

	phone := "+1 555 0100"
	created, err := repo.CreateEntry(ctx, &models.WaitlistEntry{
		Email:     "a@x.com",
		Name:      "Alice",
		Phone:     &phone,
		CreatedAt: fixedNow,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Notified)

	exists, err := repo.ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWaitlistRepository_UniqueEmailIsEnforcedByStore(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t), time.Second)
	ctx := context.Background()

	_, err := repo.CreateEntry(ctx, &models.WaitlistEntry{Email: "a@x.com", Name: "Alice", CreatedAt: fixedNow})
	require.NoError(t, err)

	_, err = repo.CreateEntry(ctx, &models.WaitlistEntry{Email: "a@x.com", Name: "Alice Again", CreatedAt: fixedNow})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetErrorType(err))
	assert.Equal(t, MsgDuplicateEmail, apperrors.GetHumanReadableMessage(err))

	counts, err := repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Total)
}

func TestWaitlistRepository_ListEntries_NewestFirstWindow(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t), time.Second)
	entries := seedEntries(t, repo, 3, 0)

	page, total, err := repo.ListEntries(context.Background(), ListFilter{Offset: 1, Limit: 1})

	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, entries[1].ID, page[0].ID)
}

func TestWaitlistRepository_ListEntries_PagesCoverEverythingOnce(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t), time.Second)
	entries := seedEntries(t, repo, 7, 0)

	const limit = 3
	var seen []string
	for offset := 0; offset < len(entries); offset += limit {
		page, total, err := repo.ListEntries(context.Background(), ListFilter{Offset: offset, Limit: limit})
		require.NoError(t, err)
		assert.Equal(t, int64(len(entries)), total)
		for _, e := range page {
			seen = append(seen, e.ID)
		}
	}

	expected := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		expected = append(expected, entries[i].ID)
	}
	assert.Equal(t, expected, seen)
}

func TestWaitlistRepository_ListEntries_NotifiedFilter(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t), time.Second)
	seedEntries(t, repo, 6, 2)

	notified := true
	page, total, err := repo.ListEntries(context.Background(), ListFilter{Limit: 50, Notified: &notified})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, e := range page {
		assert.True(t, e.Notified)
	}

	notNotified := false
	_, total, err = repo.ListEntries(context.Background(), ListFilter{Limit: 50, Notified: &notNotified})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestWaitlistRepository_ListEntries_PastTheEnd(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t), time.Second)
	seedEntries(t, repo, 2, 0)

	page, total, err := repo.ListEntries(context.Background(), ListFilter{Offset: 10, Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Empty(t, page)
}

func TestWaitlistRepository_ListEntries_OversizedWindow(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t), time.Second)
	seedEntries(t, repo, 3, 0)

	page, total, err := repo.ListEntries(context.Background(), ListFilter{Limit: math.MaxInt})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 3)

	page, _, err = repo.ListEntries(context.Background(), ListFilter{Offset: math.MaxInt, Limit: 4})
	require.NoError(t, err)
	assert.Empty(t, page)

	page, _, err = repo.ListEntries(context.Background(), ListFilter{Offset: -4, Limit: 4})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestListFilter_Capacity(t *testing.T) {
	assert.Equal(t, 2, ListFilter{Offset: 1, Limit: math.MaxInt}.capacity(3))
	assert.Equal(t, 4, ListFilter{Offset: 0, Limit: 4}.capacity(100))
	assert.False(t, ListFilter{Offset: 3, Limit: 1}.reaches(3))
	assert.False(t, ListFilter{Offset: 0, Limit: 0}.reaches(3))
	assert.True(t, ListFilter{Offset: 2, Limit: 1}.reaches(3))
}

func TestWaitlistRepository_CountEntries(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t), time.Second)

	counts, err := repo.CountEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &EntryCounts{}, counts)

	seedEntries(t, repo, 5, 2)

	counts, err = repo.CountEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts.Total)
	assert.Equal(t, int64(3), counts.Notified)
	assert.Equal(t, int64(2), counts.NotNotified)
	assert.Equal(t, counts.Total, counts.Notified+counts.NotNotified)
}

func TestWaitlistRepository_Ping(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t), time.Second)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestStoreError_DeadlineIsRetryable(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := storeError(ctx, errors.New("i/o timeout"))
	assert.Equal(t, apperrors.StatusServiceUnavailable, apperrors.HTTPStatusCode(err))
	assert.True(t, apperrors.IsInfrastructureError(err))

	err = storeError(context.Background(), errors.New("syntax error"))
	assert.Equal(t, apperrors.StatusInternalServerError, apperrors.HTTPStatusCode(err))
	assert.True(t, apperrors.IsInfrastructureError(err))
}
