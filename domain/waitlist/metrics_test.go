package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/akeren/waitlister-api/internal/models"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func counterValue(t *testing.T, metrics *Metrics, outcome string) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.registrations.WithLabelValues(outcome).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestWaitlistService_RecordsRegistrationOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	metrics := NewMetrics()
	mockRepo := NewMockWaitlistRepository(ctrl)
	service := NewWaitlistService(newTestLogger(), mockRepo, ServiceConfig{
		Metrics: metrics,
		Now:     func() time.Time { return fixedNow },
	})

	mockRepo.EXPECT().ExistsByEmail(gomock.Any(), "a@x.com").Return(false, nil)
	mockRepo.EXPECT().
		CreateEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			entry.ID = "entry-1"
			return entry, nil
		})
	mockRepo.EXPECT().ExistsByEmail(gomock.Any(), "a@x.com").Return(true, nil)

	_, _ = service.Register(context.Background(), &RegisterRequest{Email: "a@x.com", Name: "Alice"})
	_, _ = service.Register(context.Background(), &RegisterRequest{Email: "a@x.com", Name: "Alice"})
	_, _ = service.Register(context.Background(), &RegisterRequest{Email: "nope", Name: "Alice"})

	assert.Equal(t, float64(1), counterValue(t, metrics, outcomeCreated))
	assert.Equal(t, float64(1), counterValue(t, metrics, outcomeConflict))
	assert.Equal(t, float64(1), counterValue(t, metrics, outcomeInvalid))
	assert.Equal(t, float64(0), counterValue(t, metrics, outcomeError))
	assert.Len(t, metrics.Collectors(), 1)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var metrics *Metrics

	assert.NotPanics(t, func() { metrics.observeRegistration(outcomeCreated) })
	assert.Nil(t, metrics.Collectors())
}
