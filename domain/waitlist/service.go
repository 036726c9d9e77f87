package waitlist

import (
	"context"
	"math"
	"time"

	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/pkg/constants"
	apperrors "github.com/akeren/waitlister-api/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/akeren/waitlister-api/domain/waitlist")

type WaitlistService interface {
	// Register validates, checks uniqueness and stores a new entry.
	Register(ctx context.Context, req *RegisterRequest) (*RegistrationResponse, error)

	// List returns one page of entries, newest first.
	List(ctx context.Context, query ListQuery) (*ListResult, error)

	// Count returns the total, notified and not-notified entry counts.
	Count(ctx context.Context) (*EntryCounts, error)
}

type ServiceConfig struct {
	Cache         Cache
	CountCacheTTL time.Duration
	Metrics       *Metrics
	Now           func() time.Time
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	validator  *Validator
	counts     *countsCache
	metrics    *Metrics
	now        func() time.Time
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, cfg ServiceConfig) WaitlistService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &waitlistService{
		logger:     logger,
		repository: repository,
		validator:  NewValidator(),
		counts:     newCountsCache(cfg.Cache, cfg.CountCacheTTL),
		metrics:    cfg.Metrics,
		now:        now,
	}
}

func (s *waitlistService) Register(ctx context.Context, req *RegisterRequest) (*RegistrationResponse, error) {
	ctx, span := tracer.Start(ctx, "waitlist.Register")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	reg, failures := s.validator.Validate(req)
	if len(failures) > 0 {
		message := JoinFailures(failures)
		logger.Info("Waitlist registration rejected", "reason", message)
		s.metrics.observeRegistration(outcomeInvalid)
		return nil, apperrors.NewValidationError(message, nil)
	}

	exists, err := s.repository.ExistsByEmail(ctx, reg.Email)
	if err != nil {
		logger.Error("Failed to check existing waitlist entry", "error", err)
		s.metrics.observeRegistration(outcomeError)
		return nil, fail(span, err)
	}
	if exists {
		logger.Info("Duplicate waitlist registration")
		s.metrics.observeRegistration(outcomeConflict)
		return nil, apperrors.NewConflictError(MsgDuplicateEmail, nil)
	}

	entry := ToWaitlistEntryModel(reg)
	entry.CreatedAt = s.now().UTC()
	entry.Notified = false

	created, err := s.repository.CreateEntry(ctx, entry)
	if err != nil {
		if apperrors.GetErrorType(err) == apperrors.ErrorTypeConflict {
			// Lost a race with a concurrent registration for the same email.
			logger.Info("Duplicate waitlist registration rejected by store")
			s.metrics.observeRegistration(outcomeConflict)
			return nil, apperrors.NewConflictError(MsgDuplicateEmail, err)
		}
		logger.Error("Failed to create waitlist entry", "error", err)
		s.metrics.observeRegistration(outcomeError)
		return nil, fail(span, err)
	}

	s.counts.invalidate(ctx, logger)
	s.metrics.observeRegistration(outcomeCreated)
	span.SetAttributes(attribute.String("waitlist.entry_id", created.ID))
	logger.Info("Waitlist entry created", "id", created.ID)

	response := ToRegistrationResponse(created)
	return &response, nil
}

func (s *waitlistService) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	ctx, span := tracer.Start(ctx, "waitlist.List")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	page, limit := normalizePaging(query.Page, query.Limit)
	span.SetAttributes(attribute.Int("waitlist.page", page), attribute.Int("waitlist.limit", limit))

	entries, total, err := s.repository.ListEntries(ctx, ListFilter{
		Offset:   pageOffset(page, limit),
		Limit:    limit,
		Notified: query.Notified,
	})
	if err != nil {
		logger.Error("Failed to list waitlist entries", "page", page, "limit", limit, "error", err)
		return nil, fail(span, err)
	}

	responses := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, ToEntryResponse(entry))
	}

	return &ListResult{
		Entries: responses,
		Pagination: PageInfo{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pageCount(total, limit),
		},
	}, nil
}

func (s *waitlistService) Count(ctx context.Context) (*EntryCounts, error) {
	ctx, span := tracer.Start(ctx, "waitlist.Count")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if cached, ok := s.counts.get(ctx, logger); ok {
		span.SetAttributes(attribute.Bool("waitlist.cache_hit", true))
		return cached, nil
	}

	counts, err := s.repository.CountEntries(ctx)
	if err != nil {
		logger.Error("Failed to count waitlist entries", "error", err)
		return nil, fail(span, err)
	}

	s.counts.set(ctx, logger, counts)
	return counts, nil
}

// fail records err on the span. Errors outside the application taxonomy are
// wrapped so their text never reaches the client.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, apperrors.GetErrorType(err))
	if apperrors.GetErrorType(err) == apperrors.ErrorTypeUnknown {
		return apperrors.NewInternalServerError(MsgStoreFailure, err)
	}
	return err
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = constants.DefaultPage
	}
	if limit < 1 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}
	return page, limit
}

// pageOffset is (page-1)*limit, saturating at math.MaxInt so pages past the
// end stay past the end.
func pageOffset(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func pageCount(total int64, limit int) int64 {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}
