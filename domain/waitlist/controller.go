package waitlist

import (
	"errors"
	"io"

	"github.com/akeren/waitlister-api/config/router"
	apperrors "github.com/akeren/waitlister-api/pkg/errors"
	"github.com/akeren/waitlister-api/pkg/ratelimit"
)

// ControllerOptions carries the per-route collaborators of the waitlist routes.
type ControllerOptions struct {
	// RegistrationLimiter overrides the router default on POST. Nil keeps the default.
	RegistrationLimiter ratelimit.RateLimiter
	// AdminGuard gates the listing and count routes.
	AdminGuard router.MiddlewareFunc
	Metrics    *Metrics
}

func NewWaitlistController(service WaitlistService, opts ControllerOptions) *router.RESTController {
	return router.NewRESTController(
		"WaitlistController",
		"/api/waitlisters",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.RegisterMetrics(opts.Metrics.Collectors()...)

			var adminGuards []router.MiddlewareFunc
			if opts.AdminGuard != nil {
				adminGuards = append(adminGuards, opts.AdminGuard)
			}

			rs.AddPostHandler(c, opts.RegistrationLimiter, "", registerHandler(service))
			rs.AddGetHandler(c, nil, "", listHandler(service), adminGuards...)
			rs.AddGetHandler(c, nil, "count", countHandler(service), adminGuards...)
		},
	)
}

func registerHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req RegisterRequest
		if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			logger.Warn("Failed to bind registration request", "error", err)

			result := router.ResultFromError(apperrors.NewInvalidRequestError("Invalid request body", err))
			if fields := apperrors.FormatBindingError(err); len(fields) > 0 {
				result.Data = fields
			}
			return result
		}

		response, err := service.Register(ctx.Request.Context(), &req)
		if err != nil {
			return router.ResultFromError(err)
		}

		return router.CreatedResult(response, "Successfully joined the waitlist")
	}
}

func listHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		query := ListQuery{
			Page:     router.QueryInt(ctx, "page", 0),
			Limit:    router.QueryInt(ctx, "limit", 0),
			Notified: router.QueryBool(ctx, "notified"),
		}

		result, err := service.List(ctx.Request.Context(), query)
		if err != nil {
			return router.ResultFromError(err)
		}

		return router.PaginatedResult(result.Entries, router.Pagination{
			Page:  result.Pagination.Page,
			Limit: result.Pagination.Limit,
			Total: result.Pagination.Total,
			Pages: result.Pagination.Pages,
		}, "Waitlist entries retrieved successfully")
	}
}

func countHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		counts, err := service.Count(ctx.Request.Context())
		if err != nil {
			return router.ResultFromError(err)
		}

		return router.OKResult(counts, "Waitlist counts retrieved successfully")
	}
}
