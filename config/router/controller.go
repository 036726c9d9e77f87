package router

import (
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/akeren/waitlister-api/pkg/errors"
	"github.com/akeren/waitlister-api/pkg/ratelimit"
)

func normalizePath(controller *RESTController, relativePath string) string {
	var path string = controller.mountPoint

	if relativePath != "" {
		path = path + "/" + relativePath
	}

	if path[0] != '/' {
		path = "/" + path
	}

	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	return strings.ReplaceAll(path, "//", "/")
}

func keyForPathAndMethod(path, method string) string {
	return method + "-" + path
}

func (controller *RESTController) bindHandlerToController(routerService *RouterService, path, method string) {
	key := keyForPathAndMethod(path, method)
	if other, found := routerService.handlerToControllerMap[key]; found {
		panic(fmt.Sprintf("%s %s is already registered by controller %q", method, path, other.name))
	}
	routerService.handlerToControllerMap[key] = controller
}

// bindHandlerLimiter gives one route its own limiter; nil keeps the default.
func (routerService *RouterService) bindHandlerLimiter(path, method string, limiter ratelimit.RateLimiter) {
	if limiter == nil {
		return
	}
	routerService.handlerLimiters[keyForPathAndMethod(path, method)] = limiter
}

func createHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		if result == nil {
			GetLogger(c).Error("Handler returned no result", "route", c.FullPath())
			result = ResultFromError(apperrors.NewInternalServerError("An unexpected error occurred", nil))
		}

		c.JSON(result.StatusCode, result.ToJSON())
	}
}

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	mountPoint = strings.ReplaceAll("/"+mountPoint, "//", "/")

	return &RESTController{
		name:       name,
		mountPoint: mountPoint,
		prepare:    prepare,
	}
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(controller, http.MethodPost, path, limiter, handler, middlewares)
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(controller, http.MethodGet, path, limiter, handler, middlewares)
}

// addHandler registers a route under the controller's mount point. The route
// middlewares run after the router-wide chain and before the handler.
func (routerService *RouterService) addHandler(
	controller *RESTController,
	method, path string,
	limiter ratelimit.RateLimiter,
	handler HandlerFunction,
	middlewares []MiddlewareFunc,
) {
	route := normalizePath(controller, path)
	controller.bindHandlerToController(routerService, route, method)
	routerService.bindHandlerLimiter(route, method, limiter)

	chain := append(append([]MiddlewareFunc{}, middlewares...), createHandler(handler))
	routerService.engine.Handle(method, route, chain...)
	controller.handlerCount++

	routerService.logger.Debug("Handler registered", "method", method, "path", route, "own_limiter", limiter != nil)
}
