package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/akeren/waitlister-api/internal/log"
	apperrors "github.com/akeren/waitlister-api/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AdminRole        = "admin"
	bearerPrefix     = "Bearer "
	claimsContextKey = "auth.claims"
)

// AdminAuthMiddleware requires an HS256 bearer token whose "role" claim is
// "admin". An empty secret disables the gate and logs a warning once.
func AdminAuthMiddleware(secret string, logger *log.Logger) MiddlewareFunc {
	if strings.TrimSpace(secret) == "" {
		if logger != nil {
			logger.Warn("ADMIN_AUTH_SECRET not set; admin routes are unauthenticated")
		}
		return func(c *gin.Context) { c.Next() }
	}

	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		correlatedLogger := GetLogger(c)

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			correlatedLogger.Warn("Admin route called without bearer token", "path", c.FullPath())
			abortWithError(c, apperrors.NewUnauthorizedError("Authorization bearer token is required", nil))
			return
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(strings.TrimSpace(header[len(bearerPrefix):]), claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			message := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "Token has expired"
			}
			correlatedLogger.Warn("Admin token rejected", "error", err)
			abortWithError(c, apperrors.NewUnauthorizedError(message, err))
			return
		}

		if role, _ := claims["role"].(string); role != AdminRole {
			correlatedLogger.Warn("Admin route called without admin role", "subject", fmt.Sprint(claims["sub"]))
			abortWithError(c, apperrors.NewForbiddenError("Admin access required", nil))
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// AdminClaims returns the verified claims set by AdminAuthMiddleware.
func AdminClaims(c *RequestContext) (jwt.MapClaims, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(jwt.MapClaims)
	return claims, ok
}
