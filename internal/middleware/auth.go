// Package middleware provides the gin middleware chain: security
// headers, correlation IDs, JWT authentication, and rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dental-cdss-server/internal/auth"
	"github.com/dental-cdss-server/internal/domain"
)

// Authenticate validates the Bearer token and stores the caller's
// identity on the request context.
func Authenticate(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "authorization header required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "authorization header must be a Bearer token")
			return
		}

		claims, err := issuer.Validate(parts[1])
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "invalid or expired token")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)
		c.Next()
	}
}

// RequireRole restricts a route to callers holding one of the given roles.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("userRole")
		if !exists {
			abortWithError(c, http.StatusForbidden, domain.ErrCodeAuthorization, "role information missing")
			return
		}
		role, ok := value.(auth.Role)
		if !ok {
			abortWithError(c, http.StatusForbidden, domain.ErrCodeAuthorization, "role information missing")
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, domain.ErrCodeAuthorization, "insufficient permissions")
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, "", c.GetString("correlation_id")))
}
