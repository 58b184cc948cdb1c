package middleware

import (
	"context"
	"net/http"
	"strings"

	"brokerage-onboarding-backend/internal/delivery/http/response"
	"brokerage-onboarding-backend/internal/domain"
	"brokerage-onboarding-backend/pkg/auth"
	"brokerage-onboarding-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthCookieName carries the token on browser redirects back from the verification provider
const AuthCookieName = "auth_token"

func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// 1. Try to get token from Header
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie != "" {
			// 2. Fall back to the cookie
			tokenString = cookie
		}

		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header or auth_token cookie required", nil)
			c.Abort()
			return
		}

		identity, err := verifier.Verify(tokenString)
		if err != nil {
			logger.Log.Warn("Token validation failed", "error", err, "path", c.FullPath())
			response.Error(c, http.StatusUnauthorized, "Invalid token", nil)
			c.Abort()
			return
		}

		c.Set(string(domain.KeyUserID), identity.Subject)
		c.Set(string(domain.KeyUserEmail), identity.Email)
		c.Set(string(domain.KeyUserRole), domain.RoleClient)

		// Usecases read the identity from the request context
		ctx := context.WithValue(c.Request.Context(), domain.KeyUserID, identity.Subject)
		ctx = context.WithValue(ctx, domain.KeyUserEmail, identity.Email)
		ctx = context.WithValue(ctx, domain.KeyUserRole, domain.RoleClient)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
