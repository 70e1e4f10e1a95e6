package middleware

import (
	"strings"

	"emotion-character-demo/backend/pkg/errors"
	"emotion-character-demo/backend/pkg/jwt"
	"emotion-character-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TokenValidator is the part of the jwt service the middleware needs
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// BearerToken returns the token from "Authorization: Bearer ..." or, for
// websocket upgrades where headers cannot be set, the token query parameter.
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return header
	}
	return c.Query("token")
}

// JWTAuthMiddleware checks that the request has a valid JWT and adds the user id to the context
func JWTAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			logger.FromContext(c).Warn("Invalid JWT token", "error", err.Error())
			c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set(UserIDKey, claims.UserID)

		c.Next()
	}
}
