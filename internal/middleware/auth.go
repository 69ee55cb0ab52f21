package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/auth"
	"github.com/gin-gonic/gin"
)

// TokenValidator is satisfied by *auth.JWTManager.
type TokenValidator interface {
	ValidateAccessToken(token string) (*domain.Claims, error)
}

// Auth verifies the bearer access token. Identity is taken from the token
// alone; nothing in the request body can change it.
func Auth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "missing or malformed bearer token")
			return
		}

		claims, err := v.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			msg := "invalid token"
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				msg = "token expired"
			case errors.Is(err, auth.ErrTokenTypeMismatch):
				msg = "refresh token cannot be used for API access"
			}
			abort(c, http.StatusUnauthorized, msg)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "insufficient role for this resource")
	}
}
