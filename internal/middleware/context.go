package middleware

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	claimsKey    = "auth_claims"
	requestIDKey = "request_id"

	HeaderRequestID = "X-Request-ID"
)

// ClaimsFrom returns the identity verified by Auth.
func ClaimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}

func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// abort writes the same error body shape the handlers use.
func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"timestamp": time.Now().UTC(),
		"status":    status,
		"error":     http.StatusText(status),
		"message":   message,
	})
}
