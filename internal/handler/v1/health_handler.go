package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Check is one readiness dependency, such as the database or the cache.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	version string
	checks  []Check
	log     *zap.Logger
}

func NewHealthHandler(version string, log *zap.Logger, checks ...Check) *HealthHandler {
	return &HealthHandler{version: version, checks: checks, log: log}
}

// Live never touches dependencies.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.log.Warn("readiness check failed", zap.String("check", check.Name), zap.Error(err))
			results[check.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[check.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
