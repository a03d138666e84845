package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmerrifield20/seasense/internal/health"
)

// readiness is satisfied by *health.Checker.
type readiness interface {
	Ready() bool
	Snapshot() []health.DependencyStatus
}

// Healthz reports liveness.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports whether every required dependency answered its last probe.
func Readyz(r readiness) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, word := http.StatusOK, "ready"
		if !r.Ready() {
			status, word = http.StatusServiceUnavailable, "not ready"
		}
		c.JSON(status, gin.H{
			"status":       word,
			"dependencies": r.Snapshot(),
		})
	}
}
