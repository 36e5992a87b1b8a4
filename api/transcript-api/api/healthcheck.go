package transcript_api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (api *TranscriptApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": api.cfg.Name, "version": api.cfg.Version})
}

// Readiness reports whether the relational store, the only shared mutable
// resource, is reachable.
func (api *TranscriptApi) Readiness(c *gin.Context) {
	if err := api.postgres.Ping(c.Request.Context()); err != nil {
		api.logger.Errorf("readiness check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
