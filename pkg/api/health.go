package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// health is the bare liveness probe.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.AppName,
	})
}

// fleetHealth reports store connectivity and how fresh the analytics are.
func (s *Server) fleetHealth(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}

	total, err := s.equipment.Count(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	var latest interface{}
	if date, err := s.results.LatestForecastDate(c.Request.Context()); err == nil && date != nil {
		latest = date.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":               "ok",
		"database":             "connected",
		"total_assets":         total,
		"latest_forecast_date": latest,
	})
}
