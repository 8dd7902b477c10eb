package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"equipcost_forecast/pkg/core/forecast"
	"equipcost_forecast/pkg/models"
)

// maxForecastErrorDetails bounds how many per-asset failures a bulk
// forecast response spells out.
const maxForecastErrorDetails = 10

type generateForecastsRequest struct {
	AssetTag      string `json:"asset_tag"`
	HorizonMonths int    `json:"horizon_months" binding:"omitempty,gte=1"`
	Method        string `json:"method" binding:"omitempty,oneof=auto arima exponential_smoothing"`
}

// generateForecasts refreshes forecasts for one asset or, with no
// asset_tag, the whole active fleet.
func (s *Server) generateForecasts(c *gin.Context) {
	req := generateForecastsRequest{
		HorizonMonths: forecast.DefaultHorizonMonths,
		Method:        models.MethodAuto,
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.HorizonMonths <= 0 {
		req.HorizonMonths = forecast.DefaultHorizonMonths
	}
	if req.Method == "" {
		req.Method = models.MethodAuto
	}
	asOf := time.Now().UTC()

	if req.AssetTag != "" {
		eq, err := s.equipment.ByAssetTag(c.Request.Context(), req.AssetTag)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if _, err := s.forecaster.ForecastEquipment(c.Request.Context(), eq.ID, req.HorizonMonths, req.Method, asOf); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"run_id":            uuid.NewString(),
			"equipment_count":   1,
			"forecasts_written": 1,
			"error_count":       0,
			"errors":            []string{},
		})
		return
	}

	batch, err := s.batch.ForecastFleet(c.Request.Context(), asOf)
	if err != nil {
		s.respondError(c, err)
		return
	}
	details := batch.Errors
	if len(details) > maxForecastErrorDetails {
		details = details[:maxForecastErrorDetails]
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":            batch.RunID,
		"equipment_count":   batch.Requested,
		"forecasts_written": batch.Forecast,
		"error_count":       len(batch.Errors),
		"errors":            details,
	})
}

func (s *Server) fleetSummary(c *gin.Context) {
	summary, err := s.aggregator.FleetSummary(c.Request.Context(), c.Query("facility_id"), time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) latestForecast(c *gin.Context) {
	eq, ok := s.byTag(c)
	if !ok {
		return
	}
	fc, err := s.forecaster.LatestForecast(c.Request.Context(), eq.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"asset_tag": eq.AssetTag,
		"forecast":  fc,
	})
}
