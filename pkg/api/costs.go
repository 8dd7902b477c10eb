package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"equipcost_forecast/pkg/core/valuation"
	"equipcost_forecast/pkg/models"
)

func (s *Server) getTCO(c *gin.Context) {
	eq, ok := s.byTag(c)
	if !ok {
		return
	}
	rate := floatQuery(c, "downtime_rate", s.cfg.DowntimeHourlyRate)
	report, err := valuation.NewTCOCalculator(s.db, rate).CalculateTCO(c.Request.Context(), eq.ID, time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) compareTCO(c *gin.Context) {
	raw := c.Query("asset_tags")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_tags query parameter is required"})
		return
	}

	var ids []int64
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		eq, err := s.equipment.ByAssetTag(c.Request.Context(), tag)
		if err != nil {
			s.respondError(c, err)
			return
		}
		ids = append(ids, eq.ID)
	}

	rate := floatQuery(c, "downtime_rate", s.cfg.DowntimeHourlyRate)
	comparison, err := valuation.NewTCOCalculator(s.db, rate).CompareTCO(c.Request.Context(), ids, time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

type repairVsReplaceRequest struct {
	ReplacementCost float64 `json:"replacement_cost" binding:"omitempty,gte=0"`
	DiscountRate    float64 `json:"discount_rate" binding:"omitempty,gt=0"`
	HorizonYears    int     `json:"horizon_years" binding:"omitempty,gte=1"`
}

func (s *Server) repairVsReplace(c *gin.Context) {
	eq, ok := s.byTag(c)
	if !ok {
		return
	}
	var req repairVsReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	rate := req.DiscountRate
	if rate <= 0 {
		rate = s.cfg.DiscountRate
	}

	analyzer := valuation.NewNPVAnalyzer(s.db, rate)
	analysis, err := analyzer.RepairVsReplace(c.Request.Context(), eq.ID, req.ReplacementCost, req.HorizonYears, time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) getDepreciation(c *gin.Context) {
	eq, ok := s.byTag(c)
	if !ok {
		return
	}
	method := c.DefaultQuery("method", models.DepreciationStraightLine)
	if method != models.DepreciationStraightLine && method != models.DepreciationMACRS {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method must be straight_line or macrs"})
		return
	}

	bookValue, err := valuation.NewBookValuer(s.db).BookValue(c.Request.Context(), eq.ID, method, time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}
	schedule, err := s.results.DepreciationRows(c.Request.Context(), eq.ID, method)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"asset_tag":          eq.AssetTag,
		"method":             method,
		"current_book_value": bookValue,
		"schedule":           schedule,
	})
}
