package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"equipcost_forecast/pkg/core/fleet"
	"equipcost_forecast/pkg/core/valuation"
	"equipcost_forecast/pkg/models"
)

// maxPriorityDetails bounds how much of the ranking one response carries.
const maxPriorityDetails = 50

type prioritiesPayload struct {
	Count      int                          `json:"count"`
	Budget     float64                      `json:"annual_capital_budget"`
	Priorities []models.ReplacementPriority `json:"priorities"`
}

func (s *Server) replacementPriorities(c *gin.Context) {
	facility := c.Query("facility_id")
	budget := floatQuery(c, "budget", s.cfg.AnnualCapitalBudget)
	cacheKey := fmt.Sprintf("fleet:priorities:%s:%.0f", facility, budget)

	var payload prioritiesPayload
	if hit, err := s.cache.GetJSON(c.Request.Context(), cacheKey, &payload); err != nil {
		s.logger.WithError(err).Warn("priorities cache read failed")
	} else if hit {
		c.JSON(http.StatusOK, payload)
		return
	}

	optimizer := fleet.NewOptimizer(s.db, budget, s.cfg.DiscountRate)
	priorities, err := optimizer.RankReplacementPriorities(c.Request.Context(), facility, time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}

	payload = prioritiesPayload{Count: len(priorities), Budget: budget, Priorities: priorities}
	if len(payload.Priorities) > maxPriorityDetails {
		payload.Priorities = payload.Priorities[:maxPriorityDetails]
	}
	if err := s.cache.SetJSON(c.Request.Context(), cacheKey, payload); err != nil {
		s.logger.WithError(err).Warn("priorities cache write failed")
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) replacementSchedule(c *gin.Context) {
	horizon := intQuery(c, "horizon_years", valuation.DefaultHorizonYears)
	if horizon < 1 || horizon > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "horizon_years must be between 1 and 10"})
		return
	}

	optimizer := fleet.NewOptimizer(s.db, s.cfg.AnnualCapitalBudget, s.cfg.DiscountRate)
	schedule, err := optimizer.OptimalReplacementSchedule(c.Request.Context(), c.Query("facility_id"), horizon, time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

func (s *Server) ageAnalysis(c *gin.Context) {
	optimizer := fleet.NewOptimizer(s.db, s.cfg.AnnualCapitalBudget, s.cfg.DiscountRate)
	analysis, err := optimizer.AgeAnalysis(c.Request.Context(), c.Query("facility_id"), time.Now().UTC())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}
