package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/core/forecast"
	"equipcost_forecast/pkg/core/reliability"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/core/valuation"
	"equipcost_forecast/pkg/models"
)

// domainErrors are caller problems, not server faults.
var domainErrors = []error{
	forecast.ErrInsufficientHistory,
	valuation.ErrTooFewAssets,
	calc.ErrUnsupportedRecoveryPeriod,
	reliability.ErrNoData,
	reliability.ErrInsufficientRepairHistory,
	reliability.ErrNoValidIntervals,
}

// respondError maps an error to its HTTP status: unknown records 404,
// domain errors 400, everything else 500.
func (s *Server) respondError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	for _, domain := range domainErrors {
		if errors.Is(err, domain) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	s.logger.WithField("request_id", c.GetString("request_id")).WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// byTag resolves the :tag route parameter or writes a 404.
func (s *Server) byTag(c *gin.Context) (*models.Equipment, bool) {
	eq, err := s.equipment.ByAssetTag(c.Request.Context(), c.Param("tag"))
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return eq, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func floatQuery(c *gin.Context, name string, fallback float64) float64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func (s *Server) listEquipment(c *gin.Context) {
	filter := store.EquipmentFilter{
		FacilityID:     c.Query("facility_id"),
		EquipmentClass: c.Query("equipment_class"),
		Status:         c.Query("status"),
		Manufacturer:   c.Query("manufacturer"),
		Page:           intQuery(c, "page", 1),
		PageSize:       intQuery(c, "page_size", store.DefaultPageSize),
	}

	items, total, err := s.equipment.List(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (s *Server) getEquipment(c *gin.Context) {
	eq, ok := s.byTag(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, eq)
}

func (s *Server) listWorkOrders(c *gin.Context) {
	eq, ok := s.byTag(c)
	if !ok {
		return
	}
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", store.DefaultPageSize)

	orders, total, err := s.orders.ListByEquipment(c.Request.Context(), eq.ID, page, pageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"asset_tag": eq.AssetTag,
		"items":     orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (s *Server) costHistory(c *gin.Context) {
	eq, ok := s.byTag(c)
	if !ok {
		return
	}
	history, err := s.aggregator.CostHistory(c.Request.Context(), eq.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"asset_tag": eq.AssetTag,
		"months":    len(history),
		"history":   history,
	})
}
