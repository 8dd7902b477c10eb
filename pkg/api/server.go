// Package api serves the equipment cost engine over HTTP: registry
// lookups, cost forecasts, TCO and repair-vs-replace analytics, and the
// fleet replacement planner, all under /api/v1.
package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/config"
	"equipcost_forecast/pkg/core/forecast"
	"equipcost_forecast/pkg/core/pipeline"
	"equipcost_forecast/pkg/core/rollup"
	"equipcost_forecast/pkg/core/store"
)

// Server wires the analytical components behind a gin router.
type Server struct {
	cfg    config.Config
	logger *logrus.Logger
	db     *gorm.DB
	engine *gin.Engine

	equipment  *store.EquipmentRepo
	orders     *store.WorkOrderRepo
	results    *store.ResultsRepo
	cache      *store.ResultCache
	aggregator *rollup.Aggregator
	forecaster *forecast.Forecaster
	batch      *pipeline.Orchestrator
}

// NewServer builds a server over conn. A nil logger falls back to the
// logrus default. Redis is optional; without it the fleet endpoints
// recompute on every request.
func NewServer(conn *gorm.DB, cfg config.Config, logger *logrus.Logger) (*Server, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cache, err := store.NewResultCache(cfg.RedisURL, store.DefaultCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to set up result cache: %w", err)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		db:         conn,
		equipment:  store.NewEquipmentRepo(conn),
		orders:     store.NewWorkOrderRepo(conn),
		results:    store.NewResultsRepo(conn),
		cache:      cache,
		aggregator: rollup.NewAggregator(conn),
		forecaster: forecast.NewForecaster(conn),
		batch:      pipeline.NewOrchestrator(conn, cfg, logger),
	}
	s.engine = s.buildRouter()
	return s, nil
}

// Router exposes the configured gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.WithField("addr", addr).Info("http server listening")
	return s.engine.Run(addr)
}

// Close releases server-held resources.
func (s *Server) Close() error {
	return s.cache.Close()
}

func (s *Server) buildRouter() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestID())
	engine.Use(requestLogger(s.logger))
	engine.Use(newClientLimiter(defaultRequestsPerSecond, defaultBurst).middleware())
	engine.Use(cors.Default())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	engine.GET("/health", s.health)

	v1 := engine.Group("/api/v1")
	{
		eq := v1.Group("/equipment")
		{
			eq.GET("/", s.listEquipment)
			eq.GET("/:tag", s.getEquipment)
			eq.GET("/:tag/work-orders", s.listWorkOrders)
			eq.GET("/:tag/cost-history", s.costHistory)
		}

		fc := v1.Group("/forecasts")
		{
			fc.POST("/generate", s.generateForecasts)
			fc.GET("/fleet-summary", s.fleetSummary)
			fc.GET("/:tag", s.latestForecast)
		}

		v1.GET("/tco/compare", s.compareTCO)
		v1.GET("/tco/:tag", s.getTCO)
		v1.POST("/repair-vs-replace/:tag", s.repairVsReplace)
		v1.GET("/depreciation/:tag", s.getDepreciation)

		fl := v1.Group("/fleet")
		{
			fl.GET("/replacement-priorities", s.replacementPriorities)
			fl.GET("/replacement-schedule", s.replacementSchedule)
			fl.GET("/age-analysis", s.ageAnalysis)
			fl.GET("/health", s.fleetHealth)
		}
	}
	return engine
}
