// Package api provides the HTTP service for Fraudkeeper's rule and
// transaction endpoints.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/solatis/fraudkeeper/internal/core/config"
	"github.com/solatis/fraudkeeper/internal/lifecycle"
	"github.com/solatis/fraudkeeper/internal/pipeline"
	"github.com/solatis/fraudkeeper/internal/store"
)

// Service implements the HTTP API. Thin orchestration layer delegating to
// the lifecycle manager, the evaluation pipeline, and the stores.
type Service struct {
	db       *sqlx.DB
	rules    *lifecycle.Manager
	pipeline *pipeline.Pipeline
	events   *store.FraudEventStore
	metrics  http.Handler
	cfg      *config.ServiceConfig
	log      *slog.Logger
}

// NewService creates a service instance with its dependencies.
func NewService(db *sqlx.DB, rules *lifecycle.Manager, pipe *pipeline.Pipeline, events *store.FraudEventStore, metricsHandler http.Handler, cfg *config.ServiceConfig, log *slog.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if rules == nil {
		return nil, fmt.Errorf("rules cannot be nil")
	}
	if pipe == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if events == nil {
		return nil, fmt.Errorf("events cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		db:       db,
		rules:    rules,
		pipeline: pipe,
		events:   events,
		metrics:  metricsHandler,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Router builds the gin engine with all routes registered.
func (s *Service) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/transactions", s.evaluateTransaction)

	router.POST("/rules", s.createRule)
	router.GET("/rules", s.listRules)
	router.GET("/rules/active", s.activeRule)
	router.GET("/rules/:id", s.findRule)
	router.PUT("/rules/:id", s.updateRule)
	router.DELETE("/rules/:id", s.deleteRule)

	router.GET("/frauds", s.listFraudEvents)
	router.GET("/frauds/:id", s.findFraudEvent)

	router.GET("/healthz", s.healthz)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics))
	}

	return router
}

// healthz reports liveness, including database reachability.
func (s *Service) healthz(c *gin.Context) {
	if err := s.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
