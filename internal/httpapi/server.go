// Package httpapi exposes the geohash codec, the polygon coverer, and
// the compressor over HTTP: a Server wrapping a gin.Engine and an
// *http.Server, routes grouped under /api/v1, Prometheus metrics mounted
// at /metrics, and a middleware stack of logging, CORS, rate limiting,
// security headers, and metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/flybeeper/geocover/internal/audit"
	"github.com/flybeeper/geocover/internal/cache"
	"github.com/flybeeper/geocover/internal/config"
	"github.com/flybeeper/geocover/internal/metrics"
)

// Server is the HTTP surface over the geohash/cover/compress library.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     *logrus.Entry
	config     *config.Config

	codec    *codecHandler
	coverage *coverageHandler
}

// NewServer builds a Server. cache and auditLog may be nil, in which case
// caching and audit logging are skipped.
func NewServer(cfg *config.Config, logger *logrus.Entry, c *cache.Cache, auditLog *audit.Log) *Server {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(loggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.CORS))
	router.Use(rateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	router.Use(securityHeadersMiddleware())
	router.Use(metrics.HTTPMetricsMiddleware())

	s := &Server{
		router:   router,
		logger:   logger,
		config:   cfg,
		codec:    &codecHandler{},
		coverage: newCoverageHandler(cfg, logger, c, auditLog),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/geohash/encode", s.codec.encode)
		v1.GET("/geohash/:hash", s.codec.decode)
		v1.GET("/geohash/:hash/children", s.codec.children)
		v1.GET("/geohash/:hash/parent", s.codec.parent)
		v1.GET("/geohash/:hash/neighbors", s.codec.neighbors)

		v1.POST("/cover", s.coverage.cover)
		v1.POST("/compress", s.coverage.compress)
	}

	s.router.GET("/ws/v1/cover", s.coverage.coverStream)
}

// Start runs the HTTP server until it is shut down or fails.
func (s *Server) Start() error {
	s.logger.WithField("address", s.config.Server.Address).Info("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
