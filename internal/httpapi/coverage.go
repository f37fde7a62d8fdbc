package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/flybeeper/geocover/compress"
	"github.com/flybeeper/geocover/cover"
	"github.com/flybeeper/geocover/geomx"
	"github.com/flybeeper/geocover/internal/audit"
	"github.com/flybeeper/geocover/internal/cache"
	"github.com/flybeeper/geocover/internal/config"
	"github.com/flybeeper/geocover/internal/metrics"
)

// coverageHandler exposes cover.Cover and compress.Compress over HTTP and
// WebSocket, optionally memoizing results through cache.Cache and
// recording every Cover call through audit.Log.
type coverageHandler struct {
	cfg      *config.Config
	logger   *logrus.Entry
	engine   geomx.Engine
	cache    *cache.Cache
	auditLog *audit.Log
	upgrader websocket.Upgrader
}

func newCoverageHandler(cfg *config.Config, logger *logrus.Entry, c *cache.Cache, auditLog *audit.Log) *coverageHandler {
	return &coverageHandler{
		cfg:      cfg,
		logger:   logger.WithField("component", "coverage"),
		engine:   geomx.NewPlanarEngine(),
		cache:    c,
		auditLog: auditLog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// polygonRequest is the wire representation of a polygon: an exterior
// ring plus zero or more hole rings, each a list of [lng, lat] pairs.
type polygonRequest struct {
	Shell [][2]float64   `json:"shell" binding:"required"`
	Holes [][][2]float64 `json:"holes"`
}

type coverRequest struct {
	Polygon   polygonRequest `json:"polygon" binding:"required"`
	Precision int            `json:"precision"`
	Criterion string         `json:"criterion"`
}

func (r coverRequest) criterion() (cover.Criterion, error) {
	switch r.Criterion {
	case "", "intersects":
		return cover.Intersects, nil
	case "contains":
		return cover.Contains, nil
	default:
		return 0, errors.New("criterion must be \"contains\" or \"intersects\"")
	}
}

// cover handles POST /api/v1/cover.
func (h *coverageHandler) cover(c *gin.Context) {
	var req coverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}
	criterion, err := req.criterion()
	if err != nil {
		badRequest(c, "invalid_criterion", err.Error())
		return
	}
	if req.Precision == 0 {
		req.Precision = h.cfg.Geo.DefaultPrecision
	}
	if req.Precision > h.cfg.Geo.MaxPrecision {
		badRequest(c, "precision_too_high", "precision exceeds the configured maximum for this endpoint")
		return
	}

	polygon, err := geomx.NewPolygon(req.Polygon.Shell, req.Polygon.Holes)
	if err != nil {
		badRequest(c, "invalid_polygon", err.Error())
		return
	}

	ringsJSON, _ := json.Marshal(req.Polygon)
	key := cache.CoverKey(string(ringsJSON), req.Precision, criterion.String())
	if h.cache != nil {
		if cached, ok, err := h.cache.GetStrings(c.Request.Context(), key); err == nil && ok {
			c.JSON(http.StatusOK, gin.H{"cells": cached, "count": len(cached), "cached": true})
			return
		}
	}

	start := time.Now()
	minLng, minLat, maxLng, maxLat := h.engine.Envelope(polygon)
	cells, err := cover.Cover(c.Request.Context(), h.engine, polygon, req.Precision, criterion, &cover.Options{Workers: h.cfg.Geo.CoverWorkers})
	duration := time.Since(start)

	if h.auditLog != nil {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		h.auditLog.Write(context.Background(), audit.Record{
			MinLng: minLng, MinLat: minLat, MaxLng: maxLng, MaxLat: maxLat,
			Precision: req.Precision, Criterion: criterion.String(),
			CellCount: len(cells), Duration: duration, Err: errMsg, CreatedAt: time.Now(),
		})
	}

	if err != nil {
		h.coverError(c, err)
		return
	}

	out := make([]string, 0, len(cells))
	for cell := range cells {
		out = append(out, cell)
	}
	sort.Strings(out)

	metrics.CoverDuration.WithLabelValues(criterion.String()).Observe(duration.Seconds())
	metrics.CoverCellsMatched.WithLabelValues(criterion.String()).Add(float64(len(out)))

	if h.cache != nil {
		_ = h.cache.SetStrings(c.Request.Context(), key, out)
	}
	c.JSON(http.StatusOK, gin.H{"cells": out, "count": len(out)})
}

func (h *coverageHandler) coverError(c *gin.Context, err error) {
	metrics.CoverErrors.WithLabelValues("error").Inc()
	status := http.StatusBadRequest
	if errors.Is(err, cover.ErrCancelled) {
		status = http.StatusRequestTimeout
	}
	c.JSON(status, gin.H{"code": "cover_failed", "message": err.Error()})
}

type compressRequest struct {
	Geohashes []string `json:"geohashes" binding:"required"`
	MinLevel  int      `json:"min_level"`
	MaxLevel  int      `json:"max_level"`
}

// compress handles POST /api/v1/compress.
func (h *coverageHandler) compress(c *gin.Context) {
	var req compressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}
	minLevel, maxLevel := req.MinLevel, req.MaxLevel
	if minLevel == 0 {
		minLevel = h.cfg.Geo.CompressMinLevel
	}
	if maxLevel == 0 {
		maxLevel = h.cfg.Geo.CompressMaxLevel
	}

	key := cache.CompressKey(req.Geohashes, minLevel, maxLevel)
	if h.cache != nil {
		if cached, ok, err := h.cache.GetStrings(c.Request.Context(), key); err == nil && ok {
			c.JSON(http.StatusOK, gin.H{"geohashes": cached, "count": len(cached), "cached": true})
			return
		}
	}

	metrics.CompressInputSize.Observe(float64(len(req.Geohashes)))
	out, err := compress.Compress(req.Geohashes, minLevel, maxLevel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "compress_failed", "message": err.Error()})
		return
	}
	metrics.CompressOutputSize.Observe(float64(len(out)))

	if h.cache != nil {
		_ = h.cache.SetStrings(c.Request.Context(), key, out)
	}
	c.JSON(http.StatusOK, gin.H{"geohashes": out, "count": len(out)})
}

// progressMessage is one frame of the /ws/v1/cover stream.
type progressMessage struct {
	Progress *float64 `json:"progress,omitempty"`
	Cells    []string `json:"cells,omitempty"`
	Count    int      `json:"count,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// coverStream handles GET /ws/v1/cover: the client's first WebSocket
// message is a coverRequest; the server streams progress milestones from
// cover.Options.Progress as they arrive, then sends one final frame with
// the result and closes.
func (h *coverageHandler) coverStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	var req coverRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.sendWSError(conn, "failed to read cover request: "+err.Error())
		return
	}
	criterion, err := req.criterion()
	if err != nil {
		h.sendWSError(conn, err.Error())
		return
	}
	if req.Precision == 0 {
		req.Precision = h.cfg.Geo.DefaultPrecision
	}
	polygon, err := geomx.NewPolygon(req.Polygon.Shell, req.Polygon.Holes)
	if err != nil {
		h.sendWSError(conn, "invalid polygon: "+err.Error())
		return
	}

	var writeMu sync.Mutex
	progress := func(pct float64) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.WriteJSON(progressMessage{Progress: &pct})
		metrics.WebSocketProgressMessages.WithLabelValues("progress").Inc()
	}

	start := time.Now()
	cells, err := cover.Cover(c.Request.Context(), h.engine, polygon, req.Precision, criterion, &cover.Options{Progress: progress, Workers: h.cfg.Geo.CoverWorkers})
	duration := time.Since(start)

	if h.auditLog != nil {
		minLng, minLat, maxLng, maxLat := h.engine.Envelope(polygon)
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		h.auditLog.Write(context.Background(), audit.Record{
			MinLng: minLng, MinLat: minLat, MaxLng: maxLng, MaxLat: maxLat,
			Precision: req.Precision, Criterion: criterion.String(),
			CellCount: len(cells), Duration: duration, Err: errMsg, CreatedAt: time.Now(),
		})
	}

	if err != nil {
		h.sendWSError(conn, err.Error())
		metrics.WebSocketProgressMessages.WithLabelValues("error").Inc()
		return
	}

	out := make([]string, 0, len(cells))
	for cell := range cells {
		out = append(out, cell)
	}
	sort.Strings(out)

	writeMu.Lock()
	_ = conn.WriteJSON(progressMessage{Cells: out, Count: len(out)})
	writeMu.Unlock()
	metrics.WebSocketProgressMessages.WithLabelValues("complete").Inc()
}

func (h *coverageHandler) sendWSError(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(progressMessage{Error: msg})
}
