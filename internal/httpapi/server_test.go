package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/geocover/internal/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Environment: "development",
		Server: config.ServerConfig{
			Address:        ":0",
			RateLimitRPS:   1000,
			RateLimitBurst: 1000,
		},
		Geo: config.GeoConfig{
			DefaultPrecision: 6,
			MaxPrecision:     9,
			CompressMinLevel: 1,
			CompressMaxLevel: 12,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	logger := logrus.New().WithField("test", "httpapi")
	return NewServer(cfg, logger, nil, nil)
}

func TestHealthCheck(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEncodeEndpoint(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/geohash/encode?lat=52.5174&lng=13.409&precision=6", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u33dc0", body["geohash"])
}

func TestEncodeEndpointInvalidCoordinate(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/geohash/encode?lat=999&lng=13.409&precision=6", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeEndpoint(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/geohash/u33dc0", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestChildrenEndpoint(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/geohash/u/children", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Children []string `json:"children"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Children, 32)
}

func TestNeighborsEndpoint(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/geohash/u/neighbors", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Neighbors map[string]string `json:"neighbors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "h", body.Neighbors["N"])
}

func TestCompressEndpoint(t *testing.T) {
	s := testServer(t)
	payload := `{"geohashes":["y0","y01","z2"],"min_level":1,"max_level":12}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compress", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Geohashes []string `json:"geohashes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"y0", "z2"}, body.Geohashes)
}

func TestCoverEndpointSmallRectangle(t *testing.T) {
	s := testServer(t)
	payload := `{
		"polygon": {"shell": [[2.2,48.8],[2.3,48.8],[2.3,48.9],[2.2,48.9],[2.2,48.8]]},
		"precision": 4,
		"criterion": "intersects"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cover", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Cells []string `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"u09t", "u09w"}, body.Cells)
}

func TestCoverEndpointPrecisionTooHigh(t *testing.T) {
	s := testServer(t)
	payload := `{
		"polygon": {"shell": [[2.2,48.8],[2.3,48.8],[2.3,48.9],[2.2,48.9],[2.2,48.8]]},
		"precision": 12,
		"criterion": "intersects"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cover", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
