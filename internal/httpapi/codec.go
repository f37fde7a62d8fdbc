package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flybeeper/geocover/geohash"
)

// codecHandler exposes geohash.Encode/Decode/Children/Parent/Neighbors
// over HTTP, translating codec errors to the {"code", "message"} JSON
// error-body convention used across the API.
type codecHandler struct{}

func (h *codecHandler) encode(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		badRequest(c, "invalid_latitude", "lat must be a number")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		badRequest(c, "invalid_longitude", "lng must be a number")
		return
	}
	precision := geohash.MaxPrecision
	if p := c.Query("precision"); p != "" {
		precision, err = strconv.Atoi(p)
		if err != nil {
			badRequest(c, "invalid_precision", "precision must be an integer")
			return
		}
	}

	hash, err := geohash.Encode(lat, lng, precision)
	if err != nil {
		codecError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"geohash": hash})
}

func (h *codecHandler) decode(c *gin.Context) {
	hash := c.Param("hash")
	lat, lng, err := geohash.Decode(hash)
	if err != nil {
		codecError(c, err)
		return
	}
	box, err := geohash.BoundingBoxOf(hash)
	if err != nil {
		codecError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"geohash": hash,
		"lat":     lat,
		"lng":     lng,
		"bbox": gin.H{
			"min_lat": box.MinLat, "max_lat": box.MaxLat,
			"min_lng": box.MinLng, "max_lng": box.MaxLng,
		},
	})
}

func (h *codecHandler) children(c *gin.Context) {
	hash := c.Param("hash")
	kids, err := geohash.Children(hash)
	if err != nil {
		codecError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"geohash": hash, "children": kids[:]})
}

func (h *codecHandler) parent(c *gin.Context) {
	hash := c.Param("hash")
	p, err := geohash.Parent(hash)
	if err != nil {
		codecError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"geohash": hash, "parent": p})
}

func (h *codecHandler) neighbors(c *gin.Context) {
	hash := c.Param("hash")
	n, err := geohash.Neighbors(hash)
	if err != nil {
		codecError(c, err)
		return
	}
	out := make(map[string]string, len(n))
	for dir, neighbor := range n {
		out[dir.String()] = neighbor
	}
	c.JSON(http.StatusOK, gin.H{"geohash": hash, "neighbors": out})
}

// codecError maps a geohash package sentinel error to an HTTP status and
// a stable error code.
func codecError(c *gin.Context, err error) {
	code, status := "invalid_request", http.StatusBadRequest
	switch {
	case errors.Is(err, geohash.ErrInvalidCoordinate):
		code = "invalid_coordinate"
	case errors.Is(err, geohash.ErrInvalidPrecision):
		code = "invalid_precision"
	case errors.Is(err, geohash.ErrEmptyGeohash):
		code = "empty_geohash"
	case errors.Is(err, geohash.ErrTooLong):
		code = "too_long"
	case errors.Is(err, geohash.ErrInvalidCharacter):
		code = "invalid_character"
	case errors.Is(err, geohash.ErrNoParent):
		code = "no_parent"
	}
	c.JSON(status, gin.H{"code": code, "message": err.Error()})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": code, "message": message})
}
