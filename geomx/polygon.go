// Package geomx provides the planar geometry collaborator the coverer
// depends on: polygon construction over github.com/twpayne/go-geom,
// envelope queries, and the contains/intersects/intersection predicates
// used to classify geohash cells against a polygon.
//
// The predicates themselves (see planar.go) are delegated to GEOS via
// github.com/twpayne/go-geos rather than hand-rolled. The Engine
// interface keeps the geometry library swappable for callers that carry
// their own.
package geomx

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

// ErrInvalidPolygon is returned when a ring fails the minimal validity
// checks (too few points, not closed, degenerate).
var ErrInvalidPolygon = errors.New("geomx: invalid polygon")

// NewPolygon builds a geom.Polygon (layout geom.XY, coordinates in
// (lng, lat) order) from an exterior ring and zero or more hole rings.
// Rings do not need to be pre-closed; NewPolygon closes them if the first
// and last points differ.
func NewPolygon(shell [][2]float64, holes [][][2]float64) (*geom.Polygon, error) {
	if len(shell) < 3 {
		return nil, fmt.Errorf("%w: shell needs at least 3 points, got %d", ErrInvalidPolygon, len(shell))
	}
	rings := make([][]geom.Coord, 0, 1+len(holes))
	rings = append(rings, closeRing(shell))
	for _, h := range holes {
		if len(h) < 3 {
			return nil, fmt.Errorf("%w: hole needs at least 3 points, got %d", ErrInvalidPolygon, len(h))
		}
		rings = append(rings, closeRing(h))
	}

	poly := geom.NewPolygon(geom.XY)
	if _, err := poly.SetCoords(rings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
	}
	return poly, nil
}

func closeRing(pts [][2]float64) []geom.Coord {
	out := make([]geom.Coord, len(pts), len(pts)+1)
	for i, p := range pts {
		out[i] = geom.Coord{p[0], p[1]}
	}
	first, last := pts[0], pts[len(pts)-1]
	if first[0] != last[0] || first[1] != last[1] {
		out = append(out, geom.Coord{first[0], first[1]})
	}
	return out
}

// RectPolygon builds the rectangular polygon for a geohash cell's
// bounding box, in the (lng, lat) order NewPolygon expects.
func RectPolygon(minLng, minLat, maxLng, maxLat float64) *geom.Polygon {
	shell := [][2]float64{
		{minLng, minLat}, {maxLng, minLat}, {maxLng, maxLat}, {minLng, maxLat}, {minLng, minLat},
	}
	poly, err := NewPolygon(shell[:len(shell)-1], nil)
	if err != nil {
		// RectPolygon is only ever called with well-formed bounding boxes
		// produced by the codec; a failure here indicates a programming error.
		panic(err)
	}
	return poly
}

// Envelope returns the axis-aligned bounding box of a polygon in
// (minLng, minLat, maxLng, maxLat) order, over every ring (shell and holes).
func Envelope(p *geom.Polygon) (minLng, minLat, maxLng, maxLat float64) {
	minLng, minLat = math.Inf(1), math.Inf(1)
	maxLng, maxLat = math.Inf(-1), math.Inf(-1)
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		for j := 0; j < ring.NumCoords(); j++ {
			c := ring.Coord(j)
			lng, lat := c.X(), c.Y()
			if lng < minLng {
				minLng = lng
			}
			if lng > maxLng {
				maxLng = lng
			}
			if lat < minLat {
				minLat = lat
			}
			if lat > maxLat {
				maxLat = lat
			}
		}
	}
	return
}

// Validate applies the minimal structural checks a coverer can rely on:
// every ring has at least 4 coordinates (3 distinct points, closed) and is
// closed (first coordinate equals last).
func Validate(p *geom.Polygon) error {
	if p == nil || p.NumLinearRings() == 0 {
		return fmt.Errorf("%w: no rings", ErrInvalidPolygon)
	}
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		n := ring.NumCoords()
		if n < 4 {
			return fmt.Errorf("%w: ring %d has %d coordinates, need >= 4", ErrInvalidPolygon, i, n)
		}
		first, last := ring.Coord(0), ring.Coord(n-1)
		if first.X() != last.X() || first.Y() != last.Y() {
			return fmt.Errorf("%w: ring %d is not closed", ErrInvalidPolygon, i)
		}
	}
	return nil
}

// Rings returns every ring of p (shell first, then holes) as plain
// (lng, lat) point lists, without the closing duplicate point. It is the
// inverse of FromRings.
func Rings(p *geom.Polygon) [][][2]float64 {
	out := make([][][2]float64, p.NumLinearRings())
	for i := range out {
		out[i] = ringPoints(p, i)
	}
	return out
}

// FromRings rebuilds a polygon from the ring representation Rings
// returns: rings[0] is the shell, any remaining entries are holes.
func FromRings(rings [][][2]float64) (*geom.Polygon, error) {
	if len(rings) == 0 {
		return nil, fmt.Errorf("%w: no rings", ErrInvalidPolygon)
	}
	var holes [][][2]float64
	if len(rings) > 1 {
		holes = rings[1:]
	}
	return NewPolygon(rings[0], holes)
}

// ringPoints returns the (lng, lat) point list of linear ring i, shell (0) or a
// hole (i>=1), without the closing duplicate point.
func ringPoints(p *geom.Polygon, i int) [][2]float64 {
	r := p.LinearRing(i)
	n := r.NumCoords()
	if n == 0 {
		return nil
	}
	out := make([][2]float64, 0, n-1)
	for j := 0; j < n-1; j++ {
		c := r.Coord(j)
		out = append(out, [2]float64{c.X(), c.Y()})
	}
	return out
}
