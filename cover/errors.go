// Package cover implements the polygon-to-geohash coverage engine: given a
// polygon and a precision, it returns the set of geohash cells that either
// contain or intersect it, splitting antimeridian-crossing input first and
// scanning the resulting grid in parallel across latitude rows.
package cover

import "errors"

var (
	// ErrNullPolygon is returned when Cover is called with a nil polygon.
	ErrNullPolygon = errors.New("cover: polygon is nil")
	// ErrInvalidPrecision is returned when precision falls outside the
	// codec's supported range.
	ErrInvalidPrecision = errors.New("cover: precision out of range")
	// ErrInvalidPolygon is returned when the geometry engine rejects the
	// polygon as structurally invalid.
	ErrInvalidPolygon = errors.New("cover: invalid polygon")
	// ErrUnsupportedMultiMeridianSplit is returned when a polygon would
	// need splitting across more than one meridian to unwrap.
	ErrUnsupportedMultiMeridianSplit = errors.New("cover: polygon requires splitting across more than one meridian")
	// ErrCancelled is returned when the caller's context is cancelled
	// before Cover completes. No partial result is returned.
	ErrCancelled = errors.New("cover: cancelled")
)
