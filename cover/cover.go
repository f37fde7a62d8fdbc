package cover

import (
	"context"
	"fmt"
	"runtime"

	"github.com/twpayne/go-geom"

	"github.com/flybeeper/geocover/geohash"
	"github.com/flybeeper/geocover/geomx"
)

// Criterion selects which cells a Cover call returns.
type Criterion int

const (
	// Contains selects cells whose bounding box is fully inside the
	// polygon; edge-touching does not count.
	Contains Criterion = iota
	// Intersects selects cells whose bounding box shares any area, edge,
	// or point with the polygon.
	Intersects
)

func (c Criterion) String() string {
	switch c {
	case Contains:
		return "contains"
	case Intersects:
		return "intersects"
	default:
		return fmt.Sprintf("Criterion(%d)", int(c))
	}
}

// Options configures a Cover call. The zero value is valid: no progress
// reporting, worker count defaults to GOMAXPROCS.
type Options struct {
	// Progress, if non-nil, receives strictly monotone non-decreasing
	// percent-complete milestones in [0, 1], ending with exactly one
	// final 1.0 call.
	Progress ProgressFunc
	// Workers bounds how many goroutines scan latitude rows concurrently.
	// Zero or negative defaults to runtime.GOMAXPROCS(0).
	Workers int
}

func (o *Options) workers() int {
	if o == nil || o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o *Options) progress() ProgressFunc {
	if o == nil {
		return nil
	}
	return o.Progress
}

// Cover grids polygon at precision and returns the set of geohash cells
// satisfying criterion. It splits antimeridian-crossing input before
// gridding and scans each resulting piece in parallel across latitude
// rows. ctx is polled for cancellation between rows; a cancellation
// surfaces as ErrCancelled with no partial result.
func Cover(ctx context.Context, engine geomx.Engine, polygon *geom.Polygon, precision int, criterion Criterion, opts *Options) (map[string]struct{}, error) {
	if polygon == nil {
		return nil, ErrNullPolygon
	}
	if precision < geohash.MinPrecision || precision > geohash.MaxPrecision {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrecision, precision)
	}
	progress := opts.progress()

	if polygon.NumLinearRings() == 0 {
		if progress != nil {
			progress(1.0)
		}
		return map[string]struct{}{}, nil
	}
	if err := engine.Validate(polygon); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
	}

	pieces, err := splitAntimeridian(engine, polygon)
	if err != nil {
		return nil, err
	}

	var totalRows int64
	for _, piece := range pieces {
		latLo, latHi, _, _, _, _ := gridBounds(engine, piece, precision)
		if latHi >= latLo {
			totalRows += int64(latHi-latLo+1)
		}
	}

	tracker := newProgressTracker(totalRows, progress)
	workers := opts.workers()

	result := make(map[string]struct{})
	for _, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return nil, ErrCancelled
		}
		hits, err := scanPiece(ctx, engine, piece, precision, criterion, tracker, workers)
		if err != nil {
			return nil, err
		}
		for hash := range hits {
			result[hash] = struct{}{}
		}
	}

	tracker.finish()
	return result, nil
}
