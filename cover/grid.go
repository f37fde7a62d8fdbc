package cover

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/twpayne/go-geom"

	"github.com/flybeeper/geocover/geohash"
	"github.com/flybeeper/geocover/geomx"
)

// gridBounds computes the latitude/longitude grid index ranges a piece's
// envelope spans at the given precision. The envelope is expanded by half
// a cell in each direction so edge-touching cells aren't missed, then
// clamped to the valid lat/lng range.
func gridBounds(engine geomx.Engine, piece *geom.Polygon, precision int) (latLo, latHi, lngLo, lngHi int, latStep, lngStep float64) {
	latStep, lngStep = geohash.Step(precision)
	minLng, minLat, maxLng, maxLat := engine.Envelope(piece)

	minLat -= latStep / 2
	maxLat += latStep / 2
	minLng -= lngStep / 2
	maxLng += lngStep / 2

	minLat = math.Max(minLat, -90)
	maxLat = math.Min(maxLat, 90)
	minLng = math.Max(minLng, -180)
	maxLng = math.Min(maxLng, 180)

	latCells := int(math.Round(180 / latStep))
	lngCells := int(math.Round(360 / lngStep))

	latLo = clampIdx(int(math.Floor((minLat+90)/latStep)), 0, latCells-1)
	latHi = clampIdx(int(math.Ceil((maxLat+90)/latStep))-1, 0, latCells-1)
	lngLo = clampIdx(int(math.Floor((minLng+180)/lngStep)), 0, lngCells-1)
	lngHi = clampIdx(int(math.Ceil((maxLng+180)/lngStep))-1, 0, lngCells-1)
	return
}

func clampIdx(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// scanPiece grids one (already antimeridian-split) polygon piece in
// parallel across latitude rows and reports per-row completion through
// tracker.
func scanPiece(ctx context.Context, engine geomx.Engine, piece *geom.Polygon, precision int, criterion Criterion, tracker *progressTracker, workers int) (map[string]struct{}, error) {
	latLo, latHi, lngLo, lngHi, latStep, lngStep := gridBounds(engine, piece, precision)
	if latHi < latLo || lngHi < lngLo {
		return map[string]struct{}{}, nil
	}

	rows := make(chan int, latHi-latLo+1)
	for row := latLo; row <= latHi; row++ {
		rows <- row
	}
	close(rows)

	result := make(map[string]struct{})
	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make(map[string]struct{})
			for row := range rows {
				select {
				case <-ctx.Done():
					errCh <- ErrCancelled
					return
				default:
				}

				if err := scanRow(engine, piece, precision, criterion, row, lngLo, lngHi, latStep, lngStep, local); err != nil {
					errCh <- err
					return
				}
				tracker.completeRow()
			}
			mu.Lock()
			for k := range local {
				result[k] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errCh)
	if err, ok := <-errCh; ok {
		return nil, err
	}
	return result, nil
}

// scanRow classifies every cell in one latitude row against piece and
// records the matches into local.
func scanRow(engine geomx.Engine, piece *geom.Polygon, precision int, criterion Criterion, latIdx, lngLo, lngHi int, latStep, lngStep float64, local map[string]struct{}) error {
	centerLat := -90 + (float64(latIdx)+0.5)*latStep
	for lngIdx := lngLo; lngIdx <= lngHi; lngIdx++ {
		centerLng := -180 + (float64(lngIdx)+0.5)*lngStep

		hash, err := geohash.Encode(centerLat, centerLng, precision)
		if err != nil {
			return fmt.Errorf("cover: encoding grid cell (%d,%d): %w", latIdx, lngIdx, err)
		}
		box, err := geohash.BoundingBoxOf(hash)
		if err != nil {
			return fmt.Errorf("cover: bounding box of %q: %w", hash, err)
		}
		cellPoly := geomx.RectPolygon(box.MinLng, box.MinLat, box.MaxLng, box.MaxLat)

		var match bool
		switch criterion {
		case Contains:
			match, err = engine.Contains(piece, cellPoly)
		case Intersects:
			match, err = engine.Intersects(piece, cellPoly)
		default:
			return fmt.Errorf("cover: unknown criterion %v", criterion)
		}
		if err != nil {
			return err
		}
		if match {
			local[hash] = struct{}{}
		}
	}
	return nil
}
