package cover

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/flybeeper/geocover/geohash"
	"github.com/flybeeper/geocover/geomx"
)

func rectPoly(t *testing.T, minLng, minLat, maxLng, maxLat float64) *geom.Polygon {
	t.Helper()
	p, err := geomx.NewPolygon([][2]float64{
		{minLng, minLat}, {maxLng, minLat}, {maxLng, maxLat}, {minLng, maxLat},
	}, nil)
	require.NoError(t, err)
	return p
}

func TestCoverNullPolygon(t *testing.T) {
	engine := geomx.NewPlanarEngine()
	_, err := Cover(context.Background(), engine, nil, 4, Intersects, nil)
	assert.ErrorIs(t, err, ErrNullPolygon)
}

func TestCoverInvalidPrecision(t *testing.T) {
	engine := geomx.NewPlanarEngine()
	p := rectPoly(t, 0, 0, 1, 1)
	_, err := Cover(context.Background(), engine, p, 13, Intersects, nil)
	assert.ErrorIs(t, err, ErrInvalidPrecision)
	_, err = Cover(context.Background(), engine, p, 0, Intersects, nil)
	assert.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestCoverEmptyPolygonReportsFullProgressOnce(t *testing.T) {
	engine := geomx.NewPlanarEngine()
	empty := geom.NewPolygon(geom.XY)

	var reports []float64
	cells, err := Cover(context.Background(), engine, empty, 4, Intersects, &Options{
		Progress: func(p float64) { reports = append(reports, p) },
	})
	require.NoError(t, err)
	assert.Empty(t, cells)
	require.Len(t, reports, 1)
	assert.Equal(t, 1.0, reports[0])
}

func TestCoverE6PolygonSmall(t *testing.T) {
	engine := geomx.NewPlanarEngine()
	p := rectPoly(t, 2.2, 48.8, 2.3, 48.9)

	cells, err := Cover(context.Background(), engine, p, 4, Intersects, nil)
	require.NoError(t, err)

	got := make([]string, 0, len(cells))
	for c := range cells {
		got = append(got, c)
	}
	assert.ElementsMatch(t, []string{"u09t", "u09w"}, got)
}

func TestCoverMonotonicity(t *testing.T) {
	engine := geomx.NewPlanarEngine()
	p := rectPoly(t, 2.0, 48.5, 2.6, 49.1)

	contains, err := Cover(context.Background(), engine, p, 4, Contains, nil)
	require.NoError(t, err)
	intersects, err := Cover(context.Background(), engine, p, 4, Intersects, nil)
	require.NoError(t, err)

	for c := range contains {
		_, ok := intersects[c]
		assert.True(t, ok, "contains(%s) must be a subset of intersects", c)
	}
}

func cellPolygon(t *testing.T, hash string) *geom.Polygon {
	t.Helper()
	box, err := geohash.BoundingBoxOf(hash)
	require.NoError(t, err)
	return rectPoly(t, box.MinLng, box.MinLat, box.MaxLng, box.MaxLat)
}

func TestCoverValidity(t *testing.T) {
	engine := geomx.NewPlanarEngine()
	p := rectPoly(t, 2.0, 48.5, 2.6, 49.1)

	intersects, err := Cover(context.Background(), engine, p, 5, Intersects, nil)
	require.NoError(t, err)
	for hash := range intersects {
		ok, err := engine.Intersects(p, cellPolygon(t, hash))
		require.NoError(t, err)
		assert.True(t, ok, "every cell returned by Intersects must actually intersect")
	}

	contains, err := Cover(context.Background(), engine, p, 5, Contains, nil)
	require.NoError(t, err)
	for hash := range contains {
		ok, err := engine.Contains(p, cellPolygon(t, hash))
		require.NoError(t, err)
		assert.True(t, ok, "every cell returned by Contains must actually be contained")
	}
}

func TestCoverRandomRectanglesStayValid(t *testing.T) {
	engine := geomx.NewPlanarEngine()
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 10; i++ {
		lng0 := rng.Float64()*170 - 85
		lat0 := rng.Float64()*80 - 40
		p := rectPoly(t, lng0, lat0, lng0+rng.Float64()*3+0.1, lat0+rng.Float64()*3+0.1)

		cells, err := Cover(context.Background(), engine, p, 3, Intersects, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, cells)
	}
}

func TestCoverCancellation(t *testing.T) {
	engine := geomx.NewPlanarEngine()
	p := rectPoly(t, -10, -10, 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Cover(ctx, engine, p, 5, Intersects, nil)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestCoverAntimeridianSplit(t *testing.T) {
	engine := geomx.NewPlanarEngine()
	// A rectangle straddling the antimeridian, expressed with a
	// discontinuous ring (179 -> -179) the way real-world data often is.
	shell := [][2]float64{
		{179, -1}, {-179, -1}, {-179, 1}, {179, 1},
	}
	p, err := geomx.NewPolygon(shell, nil)
	require.NoError(t, err)

	cells, err := Cover(context.Background(), engine, p, 2, Intersects, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, cells)
	for hash := range cells {
		lat, lng, err := geohash.Decode(hash)
		require.NoError(t, err)
		assert.True(t, lng > 170 || lng < -170, "cell %s (lat=%v,lng=%v) should sit near the antimeridian", hash, lat, lng)
	}
}
