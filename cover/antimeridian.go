package cover

import (
	"fmt"

	"github.com/twpayne/go-geom"

	"github.com/flybeeper/geocover/geomx"
)

// splitMargin bounds the half-plane clip strips used to separate an
// unwrapped polygon at the antimeridian. It must stay larger than any
// amount of unwrapping a single crossing can produce.
const splitMargin = 1000.0

// splitAntimeridian returns the one or more polygons Cover should grid
// independently. A polygon that does not cross the antimeridian, or whose
// envelope already spans the whole world, is returned unchanged as a
// single-element slice.
func splitAntimeridian(engine geomx.Engine, poly *geom.Polygon) ([]*geom.Polygon, error) {
	minLng, _, maxLng, _ := engine.Envelope(poly)
	if maxLng-minLng >= 360 {
		return []*geom.Polygon{poly}, nil
	}

	rings := geomx.Rings(poly)
	unwrappedShell, shellCrossings, err := unwrapRing(rings[0])
	if err != nil {
		return nil, err
	}
	if shellCrossings == 0 {
		return []*geom.Polygon{poly}, nil
	}

	unwrappedRings := make([][][2]float64, len(rings))
	unwrappedRings[0] = unwrappedShell
	shellMinLng, _, shellMaxLng, _ := ringEnvelope(unwrappedShell)
	for i, hole := range rings[1:] {
		uh, _, err := unwrapRing(hole)
		if err != nil {
			return nil, err
		}
		unwrappedRings[i+1] = alignToShellFrame(uh, shellMinLng, shellMaxLng)
	}

	unwrapped, err := geomx.FromRings(unwrappedRings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
	}

	meridian, err := seamMeridian(shellMinLng, shellMaxLng)
	if err != nil {
		return nil, err
	}

	westStrip := geomx.RectPolygon(-splitMargin, -splitMargin, meridian, splitMargin)
	eastStrip := geomx.RectPolygon(meridian, -splitMargin, splitMargin, splitMargin)

	var pieces []*geom.Polygon
	westPieces, err := engine.Intersection(unwrapped, westStrip)
	if err != nil {
		return nil, err
	}
	eastPieces, err := engine.Intersection(unwrapped, eastStrip)
	if err != nil {
		return nil, err
	}
	for _, p := range westPieces {
		pieces = append(pieces, retranslate(p))
	}
	for _, p := range eastPieces {
		pieces = append(pieces, retranslate(p))
	}
	return pieces, nil
}

// unwrapRing walks a closed ring's points (without the repeated closing
// point) and removes longitude discontinuities greater than 180°, adding or
// subtracting 360 from every point after a jump so the ring's longitude
// becomes continuous. It returns the number of jumps found and fails with
// ErrUnsupportedMultiMeridianSplit if the cumulative offset would need to
// exceed a single ±360° correction, i.e. the ring crosses the antimeridian
// at more than one place.
func unwrapRing(ring [][2]float64) ([][2]float64, int, error) {
	if len(ring) == 0 {
		return nil, 0, nil
	}
	out := make([][2]float64, len(ring))
	out[0] = ring[0]
	offset := 0.0
	maxAbsOffset := 0.0
	crossings := 0
	for i := 1; i < len(ring); i++ {
		delta := ring[i][0] - ring[i-1][0]
		switch {
		case delta > 180:
			offset -= 360
			crossings++
		case delta < -180:
			offset += 360
			crossings++
		}
		if abs := absf(offset); abs > maxAbsOffset {
			maxAbsOffset = abs
		}
		out[i] = [2]float64{ring[i][0] + offset, ring[i][1]}
	}
	if maxAbsOffset > 360+1e-9 {
		return nil, 0, ErrUnsupportedMultiMeridianSplit
	}
	return out, crossings, nil
}

// alignToShellFrame shifts a hole ring (already unwrapped relative to
// itself) by whole multiples of 360° so it sits inside the shell's
// unwrapped longitude range; a hole that unwrapped onto the wrong side
// of the seam would otherwise fall outside its own shell.
func alignToShellFrame(hole [][2]float64, shellMin, shellMax float64) [][2]float64 {
	holeMin, _, holeMax, _ := ringEnvelope(hole)
	holeMid := (holeMin + holeMax) / 2
	shellMid := (shellMin + shellMax) / 2
	shift := 360 * roundToNearest((shellMid-holeMid)/360)
	if shift == 0 {
		return hole
	}
	out := make([][2]float64, len(hole))
	for i, p := range hole {
		out[i] = [2]float64{p[0] + shift, p[1]}
	}
	return out
}

// seamMeridian locates the ±180 line the unwrapped shell straddles: +180
// when the shell was unwrapped eastward past it, -180 when unwrapped
// westward past it.
func seamMeridian(minLng, maxLng float64) (float64, error) {
	if maxLng > 180 {
		return 180, nil
	}
	if minLng < -180 {
		return -180, nil
	}
	return 0, fmt.Errorf("%w: no meridian crossing found in unwrapped envelope [%v,%v]", ErrInvalidPolygon, minLng, maxLng)
}

// retranslate shifts a clipped piece by a single whole multiple of 360° so
// it lands back inside [-180, 180], undoing the unwrap applied before
// clipping.
func retranslate(p *geom.Polygon) *geom.Polygon {
	rings := geomx.Rings(p)
	if len(rings) == 0 || len(rings[0]) == 0 {
		return p
	}
	maxLng := rings[0][0][0]
	minLng := maxLng
	for _, ring := range rings {
		for _, pt := range ring {
			if pt[0] > maxLng {
				maxLng = pt[0]
			}
			if pt[0] < minLng {
				minLng = pt[0]
			}
		}
	}
	shift := 0.0
	switch {
	case maxLng > 180:
		shift = -360 * ceilDiv180(maxLng)
	case minLng < -180:
		shift = 360 * ceilDiv180(-minLng)
	}
	if shift == 0 {
		return p
	}
	shifted := make([][][2]float64, len(rings))
	for i, ring := range rings {
		sr := make([][2]float64, len(ring))
		for j, pt := range ring {
			sr[j] = [2]float64{pt[0] + shift, pt[1]}
		}
		shifted[i] = sr
	}
	out, err := geomx.FromRings(shifted)
	if err != nil {
		return p
	}
	return out
}

// ceilDiv180 returns how many whole 360° shifts are needed to bring a
// longitude greater than 180 back under it: e.g. 190 -> 1, 550 -> 2.
func ceilDiv180(lng float64) float64 {
	n := 0.0
	for lng-n*360 > 180 {
		n++
	}
	return n
}

func roundToNearest(x float64) float64 {
	if x >= 0 {
		return float64(int64(x + 0.5))
	}
	return float64(int64(x - 0.5))
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func ringEnvelope(ring [][2]float64) (minLng, minLat, maxLng, maxLat float64) {
	if len(ring) == 0 {
		return 0, 0, 0, 0
	}
	minLng, maxLng = ring[0][0], ring[0][0]
	minLat, maxLat = ring[0][1], ring[0][1]
	for _, p := range ring[1:] {
		if p[0] < minLng {
			minLng = p[0]
		}
		if p[0] > maxLng {
			maxLng = p[0]
		}
		if p[1] < minLat {
			minLat = p[1]
		}
		if p[1] > maxLat {
			maxLat = p[1]
		}
	}
	return
}
