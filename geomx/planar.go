package geomx

import (
	"fmt"
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
)

// PlanarEngine is the default Engine: Contains, Intersects, Intersection,
// and the self-intersection check behind Validate are delegated to GEOS
// via github.com/twpayne/go-geos, which converts directly to and from the
// github.com/twpayne/go-geom coordinate types already threaded through
// this package.
//
// A geos.Context is not safe for concurrent use, but the coverer's
// worker pool calls these predicates from every row goroutine at once,
// so PlanarEngine checks a private context out of a pool per call
// instead of sharing one across goroutines.
type PlanarEngine struct {
	contexts sync.Pool
}

// NewPlanarEngine returns the default Engine implementation.
func NewPlanarEngine() *PlanarEngine {
	return &PlanarEngine{
		contexts: sync.Pool{
			New: func() any { return geos.NewContext() },
		},
	}
}

var _ Engine = (*PlanarEngine)(nil)

func (PlanarEngine) Envelope(p *geom.Polygon) (minLng, minLat, maxLng, maxLat float64) {
	return Envelope(p)
}

// Validate applies the structural checks (closed, non-degenerate rings)
// plus GEOS's own validity check, which catches self-intersecting rings
// the structural pass can't see.
func (e *PlanarEngine) Validate(p *geom.Polygon) error {
	if err := Validate(p); err != nil {
		return err
	}
	ctx := e.acquire()
	defer e.release(ctx)

	g, err := toGeos(ctx, p)
	if err != nil {
		return err
	}
	defer g.Destroy()
	if !g.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidPolygon, g.IsValidReason())
	}
	return nil
}

func (e *PlanarEngine) Contains(container, target *geom.Polygon) (bool, error) {
	ctx := e.acquire()
	defer e.release(ctx)

	cg, err := toGeos(ctx, container)
	if err != nil {
		return false, err
	}
	defer cg.Destroy()
	tg, err := toGeos(ctx, target)
	if err != nil {
		return false, err
	}
	defer tg.Destroy()

	return cg.Contains(tg), nil
}

func (e *PlanarEngine) Intersects(container, target *geom.Polygon) (bool, error) {
	ctx := e.acquire()
	defer e.release(ctx)

	cg, err := toGeos(ctx, container)
	if err != nil {
		return false, err
	}
	defer cg.Destroy()
	tg, err := toGeos(ctx, target)
	if err != nil {
		return false, err
	}
	defer tg.Destroy()

	return cg.Intersects(tg), nil
}

// Intersection clips subject against clip using GEOS's boolean
// intersection and explodes the result (a polygon, a multi-polygon, or
// an empty geometry) into independent pieces. clip is always convex in
// the coverer's one use (an antimeridian half-plane strip), but the
// result is handled generally since subject itself may be concave.
func (e *PlanarEngine) Intersection(subject, clip *geom.Polygon) ([]*geom.Polygon, error) {
	ctx := e.acquire()
	defer e.release(ctx)

	sg, err := toGeos(ctx, subject)
	if err != nil {
		return nil, err
	}
	defer sg.Destroy()
	cg, err := toGeos(ctx, clip)
	if err != nil {
		return nil, err
	}
	defer cg.Destroy()

	result := sg.Intersection(cg)
	if result == nil {
		return nil, nil
	}
	defer result.Destroy()

	return fromGeosPolygons(result)
}

func (e *PlanarEngine) acquire() *geos.Context {
	return e.contexts.Get().(*geos.Context)
}

func (e *PlanarEngine) release(ctx *geos.Context) {
	e.contexts.Put(ctx)
}

// toGeos converts a go-geom polygon into a GEOS geometry under ctx.
func toGeos(ctx *geos.Context, p *geom.Polygon) (*geos.Geom, error) {
	g, err := ctx.NewGeomFromGeomT(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
	}
	return g, nil
}

// fromGeosPolygons converts a GEOS geometry produced by a boolean op
// (polygon, multi-polygon, or geometry collection) back into zero or
// more independent go-geom polygons, dropping any non-polygonal
// component (a clip can leave a degenerate point or line behind).
func fromGeosPolygons(g *geos.Geom) ([]*geom.Polygon, error) {
	t, err := g.ToGeomT()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
	}
	switch v := t.(type) {
	case *geom.Polygon:
		if v.NumLinearRings() == 0 {
			return nil, nil
		}
		return []*geom.Polygon{v}, nil
	case *geom.MultiPolygon:
		out := make([]*geom.Polygon, 0, v.NumPolygons())
		for i := 0; i < v.NumPolygons(); i++ {
			out = append(out, v.Polygon(i))
		}
		return out, nil
	case *geom.GeometryCollection:
		var out []*geom.Polygon
		for i := 0; i < v.NumGeoms(); i++ {
			if poly, ok := v.Geom(i).(*geom.Polygon); ok {
				out = append(out, poly)
			}
		}
		return out, nil
	default:
		return nil, nil
	}
}
