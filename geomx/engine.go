package geomx

import "github.com/twpayne/go-geom"

// Engine is the external planar geometry collaborator the coverer
// depends on: polygon validity, envelope, the contains/intersects
// predicates used to classify cells, and the clip operation used to
// split antimeridian-crossing polygons against a meridian strip.
//
// All operations are planar in (lng, lat) degrees; Engine never
// reprojects or computes geodesic quantities.
type Engine interface {
	// Envelope returns the bounding box of p, over every ring.
	Envelope(p *geom.Polygon) (minLng, minLat, maxLng, maxLat float64)

	// Validate reports whether p is structurally usable (closed,
	// non-degenerate rings). The interface only requires that minimum;
	// the default PlanarEngine additionally rejects self-intersecting
	// rings via its underlying geometry library.
	Validate(p *geom.Polygon) error

	// Contains reports whether target lies entirely within container
	// (exterior ring minus holes). Edge-touching does not count as
	// containment.
	Contains(container, target *geom.Polygon) (bool, error)

	// Intersects reports whether container and target share any point,
	// edge, or area. Edge-touching counts as intersection.
	Intersects(container, target *geom.Polygon) (bool, error)

	// Intersection clips subject against clip and returns the resulting
	// piece(s) as independent polygons (a clip can split a concave
	// subject into more than one piece). Used by the coverer only to
	// clip a polygon against an axis-aligned half-plane strip when
	// splitting antimeridian crossings; clip is always convex in that
	// use.
	Intersection(subject, clip *geom.Polygon) ([]*geom.Polygon, error)
}
