package wfs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// QuerySpec holds the parameters that shape every request for a dataset:
// a CQL filter predicate, optional spatial bounds with their coordinate
// reference, the desired output coordinate reference and the sort key used
// to keep paged requests deterministic. Immutable once built.
type QuerySpec struct {
	// Filter is a CQL boolean expression evaluated server-side. Optional.
	Filter string

	// Bounds restricts results to a rectangular extent. Optional.
	Bounds *orb.Bound

	// BoundsCRS is the coordinate reference of Bounds (default EPSG:3005).
	BoundsCRS string

	// CRS is the output coordinate reference (default epsg:4326).
	CRS string

	// SortBy orders results for deterministic paging. Required by the
	// planner whenever more than one window is needed.
	SortBy string
}

// DefaultBoundsCRS is the coordinate reference bounds are expressed in
// unless stated otherwise (BC Albers).
const DefaultBoundsCRS = "EPSG:3005"

// DefaultCRS is the default output coordinate reference.
const DefaultCRS = "epsg:4326"

// withDefaults fills unset coordinate references.
func (s QuerySpec) withDefaults() QuerySpec {
	if s.BoundsCRS == "" {
		s.BoundsCRS = DefaultBoundsCRS
	}
	if s.CRS == "" {
		s.CRS = DefaultCRS
	}
	return s
}

// CQLFilter combines the filter predicate and the bounds into a single
// CQL_FILTER expression. The server's bbox request parameter is mutually
// exclusive with CQL_FILTER, so bounds are expressed as a bbox() predicate
// against the dataset's geometry column instead. Returns "" when the spec
// has neither filter nor bounds.
func (s QuerySpec) CQLFilter(geomColumn string) string {
	s = s.withDefaults()

	if s.Bounds == nil {
		return s.Filter
	}

	b := *s.Bounds
	coords := []string{
		formatCoord(b.Min[0]),
		formatCoord(b.Min[1]),
		formatCoord(b.Max[0]),
		formatCoord(b.Max[1]),
	}
	bboxExpr := "bbox(" + geomColumn + ", " + strings.Join(coords, ", ") + ", '" + s.BoundsCRS + "')"

	if s.Filter != "" {
		return s.Filter + " AND " + bboxExpr
	}
	return bboxExpr
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseBounds parses a "minx,miny,maxx,maxy" string.
func ParseBounds(s string) (*orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bounds must be minx,miny,maxx,maxy, got %q", s)
	}
	coords := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bounds coordinate %q: %w", p, err)
		}
		coords[i] = v
	}
	if coords[0] > coords[2] || coords[1] > coords[3] {
		return nil, fmt.Errorf("bounds min exceeds max in %q", s)
	}
	return &orb.Bound{
		Min: orb.Point{coords[0], coords[1]},
		Max: orb.Point{coords[2], coords[3]},
	}, nil
}
