package datastructure

import (
	"math"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/geo"
)

type Intersection struct {
	location           geo.Coordinate
	roadClasses        RoadClasses
	hasRoadClasses     bool
	distanceAlongRoute float64 // meter from the route origin
}

func NewIntersection(location geo.Coordinate, classes RoadClasses, hasClasses bool) *Intersection {
	return &Intersection{
		location:       location,
		roadClasses:    classes,
		hasRoadClasses: hasClasses,
	}
}

func (in *Intersection) Location() geo.Coordinate {
	return in.location
}

// OutletRoadClasses returns the road classes of the road leaving the intersection. ok is false when unknown.
func (in *Intersection) OutletRoadClasses() (RoadClasses, bool) {
	return in.roadClasses, in.hasRoadClasses
}

func (in *Intersection) IsTunnel() bool {
	return in.hasRoadClasses && in.roadClasses.Contains(RoadClassTunnel)
}

func (in *Intersection) DistanceAlongRoute() float64 {
	return in.distanceAlongRoute
}

func (in *Intersection) SetDistanceAlongRoute(d float64) {
	in.distanceAlongRoute = d
}

type RouteStep struct {
	name          string
	geometry      []geo.Coordinate
	intersections []*Intersection
	startDistance float64
	length        float64
}

func NewRouteStep(name string, geometry []geo.Coordinate, intersections []*Intersection) *RouteStep {
	return &RouteStep{
		name:          name,
		geometry:      geometry,
		intersections: intersections,
		length:        geo.PolylineLength(geometry),
	}
}

func (s *RouteStep) Name() string {
	return s.name
}

func (s *RouteStep) Geometry() []geo.Coordinate {
	return s.geometry
}

func (s *RouteStep) Intersections() []*Intersection {
	return s.intersections
}

func (s *RouteStep) StartDistance() float64 {
	return s.startDistance
}

func (s *RouteStep) EndDistance() float64 {
	return s.startDistance + s.length
}

func (s *RouteStep) Length() float64 {
	return s.length
}

type RouteLeg struct {
	steps         []*RouteStep
	startDistance float64
	length        float64
}

func NewRouteLeg(steps []*RouteStep) *RouteLeg {
	return &RouteLeg{steps: steps}
}

func (l *RouteLeg) Steps() []*RouteStep {
	return l.steps
}

func (l *RouteLeg) StartDistance() float64 {
	return l.startDistance
}

func (l *RouteLeg) EndDistance() float64 {
	return l.startDistance + l.length
}

// Route is a leg -> step -> intersection tree over one continuous geometry.
type Route struct {
	legs       []*RouteLeg
	geometry   []geo.Coordinate
	cumulative []float64
	length     float64
}

/*
NewRoute. stitch the step geometries into one route geometry and place every step, leg and
intersection on it by distance from the route origin.
*/
func NewRoute(legs []*RouteLeg) *Route {
	r := &Route{
		legs:     legs,
		geometry: make([]geo.Coordinate, 0),
	}

	// first and last route geometry vertex of every step, in step order
	type span struct{ first, last int }
	spans := make([]span, 0)
	for _, leg := range legs {
		for _, step := range leg.steps {
			first := len(r.geometry)
			for i, c := range step.geometry {
				if i == 0 && len(r.geometry) > 0 && r.geometry[len(r.geometry)-1] == c {
					first--
					continue
				}
				r.geometry = append(r.geometry, c)
			}
			last := len(r.geometry) - 1
			if first > last {
				first = last
			}
			spans = append(spans, span{first: first, last: last})
		}
	}

	r.cumulative = geo.CumulativeDistances(r.geometry)
	if len(r.cumulative) > 0 {
		r.length = r.cumulative[len(r.cumulative)-1]
	}
	at := func(i int) float64 {
		if i < 0 || i >= len(r.cumulative) {
			return 0
		}
		return r.cumulative[i]
	}

	// distances come from the stitched geometry so that a gap between two steps shifts nothing
	si := 0
	for _, leg := range legs {
		for i, step := range leg.steps {
			sp := spans[si]
			si++
			step.startDistance = at(sp.first)
			step.length = at(sp.last) - step.startDistance
			if i == 0 {
				leg.startDistance = step.startDistance
			}
			for _, in := range step.intersections {
				in.distanceAlongRoute = step.startDistance + distanceAlong(step.geometry, in.location)
			}
			leg.length = step.EndDistance() - leg.startDistance
		}
	}
	return r
}

// distanceAlong. distance in meter from the start of coords to the projection of p onto its closest segment
func distanceAlong(coords []geo.Coordinate, p geo.Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}
	best := math.MaxFloat64
	bestAlong := 0.0
	travelled := 0.0
	for i := 1; i < len(coords); i++ {
		a, b := coords[i-1], coords[i]
		proj := geo.ProjectPointToLineCoord(a, b, p)
		d := geo.DistanceMeter(p, proj)
		if d < best {
			best = d
			bestAlong = travelled + geo.DistanceMeter(a, proj)
		}
		travelled += geo.DistanceMeter(a, b)
	}
	return bestAlong
}

func (r *Route) Legs() []*RouteLeg {
	return r.legs
}

func (r *Route) Geometry() []geo.Coordinate {
	return r.geometry
}

// CumulativeDistance. distance in meter from the route origin to geometry vertex i
func (r *Route) CumulativeDistance(i int) float64 {
	return r.cumulative[i]
}

func (r *Route) Length() float64 {
	return r.length
}

func (r *Route) NumberOfSteps() int {
	n := 0
	for _, leg := range r.legs {
		n += len(leg.steps)
	}
	return n
}

// Locate returns the leg and step indices covering distance d (meter from route origin).
func (r *Route) Locate(d float64) (int, int) {
	if len(r.legs) == 0 {
		return -1, -1
	}
	for li, leg := range r.legs {
		if d > leg.EndDistance() && li < len(r.legs)-1 {
			continue
		}
		for si, step := range leg.steps {
			if d <= step.EndDistance() || si == len(leg.steps)-1 {
				return li, si
			}
		}
		return li, -1
	}
	return -1, -1
}
