package navigation

import (
	"math"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/geo"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/spatialindex"
	"go.uber.org/zap"
)

const (
	leafBoundingBoxRadius = 0.005 // km
	// snap candidates closer than this (meter) to the best one are ranked by distance to the previous position
	snapTieTolerance = 2.0
)

// RouteTracker turns location fixes into route progress snapshots.
type RouteTracker struct {
	route           *datastructure.Route
	rt              *spatialindex.Rtree
	maxSnapDistance float64 // meter

	lastDistance float64
	last         *datastructure.RouteProgress
	offRoute     bool
}

func NewRouteTracker(route *datastructure.Route, maxSnapDistance float64, log *zap.Logger) *RouteTracker {
	rt := spatialindex.NewRtree()
	rt.Build(route.Geometry(), leafBoundingBoxRadius, log)

	tracker := &RouteTracker{
		route:           route,
		rt:              rt,
		maxSnapDistance: maxSnapDistance,
	}
	tracker.last = tracker.ProgressAt(0, -1)
	return tracker
}

func (tr *RouteTracker) Route() *datastructure.Route {
	return tr.route
}

// Last. the latest snapshot, progress at the route origin before the first update
func (tr *RouteTracker) Last() *datastructure.RouteProgress {
	return tr.last
}

// OffRoute reports whether the latest fix could not be snapped to the route.
func (tr *RouteTracker) OffRoute() bool {
	return tr.offRoute
}

/*
Update snaps fix onto the route and returns the new progress. A fix farther than maxSnapDistance
from the route keeps the previous progress.
*/
func (tr *RouteTracker) Update(fix *datastructure.LocationFix) *datastructure.RouteProgress {
	distance, ok := tr.snap(fix.Coordinate())
	if !ok {
		tr.offRoute = true
		return tr.last
	}
	tr.offRoute = false
	tr.lastDistance = distance

	speed := -1.0
	if fix.HasValidSpeed() {
		speed = fix.Speed()
	}
	tr.last = tr.ProgressAt(distance, speed)
	return tr.last
}

// snap returns the distance along the route of the projection of p onto the closest route segment.
func (tr *RouteTracker) snap(p geo.Coordinate) (float64, bool) {
	candidates := tr.rt.SearchWithinRadius(p.Lat, p.Lon, tr.maxSnapDistance/1000)

	bestDist := math.MaxFloat64
	bestAlong := 0.0
	found := false
	for _, seg := range candidates {
		proj := geo.ProjectPointToLineCoord(seg.GetFrom(), seg.GetTo(), p)
		d := geo.DistanceMeter(p, proj)
		if d > tr.maxSnapDistance {
			continue
		}
		along := tr.route.CumulativeDistance(seg.GetIndex()) + geo.DistanceMeter(seg.GetFrom(), proj)

		switch {
		case !found || d < bestDist-snapTieTolerance:
			bestDist, bestAlong = d, along
		case d <= bestDist+snapTieTolerance &&
			math.Abs(along-tr.lastDistance) < math.Abs(bestAlong-tr.lastDistance):
			bestDist, bestAlong = math.Min(d, bestDist), along
		}
		found = true
	}
	return bestAlong, found
}

// ProgressAt builds the snapshot for a user at distance meter from the route origin.
func (tr *RouteTracker) ProgressAt(distance, speed float64) *datastructure.RouteProgress {
	legIndex, stepIndex := tr.route.Locate(distance)
	if legIndex < 0 || stepIndex < 0 {
		return datastructure.NewRouteProgress(tr.route, nil, distance, speed)
	}

	step := tr.route.Legs()[legIndex].Steps()[stepIndex]

	var current, upcoming *datastructure.Intersection
	for _, in := range step.Intersections() {
		d := in.DistanceAlongRoute()
		if d <= distance {
			if current == nil || d >= current.DistanceAlongRoute() {
				current = in
			}
		} else if upcoming == nil || d < upcoming.DistanceAlongRoute() {
			upcoming = in
		}
	}

	// the maneuver intersection opening the next step is upcoming once the current step has none left
	if upcoming == nil {
		upcoming = tr.nextStepIntersection(legIndex, stepIndex)
	}

	stepProgress := datastructure.NewStepProgress(step, stepIndex, distance-step.StartDistance(), current, upcoming)
	if upcoming != nil {
		stepProgress.SetUserDistanceToUpcomingIntersection(upcoming.DistanceAlongRoute() - distance)
	}

	return datastructure.NewRouteProgress(tr.route, datastructure.NewLegProgress(legIndex, stepProgress),
		distance, speed)
}

// nextStepIntersection returns the first intersection of the step after (legIndex, stepIndex), crossing into the next leg.
func (tr *RouteTracker) nextStepIntersection(legIndex, stepIndex int) *datastructure.Intersection {
	legs := tr.route.Legs()
	li, si := legIndex, stepIndex+1
	if si >= len(legs[li].Steps()) {
		li, si = li+1, 0
	}
	if li >= len(legs) || si >= len(legs[li].Steps()) {
		return nil
	}

	var first *datastructure.Intersection
	for _, in := range legs[li].Steps()[si].Intersections() {
		if first == nil || in.DistanceAlongRoute() < first.DistanceAlongRoute() {
			first = in
		}
	}
	return first
}
