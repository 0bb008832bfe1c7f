package spatialindex

import (
	"math"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

type Rtree struct {
	tr *rtree.RTreeG[RouteSegment]
}

// RouteSegment is the route geometry segment (geometry[index], geometry[index+1]).
type RouteSegment struct {
	index int
	from  geo.Coordinate
	to    geo.Coordinate
}

func (rs RouteSegment) GetIndex() int {
	return rs.index
}

func (rs RouteSegment) GetFrom() geo.Coordinate {
	return rs.from
}

func (rs RouteSegment) GetTo() geo.Coordinate {
	return rs.to
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[RouteSegment]
	return &Rtree{
		tr: &tr,
	}
}

// Build. index every segment of geometry, each leaf bounding box padded by boundingBoxRadius (in km)
func (rt *Rtree) Build(geometry []geo.Coordinate, boundingBoxRadius float64, log *zap.Logger) {
	log.Debug("Building route segment R-tree...", zap.Int("segments", len(geometry)-1))
	for i := 0; i+1 < len(geometry); i++ {
		from := geometry[i]
		to := geometry[i+1]

		lowerFromLat, lowerFromLon := geo.GetDestinationPoint(from.Lat, from.Lon, 225, boundingBoxRadius)
		upperFromLat, upperFromLon := geo.GetDestinationPoint(from.Lat, from.Lon, 45, boundingBoxRadius)

		lowerToLat, lowerToLon := geo.GetDestinationPoint(to.Lat, to.Lon, 225, boundingBoxRadius)
		upperToLat, upperToLon := geo.GetDestinationPoint(to.Lat, to.Lon, 45, boundingBoxRadius)

		minLat := math.Min(lowerFromLat, lowerToLat)
		minLon := math.Min(lowerFromLon, lowerToLon)
		maxLat := math.Max(upperFromLat, upperToLat)
		maxLon := math.Max(upperFromLon, upperToLon)

		rt.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat},
			RouteSegment{index: i, from: from, to: to})
	}
}

func (rt *Rtree) Len() int {
	return rt.tr.Len()
}

// SearchWithinRadius search for route segments whose box intersects radius (in km) around (qLat, qLon)
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []RouteSegment {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)

	results := make([]RouteSegment, 0, 10)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data RouteSegment) bool {
			results = append(results, data)
			return len(results) < 64
		})
	return results
}
