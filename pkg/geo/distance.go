package geo

import (
	"math"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/util"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) GetLat() float64 {
	return c.Lat
}

func (c Coordinate) GetLon() float64 {
	return c.Lon
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

const (
	earthRadiusKM = 6371.0
	earthRadiusM  = earthRadiusKM * 1000
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

// CalculateHaversineDistance. calculate haversine distance in km
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = util.DegreeToRadians(latOne)
	longOne = util.DegreeToRadians(longOne)
	latTwo = util.DegreeToRadians(latTwo)
	longTwo = util.DegreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusKM * c
}

// DistanceMeter. haversine distance between a and b in meter
func DistanceMeter(a, b Coordinate) float64 {
	return CalculateHaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon) * 1000
}

// GetDestinationPoint returns the destination point given the starting point, bearing and distance
// dist in km
func GetDestinationPoint(lat1, lon1 float64, bearing float64, dist float64) (float64, float64) {

	dr := dist / earthRadiusKM

	bearing = util.DegreeToRadians(bearing)

	lat1 = util.DegreeToRadians(lat1)
	lon1 = util.DegreeToRadians(lon1)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(dr) + math.Cos(lat1)*math.Sin(dr)*math.Cos(bearing))

	y := math.Sin(bearing) * math.Sin(dr) * math.Cos(lat1)
	x := math.Cos(dr) - (math.Sin(lat1) * math.Sin(lat2))

	lon2 := lon1 + math.Atan2(y, x)

	return util.RadiansToDegree(lat2), normalizeLongitude(util.RadiansToDegree(lon2))
}

// normalizeLongitude. long in degree
func normalizeLongitude(long float64) float64 {
	return math.Mod((long+540), 360) - 180.0
}

// PolylineLength. total length of coords in meter
func PolylineLength(coords []Coordinate) float64 {
	length := 0.0
	for i := 1; i < len(coords); i++ {
		length += DistanceMeter(coords[i-1], coords[i])
	}
	return length
}

// CumulativeDistances. cum[i] is the distance in meter from coords[0] to coords[i] along the polyline
func CumulativeDistances(coords []Coordinate) []float64 {
	cum := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		cum[i] = cum[i-1] + DistanceMeter(coords[i-1], coords[i])
	}
	return cum
}

/*
CoordinateAlong. walk dist meter along coords and return the reached point together with the
bearing of the segment it lies on. dist is clamped to [0, length of coords].
*/
func CoordinateAlong(coords []Coordinate, dist float64) (Coordinate, float64) {
	if len(coords) == 0 {
		return Coordinate{}, 0
	}
	if len(coords) == 1 || dist <= 0 {
		if len(coords) == 1 {
			return coords[0], 0
		}
		return coords[0], BearingTo(coords[0].Lat, coords[0].Lon, coords[1].Lat, coords[1].Lon)
	}

	travelled := 0.0
	for i := 1; i < len(coords); i++ {
		a, b := coords[i-1], coords[i]
		segLen := DistanceMeter(a, b)
		bearing := BearingTo(a.Lat, a.Lon, b.Lat, b.Lon)
		if travelled+segLen >= dist {
			remaining := dist - travelled
			lat, lon := GetDestinationPoint(a.Lat, a.Lon, bearing, remaining/1000)
			return NewCoordinate(lat, lon), bearing
		}
		travelled += segLen
	}

	n := len(coords)
	return coords[n-1], BearingTo(coords[n-2].Lat, coords[n-2].Lon, coords[n-1].Lat, coords[n-1].Lon)
}
