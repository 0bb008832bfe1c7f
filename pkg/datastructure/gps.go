package datastructure

import (
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/geo"
)

// LocationFix is a single location update. Negative speed, course or accuracy mean the value is invalid.
type LocationFix struct {
	coord              geo.Coordinate
	time               time.Time
	speed              float64 // m/s
	course             float64 // degree
	horizontalAccuracy float64 // meter
	qualified          bool
	simulated          bool
}

func NewLocationFix(lat, lon float64, t time.Time, speed, course, horizontalAccuracy float64) *LocationFix {
	return &LocationFix{
		coord:              geo.NewCoordinate(lat, lon),
		time:               t,
		speed:              speed,
		course:             course,
		horizontalAccuracy: horizontalAccuracy,
	}
}

func NewSimulatedFix(coord geo.Coordinate, t time.Time, speed, course float64) *LocationFix {
	return &LocationFix{
		coord:              coord,
		time:               t,
		speed:              speed,
		course:             course,
		horizontalAccuracy: 5,
		qualified:          true,
		simulated:          true,
	}
}

func (lf *LocationFix) Lat() float64 {
	return lf.coord.Lat
}

func (lf *LocationFix) Lon() float64 {
	return lf.coord.Lon
}

func (lf *LocationFix) Coordinate() geo.Coordinate {
	return lf.coord
}

func (lf *LocationFix) Time() time.Time {
	return lf.time
}

func (lf *LocationFix) Speed() float64 {
	return lf.speed
}

func (lf *LocationFix) Course() float64 {
	return lf.course
}

func (lf *LocationFix) HorizontalAccuracy() float64 {
	return lf.horizontalAccuracy
}

func (lf *LocationFix) IsQualified() bool {
	return lf.qualified
}

func (lf *LocationFix) SetQualified(q bool) {
	lf.qualified = q
}

func (lf *LocationFix) IsSimulated() bool {
	return lf.simulated
}

func (lf *LocationFix) HasValidSpeed() bool {
	return lf.speed >= 0
}

func (lf *LocationFix) HasValidCourse() bool {
	return lf.course >= 0
}
