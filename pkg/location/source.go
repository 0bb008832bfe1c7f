package location

import (
	"sync"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
)

// Source is a provider of location updates.
type Source interface {
	Name() string
	Stop()
}

// Consumer receives location and heading updates from a Source.
type Consumer interface {
	OnLocation(src Source, fix *datastructure.LocationFix)
	OnHeading(src Source, heading float64)
}

const (
	RealSourceName      = "real"
	SimulatedSourceName = "simulated"
)

// RealSource is the device location source. It keeps the last raw fix the controller treats as authoritative.
type RealSource struct {
	mu   sync.RWMutex
	last *datastructure.LocationFix
}

func NewRealSource() *RealSource {
	return &RealSource{}
}

func (rs *RealSource) Name() string {
	return RealSourceName
}

func (rs *RealSource) Stop() {}

func (rs *RealSource) SetLocation(fix *datastructure.LocationFix) {
	rs.mu.Lock()
	rs.last = fix
	rs.mu.Unlock()
}

// Location. nil before the first fix
func (rs *RealSource) Location() *datastructure.LocationFix {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.last
}
