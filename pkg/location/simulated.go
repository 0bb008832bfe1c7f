package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/geo"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/util"
)

var ErrNoRouteGeometry = errors.New("route progress has no route geometry to simulate along")

type SimulationConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	MinSpeed     float64       `mapstructure:"min_speed"` // m/s
	MaxSpeed     float64       `mapstructure:"max_speed"` // m/s
}

func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		TickInterval: time.Second,
		MinSpeed:     8.9,
		MaxSpeed:     30,
	}
}

/*
SimulatedSource moves a virtual vehicle along the route geometry at a constant speed, starting
from the distance travelled in the seed progress, and emits location + heading updates every tick.
*/
type SimulatedSource struct {
	mu       sync.Mutex
	cfg      SimulationConfig
	geometry []geo.Coordinate
	length   float64
	distance float64 // meter from the route origin
	speed    float64
	consumer Consumer
	clock    func() time.Time
	now      time.Time

	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSimulatedSource(progress *datastructure.RouteProgress, consumer Consumer, cfg SimulationConfig,
	clock func() time.Time) (*SimulatedSource, error) {
	if progress == nil || progress.Route() == nil || len(progress.Route().Geometry()) < 2 {
		return nil, ErrNoRouteGeometry
	}
	if clock == nil {
		clock = time.Now
	}

	speed := util.ClampFloat(progress.Speed(), cfg.MinSpeed, cfg.MaxSpeed)

	route := progress.Route()
	return &SimulatedSource{
		cfg:      cfg,
		geometry: route.Geometry(),
		length:   route.Length(),
		distance: util.ClampFloat(progress.DistanceTraveled(), 0, route.Length()),
		speed:    speed,
		consumer: consumer,
		clock:    clock,
		now:      clock(),
		done:     make(chan struct{}),
	}, nil
}

func (ss *SimulatedSource) Name() string {
	return SimulatedSourceName
}

func (ss *SimulatedSource) Speed() float64 {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.speed
}

func (ss *SimulatedSource) DistanceTraveled() float64 {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.distance
}

// Start emits one update every tick interval until Stop, ctx is done or the route end is reached.
func (ss *SimulatedSource) Start(ctx context.Context) {
	ss.mu.Lock()
	if ss.started || ss.stopped {
		ss.mu.Unlock()
		return
	}
	ss.started = true
	ctx, ss.cancel = context.WithCancel(ctx)
	ss.mu.Unlock()

	go func() {
		defer close(ss.done)

		ticker := time.NewTicker(ss.cfg.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, more := ss.Step(ss.cfg.TickInterval); !more {
					return
				}
			}
		}
	}()
}

/*
Step advances the vehicle by dt and emits the new location and heading. more is false once
the source is stopped or the end of the route has been reached.
*/
func (ss *SimulatedSource) Step(dt time.Duration) (fix *datastructure.LocationFix, more bool) {
	ss.mu.Lock()
	if ss.stopped {
		ss.mu.Unlock()
		return nil, false
	}
	ss.distance += ss.speed * dt.Seconds()
	if ss.distance > ss.length {
		ss.distance = ss.length
	}
	ss.now = ss.now.Add(dt)
	coord, bearing := geo.CoordinateAlong(ss.geometry, ss.distance)
	fix = datastructure.NewSimulatedFix(coord, ss.now, ss.speed, bearing)
	more = ss.distance < ss.length
	consumer := ss.consumer
	ss.mu.Unlock()

	if consumer != nil {
		consumer.OnLocation(ss, fix)
		consumer.OnHeading(ss, bearing)
	}
	return fix, more
}

// Stop is idempotent and does not wait for an in-flight update, see Done.
func (ss *SimulatedSource) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.stopped {
		return
	}
	ss.stopped = true
	if ss.cancel != nil {
		ss.cancel()
	} else {
		close(ss.done)
	}
}

// Done is closed once the update loop has exited (or on Stop if it never started).
func (ss *SimulatedSource) Done() <-chan struct{} {
	return ss.done
}
