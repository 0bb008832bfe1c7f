package tunnel

import (
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/location"
	"go.uber.org/zap"
)

/*
Detector decides from location fixes and route progress when the user enters or leaves a road
tunnel, and swaps the controller between the real and a simulated location source.

Calls must be serialized by the caller: the exit buffer depends on fixes arriving in order.
*/
type Detector struct {
	cfg      Config
	sw       Switch
	observer Observer
	log      *zap.Logger

	animationEnabled bool
	exitBuffer       []*datastructure.LocationFix
	simulated        location.Source
}

func NewDetector(cfg Config, sw Switch, log *zap.Logger) *Detector {
	return &Detector{
		cfg:        cfg,
		sw:         sw,
		log:        log,
		exitBuffer: make([]*datastructure.LocationFix, 0, exitFixCount),
	}
}

// SetObserver registers the observer, nil removes it.
func (d *Detector) SetObserver(o Observer) {
	d.observer = o
}

func (d *Detector) Config() Config {
	return d.cfg
}

func (d *Detector) AnimationEnabled() bool {
	return d.animationEnabled
}

func (d *Detector) State() State {
	if d.animationEnabled {
		return SimulatingInTunnel
	}
	return Inactive
}

// ExitBufferLen. number of qualified fixes recorded since the tunnel exit started
func (d *Detector) ExitBufferLen() int {
	return len(d.exitBuffer)
}

// SimulatedSource. nil while Inactive
func (d *Detector) SimulatedSource() location.Source {
	return d.simulated
}

// DetectTunnel reports whether the user is inside a tunnel or about to enter one.
func (d *Detector) DetectTunnel(fix *datastructure.LocationFix, progress *datastructure.RouteProgress) bool {
	stepProgress := progress.CurrentStepProgress()
	if stepProgress == nil {
		return false
	}

	current := stepProgress.CurrentIntersection()
	if current == nil {
		return false
	}

	if classes, ok := current.OutletRoadClasses(); ok && classes.Contains(datastructure.RoadClassTunnel) {
		return true
	}

	return d.WithinTunnelEntranceRadius(fix, progress)
}

/*
WithinTunnelEntranceRadius reports whether the upcoming intersection leads into a tunnel and the
user is closer than MinDistanceToTunnelEntrance to it while either driving at least
MinSpeedAtTunnelEntrance or holding a fix that is not qualified. Positioning is about to
degrade in both cases.
*/
func (d *Detector) WithinTunnelEntranceRadius(fix *datastructure.LocationFix, progress *datastructure.RouteProgress) bool {
	stepProgress := progress.CurrentStepProgress()
	if stepProgress == nil {
		return false
	}

	upcoming := stepProgress.UpcomingIntersection()
	if upcoming == nil {
		return false
	}
	classes, ok := upcoming.OutletRoadClasses()
	if !ok || !classes.Contains(datastructure.RoadClassTunnel) {
		return false
	}

	if !(fix.Speed() >= d.cfg.MinSpeedAtTunnelEntrance || !fix.IsQualified()) {
		return false
	}

	distanceToTunnelEntrance, ok := stepProgress.UserDistanceToUpcomingIntersection()
	if !ok {
		return false
	}

	return distanceToTunnelEntrance < d.cfg.MinDistanceToTunnelEntrance
}

// EnableAnimation switches to a simulated source seeded from progress. No-op while already enabled.
func (d *Detector) EnableAnimation(fix *datastructure.LocationFix, progress *datastructure.RouteProgress,
	completion CompletionFunc) {
	if d.animationEnabled {
		return
	}

	src, err := d.sw.ActivateSimulated(progress)
	if err != nil {
		d.log.Warn("cannot start tunnel simulation", zap.Error(err))
		return
	}

	d.animationEnabled = true
	d.simulated = src

	d.log.Info("tunnel entered, location simulation enabled",
		zap.Float64("lat", fix.Lat()), zap.Float64("lon", fix.Lon()),
		zap.Float64("speed", fix.Speed()), zap.Bool("qualified", fix.IsQualified()))

	d.notify(Transition{Kind: Entered, Fix: fix, Source: src})
	if completion != nil {
		completion(d.animationEnabled, src)
	}
}

/*
SuspendAnimation records fix as tunnel exit evidence when qualified. Once exitFixCount qualified
fixes have been recorded the simulated source is stopped and fix becomes the authoritative
location. No-op while animation is disabled.
*/
func (d *Detector) SuspendAnimation(fix *datastructure.LocationFix, completion CompletionFunc) {
	if !d.animationEnabled {
		return
	}

	// unqualified fixes do not reset the count
	if fix.IsQualified() && len(d.exitBuffer) < exitFixCount {
		d.exitBuffer = append(d.exitBuffer, fix)
	}
	if len(d.exitBuffer) < exitFixCount {
		return
	}

	d.animationEnabled = false
	if d.simulated != nil {
		d.simulated.Stop()
		d.simulated = nil
	}
	d.exitBuffer = d.exitBuffer[:0]

	realSrc := d.sw.ActivateReal(fix)

	d.log.Info("tunnel exited, location simulation disabled",
		zap.Float64("lat", fix.Lat()), zap.Float64("lon", fix.Lon()),
		zap.Float64("horizontal_accuracy", fix.HorizontalAccuracy()))

	d.notify(Transition{Kind: Exited, Fix: fix, Source: realSrc})
	if completion != nil {
		completion(d.animationEnabled, realSrc)
	}
}

// Close stops the simulated source, if any. The detector is Inactive afterwards.
func (d *Detector) Close() {
	if d.simulated != nil {
		d.simulated.Stop()
		d.simulated = nil
	}
	d.animationEnabled = false
	d.exitBuffer = d.exitBuffer[:0]
}

func (d *Detector) notify(t Transition) {
	if d.observer == nil {
		return
	}
	d.observer.OnTunnelTransition(t)
}
