package tunnel

import (
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/location"
)

type State int

const (
	Inactive State = iota
	SimulatingInTunnel
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case SimulatingInTunnel:
		return "simulating_in_tunnel"
	default:
		return "unknown"
	}
}

type TransitionKind int

const (
	Entered TransitionKind = iota
	Exited
)

func (k TransitionKind) String() string {
	if k == Entered {
		return "entered"
	}
	return "exited"
}

// Transition is published on every state change of the detector.
type Transition struct {
	Kind   TransitionKind
	Fix    *datastructure.LocationFix
	Source location.Source // source that is active after the transition
}

// Observer is notified of tunnel enter and exit. The detector does not own it.
type Observer interface {
	OnTunnelTransition(t Transition)
}

// Switch swaps the location source that feeds the navigation controller.
type Switch interface {
	// ActivateSimulated builds and starts a simulated source seeded from progress.
	ActivateSimulated(progress *datastructure.RouteProgress) (location.Source, error)
	// ActivateReal makes fix the authoritative location and returns the real source.
	ActivateReal(fix *datastructure.LocationFix) location.Source
}

// CompletionFunc is called after a transition with the new animation state and active source.
type CompletionFunc func(animationEnabled bool, active location.Source)
