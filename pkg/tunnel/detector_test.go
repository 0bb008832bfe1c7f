package tunnel

import (
	"errors"
	"testing"
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/geo"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	name    string
	stopped int
}

func (fs *fakeSource) Name() string { return fs.name }
func (fs *fakeSource) Stop()        { fs.stopped++ }

type fakeSwitch struct {
	simulated    []*fakeSource
	real         *fakeSource
	realFixes    []*datastructure.LocationFix
	seeds        []*datastructure.RouteProgress
	simulatedErr error
}

func newFakeSwitch() *fakeSwitch {
	return &fakeSwitch{real: &fakeSource{name: location.RealSourceName}}
}

func (fs *fakeSwitch) ActivateSimulated(progress *datastructure.RouteProgress) (location.Source, error) {
	if fs.simulatedErr != nil {
		return nil, fs.simulatedErr
	}
	src := &fakeSource{name: location.SimulatedSourceName}
	fs.simulated = append(fs.simulated, src)
	fs.seeds = append(fs.seeds, progress)
	return src, nil
}

func (fs *fakeSwitch) ActivateReal(fix *datastructure.LocationFix) location.Source {
	fs.realFixes = append(fs.realFixes, fix)
	return fs.real
}

type recordingObserver struct {
	transitions []Transition
}

func (ro *recordingObserver) OnTunnelTransition(t Transition) {
	ro.transitions = append(ro.transitions, t)
}

type completionCall struct {
	enabled bool
	source  location.Source
}

func recordCompletion(calls *[]completionCall) CompletionFunc {
	return func(enabled bool, src location.Source) {
		*calls = append(*calls, completionCall{enabled: enabled, source: src})
	}
}

var testConfig = Config{
	MinSpeedAtTunnelEntrance:    5,
	MinDistanceToTunnelEntrance: 100,
}

func newFix(speed float64, qualified bool) *datastructure.LocationFix {
	fix := datastructure.NewLocationFix(-7.55, 110.82, time.Now(), speed, 90, 10)
	fix.SetQualified(qualified)
	return fix
}

func tunnelIntersection() *datastructure.Intersection {
	return datastructure.NewIntersection(geo.NewCoordinate(-7.55, 110.83), datastructure.RoadClassTunnel, true)
}

func plainIntersection() *datastructure.Intersection {
	return datastructure.NewIntersection(geo.NewCoordinate(-7.55, 110.81), 0, true)
}

func unknownIntersection() *datastructure.Intersection {
	return datastructure.NewIntersection(geo.NewCoordinate(-7.55, 110.81), 0, false)
}

// progressWith builds a snapshot; distance < 0 means the distance to the upcoming intersection is unknown.
func progressWith(current, upcoming *datastructure.Intersection, distance float64) *datastructure.RouteProgress {
	sp := datastructure.NewStepProgress(nil, 0, 0, current, upcoming)
	if distance >= 0 {
		sp.SetUserDistanceToUpcomingIntersection(distance)
	}
	return datastructure.NewRouteProgress(nil, datastructure.NewLegProgress(0, sp), 0, 10)
}

func newTestDetector(sw Switch) *Detector {
	return NewDetector(testConfig, sw, zap.NewNop())
}

func TestDetectTunnel(t *testing.T) {
	testCases := []struct {
		name     string
		progress *datastructure.RouteProgress
		fix      *datastructure.LocationFix
		want     bool
	}{
		{
			name:     "no current leg",
			progress: datastructure.NewRouteProgress(nil, nil, 0, 10),
			fix:      newFix(10, true),
			want:     false,
		},
		{
			name:     "no current step",
			progress: datastructure.NewRouteProgress(nil, datastructure.NewLegProgress(0, nil), 0, 10),
			fix:      newFix(10, true),
			want:     false,
		},
		{
			name:     "no current intersection",
			progress: progressWith(nil, tunnelIntersection(), 50),
			fix:      newFix(10, true),
			want:     false,
		},
		{
			name:     "inside tunnel",
			progress: progressWith(tunnelIntersection(), nil, -1),
			fix:      newFix(0, true),
			want:     true,
		},
		{
			name:     "fast and close to tunnel entrance",
			progress: progressWith(plainIntersection(), tunnelIntersection(), 50),
			fix:      newFix(10, true),
			want:     true,
		},
		{
			name:     "close to tunnel entrance but far",
			progress: progressWith(plainIntersection(), tunnelIntersection(), 500),
			fix:      newFix(10, true),
			want:     false,
		},
		{
			name:     "current intersection without road classes falls back to entrance radius",
			progress: progressWith(unknownIntersection(), tunnelIntersection(), 50),
			fix:      newFix(10, true),
			want:     true,
		},
		{
			name:     "no tunnel anywhere",
			progress: progressWith(plainIntersection(), plainIntersection(), 10),
			fix:      newFix(10, false),
			want:     false,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(newFakeSwitch())
			assert.Equal(t, tt.want, d.DetectTunnel(tt.fix, tt.progress))
			assert.Equal(t, Inactive, d.State(), "detection has no side effects")
		})
	}
}

func TestWithinTunnelEntranceRadius(t *testing.T) {
	testCases := []struct {
		name     string
		progress *datastructure.RouteProgress
		fix      *datastructure.LocationFix
		want     bool
	}{
		{
			name:     "fast qualified fix 50m before tunnel",
			progress: progressWith(plainIntersection(), tunnelIntersection(), 50),
			fix:      newFix(10, true),
			want:     true,
		},
		{
			name:     "speed exactly at threshold",
			progress: progressWith(plainIntersection(), tunnelIntersection(), 50),
			fix:      newFix(5, true),
			want:     true,
		},
		{
			name:     "slow qualified fix",
			progress: progressWith(plainIntersection(), tunnelIntersection(), 50),
			fix:      newFix(2, true),
			want:     false,
		},
		{
			name:     "slow unqualified fix",
			progress: progressWith(plainIntersection(), tunnelIntersection(), 50),
			fix:      newFix(2, false),
			want:     true,
		},
		{
			name:     "invalid speed unqualified fix",
			progress: progressWith(plainIntersection(), tunnelIntersection(), 50),
			fix:      newFix(-1, false),
			want:     true,
		},
		{
			name:     "distance exactly at threshold",
			progress: progressWith(plainIntersection(), tunnelIntersection(), 100),
			fix:      newFix(10, true),
			want:     false,
		},
		{
			name:     "500m before tunnel",
			progress: progressWith(plainIntersection(), tunnelIntersection(), 500),
			fix:      newFix(10, true),
			want:     false,
		},
		{
			name:     "no upcoming intersection",
			progress: progressWith(plainIntersection(), nil, 50),
			fix:      newFix(10, true),
			want:     false,
		},
		{
			name:     "upcoming intersection without road classes",
			progress: progressWith(plainIntersection(), unknownIntersection(), 50),
			fix:      newFix(10, true),
			want:     false,
		},
		{
			name:     "unknown distance",
			progress: progressWith(plainIntersection(), tunnelIntersection(), -1),
			fix:      newFix(10, true),
			want:     false,
		},
		{
			name:     "no current leg",
			progress: datastructure.NewRouteProgress(nil, nil, 0, 10),
			fix:      newFix(10, true),
			want:     false,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(newFakeSwitch())
			assert.Equal(t, tt.want, d.WithinTunnelEntranceRadius(tt.fix, tt.progress))
		})
	}
}

func TestDefaultConfigThresholds(t *testing.T) {
	d := NewDetector(DefaultConfig(), newFakeSwitch(), zap.NewNop())
	progress := progressWith(plainIntersection(), tunnelIntersection(), 14)
	assert.True(t, d.WithinTunnelEntranceRadius(newFix(5, true), progress))

	progress = progressWith(plainIntersection(), tunnelIntersection(), 50)
	assert.False(t, d.WithinTunnelEntranceRadius(newFix(10, true), progress))
}

func TestEnableAnimationIdempotent(t *testing.T) {
	sw := newFakeSwitch()
	obs := &recordingObserver{}
	d := newTestDetector(sw)
	d.SetObserver(obs)

	var calls []completionCall
	progress := progressWith(tunnelIntersection(), nil, -1)
	fix := newFix(10, true)

	d.EnableAnimation(fix, progress, recordCompletion(&calls))
	require.True(t, d.AnimationEnabled())
	require.Len(t, sw.simulated, 1)
	assert.Same(t, progress, sw.seeds[0])
	simulated := d.SimulatedSource()

	d.EnableAnimation(newFix(12, true), progress, recordCompletion(&calls))

	assert.True(t, d.AnimationEnabled())
	assert.Equal(t, SimulatingInTunnel, d.State())
	assert.Len(t, sw.simulated, 1, "second enable must not build another simulated source")
	assert.Same(t, simulated, d.SimulatedSource())
	assert.Equal(t, 0, d.ExitBufferLen())

	require.Len(t, calls, 1)
	assert.True(t, calls[0].enabled)
	assert.Equal(t, location.SimulatedSourceName, calls[0].source.Name())

	require.Len(t, obs.transitions, 1)
	assert.Equal(t, Entered, obs.transitions[0].Kind)
	assert.Same(t, fix, obs.transitions[0].Fix)
}

func TestEnableAnimationSwitchFailure(t *testing.T) {
	sw := newFakeSwitch()
	sw.simulatedErr = errors.New("no geometry")
	d := newTestDetector(sw)

	var calls []completionCall
	d.EnableAnimation(newFix(10, true), progressWith(tunnelIntersection(), nil, -1), recordCompletion(&calls))

	assert.False(t, d.AnimationEnabled())
	assert.Empty(t, calls)
}

func TestSuspendAnimationWhenInactiveIsNoop(t *testing.T) {
	sw := newFakeSwitch()
	d := newTestDetector(sw)

	var calls []completionCall
	for i := 0; i < 5; i++ {
		d.SuspendAnimation(newFix(10, true), recordCompletion(&calls))
	}

	assert.Equal(t, Inactive, d.State())
	assert.Equal(t, 0, d.ExitBufferLen())
	assert.Empty(t, calls)
	assert.Empty(t, sw.realFixes)
}

func TestSuspendAnimationAfterThreeQualifiedFixes(t *testing.T) {
	sw := newFakeSwitch()
	obs := &recordingObserver{}
	d := newTestDetector(sw)
	d.SetObserver(obs)

	var calls []completionCall
	d.EnableAnimation(newFix(10, true), progressWith(tunnelIntersection(), nil, -1), nil)
	simulated := sw.simulated[0]

	d.SuspendAnimation(newFix(10, true), recordCompletion(&calls))
	assert.True(t, d.AnimationEnabled())
	assert.Equal(t, 1, d.ExitBufferLen())

	d.SuspendAnimation(newFix(10, true), recordCompletion(&calls))
	assert.True(t, d.AnimationEnabled())
	assert.Equal(t, 2, d.ExitBufferLen())
	assert.Empty(t, calls)

	third := newFix(10, true)
	d.SuspendAnimation(third, recordCompletion(&calls))

	assert.False(t, d.AnimationEnabled(), "animation is disabled on the third qualified fix")
	assert.Equal(t, Inactive, d.State())
	assert.Equal(t, 0, d.ExitBufferLen())
	assert.Nil(t, d.SimulatedSource())
	assert.Equal(t, 1, simulated.stopped)

	require.Len(t, sw.realFixes, 1)
	assert.Same(t, third, sw.realFixes[0])

	require.Len(t, calls, 1)
	assert.False(t, calls[0].enabled)
	assert.Same(t, sw.real, calls[0].source)

	require.Len(t, obs.transitions, 2)
	assert.Equal(t, Exited, obs.transitions[1].Kind)
	assert.Same(t, third, obs.transitions[1].Fix)

	// a later suspend is absorbed
	d.SuspendAnimation(newFix(10, true), recordCompletion(&calls))
	assert.Len(t, calls, 1)
	assert.Equal(t, 1, simulated.stopped)
}

func TestSuspendAnimationIgnoresUnqualifiedFixes(t *testing.T) {
	testCases := []struct {
		name        string
		qualified   []bool
		wantEnabled bool
		wantBuffer  int
	}{
		{name: "two qualified then unqualified", qualified: []bool{true, true, false}, wantEnabled: true, wantBuffer: 2},
		{name: "only unqualified", qualified: []bool{false, false, false, false}, wantEnabled: true, wantBuffer: 0},
		{name: "unqualified interleaved does not restart the count", qualified: []bool{true, false, true, false, true},
			wantEnabled: false, wantBuffer: 0},
		{name: "unqualified first", qualified: []bool{false, true, true, true}, wantEnabled: false, wantBuffer: 0},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			sw := newFakeSwitch()
			d := newTestDetector(sw)
			d.EnableAnimation(newFix(10, true), progressWith(tunnelIntersection(), nil, -1), nil)

			for _, q := range tt.qualified {
				d.SuspendAnimation(newFix(10, q), nil)
			}

			assert.Equal(t, tt.wantEnabled, d.AnimationEnabled())
			assert.Equal(t, tt.wantBuffer, d.ExitBufferLen())
			if !tt.wantEnabled {
				assert.Len(t, sw.realFixes, 1)
			}
		})
	}
}

func TestEnableSuspendRoundTrip(t *testing.T) {
	sw := newFakeSwitch()
	d := newTestDetector(sw)
	initialState, initialBuffer := d.State(), d.ExitBufferLen()

	for round := 0; round < 2; round++ {
		d.EnableAnimation(newFix(10, true), progressWith(tunnelIntersection(), nil, -1), nil)
		for i := 0; i < 3; i++ {
			d.SuspendAnimation(newFix(10, true), nil)
		}

		assert.Equal(t, initialState, d.State())
		assert.Equal(t, initialBuffer, d.ExitBufferLen())
		assert.Nil(t, d.SimulatedSource())
	}

	assert.Len(t, sw.simulated, 2, "every traversal gets its own simulated source")
	assert.Len(t, sw.realFixes, 2)
}

func TestNilObserverIsTolerated(t *testing.T) {
	d := newTestDetector(newFakeSwitch())
	d.SetObserver(nil)

	assert.NotPanics(t, func() {
		d.EnableAnimation(newFix(10, true), progressWith(tunnelIntersection(), nil, -1), nil)
		for i := 0; i < 3; i++ {
			d.SuspendAnimation(newFix(10, true), nil)
		}
	})
}

func TestClose(t *testing.T) {
	sw := newFakeSwitch()
	d := newTestDetector(sw)
	d.EnableAnimation(newFix(10, true), progressWith(tunnelIntersection(), nil, -1), nil)
	d.SuspendAnimation(newFix(10, true), nil)

	d.Close()

	assert.Equal(t, Inactive, d.State())
	assert.Equal(t, 0, d.ExitBufferLen())
	assert.Equal(t, 1, sw.simulated[0].stopped)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "inactive", Inactive.String())
	assert.Equal(t, "simulating_in_tunnel", SimulatingInTunnel.String())
	assert.Equal(t, "entered", Entered.String())
	assert.Equal(t, "exited", Exited.String())
}
