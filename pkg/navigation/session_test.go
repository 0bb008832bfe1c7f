package navigation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/geo"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/location"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/tunnel"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryRecorder struct {
	mu          sync.Mutex
	sessionIDs  []string
	transitions []tunnel.Transition
}

func (mr *memoryRecorder) Record(ctx context.Context, sessionID string, t tunnel.Transition) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.sessionIDs = append(mr.sessionIDs, sessionID)
	mr.transitions = append(mr.transitions, t)
	return nil
}

func (mr *memoryRecorder) kinds() []tunnel.TransitionKind {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	kinds := make([]tunnel.TransitionKind, 0, len(mr.transitions))
	for _, t := range mr.transitions {
		kinds = append(kinds, t.Kind)
	}
	return kinds
}

func testSessionConfig() Config {
	cfg := DefaultConfig()
	// updates are driven by AdvanceSimulation
	cfg.Simulation.TickInterval = 0
	return cfg
}

func newTestSession(t *testing.T, rec *memoryRecorder) *Session {
	t.Helper()
	return NewSession("sess-1", loadRoute(t), testSessionConfig(), zap.NewNop(),
		WithRecorder(rec), WithClock(func() time.Time { return baseTime }))
}

func TestSessionTunnelEnterAndExit(t *testing.T) {
	rec := &memoryRecorder{}
	s := newTestSession(t, rec)

	s.ProcessFix(fixAt(0.002, 0, 10, 5, 0))
	st := s.Status()
	assert.Equal(t, tunnel.Inactive, st.State)
	assert.Equal(t, location.RealSourceName, st.ActiveSource)
	assert.InDelta(t, 222.4, st.DistanceTraveled, 1)

	// 11 m before the portal at 10 m/s
	s.ProcessFix(fixAt(0.0059, 0, 10, 5, 1))
	st = s.Status()
	assert.Equal(t, tunnel.SimulatingInTunnel, st.State)
	assert.Equal(t, location.SimulatedSourceName, st.ActiveSource)
	assert.Equal(t, []tunnel.TransitionKind{tunnel.Entered}, rec.kinds())

	s.AdvanceSimulation(time.Second)
	st = s.Status()
	require.NotNil(t, st.Location)
	assert.True(t, st.Location.IsSimulated())
	assert.InDelta(t, 666.1, st.DistanceTraveled, 1)

	// degraded fix inside the tunnel does not move the published location
	s.ProcessFix(fixAt(0.0065, 0.0005, 10, 500, 2))
	st = s.Status()
	assert.Equal(t, tunnel.SimulatingInTunnel, st.State)
	assert.True(t, st.Location.IsSimulated())

	s.ProcessFix(fixAt(0.0085, 0, 10, 5, 3))
	s.ProcessFix(fixAt(0.0087, 0, 10, 5, 4))
	assert.Equal(t, tunnel.SimulatingInTunnel, s.Status().State)

	exitFix := fixAt(0.0089, 0, 10, 5, 5)
	s.ProcessFix(exitFix)
	st = s.Status()
	assert.Equal(t, tunnel.Inactive, st.State)
	assert.Equal(t, location.RealSourceName, st.ActiveSource)
	assert.Same(t, exitFix, st.Location)
	assert.Equal(t, 6, st.FixesProcessed)
	assert.Equal(t, 2, st.Transitions)
	assert.Equal(t, []tunnel.TransitionKind{tunnel.Entered, tunnel.Exited}, rec.kinds())
	assert.Equal(t, []string{"sess-1", "sess-1"}, rec.sessionIDs)
}

func TestSessionIgnoresStaleSimulatedUpdates(t *testing.T) {
	s := newTestSession(t, &memoryRecorder{})

	s.ProcessFix(fixAt(0.0061, 0, 10, 5, 0))
	require.Equal(t, tunnel.SimulatingInTunnel, s.Status().State)
	stale := s.detector.SimulatedSource()
	require.NotNil(t, stale)

	for i := 1; i <= 3; i++ {
		s.ProcessFix(fixAt(0.0085+float64(i)*0.0001, 0, 10, 5, i))
	}
	require.Equal(t, tunnel.Inactive, s.Status().State)
	before := s.Status().Location

	s.OnLocation(stale, datastructure.NewSimulatedFix(geo.NewCoordinate(0.007, 0), baseTime, 10, 0))
	assert.Same(t, before, s.Status().Location)

	// stopped simulated source emits nothing
	s.AdvanceSimulation(time.Second)
	assert.Same(t, before, s.Status().Location)
}

func TestSessionRunPublishesEvents(t *testing.T) {
	rec := &memoryRecorder{}
	s := newTestSession(t, rec)
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx)
	}()

	require.NoError(t, s.Push(ctx, fixAt(0.002, 0, 10, 5, 0)))
	require.NoError(t, s.Push(ctx, fixAt(0.0061, 0, 10, 5, 1)))

	next := func() Event {
		select {
		case ev := <-events:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for session event")
			return Event{}
		}
	}

	ev := next()
	assert.Equal(t, EventLocation, ev.Type)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.Equal(t, location.RealSourceName, ev.Source)

	ev = next()
	assert.Equal(t, EventTransition, ev.Type)
	require.NotNil(t, ev.Transition)
	assert.Equal(t, tunnel.Entered, ev.Transition.Kind)
	assert.Equal(t, tunnel.SimulatingInTunnel, ev.State)

	s.End()
	ev = next()
	assert.Equal(t, EventClosed, ev.Type)
	_, open := <-events
	assert.False(t, open)

	assert.NoError(t, <-errCh)
	assert.Equal(t, tunnel.Inactive, s.Status().State)
	assert.ErrorIs(t, s.Push(ctx, fixAt(0.002, 0, 10, 5, 2)), ErrSessionClosed)
}

func TestManager(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &memoryRecorder{}
	m := NewManager(ctx, testSessionConfig, rec, zap.NewNop())
	defer m.Close()

	s1, err := m.Create(loadRoute(t))
	require.NoError(t, err)
	s2, err := m.Create(loadRoute(t))
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID(), s2.ID())

	got, err := m.Get(s1.ID())
	require.NoError(t, err)
	assert.Same(t, s1, got)
	assert.Len(t, m.List(), 2)

	require.NoError(t, s1.Push(ctx, fixAt(0.0061, 0, 10, 5, 0)))
	require.Eventually(t, func() bool {
		return len(rec.kinds()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	st, err := m.End(s1.ID())
	require.NoError(t, err)
	assert.Equal(t, tunnel.Inactive, st.State)
	assert.Equal(t, 1, st.FixesProcessed)

	require.Eventually(t, func() bool {
		_, err := m.Get(s1.ID())
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = m.Get("missing")
	require.Error(t, err)
	var uerr *util.Error
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, util.ErrNotFound, uerr.Code())

	_, err = m.Create(datastructure.NewRoute(nil))
	assert.Error(t, err)
}
