package navigation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/location"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/tunnel"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var ErrSessionClosed = errors.New("navigation session closed")

type Config struct {
	Tunnel                tunnel.Config
	Simulation            location.SimulationConfig
	MaxHorizontalAccuracy float64       // meter
	MaxAge                time.Duration // 0 disables the fix age check
	MaxSnapDistance       float64       // meter
	QueueSize             int
	SubscriberBuffer      int
}

func DefaultConfig() Config {
	return Config{
		Tunnel:                tunnel.DefaultConfig(),
		Simulation:            location.DefaultSimulationConfig(),
		MaxHorizontalAccuracy: 100,
		MaxSnapDistance:       50,
		QueueSize:             64,
		SubscriberBuffer:      64,
	}
}

// ConfigFromViper reads the session config, call util.ReadConfig first.
func ConfigFromViper() Config {
	cfg := DefaultConfig()
	cfg.Tunnel = tunnel.ConfigFromViper()
	cfg.Simulation = location.SimulationConfig{
		TickInterval: viper.GetDuration("simulation.tick_interval"),
		MinSpeed:     viper.GetFloat64("simulation.min_speed"),
		MaxSpeed:     viper.GetFloat64("simulation.max_speed"),
	}
	cfg.MaxHorizontalAccuracy = viper.GetFloat64("location.max_horizontal_accuracy")
	cfg.MaxAge = viper.GetDuration("location.max_age")
	cfg.MaxSnapDistance = viper.GetFloat64("route.max_snap_distance")
	return cfg
}

// TransitionRecorder persists tunnel transitions of a session.
type TransitionRecorder interface {
	Record(ctx context.Context, sessionID string, t tunnel.Transition) error
}

type EventType string

const (
	EventLocation   EventType = "location"
	EventTransition EventType = "transition"
	EventClosed     EventType = "closed"
)

// Event is pushed to session subscribers.
type Event struct {
	Type              EventType
	SessionID         string
	Location          *datastructure.LocationFix
	Heading           float64
	Source            string
	State             tunnel.State
	DistanceTraveled  float64
	DistanceRemaining float64
	Transition        *tunnel.Transition
}

// Status is a point in time view of a session.
type Status struct {
	ID                string
	State             tunnel.State
	ActiveSource      string
	Location          *datastructure.LocationFix
	Heading           float64
	DistanceTraveled  float64
	DistanceRemaining float64
	OffRoute          bool
	FixesProcessed    int
	Transitions       int
	StartedAt         time.Time
}

type messageKind int

const (
	realFix messageKind = iota
	simulatedFix
	simulatedHeading
)

type message struct {
	kind    messageKind
	fix     *datastructure.LocationFix
	heading float64
	src     location.Source
}

/*
Session is one active navigation. Every input (device fixes, simulated updates) goes through a
single consumer loop in Run so that the tunnel detector sees fixes in arrival order.
*/
type Session struct {
	id       string
	cfg      Config
	log      *zap.Logger
	clock    func() time.Time
	recorder TransitionRecorder

	tracker   *RouteTracker
	detector  *tunnel.Detector
	qualifier *location.Qualifier
	real      *location.RealSource
	active    location.Source
	simulated *location.SimulatedSource

	inbox   chan message
	done    chan struct{}
	exited  chan struct{}
	running atomic.Bool
	runCtx  context.Context
	endOnce sync.Once

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int

	statusMu sync.RWMutex
	status   Status
}

type SessionOption func(*Session)

// WithClock overrides the clock used for fix qualification and simulated fix timestamps.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		s.clock = clock
	}
}

func WithRecorder(recorder TransitionRecorder) SessionOption {
	return func(s *Session) {
		s.recorder = recorder
	}
}

func NewSession(id string, route *datastructure.Route, cfg Config, log *zap.Logger, opts ...SessionOption) *Session {
	s := &Session{
		id:        id,
		cfg:       cfg,
		log:       log.With(zap.String("session_id", id)),
		clock:     time.Now,
		qualifier: location.NewQualifier(cfg.MaxHorizontalAccuracy, cfg.MaxAge),
		real:      location.NewRealSource(),
		inbox:     make(chan message, cfg.QueueSize),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
		subs:      make(map[int]chan Event),
		runCtx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tracker = NewRouteTracker(route, cfg.MaxSnapDistance, s.log)
	s.detector = tunnel.NewDetector(cfg.Tunnel, s, s.log)
	s.detector.SetObserver(s)
	s.active = s.real

	last := s.tracker.Last()
	s.status = Status{
		ID:                id,
		State:             tunnel.Inactive,
		ActiveSource:      s.real.Name(),
		DistanceRemaining: last.DistanceRemaining(),
		StartedAt:         s.clock(),
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Route() *datastructure.Route {
	return s.tracker.Route()
}

func (s *Session) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// loopExited is closed once Run has torn the session down.
func (s *Session) loopExited() <-chan struct{} {
	return s.exited
}

// Run processes inputs until ctx is done or End is called. It tears the session down before returning.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.runCtx = ctx
	s.running.Store(true)
	defer s.teardown()

	s.log.Info("navigation session started", zap.Float64("route_length", s.tracker.Route().Length()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case msg := <-s.inbox:
			s.handle(msg)
		}
	}
}

// End stops the session. Safe to call more than once and before Run.
func (s *Session) End() {
	s.endOnce.Do(func() {
		close(s.done)
	})
}

// Push enqueues a device fix. Fixes are processed in the order they are pushed.
func (s *Session) Push(ctx context.Context, fix *datastructure.LocationFix) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.inbox <- message{kind: realFix, fix: fix}:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

/*
ProcessFix handles a device fix on the calling goroutine. It must not be mixed with Run, it
exists for offline replay where the caller is the only goroutine touching the session.
*/
func (s *Session) ProcessFix(fix *datastructure.LocationFix) {
	s.handle(message{kind: realFix, fix: fix})
}

// AdvanceSimulation steps the active simulated source by dt, for offline replay. No-op when not simulating.
func (s *Session) AdvanceSimulation(dt time.Duration) {
	if s.simulated == nil || dt <= 0 {
		return
	}
	s.simulated.Step(dt)
}

func (s *Session) handle(msg message) {
	switch msg.kind {
	case realFix:
		s.handleRealFix(msg.fix)
	case simulatedFix:
		if msg.src != s.active {
			return // update from a simulated source that has been stopped
		}
		progress := s.tracker.Update(msg.fix)
		s.publishLocation(msg.fix, msg.fix.Course(), progress)
	case simulatedHeading:
		if msg.src != s.active {
			return
		}
		s.statusMu.Lock()
		s.status.Heading = msg.heading
		s.statusMu.Unlock()
	}
}

func (s *Session) handleRealFix(fix *datastructure.LocationFix) {
	s.qualifier.Qualify(fix, s.clock())

	// inside a tunnel unqualified fixes would drag the progress off the route
	progress := s.tracker.Last()
	if fix.IsQualified() || !s.detector.AnimationEnabled() {
		progress = s.tracker.Update(fix)
	}

	if s.detector.DetectTunnel(fix, progress) {
		s.detector.EnableAnimation(fix, progress, nil)
	} else if s.detector.AnimationEnabled() {
		s.detector.SuspendAnimation(fix, nil)
	}

	s.statusMu.Lock()
	s.status.FixesProcessed++
	s.status.OffRoute = s.tracker.OffRoute()
	s.statusMu.Unlock()

	if !s.detector.AnimationEnabled() {
		s.real.SetLocation(fix)
		s.publishLocation(fix, fix.Course(), progress)
	}
}

// ActivateSimulated implements tunnel.Switch.
func (s *Session) ActivateSimulated(progress *datastructure.RouteProgress) (location.Source, error) {
	src, err := location.NewSimulatedSource(progress, s, s.cfg.Simulation, s.clock)
	if err != nil {
		return nil, err
	}
	s.simulated = src
	s.active = src
	if s.running.Load() && s.cfg.Simulation.TickInterval > 0 {
		src.Start(s.runCtx)
	}
	return src, nil
}

// ActivateReal implements tunnel.Switch.
func (s *Session) ActivateReal(fix *datastructure.LocationFix) location.Source {
	s.simulated = nil
	s.active = s.real
	s.real.SetLocation(fix)
	return s.real
}

// OnLocation implements location.Consumer for the simulated source.
func (s *Session) OnLocation(src location.Source, fix *datastructure.LocationFix) {
	s.deliver(message{kind: simulatedFix, fix: fix, src: src})
}

// OnHeading implements location.Consumer for the simulated source.
func (s *Session) OnHeading(src location.Source, heading float64) {
	s.deliver(message{kind: simulatedHeading, heading: heading, src: src})
}

func (s *Session) deliver(msg message) {
	select {
	case <-s.done:
		return
	default:
	}
	if !s.running.Load() {
		s.handle(msg)
		return
	}
	select {
	case s.inbox <- msg:
	case <-s.done:
	}
}

// OnTunnelTransition implements tunnel.Observer.
func (s *Session) OnTunnelTransition(t tunnel.Transition) {
	s.statusMu.Lock()
	s.status.Transitions++
	s.status.State = s.detector.State()
	s.status.ActiveSource = t.Source.Name()
	s.statusMu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.Record(s.runCtx, s.id, t); err != nil {
			s.log.Error("record tunnel transition", zap.Error(err))
		}
	}

	tr := t
	s.publish(Event{
		Type:       EventTransition,
		SessionID:  s.id,
		Location:   t.Fix,
		Source:     t.Source.Name(),
		State:      s.detector.State(),
		Transition: &tr,
	})
}

func (s *Session) publishLocation(fix *datastructure.LocationFix, heading float64,
	progress *datastructure.RouteProgress) {
	s.statusMu.Lock()
	s.status.Location = fix
	if heading >= 0 {
		s.status.Heading = heading
	}
	s.status.DistanceTraveled = progress.DistanceTraveled()
	s.status.DistanceRemaining = progress.DistanceRemaining()
	s.status.State = s.detector.State()
	s.status.ActiveSource = s.active.Name()
	ev := Event{
		Type:              EventLocation,
		SessionID:         s.id,
		Location:          fix,
		Heading:           s.status.Heading,
		Source:            s.status.ActiveSource,
		State:             s.status.State,
		DistanceTraveled:  s.status.DistanceTraveled,
		DistanceRemaining: s.status.DistanceRemaining,
	}
	s.statusMu.Unlock()

	s.publish(ev)
}

// Subscribe returns a channel of session events and a func to unsubscribe. Events are dropped for slow subscribers.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ch := make(chan Event, s.cfg.SubscriberBuffer)
	id := s.nextSub
	s.nextSub++

	select {
	case <-s.done:
		close(ch)
		return ch, func() {}
	default:
	}
	s.subs[id] = ch

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) publish(ev Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) teardown() {
	s.End()
	s.running.Store(false)
	s.detector.Close()
	s.simulated = nil
	s.active = s.real

	s.subsMu.Lock()
	for id, ch := range s.subs {
		select {
		case ch <- Event{Type: EventClosed, SessionID: s.id}:
		default:
		}
		close(ch)
		delete(s.subs, id)
	}
	s.subsMu.Unlock()

	s.statusMu.Lock()
	s.status.State = tunnel.Inactive
	s.status.ActiveSource = s.real.Name()
	s.statusMu.Unlock()

	s.log.Info("navigation session ended")
	close(s.exited)
}
