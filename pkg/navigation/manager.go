package navigation

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/util"
	"go.uber.org/zap"
)

// Manager owns the active navigation sessions. Each session runs its own loop goroutine.
type Manager struct {
	ctx      context.Context
	cfg      func() Config
	recorder TransitionRecorder
	log      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewManager. cfg is read on every Create so that config reloads apply to new sessions.
func NewManager(ctx context.Context, cfg func() Config, recorder TransitionRecorder, log *zap.Logger) *Manager {
	return &Manager{
		ctx:      ctx,
		cfg:      cfg,
		recorder: recorder,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session navigating route.
func (m *Manager) Create(route *datastructure.Route) (*Session, error) {
	if route == nil || len(route.Geometry()) < 2 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "route has no geometry")
	}

	id := uuid.NewString()
	opts := []SessionOption{}
	if m.recorder != nil {
		opts = append(opts, WithRecorder(m.recorder))
	}
	s := NewSession(id, route, m.cfg(), m.log, opts...)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := s.Run(m.ctx); err != nil {
			m.log.Error("navigation session stopped", zap.String("session_id", id), zap.Error(err))
		}
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	}()

	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "session %s not found", id)
	}
	return s, nil
}

// End stops the session with the given id and returns its last status.
func (m *Manager) End(id string) (Status, error) {
	s, err := m.Get(id)
	if err != nil {
		return Status{}, err
	}
	s.End()
	<-s.loopExited()
	return s.Status(), nil
}

// List returns the status of every active session ordered by start time.
func (m *Manager) List() []Status {
	m.mu.RLock()
	statuses := make([]Status, 0, len(m.sessions))
	for _, s := range m.sessions {
		statuses = append(statuses, s.Status())
	}
	m.mu.RUnlock()

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].StartedAt.Equal(statuses[j].StartedAt) {
			return statuses[i].ID < statuses[j].ID
		}
		return statuses[i].StartedAt.Before(statuses[j].StartedAt)
	})
	return statuses
}

// Close ends every session and waits for their loops to exit.
func (m *Manager) Close() {
	m.mu.RLock()
	for _, s := range m.sessions {
		s.End()
	}
	m.mu.RUnlock()
	m.wg.Wait()
}
