package usecases

import (
	"context"
	"errors"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/journal"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/navigation"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/util"
	"go.uber.org/zap"
)

type SessionService struct {
	log     *zap.Logger
	manager SessionManager
	store   TransitionStore
}

// NewSessionService. store may be nil when the transition journal is disabled.
func NewSessionService(log *zap.Logger, manager SessionManager, store TransitionStore) *SessionService {
	return &SessionService{
		log:     log,
		manager: manager,
		store:   store,
	}
}

func (ss *SessionService) CreateSession(doc *datastructure.RouteDocument) (navigation.Status, error) {
	route, err := doc.Build()
	if err != nil {
		return navigation.Status{}, util.WrapErrorf(err, util.ErrBadParamInput, "invalid route")
	}

	sess, err := ss.manager.Create(route)
	if err != nil {
		return navigation.Status{}, err
	}
	ss.log.Info("navigation session created", zap.String("session_id", sess.ID()),
		zap.Int("steps", route.NumberOfSteps()), zap.Float64("route_length", route.Length()))
	return sess.Status(), nil
}

func (ss *SessionService) ListSessions() []navigation.Status {
	return ss.manager.List()
}

func (ss *SessionService) GetSession(id string) (navigation.Status, error) {
	sess, err := ss.manager.Get(id)
	if err != nil {
		return navigation.Status{}, err
	}
	return sess.Status(), nil
}

// PushFix enqueues a device fix on the session. Fixes of one caller are processed in call order.
func (ss *SessionService) PushFix(ctx context.Context, id string, fix *datastructure.LocationFix) error {
	sess, err := ss.manager.Get(id)
	if err != nil {
		return err
	}
	if err := sess.Push(ctx, fix); err != nil {
		if errors.Is(err, navigation.ErrSessionClosed) {
			return util.WrapErrorf(err, util.ErrNotFound, "session %s ended", id)
		}
		return util.WrapErrorf(err, util.ErrInternalServerError, "push fix")
	}
	return nil
}

func (ss *SessionService) EndSession(id string) (navigation.Status, error) {
	return ss.manager.End(id)
}

// Transitions lists the recorded transitions of a session, ended sessions included.
func (ss *SessionService) Transitions(ctx context.Context, id string) ([]journal.Entry, error) {
	if ss.store == nil {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "transition journal is disabled")
	}
	entries, err := ss.store.ListBySession(ctx, id)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "list transitions")
	}
	return entries, nil
}

func (ss *SessionService) Subscribe(id string) (<-chan navigation.Event, func(), error) {
	sess, err := ss.manager.Get(id)
	if err != nil {
		return nil, nil, err
	}
	events, unsubscribe := sess.Subscribe()
	return events, unsubscribe, nil
}
