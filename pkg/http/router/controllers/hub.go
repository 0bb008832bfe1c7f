package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/navigation"
	"go.uber.org/zap"
)

// User is one websocket client streaming fixes into a navigation session.
type User struct {
	io   sync.Mutex // serializes frame writes
	conn io.ReadWriteCloser

	id        uint
	sessionID string
	hub       *Hub
	closeOnce sync.Once
}

func (u *User) ID() uint {
	return u.id
}

func (u *User) SessionID() string {
	return u.sessionID
}

// readFix returns the next fix frame, or nil after handling a control frame.
func (u *User) readFix() (*fixRequest, error) {
	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		u.io.Lock()
		defer u.io.Unlock()
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	req := &fixRequest{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(req); err != nil {
		return nil, err
	}
	// drop trailing bytes of the frame
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	return req, nil
}

/*
Serve forwards session events to the client and client fixes to the session until the client
disconnects, the session ends or ctx is done. Fixes are read and pushed by this goroutine only,
so the session sees them in the order the client sent them.
*/
func (u *User) Serve(ctx context.Context) error {
	events, unsubscribe, err := u.hub.sessionService.Subscribe(u.sessionID)
	if err != nil {
		_ = u.writeError(http.StatusNotFound, err.Error())
		return err
	}
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer u.close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := u.write(envelope{"data": NewEventResponse(ev)}); err != nil {
					u.hub.log.Debug("write session event", zap.Error(err))
					return
				}
				if ev.Type == navigation.EventClosed {
					return
				}
			}
		}
	}()

	for {
		req, err := u.readFix()
		if err != nil {
			var closed wsutil.ClosedError
			if errors.As(err, &closed) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if req == nil {
			continue
		}

		if err := validateRequest(req); err != nil {
			if werr := u.writeError(http.StatusBadRequest, err.Error()); werr != nil {
				return werr
			}
			continue
		}

		if err := u.hub.sessionService.PushFix(ctx, u.sessionID, req.ToLocationFix(u.hub.clock())); err != nil {
			_ = u.writeError(http.StatusNotFound, err.Error())
			return err
		}
	}
}

func (u *User) writeError(status int, message string) error {
	return u.write(envelope{"error": map[string]string{
		"code":    http.StatusText(status),
		"message": message,
	}})
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

func (u *User) close() {
	u.closeOnce.Do(func() {
		u.conn.Close()
	})
}

type Hub struct {
	mu             sync.RWMutex
	seq            uint
	ns             map[uint]*User
	sessionService SessionService
	log            *zap.Logger
	clock          func() time.Time
}

func NewHub(sessionService SessionService, log *zap.Logger) *Hub {
	return &Hub{
		ns:             make(map[uint]*User),
		sessionService: sessionService,
		log:            log,
		clock:          time.Now,
	}
}

func (h *Hub) Register(conn io.ReadWriteCloser, sessionID string) *User {
	user := &User{
		hub:       h,
		conn:      conn,
		sessionID: sessionID,
	}

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.seq++
	h.mu.Unlock()

	return user
}

// Remove closes the user connection and forgets it.
func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	_, ok := h.ns[user.id]
	delete(h.ns, user.id)
	h.mu.Unlock()

	if ok {
		user.close()
	}
}

func (h *Hub) Users() []*User {
	h.mu.RLock()
	users := make([]*User, 0, len(h.ns))
	for _, u := range h.ns {
		users = append(users, u)
	}
	h.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		return users[i].id < users[j].id
	})
	return users
}

func (h *Hub) RemoveAllUser() {
	for _, user := range h.Users() {
		h.Remove(user)
	}
}
