package router

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"go.uber.org/zap"
)

var errMissingSessionID = errors.New("session_id query parameter is required")

/*
serveWebsocket accepts websocket clients on ln until ctx is done. Every connection gets its own
goroutine: fixes of one client must reach the session in the order they were sent, so reads of a
connection are never handed to a shared pool.
*/
func (api *API) serveWebsocket(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				delay := 5 * time.Millisecond
				api.log.Sugar().Infof("accept error: %v; retrying in %s", err, delay)
				time.Sleep(delay)
				continue
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			api.handle(ctx, conn)
		}()
	}
}

// handle upgrades conn and streams the session given by the session_id query parameter.
func (api *API) handle(ctx context.Context, conn net.Conn) {
	var sessionID string
	upgrader := ws.Upgrader{
		OnRequest: func(uri []byte) error {
			u, err := url.ParseRequestURI(string(uri))
			if err != nil {
				return ws.RejectConnectionError(ws.RejectionStatus(400), ws.RejectionReason(err.Error()))
			}
			sessionID = u.Query().Get("session_id")
			if sessionID == "" {
				return ws.RejectConnectionError(ws.RejectionStatus(400),
					ws.RejectionReason(errMissingSessionID.Error()))
			}
			return nil
		},
	}

	hs, err := upgrader.Upgrade(conn)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("connection", nameConn(conn)))
		conn.Close()
		return
	}

	api.log.Info("established websocket connection", zap.String("connection", nameConn(conn)),
		zap.String("protocol", hs.Protocol), zap.String("session_id", sessionID))

	user := api.hub.Register(conn, sessionID)
	defer api.hub.Remove(user)

	if err := user.Serve(ctx); err != nil {
		api.log.Debug("websocket client stopped", zap.Error(err), zap.String("session_id", sessionID))
	}
}

func nameConn(conn net.Conn) string {
	return conn.LocalAddr().String() + " > " + conn.RemoteAddr().String()
}
