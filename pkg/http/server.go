package http

import (
	"context"

	http_router "github.com/lintang-b-s/navigatorx-tunnel/pkg/http/router"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/navigatorx-tunnel/pkg/http/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use runs the REST API and the websocket servers until ctx is done or one of them fails.
func (s *Server) Use(
	ctx context.Context,
	log *zap.Logger,

	useRateLimit bool,
	sessionService controllers.SessionService,
) error {
	config := http_server.ConfigFromViper()

	server := http_router.NewAPI(log)

	g := errgroup.Group{}

	g.Go(func() error {
		return server.Run(
			ctx, config, log,
			useRateLimit, sessionService,
		)
	})

	return g.Wait()
}
