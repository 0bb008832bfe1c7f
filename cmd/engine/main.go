package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/http"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/http/usecases"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/journal"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/logger"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/navigation"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configDir = flag.String("config_dir", "./data", "directory containing config.yaml")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := util.ReadConfig(*configDir); err != nil {
		logger.Fatal("read config", zap.Error(err))
	}

	var sessionConfig atomic.Pointer[navigation.Config]
	cfg := navigation.ConfigFromViper()
	sessionConfig.Store(&cfg)
	util.WatchConfig(logger, func() {
		cfg := navigation.ConfigFromViper()
		sessionConfig.Store(&cfg)
		logger.Info("session config reloaded, applies to new sessions",
			zap.Float64("min_speed_at_entrance", cfg.Tunnel.MinSpeedAtTunnelEntrance),
			zap.Float64("min_distance_to_entrance", cfg.Tunnel.MinDistanceToTunnelEntrance))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		recorder navigation.TransitionRecorder
		store    usecases.TransitionStore
	)
	if path := viper.GetString("JOURNAL_PATH"); path != "" {
		j, err := journal.Open(ctx, path, logger)
		if err != nil {
			logger.Fatal("open transition journal", zap.Error(err))
		}
		defer j.Close()
		recorder, store = j, j
	} else {
		logger.Info("transition journal disabled")
	}

	manager := navigation.NewManager(ctx, func() navigation.Config {
		return *sessionConfig.Load()
	}, recorder, logger)
	defer manager.Close()

	sessionService := usecases.NewSessionService(logger, manager, store)

	api := http.NewServer(logger)
	err = api.Use(ctx, logger, viper.GetBool("USE_RATE_LIMIT"), sessionService)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
	}

	logger.Info("Navigatorx Tunnel Server Stopped")
}
