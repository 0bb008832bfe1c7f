package main

import (
	"flag"
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/logger"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/trace"
	"go.uber.org/zap"
)

var (
	routeFile      = flag.String("route", "./data/route.json", "route json file")
	out            = flag.String("out", "./data/drive.csv.bz2", "output trace (.csv or .jsonl, optionally .bz2)")
	speed          = flag.Float64("speed", 13.9, "vehicle speed in m/s")
	interval       = flag.Duration("interval", time.Second, "time between fixes")
	seed           = flag.Uint64("seed", uint64(time.Now().UnixNano()), "noise seed")
	noise          = flag.Float64("noise", 3, "open sky position noise std dev in meter")
	tunnelNoise    = flag.Float64("tunnel_noise", 60, "position noise std dev inside tunnels in meter")
	tunnelAccuracy = flag.Float64("tunnel_accuracy", 250, "reported horizontal accuracy inside tunnels in meter")
)

func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}

	route, err := datastructure.ReadRouteFile(*routeFile)
	if err != nil {
		log.Fatal("read route", zap.Error(err))
	}

	cfg := trace.DefaultGeneratorConfig()
	cfg.Start = time.Now().UTC().Truncate(time.Second)
	cfg.Speed = *speed
	cfg.Interval = *interval
	cfg.Seed = *seed
	cfg.NoiseStdDev = *noise
	cfg.TunnelNoiseStdDev = *tunnelNoise
	cfg.TunnelAccuracy = *tunnelAccuracy

	records, err := trace.Generate(route, cfg)
	if err != nil {
		log.Fatal("generate trace", zap.Error(err))
	}
	if err := trace.WriteFile(*out, records); err != nil {
		log.Fatal("write trace", zap.Error(err))
	}

	spans := trace.TunnelSpans(route)
	log.Info("synthetic trace written", zap.String("file", *out), zap.Int("fixes", len(records)),
		zap.Int("tunnels", len(spans)), zap.Float64("route_length", route.Length()))
}
