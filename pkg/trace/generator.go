package trace

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/geo"
	"golang.org/x/exp/rand"
)

type GeneratorConfig struct {
	Start    time.Time
	Interval time.Duration
	Speed    float64 // m/s
	Seed     uint64

	// open sky
	NoiseStdDev float64 // meter
	Accuracy    float64 // meter

	// inside tunnels the receiver drifts and reports a poor accuracy
	TunnelNoiseStdDev float64
	TunnelAccuracy    float64
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Start:             time.Date(2025, 1, 1, 7, 0, 0, 0, time.UTC),
		Interval:          time.Second,
		Speed:             13.9,
		Seed:              1,
		NoiseStdDev:       3,
		Accuracy:          5,
		TunnelNoiseStdDev: 60,
		TunnelAccuracy:    250,
	}
}

// Span is a stretch of the route in meter from the origin.
type Span struct {
	From, To float64
}

// TunnelSpans returns the stretches of the route that run through a tunnel.
func TunnelSpans(route *datastructure.Route) []Span {
	spans := make([]Span, 0)
	for _, leg := range route.Legs() {
		for _, step := range leg.Steps() {
			ins := append([]*datastructure.Intersection(nil), step.Intersections()...)
			sort.Slice(ins, func(i, j int) bool {
				return ins[i].DistanceAlongRoute() < ins[j].DistanceAlongRoute()
			})
			for i, in := range ins {
				if !in.IsTunnel() {
					continue
				}
				end := step.EndDistance()
				if i+1 < len(ins) {
					end = ins[i+1].DistanceAlongRoute()
				}
				if n := len(spans); n > 0 && spans[n-1].To >= in.DistanceAlongRoute() {
					spans[n-1].To = math.Max(spans[n-1].To, end)
					continue
				}
				spans = append(spans, Span{From: in.DistanceAlongRoute(), To: end})
			}
		}
	}
	return spans
}

func inSpans(spans []Span, d float64) bool {
	for _, s := range spans {
		if d >= s.From && d < s.To {
			return true
		}
	}
	return false
}

// Generate drives the route at a constant speed and records a noisy fix every interval.
func Generate(route *datastructure.Route, cfg GeneratorConfig) ([]Record, error) {
	if len(route.Geometry()) < 2 {
		return nil, fmt.Errorf("route has no geometry")
	}
	if cfg.Speed <= 0 || cfg.Interval <= 0 {
		return nil, fmt.Errorf("speed and interval must be positive")
	}

	rd := rand.New(rand.NewSource(cfg.Seed))
	spans := TunnelSpans(route)
	step := cfg.Speed * cfg.Interval.Seconds()

	records := make([]Record, 0, int(route.Length()/step)+2)
	t := cfg.Start
	for d := 0.0; ; d += step {
		if d > route.Length() {
			d = route.Length()
		}
		coord, bearing := geo.CoordinateAlong(route.Geometry(), d)

		stdDev, accuracy := cfg.NoiseStdDev, cfg.Accuracy
		if inSpans(spans, d) {
			stdDev, accuracy = cfg.TunnelNoiseStdDev, cfg.TunnelAccuracy
		}
		lat, lon := jitter(rd, coord, stdDev)

		records = append(records, Record{
			Time:               t,
			Lat:                lat,
			Lon:                lon,
			Speed:              cfg.Speed,
			Course:             bearing,
			HorizontalAccuracy: accuracy,
		})

		if d >= route.Length() {
			break
		}
		t = t.Add(cfg.Interval)
	}
	return records, nil
}

func jitter(rd *rand.Rand, c geo.Coordinate, stdDev float64) (float64, float64) {
	if stdDev <= 0 {
		return c.Lat, c.Lon
	}
	dist := math.Abs(rd.NormFloat64()) * stdDev / 1000
	bearing := rd.Float64() * 360
	return geo.GetDestinationPoint(c.Lat, c.Lon, bearing, dist)
}
