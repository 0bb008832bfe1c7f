package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/concurrent"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/journal"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/logger"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/navigation"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/trace"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/tunnel"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/util"
	"go.uber.org/zap"
)

var (
	routeFile   = flag.String("route", "./data/route.json", "route json file")
	configDir   = flag.String("config_dir", "./data", "directory containing config.yaml")
	journalPath = flag.String("journal", "", "also record transitions in this sqlite journal")
	workers     = flag.Int("workers", runtime.NumCPU(), "number of traces replayed concurrently")
)

type replayedTransition struct {
	kind   tunnel.TransitionKind
	source string
	fix    *datastructure.LocationFix
}

// collector keeps the transitions of one replay and forwards them to the journal, if any.
type collector struct {
	mu          sync.Mutex
	transitions []replayedTransition
	journal     *journal.Journal
}

func (c *collector) Record(ctx context.Context, sessionID string, t tunnel.Transition) error {
	c.mu.Lock()
	c.transitions = append(c.transitions, replayedTransition{kind: t.Kind, source: t.Source.Name(), fix: t.Fix})
	c.mu.Unlock()
	if c.journal != nil {
		return c.journal.Record(ctx, sessionID, t)
	}
	return nil
}

type replayResult struct {
	trace       string
	fixes       int
	transitions []replayedTransition
	final       navigation.Status
}

func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}

	if err := util.ReadConfig(*configDir); err != nil {
		log.Fatal("read config", zap.Error(err))
	}
	cfg := navigation.ConfigFromViper()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: replay -route route.json trace.csv [trace.jsonl.bz2 ...]")
		os.Exit(2)
	}

	route, err := datastructure.ReadRouteFile(*routeFile)
	if err != nil {
		log.Fatal("read route", zap.Error(err))
	}

	ctx := context.Background()
	var j *journal.Journal
	if *journalPath != "" {
		j, err = journal.Open(ctx, *journalPath, log)
		if err != nil {
			log.Fatal("open journal", zap.Error(err))
		}
		defer j.Close()
	}

	results, err := concurrent.RunAll(ctx, *workers, files, func(ctx context.Context, file string) (replayResult, error) {
		return replay(file, route, cfg, j, log)
	})
	if err != nil {
		log.Error("replay failed", zap.Error(err))
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "trace\tkind\tsource\ttime\tlat\tlon\tspeed\taccuracy")
	for _, res := range results {
		if res.trace == "" {
			continue
		}
		for _, t := range res.transitions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.6f\t%.6f\t%.1f\t%.1f\n", res.trace, t.kind, t.source,
				t.fix.Time().Format(time.RFC3339), t.fix.Lat(), t.fix.Lon(), t.fix.Speed(), t.fix.HorizontalAccuracy())
		}
		fmt.Fprintf(tw, "%s\t%d fixes, %d transitions, final state %s\t\t\t\t\t\t\n", res.trace, res.fixes,
			len(res.transitions), res.final.State)
	}
	tw.Flush()

	if err != nil {
		os.Exit(1)
	}
}

/*
replay feeds a recorded trace through a session on the calling goroutine. Time comes from the
trace: the simulated source is advanced by the gap between consecutive fixes before each fix.
*/
func replay(file string, route *datastructure.Route, cfg navigation.Config, j *journal.Journal,
	log *zap.Logger) (replayResult, error) {
	records, err := trace.ReadFile(file)
	if err != nil {
		return replayResult{}, fmt.Errorf("%s: %w", file, err)
	}

	var now time.Time
	col := &collector{journal: j}
	sessionID := filepath.Base(file)
	sess := navigation.NewSession(sessionID, route, cfg, log,
		navigation.WithRecorder(col),
		navigation.WithClock(func() time.Time { return now }))

	for i, rec := range records {
		if i > 0 {
			sess.AdvanceSimulation(rec.Time.Sub(now))
		}
		now = rec.Time
		sess.ProcessFix(rec.Fix())
	}

	return replayResult{
		trace:       sessionID,
		fixes:       len(records),
		transitions: col.transitions,
		final:       sess.Status(),
	}, nil
}
