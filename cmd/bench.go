package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/headless"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/interaction"
	"github.com/royalcat/cafemap/internal/stats"
	"github.com/royalcat/cafemap/internal/telemetry"
	"github.com/royalcat/cafemap/markers"
	"github.com/royalcat/cafemap/supercluster"
	"github.com/sourcegraph/conc/pool"
	"github.com/urfave/cli/v3"
)

type benchCounters struct {
	taps     atomic.Int64
	clusters atomic.Int64
	eases    atomic.Int64
	spiders  atomic.Int64
	legs     atomic.Int64
	noops    atomic.Int64
}

func bench(ctx *cli.Context) error {
	cfg := configFromFlags(ctx)
	telemetry.SetupLogger(logLevel(cfg))
	log := slog.Default()

	threads := ctx.Int("threads")
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	sessions := ctx.Int("sessions")
	taps := ctx.Int("taps")

	cafes, err := loadFeatures(ctx)
	if err != nil {
		return err
	}
	features := markers.FromCafes(cafes)
	if len(features) == 0 {
		return fmt.Errorf("no cafes to bench with")
	}

	collector, err := stats.NewCollector(100 * time.Millisecond)
	if err != nil {
		return err
	}
	collector.Start()

	bar := pb.Start64(int64(sessions * taps))
	bar.Set("prefix", "tapping")
	bar.SetRefreshRate(time.Second)

	var counters benchCounters
	p := pool.New().WithMaxGoroutines(threads)
	for i := range sessions {
		seed := ctx.Int64("generate.seed") + int64(i)
		p.Go(func() {
			runSession(ctx.Context, cfg, features, rand.New(rand.NewSource(seed)), taps, &counters, bar)
		})
	}
	p.Wait()
	bar.Finish()

	summary := collector.Stop()
	log.Info("bench finished",
		"sessions", sessions,
		"threads", threads,
		"taps", humanize.Comma(counters.taps.Load()),
	)

	out := os.Stdout
	if name := ctx.String("stats"); name != "" {
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create stats file: %w", err)
		}
		defer f.Close()
		out = f
	}

	elapsed := summary.Elapsed.Seconds()
	fmt.Fprintf(out, "taps:        %s (%s/s)\n", humanize.Comma(counters.taps.Load()), humanize.CommafWithDigits(float64(counters.taps.Load())/elapsed, 0))
	fmt.Fprintf(out, "clusters:    %s\n", humanize.Comma(counters.clusters.Load()))
	fmt.Fprintf(out, "eases:       %s\n", humanize.Comma(counters.eases.Load()))
	fmt.Fprintf(out, "spiders:     %s (%s legs)\n", humanize.Comma(counters.spiders.Load()), humanize.Comma(counters.legs.Load()))
	fmt.Fprintf(out, "no-ops:      %s\n", humanize.Comma(counters.noops.Load()))
	_, err = summary.WriteTo(out)
	return err
}

// runSession taps at random screen points, resetting the camera to a random
// cafe whenever an ease zoomed in too far to find anything.
func runSession(ctx context.Context, cfg interaction.Config, features []markers.PointFeature, rnd *rand.Rand, taps int, counters *benchCounters, bar *pb.ProgressBar) {
	const width, height = 800, 600

	reset := func() geo.Viewport {
		f := features[rnd.Intn(len(features))]
		return geo.Viewport{Center: f.Point(), Zoom: 10 + rnd.Float64()*5, Width: width, Height: height}
	}

	m := headless.New(reset(), headless.WithClusterOptions(supercluster.Options{
		MaxZoom: cfg.ClusterMaxZoom,
		Radius:  cfg.ClusterRadius,
	}))
	source := m.SetMarkers(features)
	c := interaction.New(m, source, interaction.WithConfig(cfg))
	m.OnMoveStart(c.MoveStart)
	c.SetContext(interaction.Context{SelectCafe: m.Select})

	for range taps {
		out := c.Tap(ctx, geo.ScreenPoint{X: rnd.Float64() * width, Y: rnd.Float64() * height})
		c.Wait()

		counters.taps.Add(1)
		bar.Increment()

		if out.Target.Kind != hittest.KindCluster {
			continue
		}
		counters.clusters.Add(1)
		switch eff := c.LastEffect(); eff.Kind {
		case interaction.EffectCameraEase:
			counters.eases.Add(1)
			if m.Zoom() > float64(cfg.ClusterMaxZoom) {
				vp := reset()
				m.EaseCamera(vp.Center, vp.Zoom, 0)
			}
		case interaction.EffectSpiderfy:
			counters.spiders.Add(1)
			counters.legs.Add(int64(len(eff.Legs)))
		default:
			counters.noops.Add(1)
		}
	}
}
