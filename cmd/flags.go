package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/royalcat/cafemap/debugsink"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/interaction"
	"github.com/royalcat/cafemap/markers"
	"github.com/urfave/cli/v3"
)

func markerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      "markers",
			Aliases:   []string{"m"},
			TakesFile: true,
			Usage:     "cafes json file, generated demo cafes when empty",
		},
		&cli.StringFlag{
			Name:  "generate.bbox",
			Usage: "bounding box for generated cafes as minLng,minLat,maxLng,maxLat",
			Value: "13.30,52.47,13.50,52.57",
		},
		&cli.Float64Flag{
			Name:  "generate.min-distance",
			Usage: "minimum distance between generated cafes, degrees",
			Value: 0.002,
		},
		&cli.Int64Flag{
			Name:  "generate.seed",
			Value: 1,
		},
	}
}

func interactionFlags() []cli.Flag {
	d := interaction.ConfigDefault()
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "record cluster decisions, also enabled by " + debugsink.EnvVar,
		},
		&cli.Float64Flag{
			Name:  "cluster.radius",
			Value: d.ClusterRadius,
		},
		&cli.IntFlag{
			Name:  "cluster.max-zoom",
			Value: d.ClusterMaxZoom,
		},
		&cli.IntFlag{
			Name:  "spider.max-leaves",
			Value: d.Ring.MaxLeaves,
		},
		&cli.Float64Flag{
			Name:  "spider.base-radius",
			Usage: "radius of the innermost ring, pixels",
			Value: d.Ring.BaseRadius,
		},
		&cli.Float64Flag{
			Name:  "spider.ring-step",
			Usage: "distance between rings, pixels",
			Value: d.Ring.RingStep,
		},
		&cli.Float64Flag{
			Name:  "spider.spacing",
			Usage: "arc length per leaf on outer rings, pixels",
			Value: d.Ring.Spacing,
		},
		&cli.Float64Flag{
			Name:  "zoom-threshold",
			Value: d.ZoomDeltaThreshold,
		},
		&cli.Float64Flag{
			Name:  "hit-padding",
			Value: d.HitPadding,
		},
		&cli.DurationFlag{
			Name:  "ease-duration",
			Value: d.EaseDuration,
		},
	}
}

func configFromFlags(ctx *cli.Context) interaction.Config {
	cfg := interaction.ConfigDefault()
	cfg.ClusterRadius = ctx.Float64("cluster.radius")
	cfg.ClusterMaxZoom = ctx.Int("cluster.max-zoom")
	cfg.Ring.MaxLeaves = ctx.Int("spider.max-leaves")
	cfg.Ring.BaseRadius = ctx.Float64("spider.base-radius")
	cfg.Ring.RingStep = ctx.Float64("spider.ring-step")
	cfg.Ring.Spacing = ctx.Float64("spider.spacing")
	cfg.ZoomDeltaThreshold = ctx.Float64("zoom-threshold")
	cfg.HitPadding = ctx.Float64("hit-padding")
	cfg.EaseDuration = ctx.Duration("ease-duration")
	cfg.Debug = ctx.Bool("debug") || debugsink.FromEnv()
	return cfg
}

func logLevel(cfg interaction.Config) slog.Level {
	if cfg.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func loadFeatures(ctx *cli.Context) ([]markers.Cafe, error) {
	log := slog.Default()

	if name := ctx.String("markers"); name != "" {
		start := time.Now()
		cafes, err := markers.LoadFile(name)
		if err != nil {
			return nil, err
		}
		log.Info("markers loaded", "file", name, "count", len(cafes), "took", time.Since(start))
		return cafes, nil
	}

	bound, err := parseBound(ctx.String("generate.bbox"))
	if err != nil {
		return nil, err
	}
	rnd := rand.New(rand.NewSource(ctx.Int64("generate.seed")))
	cafes := markers.Generate(bound, ctx.Float64("generate.min-distance"), rnd)
	log.Info("markers generated", "bbox", ctx.String("generate.bbox"), "count", len(cafes))
	return cafes, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma separated numbers, got %q", n, s)
	}
	out := make([]float64, 0, n)
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		if !geo.Finite(v) {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseBound(s string) (orb.Bound, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return orb.Bound{}, err
	}
	b := orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}
	if !geo.ValidLngLat(b.Min) || !geo.ValidLngLat(b.Max) || b.Min[0] >= b.Max[0] || b.Min[1] >= b.Max[1] {
		return orb.Bound{}, fmt.Errorf("invalid bounding box %q", s)
	}
	return b, nil
}

func parseLngLat(s string) (orb.Point, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return orb.Point{}, err
	}
	p := orb.Point{v[0], v[1]}
	if !geo.ValidLngLat(p) {
		return orb.Point{}, fmt.Errorf("invalid coordinates %q", s)
	}
	return p, nil
}

func parseScreenPoint(s string) (geo.ScreenPoint, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return geo.ScreenPoint{}, err
	}
	return geo.ScreenPoint{X: v[0], Y: v[1]}, nil
}
