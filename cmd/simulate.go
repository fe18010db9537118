package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/headless"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/interaction"
	"github.com/royalcat/cafemap/internal/telemetry"
	"github.com/royalcat/cafemap/markers"
	"github.com/royalcat/cafemap/supercluster"
	"github.com/urfave/cli/v3"
)

func simulate(ctx *cli.Context) error {
	cfg := configFromFlags(ctx)
	telemetry.SetupLogger(logLevel(cfg))

	center, err := parseLngLat(ctx.String("center"))
	if err != nil {
		return err
	}
	taps := make([]geo.ScreenPoint, 0, len(ctx.StringSlice("tap")))
	for _, s := range ctx.StringSlice("tap") {
		p, err := parseScreenPoint(s)
		if err != nil {
			return err
		}
		taps = append(taps, p)
	}

	cafes, err := loadFeatures(ctx)
	if err != nil {
		return err
	}
	markers.MeasureFrom(center, cafes)

	sim := newSimulation(cfg, geo.Viewport{
		Center: center,
		Zoom:   ctx.Float64("zoom"),
		Width:  800,
		Height: 600,
	}, markers.FromCafes(cafes))

	for _, p := range taps {
		sim.tap(ctx.Context, os.Stdout, p)
	}
	return nil
}

type simulation struct {
	m          *headless.Map
	controller *interaction.Controller
	set        *markers.Set

	selected string
	clicked  *orb.Point
}

func newSimulation(cfg interaction.Config, vp geo.Viewport, features []markers.PointFeature) *simulation {
	m := headless.New(vp, headless.WithClusterOptions(supercluster.Options{
		MaxZoom: cfg.ClusterMaxZoom,
		Radius:  cfg.ClusterRadius,
	}))
	source := m.SetMarkers(features)

	sim := &simulation{
		m:          m,
		controller: interaction.New(m, source, interaction.WithConfig(cfg)),
		set:        markers.NewSet(features),
	}
	m.OnMoveStart(sim.controller.MoveStart)
	sim.controller.SetContext(interaction.Context{
		SelectCafe: func(id string) {
			m.Select(id)
			sim.selected = id
		},
		MapClick: func(p orb.Point) {
			m.Select("")
			sim.selected = ""
			sim.clicked = &p
		},
	})
	return sim
}

func (sim *simulation) tap(ctx context.Context, w io.Writer, p geo.ScreenPoint) {
	out := sim.controller.Tap(ctx, p)
	sim.controller.Wait()

	fmt.Fprintf(w, "tap (%.0f, %.0f): %s hit, %d features -> %s\n", p.X, p.Y, out.Hit.Mode, len(out.Hit.Features), out.Target.Kind)

	switch out.Target.Kind {
	case hittest.KindCluster:
		c := out.Target.Cluster
		eff := sim.controller.LastEffect()
		fmt.Fprintf(w, "  cluster %d with %d cafes: %s", c.ID, c.PointCount, eff.Kind)
		if eff.Reason != "" {
			fmt.Fprintf(w, " (%s)", eff.Reason)
		}
		fmt.Fprintln(w)

		switch eff.Kind {
		case interaction.EffectCameraEase:
			fmt.Fprintf(w, "  camera -> %.5f,%.5f zoom %.2f over %s\n", eff.Center[0], eff.Center[1], eff.Zoom, eff.Duration)
		case interaction.EffectSpiderfy:
			for _, leg := range eff.Legs {
				at := sim.m.Project(leg.To)
				fmt.Fprintf(w, "  leg %-24s at (%.0f, %.0f)%s\n", leg.CafeName, at.X, at.Y, sim.distance(leg.CafeID))
			}
		}
	case hittest.KindMarker, hittest.KindSpiderLeaf:
		fmt.Fprintf(w, "  selected %s%s\n", sim.name(out.Target.CafeID), sim.distance(out.Target.CafeID))
	case hittest.KindMap:
		if sim.clicked != nil {
			fmt.Fprintf(w, "  map click at %.5f,%.5f\n", sim.clicked[0], sim.clicked[1])
		}
	}
	fmt.Fprintf(w, "  mode %s, zoom %.2f\n", sim.controller.Mode(), sim.m.Zoom())
}

func (sim *simulation) name(id string) string {
	if f, ok := sim.set.Get(id); ok && f.Name != "" {
		return f.Name
	}
	return id
}

func (sim *simulation) distance(id string) string {
	f, ok := sim.set.Get(id)
	if !ok || f.DistanceMeters <= 0 {
		return ""
	}
	return ", " + humanize.SIWithDigits(f.DistanceMeters, 1, "m") + " away"
}
