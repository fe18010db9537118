package headless_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/headless"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/interaction"
	"github.com/royalcat/cafemap/markers"
	"github.com/royalcat/cafemap/spider"
)

var berlin = orb.Point{13.405, 52.52}

func viewport(zoom float64) geo.Viewport {
	return geo.Viewport{Center: berlin, Zoom: zoom, Width: 800, Height: 600}
}

func colocated(n int, at orb.Point) []markers.PointFeature {
	cafes := make([]markers.Cafe, 0, n)
	for i := range n {
		cafes = append(cafes, markers.NewCafe(fmt.Sprintf("cafe-%02d", i), fmt.Sprintf("Cafe %d", i), at))
	}
	return markers.FromCafes(cafes)
}

func TestRenderClustersAndMarkers(t *testing.T) {
	m := headless.New(viewport(14.5))
	features := colocated(5, berlin)
	features = append(features, markers.FromCafes([]markers.Cafe{
		markers.NewCafe("lonely", "Lonely", orb.Point{13.415, 52.52}),
	})...)
	m.SetMarkers(features)

	var clusters, markerCount int
	for _, f := range m.Rendered() {
		switch f.Layer {
		case hittest.LayerClusters:
			clusters++
		case hittest.LayerMarkers:
			markerCount++
		}
	}
	if clusters != 1 || markerCount != 1 {
		t.Fatalf("expected 1 cluster and 1 marker, got %d and %d", clusters, markerCount)
	}

	at := m.Project(berlin)
	hits := m.QueryFeatures(hittest.Query{Min: at, Max: at, Layers: []string{hittest.LayerClusters}})
	if len(hits) != 1 {
		t.Fatalf("expected the cluster under its center, got %d features", len(hits))
	}
	if hits[0].Properties[hittest.PropPointCount] != 5 {
		t.Errorf("expected point_count 5, got %v", hits[0].Properties[hittest.PropPointCount])
	}
}

func TestQueryFeaturesTopmostFirst(t *testing.T) {
	m := headless.New(viewport(16))
	m.SetMarkers(markers.FromCafes([]markers.Cafe{markers.NewCafe("a", "A", berlin)}))
	m.Select("a")

	at := m.Project(berlin)
	hits := m.QueryFeatures(hittest.Query{Min: at, Max: at})
	if len(hits) != 1 || hits[0].Layer != hittest.LayerSelectedCafe {
		t.Fatalf("expected the selected marker, got %+v", hits)
	}

	far := geo.ScreenPoint{X: at.X + 100, Y: at.Y}
	if hits := m.QueryFeatures(hittest.Query{Min: far, Max: far}); len(hits) != 0 {
		t.Errorf("expected nothing 100px away, got %d", len(hits))
	}
}

func TestEaseCameraFiresMoveStart(t *testing.T) {
	m := headless.New(viewport(10))

	var calls atomic.Int32
	m.OnMoveStart(func() { calls.Add(1) })

	m.EaseCamera(orb.Point{2.35, 48.85}, 12, 300*time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("expected one move start, got %d", calls.Load())
	}
	if m.Zoom() != 12 {
		t.Errorf("expected zoom 12, got %v", m.Zoom())
	}
	eases := m.Eases()
	if len(eases) != 1 || eases[0].Duration != 300*time.Millisecond {
		t.Errorf("unexpected eases %+v", eases)
	}

	m.Pan(geo.Offset{DX: 10})
	if calls.Load() != 2 {
		t.Errorf("pan should fire move start too")
	}
}

func TestClusterSource(t *testing.T) {
	m := headless.New(viewport(10))
	src := m.SetMarkers(colocated(30, berlin))

	var cluster hittest.Feature
	for _, f := range m.Rendered() {
		if f.Layer == hittest.LayerClusters {
			cluster = f
		}
	}
	id, ok := cluster.Properties[hittest.PropClusterID].(int)
	if !ok {
		t.Fatalf("no cluster rendered")
	}

	zoomCh := make(chan float64, 1)
	src.GetClusterExpansionZoom(id, func(zoom float64, err error) {
		if err != nil {
			t.Errorf("expansion zoom: %v", err)
		}
		zoomCh <- zoom
	})
	if zoom := <-zoomCh; zoom != 15 {
		t.Errorf("co-located points expand past max zoom, got %v", zoom)
	}

	leavesCh := make(chan int, 1)
	src.GetClusterLeaves(id, 24, 0, func(leaves []*geojson.Feature, err error) {
		if err != nil {
			t.Errorf("leaves: %v", err)
		}
		leavesCh <- len(markers.FromGeoJSONList(leaves))
	})
	if n := <-leavesCh; n != 24 {
		t.Errorf("expected 24 leaves, got %d", n)
	}

	errCh := make(chan error, 1)
	src.GetClusterExpansionZoom(-1, func(_ float64, err error) { errCh <- err })
	if err := <-errCh; err == nil {
		t.Errorf("expected an error for an unknown cluster")
	}

	var idx interaction.ClusterIndex = src.ZoomOnly()
	if _, ok := idx.(interaction.LeafSource); ok {
		t.Errorf("zoom-only source must not expose leaves")
	}
}

func TestFrameCoalescer(t *testing.T) {
	var calls atomic.Int32
	fc := headless.NewFrameCoalescer(time.Hour, func() { calls.Add(1) })

	for range 100 {
		fc.Trigger()
	}
	fc.Flush()
	if calls.Load() != 1 {
		t.Fatalf("expected one call per frame, got %d", calls.Load())
	}

	fc.Flush()
	if calls.Load() != 1 {
		t.Errorf("flush without a pending trigger must not call")
	}

	fc.Trigger()
	fc.Flush()
	if calls.Load() != 2 {
		t.Errorf("expected a second frame, got %d calls", calls.Load())
	}
}

func TestResizeBurst(t *testing.T) {
	m := headless.New(viewport(10), headless.WithFrame(time.Hour))
	for i := range 20 {
		m.Resize(float64(400+i), 300)
	}
	m.Flush()

	if m.Measures() != 1 {
		t.Fatalf("expected a single measure, got %d", m.Measures())
	}
	if vp := m.Camera(); vp.Width != 419 || vp.Height != 300 {
		t.Errorf("expected the last size, got %vx%v", vp.Width, vp.Height)
	}
}

func TestControllerOverHeadlessMap(t *testing.T) {
	m := headless.New(viewport(14.95))
	src := m.SetMarkers(colocated(6, berlin))

	c := interaction.New(m, src)
	m.OnMoveStart(c.MoveStart)

	var selected string
	c.SetContext(interaction.Context{SelectCafe: func(id string) { selected = id }})

	ctx := context.Background()
	out := c.Tap(ctx, m.Project(berlin))
	if out.Target.Kind != hittest.KindCluster {
		t.Fatalf("expected a cluster tap, got %s", out.Target.Kind)
	}
	c.Wait()

	if c.Mode() != interaction.ModeSpiderfied {
		t.Fatalf("expected spiderfied, last effect %+v", c.LastEffect())
	}
	legs := c.Legs()
	if len(legs) != 6 {
		t.Fatalf("expected 6 legs, got %d", len(legs))
	}
	if fc := m.Source(spider.SourceID); fc == nil || len(fc.Features) != 12 {
		t.Fatalf("expected the spider source to hold 6 legs and 6 leaves")
	}

	out = c.Tap(ctx, m.Project(legs[3].To))
	if out.Target.Kind != hittest.KindSpiderLeaf {
		t.Fatalf("expected a spider leaf, got %s", out.Target.Kind)
	}
	if selected != legs[3].CafeID {
		t.Errorf("expected %s selected, got %q", legs[3].CafeID, selected)
	}
	if c.Mode() != interaction.ModeIdle {
		t.Errorf("selection must clear the spider")
	}
}

func TestControllerZoomsIntoSpreadCluster(t *testing.T) {
	m := headless.New(viewport(8))
	src := m.SetMarkers(markers.FromCafes([]markers.Cafe{
		markers.NewCafe("a", "A", berlin),
		markers.NewCafe("b", "B", orb.Point{berlin[0] + 0.01, berlin[1]}),
	}))

	c := interaction.New(m, src)
	m.OnMoveStart(c.MoveStart)

	c.Tap(context.Background(), m.Project(orb.Point{berlin[0] + 0.005, berlin[1]}))
	c.Wait()

	eff := c.LastEffect()
	if eff.Kind != interaction.EffectCameraEase {
		t.Fatalf("expected a camera ease, got %s (%s)", eff.Kind, eff.Reason)
	}
	if m.Zoom() <= 8 {
		t.Errorf("expected the camera to zoom in, got %v", m.Zoom())
	}
}
