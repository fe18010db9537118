package spider_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/markers"
	"github.com/royalcat/cafemap/spider"
)

func leaves(n int) []markers.PointFeature {
	out := make([]markers.PointFeature, n)
	for i := range out {
		out[i] = markers.PointFeature{ID: fmt.Sprintf("cafe-%d", i), Name: fmt.Sprintf("Cafe %d", i)}
	}
	return out
}

func TestRingCapacity(t *testing.T) {
	cfg := spider.DefaultRingConfig()

	for n := 1; n <= 40; n++ {
		sizes := spider.RingSizes(n, cfg)
		capped := min(n, cfg.MaxLeaves)

		if sizes[0] != min(8, capped) {
			t.Fatalf("n=%d: ring 0 holds %d, want %d", n, sizes[0], min(8, capped))
		}

		remaining := capped - sizes[0]
		for k := 1; k < len(sizes); k++ {
			capacity := max(8, int(math.Floor(2*math.Pi*(34+20*float64(k))/22)))
			if sizes[k] != min(capacity, remaining) {
				t.Fatalf("n=%d: ring %d holds %d, want %d", n, k, sizes[k], min(capacity, remaining))
			}
			remaining -= sizes[k]
		}
		if remaining != 0 {
			t.Fatalf("n=%d: %d leaves left unplaced", n, remaining)
		}
	}
}

func TestRingSizesAtCap(t *testing.T) {
	sizes := spider.RingSizes(24, spider.DefaultRingConfig())
	want := []int{8, 15, 1}
	if fmt.Sprint(sizes) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, sizes)
	}
}

func TestLayoutGeometry(t *testing.T) {
	cfg := spider.DefaultRingConfig()
	offsets := spider.Layout(10, cfg)
	if len(offsets) != 10 {
		t.Fatalf("expected 10 offsets, got %d", len(offsets))
	}

	first := offsets[0]
	if math.Abs(first.DX) > 1e-9 || math.Abs(first.DY+34) > 1e-9 {
		t.Fatalf("expected first leaf straight up at radius 34, got %+v", first)
	}

	for i, o := range offsets[:8] {
		if r := math.Hypot(o.DX, o.DY); math.Abs(r-34) > 1e-9 {
			t.Errorf("ring 0 leaf %d at radius %f", i, r)
		}
	}

	// ring 1 holds 2 leaves, rotated by pi/2 from straight up
	second := offsets[8]
	if r := math.Hypot(second.DX, second.DY); math.Abs(r-54) > 1e-9 {
		t.Fatalf("ring 1 leaf at radius %f", r)
	}
	angle := math.Atan2(second.DY, second.DX)
	if math.Abs(angle-0) > 1e-9 {
		t.Fatalf("expected odd ring rotated by half a step, got angle %f", angle)
	}
}

func TestInvalidRingConfigFallsBack(t *testing.T) {
	d := spider.DefaultRingConfig()
	for _, cfg := range []spider.RingConfig{
		{},
		{BaseRadius: -1, RingStep: -5, Spacing: -22, MaxLeaves: -3},
		{BaseRadius: math.NaN(), RingStep: math.Inf(1), Spacing: math.NaN(), MaxLeaves: 24},
	} {
		for ring := 0; ring < 3; ring++ {
			if got, want := cfg.Capacity(ring), d.Capacity(ring); got != want {
				t.Errorf("%+v: ring %d capacity %d, want %d", cfg, ring, got, want)
			}
		}
		if got := cfg.Cap(500); got != 24 {
			t.Errorf("%+v: expected cap 24, got %d", cfg, got)
		}

		offsets := spider.Layout(24, cfg)
		if len(offsets) != 24 {
			t.Fatalf("%+v: expected 24 offsets, got %d", cfg, len(offsets))
		}
		for i, o := range offsets {
			if !geo.Finite(o.DX, o.DY) {
				t.Fatalf("%+v: offset %d is not finite: %+v", cfg, i, o)
			}
		}
	}
}

func TestLayoutCap(t *testing.T) {
	if got := len(spider.Layout(500, spider.DefaultRingConfig())); got != 24 {
		t.Fatalf("expected 24 offsets, got %d", got)
	}
}

func TestBuildLegs(t *testing.T) {
	center := orb.Point{2.35, 48.85}
	vp := geo.Viewport{Center: center, Zoom: 16, Width: 400, Height: 800}
	cfg := spider.DefaultRingConfig()

	legs := spider.BuildLegs(center, leaves(5), vp, cfg)
	if len(legs) != 5 {
		t.Fatalf("expected 5 legs, got %d", len(legs))
	}

	offsets := spider.Layout(5, cfg)
	origin := vp.Project(center)
	for i, l := range legs {
		if l.From != center {
			t.Errorf("leg %d must start at the cluster center, got %v", i, l.From)
		}
		p := vp.Project(l.To)
		want := origin.Add(offsets[i])
		if math.Abs(p.X-want.X) > 1e-6 || math.Abs(p.Y-want.Y) > 1e-6 {
			t.Errorf("leg %d lands at %+v, want %+v", i, p, want)
		}
		if l.CafeID != fmt.Sprintf("cafe-%d", i) {
			t.Errorf("leg %d has cafe %s", i, l.CafeID)
		}
	}
}

func TestBuildLegsDegenerate(t *testing.T) {
	vp := geo.Viewport{Zoom: 10, Width: 100, Height: 100}
	if legs := spider.BuildLegs(orb.Point{}, leaves(1), vp, spider.DefaultRingConfig()); legs != nil {
		t.Fatalf("single leaf must not spiderfy, got %d legs", len(legs))
	}
	if legs := spider.BuildLegs(orb.Point{}, nil, vp, spider.DefaultRingConfig()); legs != nil {
		t.Fatalf("no leaves must not spiderfy")
	}
	if legs := spider.BuildLegs(orb.Point{}, leaves(500), vp, spider.DefaultRingConfig()); len(legs) != 24 {
		t.Fatalf("expected cap of 24 legs, got %d", len(legs))
	}
}

func TestStateClearIdempotent(t *testing.T) {
	published := 0
	s := spider.NewState(func(*geojson.FeatureCollection) { published++ })

	if s.Clear() {
		t.Fatal("clearing an empty state must report no change")
	}
	if published != 0 {
		t.Fatalf("clearing an empty state must not publish, got %d", published)
	}

	vp := geo.Viewport{Zoom: 14, Width: 100, Height: 100}
	s.Set(spider.BuildLegs(orb.Point{}, leaves(3), vp, spider.DefaultRingConfig()))
	if s.Len() != 3 || published != 1 {
		t.Fatalf("expected 3 legs and one publish, got %d and %d", s.Len(), published)
	}
	if _, ok := s.Leaf("cafe-2"); !ok {
		t.Fatal("expected leaf lookup to succeed")
	}

	if !s.Clear() || s.Active() {
		t.Fatal("expected clear to empty the state")
	}
	s.Clear()
	if published != 2 {
		t.Fatalf("expected exactly one publish for clear, got %d", published)
	}
}

func TestRender(t *testing.T) {
	vp := geo.Viewport{Zoom: 14, Width: 100, Height: 100}
	fc := spider.Render(spider.BuildLegs(orb.Point{}, leaves(4), vp, spider.DefaultRingConfig()))

	var lines, points int
	for _, f := range fc.Features {
		switch f.Properties.MustString(spider.PropKind) {
		case spider.KindLeg:
			lines++
			if _, ok := f.Geometry.(orb.LineString); !ok {
				t.Errorf("leg must be a line string")
			}
		case spider.KindLeaf:
			points++
			if f.Properties.MustString(spider.PropCafeName) == "" {
				t.Errorf("leaf must carry the cafe name")
			}
		}
	}
	if lines != 4 || points != 4 {
		t.Fatalf("expected 4 lines and 4 points, got %d and %d", lines, points)
	}
}

func BenchmarkLayout(b *testing.B) {
	cfg := spider.DefaultRingConfig()
	for i := 0; i < b.N; i++ {
		spider.Layout(24, cfg)
	}
}
