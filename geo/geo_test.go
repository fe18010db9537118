package geo_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/royalcat/cafemap/geo"
)

func TestProjectCenter(t *testing.T) {
	v := geo.Viewport{Center: orb.Point{13.405, 52.52}, Zoom: 12, Width: 800, Height: 600}

	p := v.Project(v.Center)
	if math.Abs(p.X-400) > 1e-6 || math.Abs(p.Y-300) > 1e-6 {
		t.Fatalf("expected center at (400,300), got %+v", p)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	v := geo.Viewport{Center: orb.Point{-0.1276, 51.5072}, Zoom: 15.3, Width: 390, Height: 844}

	points := []orb.Point{
		{-0.1276, 51.5072},
		{-0.13, 51.51},
		{-0.12, 51.50},
	}
	for _, p := range points {
		back := v.Unproject(v.Project(p))
		if math.Abs(back[0]-p[0]) > 1e-9 || math.Abs(back[1]-p[1]) > 1e-9 {
			t.Errorf("round trip %v -> %v", p, back)
		}
	}
}

func TestProjectScalesWithZoom(t *testing.T) {
	a := geo.Viewport{Center: orb.Point{0, 0}, Zoom: 3, Width: 100, Height: 100}
	b := a
	b.Zoom = 4

	p := orb.Point{10, 10}
	da := a.Project(p).X - 50
	db := b.Project(p).X - 50
	if math.Abs(db-2*da) > 1e-6 {
		t.Fatalf("expected one zoom level to double distance: %f vs %f", da, db)
	}
}

func TestFinite(t *testing.T) {
	if !geo.Finite(1, 2, 3) {
		t.Fatal("expected finite")
	}
	if geo.Finite(1, math.NaN()) {
		t.Fatal("NaN must not be finite")
	}
	if geo.Finite(math.Inf(-1)) {
		t.Fatal("-Inf must not be finite")
	}
}

func TestValidLngLat(t *testing.T) {
	cases := []struct {
		p  orb.Point
		ok bool
	}{
		{orb.Point{0, 0}, true},
		{orb.Point{180, -90}, true},
		{orb.Point{181, 0}, false},
		{orb.Point{0, 91}, false},
		{orb.Point{math.NaN(), 0}, false},
	}
	for _, c := range cases {
		if got := geo.ValidLngLat(c.p); got != c.ok {
			t.Errorf("ValidLngLat(%v) = %v, want %v", c.p, got, c.ok)
		}
	}
}

func TestBox(t *testing.T) {
	min, max := geo.ScreenPoint{X: 100, Y: 50}.Box(14)
	if min != (geo.ScreenPoint{X: 86, Y: 36}) || max != (geo.ScreenPoint{X: 114, Y: 64}) {
		t.Fatalf("unexpected box %+v %+v", min, max)
	}
}
