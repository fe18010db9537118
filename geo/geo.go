package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// DefaultTileSize matches vector renderers, which lay out a 512px world at zoom 0.
const DefaultTileSize = 512

const earthHalfCircumference = orb.EarthRadius * math.Pi

// ScreenPoint is a position in CSS pixels, origin top-left of the viewport.
type ScreenPoint struct {
	X, Y float64
}

// Offset is a screen-space displacement in pixels.
type Offset struct {
	DX, DY float64
}

func (p ScreenPoint) Add(o Offset) ScreenPoint {
	return ScreenPoint{X: p.X + o.DX, Y: p.Y + o.DY}
}

// Box returns the corners of the square of half-size pad around p.
func (p ScreenPoint) Box(pad float64) (min, max ScreenPoint) {
	return ScreenPoint{X: p.X - pad, Y: p.Y - pad}, ScreenPoint{X: p.X + pad, Y: p.Y + pad}
}

func Finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ValidLngLat reports whether p is a finite coordinate inside the WGS84 range.
func ValidLngLat(p orb.Point) bool {
	if !Finite(p[0], p[1]) {
		return false
	}
	return p[0] >= -180 && p[0] <= 180 && p[1] >= -90 && p[1] <= 90
}

// Viewport is a camera over a web mercator world.
type Viewport struct {
	Center   orb.Point
	Zoom     float64
	Width    float64
	Height   float64
	TileSize float64
}

func (v Viewport) worldSize() float64 {
	tile := v.TileSize
	if tile <= 0 {
		tile = DefaultTileSize
	}
	return tile * math.Exp2(v.Zoom)
}

// World returns p in world pixel coordinates at the viewport zoom.
func (v Viewport) World(p orb.Point) ScreenPoint {
	m := project.WGS84.ToMercator(p)
	size := v.worldSize()
	return ScreenPoint{
		X: (m[0]/earthHalfCircumference + 1) / 2 * size,
		Y: (1 - m[1]/earthHalfCircumference) / 2 * size,
	}
}

func (v Viewport) fromWorld(w ScreenPoint) orb.Point {
	size := v.worldSize()
	m := orb.Point{
		(2*w.X/size - 1) * earthHalfCircumference,
		(1 - 2*w.Y/size) * earthHalfCircumference,
	}
	return project.Mercator.ToWGS84(m)
}

func (v Viewport) Project(p orb.Point) ScreenPoint {
	w := v.World(p)
	c := v.World(v.Center)
	return ScreenPoint{
		X: w.X - c.X + v.Width/2,
		Y: w.Y - c.Y + v.Height/2,
	}
}

func (v Viewport) Unproject(s ScreenPoint) orb.Point {
	c := v.World(v.Center)
	return v.fromWorld(ScreenPoint{
		X: s.X - v.Width/2 + c.X,
		Y: s.Y - v.Height/2 + c.Y,
	})
}

// Bound is the geographic extent currently visible.
func (v Viewport) Bound() orb.Bound {
	nw := v.Unproject(ScreenPoint{X: 0, Y: 0})
	se := v.Unproject(ScreenPoint{X: v.Width, Y: v.Height})
	return orb.Bound{
		Min: orb.Point{nw[0], se[1]},
		Max: orb.Point{se[0], nw[1]},
	}
}
