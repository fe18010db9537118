// Package headless is an in-memory map renderer: a camera, a clustered marker
// source, GeoJSON sources and a hit index over the drawn symbols. It stands in
// for a real rendering engine in the dev server, the simulator and tests.
package headless

import (
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/markers"
	"github.com/royalcat/cafemap/spider"
	"github.com/royalcat/cafemap/supercluster"
)

// Symbol radii in screen pixels.
const (
	markerRadius   = 10.0
	selectedRadius = 14.0
	leafRadius     = 10.0
)

func clusterRadius(count int) float64 {
	switch {
	case count < 10:
		return 18
	case count < 50:
		return 22
	default:
		return 28
	}
}

type Ease struct {
	Center   orb.Point
	Zoom     float64
	Duration time.Duration
}

type Map struct {
	log         *slog.Logger
	clusterOpts supercluster.Options

	mu       sync.RWMutex
	vp       geo.Viewport
	index    *supercluster.Index[markers.PointFeature]
	selected string
	sources  map[string]*geojson.FeatureCollection
	symbols  *symbolTree
	eases    []Ease

	moveStart []func()

	resize      *FrameCoalescer
	pendingSize [2]float64
	measures    int
}

func New(vp geo.Viewport, opts ...Option) *Map {
	o := loadOptions(opts...)
	m := &Map{
		log:         o.logger,
		clusterOpts: o.cluster,
		vp:          vp,
		index:       supercluster.New[markers.PointFeature](o.cluster),
		sources:     map[string]*geojson.FeatureCollection{},
	}
	m.resize = NewFrameCoalescer(o.frame, m.measure)
	return m
}

// SetMarkers rebuilds the cluster index. The returned source answers cluster
// queries against the new index only; earlier sources keep their snapshot.
func (m *Map) SetMarkers(features []markers.PointFeature) *ClusterSource {
	points := make([]supercluster.Input[markers.PointFeature], 0, len(features))
	for _, f := range features {
		points = append(points, supercluster.Input[markers.PointFeature]{Point: f.Point(), Data: f})
	}

	start := time.Now()
	index := supercluster.New[markers.PointFeature](m.clusterOpts)
	index.Load(points)
	m.log.Debug("cluster index built", "points", index.Len(), "took", time.Since(start))

	m.mu.Lock()
	m.index = index
	m.symbols = nil
	m.mu.Unlock()

	return NewClusterSource(index)
}

func (m *Map) Camera() geo.Viewport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vp
}

func (m *Map) Zoom() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vp.Zoom
}

func (m *Map) Project(p orb.Point) geo.ScreenPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vp.Project(p)
}

func (m *Map) Unproject(s geo.ScreenPoint) orb.Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vp.Unproject(s)
}

// OnMoveStart registers fn to run whenever the camera starts moving.
func (m *Map) OnMoveStart(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveStart = append(m.moveStart, fn)
}

// EaseCamera jumps to the target camera. The animation itself is not
// simulated, but move-start listeners fire as they would for a real ease.
func (m *Map) EaseCamera(center orb.Point, zoom float64, duration time.Duration) {
	m.mu.Lock()
	m.vp.Center = center
	m.vp.Zoom = zoom
	m.symbols = nil
	m.eases = append(m.eases, Ease{Center: center, Zoom: zoom, Duration: duration})
	listeners := append([]func(){}, m.moveStart...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Pan moves the camera by a screen offset, as a drag gesture would.
func (m *Map) Pan(d geo.Offset) {
	m.mu.RLock()
	center := m.vp.Unproject(geo.ScreenPoint{X: m.vp.Width / 2, Y: m.vp.Height / 2}.Add(d))
	zoom := m.vp.Zoom
	m.mu.RUnlock()

	m.EaseCamera(center, zoom, 0)
}

func (m *Map) Eases() []Ease {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Ease(nil), m.eases...)
}

func (m *Map) SetSourceData(id string, fc *geojson.FeatureCollection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[id] = fc
	m.symbols = nil
}

func (m *Map) Source(id string) *geojson.FeatureCollection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sources[id]
}

// Select highlights one marker; an empty id clears the highlight.
func (m *Map) Select(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = id
	m.symbols = nil
}

func (m *Map) Selected() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

// Resize schedules a viewport resize. Bursts within one frame are measured once.
func (m *Map) Resize(width, height float64) {
	m.mu.Lock()
	m.pendingSize = [2]float64{width, height}
	m.mu.Unlock()

	m.resize.Trigger()
}

// Measures reports how many times a pending resize was applied.
func (m *Map) Measures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.measures
}

func (m *Map) measure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vp.Width, m.vp.Height = m.pendingSize[0], m.pendingSize[1]
	m.symbols = nil
	m.measures++
}

// Flush applies a pending resize immediately.
func (m *Map) Flush() {
	m.resize.Flush()
}

func (m *Map) QueryFeatures(q hittest.Query) []hittest.Feature {
	return m.frameSymbols().Search(q)
}

// Rendered returns every symbol of the current frame, topmost first.
func (m *Map) Rendered() []hittest.Feature {
	return m.frameSymbols().Search(hittest.Query{
		Min: geo.ScreenPoint{X: -1e9, Y: -1e9},
		Max: geo.ScreenPoint{X: 1e9, Y: 1e9},
	})
}

func (m *Map) frameSymbols() *symbolTree {
	m.mu.RLock()
	symbols := m.symbols
	m.mu.RUnlock()
	if symbols != nil {
		return symbols
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.symbols == nil {
		m.symbols = m.render()
	}
	return m.symbols
}

// render draws the frame in paint order: clusters and markers, the selected
// marker, then spider leaves on top.
func (m *Map) render() *symbolTree {
	st := newSymbolTree()

	var selected []supercluster.Feature[markers.PointFeature]
	for _, f := range m.index.Clusters(m.vp.Bound(), m.vp.Zoom) {
		at := m.vp.Project(f.Point)
		if f.Cluster {
			props := geojson.Properties{
				hittest.PropClusterID:  f.ClusterID,
				hittest.PropPointCount: f.Count,
			}
			r := clusterRadius(f.Count)
			st.Insert(hittest.Feature{Layer: hittest.LayerClusters, Point: f.Point, Properties: props}, at, r)
			st.Insert(hittest.Feature{Layer: hittest.LayerClusterCount, Point: f.Point, Properties: props.Clone()}, at, r/2)
			continue
		}
		if f.Leaf.ID == m.selected {
			selected = append(selected, f)
			continue
		}
		st.Insert(hittest.Feature{Layer: hittest.LayerMarkers, Point: f.Point, Properties: markerProps(f.Leaf)}, at, markerRadius)
	}

	for _, f := range selected {
		st.Insert(hittest.Feature{Layer: hittest.LayerSelectedCafe, Point: f.Point, Properties: markerProps(f.Leaf)}, m.vp.Project(f.Point), selectedRadius)
	}

	if fc := m.sources[spider.SourceID]; fc != nil {
		for _, f := range fc.Features {
			p, ok := f.Geometry.(orb.Point)
			if !ok || f.Properties.MustString(spider.PropKind, "") != spider.KindLeaf {
				continue
			}
			st.Insert(hittest.Feature{
				Layer: hittest.LayerSpiderLeaves,
				Point: p,
				Properties: geojson.Properties{
					hittest.PropSpiderLeafCafe: f.Properties.MustString(spider.PropCafeID, ""),
					spider.PropCafeName:        f.Properties.MustString(spider.PropCafeName, ""),
				},
			}, m.vp.Project(p), leafRadius)
		}
	}

	return st
}

func markerProps(f markers.PointFeature) geojson.Properties {
	return geojson.Properties{
		hittest.PropCafeID:   f.ID,
		markers.PropName:     f.Name,
		markers.PropDistance: f.DistanceMeters,
	}
}
