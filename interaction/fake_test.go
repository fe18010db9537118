package interaction_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/markers"
)

type ease struct {
	center   orb.Point
	zoom     float64
	duration time.Duration
}

type fakeRenderer struct {
	mu       sync.Mutex
	vp       geo.Viewport
	features []hittest.Feature
	queries  []hittest.Query
	eases    []ease
	sources  map[string]*geojson.FeatureCollection
	onMove   func()
}

func newFakeRenderer(zoom float64) *fakeRenderer {
	return &fakeRenderer{
		vp: geo.Viewport{
			Center: orb.Point{13.405, 52.52},
			Zoom:   zoom,
			Width:  800,
			Height: 600,
		},
		sources: map[string]*geojson.FeatureCollection{},
	}
}

func (r *fakeRenderer) QueryFeatures(q hittest.Query) []hittest.Feature {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	if !q.IsPoint() {
		return nil
	}
	return r.features
}

func (r *fakeRenderer) Project(p orb.Point) geo.ScreenPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vp.Project(p)
}

func (r *fakeRenderer) Unproject(s geo.ScreenPoint) orb.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vp.Unproject(s)
}

func (r *fakeRenderer) Zoom() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vp.Zoom
}

func (r *fakeRenderer) EaseCamera(center orb.Point, zoom float64, duration time.Duration) {
	r.mu.Lock()
	r.eases = append(r.eases, ease{center: center, zoom: zoom, duration: duration})
	r.vp.Center = center
	r.vp.Zoom = zoom
	onMove := r.onMove
	r.mu.Unlock()

	if onMove != nil {
		onMove()
	}
}

func (r *fakeRenderer) SetSourceData(id string, fc *geojson.FeatureCollection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[id] = fc
}

func (r *fakeRenderer) setFeatures(features []hittest.Feature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.features = features
}

func (r *fakeRenderer) easeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.eases)
}

func (r *fakeRenderer) source(id string) *geojson.FeatureCollection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sources[id]
}

// fakeIndex answers synchronously unless a gate is registered for the
// cluster, in which case the callback fires from a goroutine once the gate
// is closed.
type fakeIndex struct {
	mu sync.Mutex

	zoom    float64
	zoomErr error
	zooms   map[int]float64

	leaves    []*geojson.Feature
	leavesErr error
	limits    []int

	zoomGates   map[int]chan struct{}
	leavesGates map[int]chan struct{}

	zoomRequested   chan int
	leavesRequested chan int
}

func newFakeIndex(zoom float64, leaves int) *fakeIndex {
	return &fakeIndex{
		zoom:            zoom,
		zooms:           map[int]float64{},
		leaves:          leafFeatures(leaves),
		zoomGates:       map[int]chan struct{}{},
		leavesGates:     map[int]chan struct{}{},
		zoomRequested:   make(chan int, 16),
		leavesRequested: make(chan int, 16),
	}
}

func (f *fakeIndex) GetClusterExpansionZoom(clusterID int, cb func(float64, error)) {
	f.mu.Lock()
	zoom, ok := f.zooms[clusterID]
	if !ok {
		zoom = f.zoom
	}
	err := f.zoomErr
	gate := f.zoomGates[clusterID]
	f.mu.Unlock()

	notify(f.zoomRequested, clusterID)
	if gate == nil {
		cb(zoom, err)
		return
	}
	go func() {
		<-gate
		cb(zoom, err)
	}()
}

func (f *fakeIndex) GetClusterLeaves(clusterID, limit, offset int, cb func([]*geojson.Feature, error)) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	leaves := f.leaves
	if len(leaves) > limit {
		leaves = leaves[:limit]
	}
	err := f.leavesErr
	gate := f.leavesGates[clusterID]
	f.mu.Unlock()

	notify(f.leavesRequested, clusterID)
	if gate == nil {
		cb(leaves, err)
		return
	}
	go func() {
		<-gate
		cb(leaves, err)
	}()
}

func (f *fakeIndex) requestedLimits() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.limits...)
}

// zoomOnly hides the leaf capability.
type zoomOnly struct {
	idx *fakeIndex
}

func (z zoomOnly) GetClusterExpansionZoom(clusterID int, cb func(float64, error)) {
	z.idx.GetClusterExpansionZoom(clusterID, cb)
}

func leafFeatures(n int) []*geojson.Feature {
	out := make([]*geojson.Feature, 0, n)
	for i := range n {
		c := markers.NewCafe(fmt.Sprintf("cafe-%d", i), fmt.Sprintf("Cafe %d", i), orb.Point{13.405 + float64(i)*1e-6, 52.52})
		out = append(out, markers.FromCafes([]markers.Cafe{c})[0].GeoJSON())
	}
	return out
}

// clusterHit is what the renderer reports under a tap on a cluster bubble.
func clusterHit(id, count int) []hittest.Feature {
	return []hittest.Feature{{
		Layer: hittest.LayerClusters,
		Point: orb.Point{13.405, 52.52},
		Properties: geojson.Properties{
			hittest.PropClusterID:  float64(id),
			hittest.PropPointCount: float64(count),
		},
	}}
}

func notify(ch chan int, id int) {
	select {
	case ch <- id:
	default:
	}
}
