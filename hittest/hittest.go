package hittest

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/geo"
)

const (
	LayerClusters      = "clusters"
	LayerClusterCount  = "cluster-count"
	LayerSpiderLeaves  = "spider-leaves"
	LayerMarkers       = "markers"
	LayerSelectedCafe  = "selected-marker"
	DefaultHitPadding  = 14.0
	PropClusterID      = "cluster_id"
	PropPointCount     = "point_count"
	PropCafeID         = "id"
	PropSpiderLeafCafe = "cafe_id"
)

// InteractiveLayers are the layers a tap may resolve to.
var InteractiveLayers = []string{
	LayerClusters,
	LayerClusterCount,
	LayerSpiderLeaves,
	LayerMarkers,
	LayerSelectedCafe,
}

// Feature is a rendered feature returned by the map renderer.
type Feature struct {
	Layer      string
	Point      orb.Point
	Properties geojson.Properties
}

// Query is a screen-space point (Min == Max) or box query restricted to Layers.
type Query struct {
	Min, Max geo.ScreenPoint
	Layers   []string
}

func (q Query) IsPoint() bool {
	return q.Min == q.Max
}

type Querier interface {
	QueryFeatures(q Query) []Feature
}

type Mode string

const (
	HitExact  Mode = "exact"
	HitPadded Mode = "padded"
)

type Result struct {
	Features []Feature
	Mode     Mode
}

// Tester resolves taps: an exact query first, then a single padded box query
// when nothing was under the exact point.
type Tester struct {
	querier Querier
	padding float64
	layers  []string
}

func New(q Querier, padding float64, layers ...string) *Tester {
	if padding <= 0 {
		padding = DefaultHitPadding
	}
	if len(layers) == 0 {
		layers = InteractiveLayers
	}
	return &Tester{querier: q, padding: padding, layers: layers}
}

func (t *Tester) ResolveAt(p geo.ScreenPoint) Result {
	features := t.querier.QueryFeatures(Query{Min: p, Max: p, Layers: t.layers})
	if len(features) > 0 {
		return Result{Features: features, Mode: HitExact}
	}

	min, max := p.Box(t.padding)
	return Result{
		Features: t.querier.QueryFeatures(Query{Min: min, Max: max, Layers: t.layers}),
		Mode:     HitPadded,
	}
}
