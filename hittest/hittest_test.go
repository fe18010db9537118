package hittest_test

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/hittest"
)

type recordingQuerier struct {
	queries []hittest.Query
	answer  func(q hittest.Query) []hittest.Feature
}

func (r *recordingQuerier) QueryFeatures(q hittest.Query) []hittest.Feature {
	r.queries = append(r.queries, q)
	return r.answer(q)
}

func marker(id string) hittest.Feature {
	return hittest.Feature{Layer: hittest.LayerMarkers, Properties: geojson.Properties{hittest.PropCafeID: id}}
}

func TestExactHitSkipsPadding(t *testing.T) {
	q := &recordingQuerier{answer: func(hittest.Query) []hittest.Feature {
		return []hittest.Feature{marker("a")}
	}}
	res := hittest.New(q, 14).ResolveAt(geo.ScreenPoint{X: 10, Y: 20})

	if res.Mode != hittest.HitExact {
		t.Fatalf("expected exact hit, got %s", res.Mode)
	}
	if len(q.queries) != 1 {
		t.Fatalf("exact hit must not trigger a padded query, got %d queries", len(q.queries))
	}
	if !q.queries[0].IsPoint() {
		t.Fatalf("first query must be a point query")
	}
}

func TestMissFallsBackToPaddedBox(t *testing.T) {
	q := &recordingQuerier{answer: func(q hittest.Query) []hittest.Feature {
		if q.IsPoint() {
			return nil
		}
		return []hittest.Feature{marker("b")}
	}}
	res := hittest.New(q, 14).ResolveAt(geo.ScreenPoint{X: 100, Y: 200})

	if res.Mode != hittest.HitPadded || len(res.Features) != 1 {
		t.Fatalf("expected padded hit, got %+v", res)
	}
	if len(q.queries) != 2 {
		t.Fatalf("expected exactly one padded query, got %d queries", len(q.queries))
	}
	box := q.queries[1]
	if box.Min != (geo.ScreenPoint{X: 86, Y: 186}) || box.Max != (geo.ScreenPoint{X: 114, Y: 214}) {
		t.Fatalf("unexpected padded box %+v", box)
	}
	if len(box.Layers) != len(hittest.InteractiveLayers) {
		t.Fatalf("padded query must keep the interactive layer filter")
	}
}

func TestPaddedMissReportsPaddedMode(t *testing.T) {
	q := &recordingQuerier{answer: func(hittest.Query) []hittest.Feature { return nil }}
	res := hittest.New(q, 0).ResolveAt(geo.ScreenPoint{})
	if res.Mode != hittest.HitPadded || len(res.Features) != 0 || len(q.queries) != 2 {
		t.Fatalf("unexpected result %+v after %d queries", res, len(q.queries))
	}
}

func TestClassifyPriority(t *testing.T) {
	leaf := hittest.Feature{Layer: hittest.LayerSpiderLeaves, Properties: geojson.Properties{hittest.PropSpiderLeafCafe: "leaf"}}
	cluster := hittest.Feature{
		Layer:      hittest.LayerClusters,
		Point:      orb.Point{1, 2},
		Properties: geojson.Properties{hittest.PropClusterID: 77, hittest.PropPointCount: 5},
	}

	cases := []struct {
		name     string
		features []hittest.Feature
		spider   bool
		kind     hittest.Kind
	}{
		{"leaf wins while spiderfied", []hittest.Feature{marker("m"), cluster, leaf}, true, hittest.KindSpiderLeaf},
		{"leaf ignored without spider", []hittest.Feature{leaf, cluster}, false, hittest.KindCluster},
		{"cluster before marker", []hittest.Feature{marker("m"), cluster}, false, hittest.KindCluster},
		{"marker", []hittest.Feature{marker("m")}, false, hittest.KindMarker},
		{"selected marker", []hittest.Feature{{Layer: hittest.LayerSelectedCafe, Properties: geojson.Properties{hittest.PropCafeID: "s"}}}, false, hittest.KindMarker},
		{"empty", nil, true, hittest.KindMap},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := hittest.Classify(c.features, c.spider); got.Kind != c.kind {
				t.Fatalf("expected %s, got %s", c.kind, got.Kind)
			}
		})
	}
}

func TestClassifyClusterFields(t *testing.T) {
	f := hittest.Feature{
		Layer: hittest.LayerClusterCount,
		Point: orb.Point{3, 4},
		Properties: geojson.Properties{
			hittest.PropClusterID:  json.Number("42"),
			hittest.PropPointCount: 9.0,
		},
	}
	target := hittest.Classify([]hittest.Feature{f}, false)
	if target.Kind != hittest.KindCluster || target.Cluster.ID != 42 || target.Cluster.PointCount != 9 || target.Cluster.Center != (orb.Point{3, 4}) {
		t.Fatalf("unexpected target %+v", target)
	}
}

func TestClassifyIgnoresNonNumericClusterID(t *testing.T) {
	f := hittest.Feature{Layer: hittest.LayerClusters, Properties: geojson.Properties{hittest.PropClusterID: "7"}}
	if got := hittest.Classify([]hittest.Feature{f}, false); got.Kind != hittest.KindMap {
		t.Fatalf("expected map click, got %s", got.Kind)
	}
}
