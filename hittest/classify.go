package hittest

import (
	"encoding/json"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Kind int

const (
	KindMap Kind = iota
	KindSpiderLeaf
	KindCluster
	KindMarker
)

func (k Kind) String() string {
	switch k {
	case KindSpiderLeaf:
		return "spider-leaf"
	case KindCluster:
		return "cluster"
	case KindMarker:
		return "marker"
	default:
		return "map"
	}
}

type Cluster struct {
	ID         int
	PointCount int
	Center     orb.Point
}

// Target is what a tap resolved to.
type Target struct {
	Kind    Kind
	CafeID  string
	Cluster Cluster
}

// Classify picks the first match in priority order: spider leaf (only while
// a spider is shown), cluster, marker. Anything else is a map click.
func Classify(features []Feature, spiderActive bool) Target {
	if spiderActive {
		for _, f := range features {
			if f.Layer != LayerSpiderLeaves {
				continue
			}
			if id, ok := f.Properties[PropSpiderLeafCafe].(string); ok && id != "" {
				return Target{Kind: KindSpiderLeaf, CafeID: id}
			}
		}
	}

	for _, f := range features {
		id, ok := number(f.Properties, PropClusterID)
		if !ok {
			continue
		}
		count, _ := number(f.Properties, PropPointCount)
		return Target{
			Kind: KindCluster,
			Cluster: Cluster{
				ID:         int(id),
				PointCount: int(count),
				Center:     f.Point,
			},
		}
	}

	for _, f := range features {
		if f.Layer != LayerMarkers && f.Layer != LayerSelectedCafe {
			continue
		}
		if id, ok := f.Properties[PropCafeID].(string); ok && id != "" {
			return Target{Kind: KindMarker, CafeID: id}
		}
	}

	return Target{Kind: KindMap}
}

func number(props geojson.Properties, key string) (float64, bool) {
	var v float64
	switch n := props[key].(type) {
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case float64:
		v = n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
