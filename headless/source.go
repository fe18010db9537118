package headless

import (
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/markers"
	"github.com/royalcat/cafemap/supercluster"
)

// ClusterSource answers cluster queries through callbacks delivered on a
// separate goroutine, like the bridge of a native map SDK.
type ClusterSource struct {
	index *supercluster.Index[markers.PointFeature]
}

func NewClusterSource(index *supercluster.Index[markers.PointFeature]) *ClusterSource {
	return &ClusterSource{index: index}
}

func (s *ClusterSource) GetClusterExpansionZoom(clusterID int, cb func(zoom float64, err error)) {
	go func() {
		zoom, err := s.index.ExpansionZoom(clusterID)
		cb(float64(zoom), err)
	}()
}

func (s *ClusterSource) GetClusterLeaves(clusterID, limit, offset int, cb func(leaves []*geojson.Feature, err error)) {
	go func() {
		leaves, err := s.index.Leaves(clusterID, limit, offset)
		if err != nil {
			cb(nil, err)
			return
		}
		cb(leafFeatures(leaves), nil)
	}()
}

// ZoomOnly hides the leaf query, as older renderer versions do.
func (s *ClusterSource) ZoomOnly() *ZoomOnlySource {
	return &ZoomOnlySource{source: s}
}

type ZoomOnlySource struct {
	source *ClusterSource
}

func (z *ZoomOnlySource) GetClusterExpansionZoom(clusterID int, cb func(zoom float64, err error)) {
	z.source.GetClusterExpansionZoom(clusterID, cb)
}

func leafFeatures(leaves []supercluster.Feature[markers.PointFeature]) []*geojson.Feature {
	out := make([]*geojson.Feature, 0, len(leaves))
	for _, l := range leaves {
		if l.Cluster {
			f := geojson.NewFeature(l.Point)
			f.Properties[hittest.PropClusterID] = l.ClusterID
			f.Properties[hittest.PropPointCount] = l.Count
			out = append(out, f)
			continue
		}
		out = append(out, l.Leaf.GeoJSON())
	}
	return out
}
