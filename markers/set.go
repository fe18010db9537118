package markers

import (
	"github.com/google/btree"
	"github.com/paulmach/orb/geojson"
)

// Set is an immutable-per-render collection of point features ordered by id.
type Set struct {
	tree *btree.BTreeG[PointFeature]
}

func lessByID(a, b PointFeature) bool {
	return a.ID < b.ID
}

// NewSet indexes features by id; a later duplicate replaces an earlier one.
func NewSet(features []PointFeature) *Set {
	tree := btree.NewG(16, lessByID)
	for _, f := range features {
		tree.ReplaceOrInsert(f)
	}
	return &Set{tree: tree}
}

func (s *Set) Len() int {
	return s.tree.Len()
}

func (s *Set) Get(id string) (PointFeature, bool) {
	return s.tree.Get(PointFeature{ID: id})
}

func (s *Set) Features() []PointFeature {
	out := make([]PointFeature, 0, s.tree.Len())
	s.tree.Ascend(func(f PointFeature) bool {
		out = append(out, f)
		return true
	})
	return out
}

func (s *Set) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	s.tree.Ascend(func(f PointFeature) bool {
		fc.Append(f.GeoJSON())
		return true
	})
	return fc
}
