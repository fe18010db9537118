package markers

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/geo"
)

// FromGeoJSON reads a point feature back from renderer output, such as the
// leaves of a cluster.
func FromGeoJSON(f *geojson.Feature) (PointFeature, bool) {
	if f == nil {
		return PointFeature{}, false
	}
	p, ok := f.Geometry.(orb.Point)
	if !ok || !geo.ValidLngLat(p) {
		return PointFeature{}, false
	}
	id := f.Properties.MustString(PropID, "")
	if id == "" {
		if s, ok := f.ID.(string); ok {
			id = s
		}
	}
	if id == "" {
		return PointFeature{}, false
	}
	distance := f.Properties.MustFloat64(PropDistance, 0)
	if !geo.Finite(distance) {
		distance = 0
	}
	return PointFeature{
		ID:             id,
		Name:           f.Properties.MustString(PropName, ""),
		Address:        f.Properties.MustString(PropAddress, ""),
		DistanceMeters: distance,
		Lng:            p[0],
		Lat:            p[1],
	}, true
}

func FromGeoJSONList(features []*geojson.Feature) []PointFeature {
	out := make([]PointFeature, 0, len(features))
	for _, f := range features {
		if pf, ok := FromGeoJSON(f); ok {
			out = append(out, pf)
		}
	}
	return out
}
