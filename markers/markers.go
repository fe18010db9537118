package markers

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/geo"
)

// Cafe is a point of interest as delivered by the upstream API. Coordinates
// are optional there, so they are pointers.
type Cafe struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Address        string   `json:"address,omitempty"`
	DistanceMeters float64  `json:"distance_meters,omitempty"`
	Lng            *float64 `json:"lng"`
	Lat            *float64 `json:"lat"`
}

// PointFeature is the render-ready form of a Cafe.
type PointFeature struct {
	ID             string
	Name           string
	Address        string
	DistanceMeters float64
	Lng, Lat       float64
}

func (f PointFeature) Point() orb.Point {
	return orb.Point{f.Lng, f.Lat}
}

const (
	PropID       = "id"
	PropName     = "name"
	PropAddress  = "address"
	PropDistance = "distance"
)

func (f PointFeature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Point())
	gf.ID = f.ID
	gf.Properties[PropID] = f.ID
	gf.Properties[PropName] = f.Name
	gf.Properties[PropAddress] = f.Address
	gf.Properties[PropDistance] = f.DistanceMeters
	return gf
}

// FromCafes converts cafes to point features, dropping every entry whose
// coordinates are missing, non-finite or outside the WGS84 range.
func FromCafes(cafes []Cafe) []PointFeature {
	out := make([]PointFeature, 0, len(cafes))
	for _, c := range cafes {
		if c.ID == "" || c.Lng == nil || c.Lat == nil {
			continue
		}
		if !geo.ValidLngLat(orb.Point{*c.Lng, *c.Lat}) {
			continue
		}
		distance := c.DistanceMeters
		if !geo.Finite(distance) {
			distance = 0
		}
		out = append(out, PointFeature{
			ID:             c.ID,
			Name:           c.Name,
			Address:        c.Address,
			DistanceMeters: distance,
			Lng:            *c.Lng,
			Lat:            *c.Lat,
		})
	}
	return out
}

func NewCafe(id, name string, p orb.Point) Cafe {
	lng, lat := p[0], p[1]
	return Cafe{ID: id, Name: name, Lng: &lng, Lat: &lat}
}
