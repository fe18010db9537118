package markers

import (
	"fmt"
	"math/rand"

	"github.com/fogleman/poissondisc"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Generate samples demo cafes inside bound, at least minDistance degrees apart.
func Generate(bound orb.Bound, minDistance float64, rnd *rand.Rand) []Cafe {
	points := poissondisc.Sample(bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y(), minDistance, 10, rnd)

	cafes := make([]Cafe, 0, len(points))
	for i, p := range points {
		cafes = append(cafes, NewCafe(
			fmt.Sprintf("gen-%d", i),
			fmt.Sprintf("Cafe #%d", i+1),
			orb.Point{p.X, p.Y},
		))
	}
	return cafes
}

// MeasureFrom fills DistanceMeters with the geodesic distance from origin.
func MeasureFrom(origin orb.Point, cafes []Cafe) {
	for i := range cafes {
		if cafes[i].Lng == nil || cafes[i].Lat == nil {
			continue
		}
		cafes[i].DistanceMeters = orbgeo.Distance(origin, orb.Point{*cafes[i].Lng, *cafes[i].Lat})
	}
}
