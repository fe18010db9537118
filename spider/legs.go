package spider

import (
	"github.com/paulmach/orb"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/markers"
)

type Projector interface {
	Project(orb.Point) geo.ScreenPoint
	Unproject(geo.ScreenPoint) orb.Point
}

// Leg connects a cluster center to the fanned-out position of one leaf.
type Leg struct {
	CafeID   string
	CafeName string
	From     orb.Point
	To       orb.Point
}

// BuildLegs fans leaves out around center. It returns nil when fewer than two
// leaves remain after capping: a single leaf is a plain marker, not a spider.
func BuildLegs(center orb.Point, leaves []markers.PointFeature, proj Projector, cfg RingConfig) []Leg {
	n := cfg.Cap(len(leaves))
	if n <= 1 {
		return nil
	}

	origin := proj.Project(center)
	legs := make([]Leg, 0, n)
	for i, offset := range Layout(n, cfg) {
		legs = append(legs, Leg{
			CafeID:   leaves[i].ID,
			CafeName: leaves[i].Name,
			From:     center,
			To:       proj.Unproject(origin.Add(offset)),
		})
	}
	return legs
}
