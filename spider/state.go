package spider

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SourceID is the renderer source the legs are drawn from.
const SourceID = "spider"

const (
	PropKind     = "kind"
	PropCafeID   = "cafe_id"
	PropCafeName = "cafe_name"

	KindLeg  = "spider-leg"
	KindLeaf = "spider-leaf"
)

// State holds the legs currently fanned out. It is not safe for concurrent
// use; the interaction controller serializes access.
type State struct {
	legs    []Leg
	publish func(*geojson.FeatureCollection)
}

// NewState returns an empty state. publish, when set, receives the rendered
// collection every time the visible legs change.
func NewState(publish func(*geojson.FeatureCollection)) *State {
	return &State{publish: publish}
}

// Set replaces the legs wholesale.
func (s *State) Set(legs []Leg) {
	if len(legs) == 0 {
		s.Clear()
		return
	}
	s.legs = slices.Clone(legs)
	s.emit()
}

// Clear empties the state. It is a no-op when already empty and reports
// whether anything was removed.
func (s *State) Clear() bool {
	if len(s.legs) == 0 {
		return false
	}
	s.legs = nil
	s.emit()
	return true
}

func (s *State) Len() int {
	return len(s.legs)
}

func (s *State) Active() bool {
	return len(s.legs) > 0
}

func (s *State) Legs() []Leg {
	return slices.Clone(s.legs)
}

func (s *State) Leaf(cafeID string) (Leg, bool) {
	for _, l := range s.legs {
		if l.CafeID == cafeID {
			return l, true
		}
	}
	return Leg{}, false
}

func (s *State) emit() {
	if s.publish != nil {
		s.publish(Render(s.legs))
	}
}

// Render draws one line per leg and one point per leaf.
func Render(legs []Leg) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range legs {
		line := geojson.NewFeature(orb.LineString{l.From, l.To})
		line.Properties[PropKind] = KindLeg
		line.Properties[PropCafeID] = l.CafeID
		fc.Append(line)
	}
	for _, l := range legs {
		leaf := geojson.NewFeature(l.To)
		leaf.ID = l.CafeID
		leaf.Properties[PropKind] = KindLeaf
		leaf.Properties[PropCafeID] = l.CafeID
		leaf.Properties[PropCafeName] = l.CafeName
		fc.Append(leaf)
	}
	return fc
}
