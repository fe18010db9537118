package interaction

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/spider"
)

type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectCameraEase
	EffectSpiderfy
)

func (k EffectKind) String() string {
	switch k {
	case EffectCameraEase:
		return "camera-ease"
	case EffectSpiderfy:
		return "spiderfy"
	default:
		return "none"
	}
}

type Reason string

const (
	ReasonError       Reason = "error"
	ReasonStale       Reason = "stale"
	ReasonDegenerate  Reason = "degenerate"
	ReasonNoLeafQuery Reason = "leaf-query-unsupported"
)

// Effect is the outcome of a cluster expansion.
type Effect struct {
	Kind EffectKind

	// camera ease
	Center   orb.Point
	Zoom     float64
	Duration time.Duration

	Legs []spider.Leg

	Reason Reason
	Err    error
}

type Mode int

const (
	ModeIdle Mode = iota
	ModeSpiderfied
)

func (m Mode) String() string {
	if m == ModeSpiderfied {
		return "spiderfied"
	}
	return "idle"
}

// ClusterFeature is a tapped cluster.
type ClusterFeature = hittest.Cluster
