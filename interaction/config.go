package interaction

import (
	"time"

	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/spider"
)

type Config struct {
	// ClusterRadius and ClusterMaxZoom configure the renderer's cluster source.
	ClusterRadius  float64
	ClusterMaxZoom int

	Ring spider.RingConfig

	// ZoomDeltaThreshold separates "zoom in" from "fan out": a cluster whose
	// expansion zoom is more than this above the current zoom is zoomed into.
	ZoomDeltaThreshold float64
	HitPadding         float64
	EaseDuration       time.Duration

	Debug bool
}

func ConfigDefault() Config {
	return Config{
		ClusterRadius:      50,
		ClusterMaxZoom:     14,
		Ring:               spider.DefaultRingConfig(),
		ZoomDeltaThreshold: 0.1,
		HitPadding:         hittest.DefaultHitPadding,
		EaseDuration:       300 * time.Millisecond,
	}
}

// leafLimit is how many leaves to request for a cluster of pointCount.
func (c Config) leafLimit(pointCount int) int {
	return c.Ring.Cap(max(2, pointCount))
}
