package spider

import (
	"math"

	"github.com/royalcat/cafemap/geo"
)

// RingConfig controls ring geometry. All distances are screen pixels.
type RingConfig struct {
	BaseRadius float64
	RingStep   float64
	// Spacing is the arc length reserved per leaf on outer rings.
	Spacing   float64
	MaxLeaves int
}

const firstRingCapacity = 8

func DefaultRingConfig() RingConfig {
	return RingConfig{
		BaseRadius: 34,
		RingStep:   20,
		Spacing:    22,
		MaxLeaves:  24,
	}
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// withDefaults replaces non-positive or non-finite fields with the defaults.
func (c RingConfig) withDefaults() RingConfig {
	d := DefaultRingConfig()
	if !usable(c.BaseRadius) {
		c.BaseRadius = d.BaseRadius
	}
	if !usable(c.RingStep) {
		c.RingStep = d.RingStep
	}
	if !usable(c.Spacing) {
		c.Spacing = d.Spacing
	}
	if c.MaxLeaves <= 0 {
		c.MaxLeaves = d.MaxLeaves
	}
	return c
}

// Capacity is the number of leaves ring k can hold.
func (c RingConfig) Capacity(ring int) int {
	c = c.withDefaults()
	if ring == 0 {
		return firstRingCapacity
	}
	circumference := 2 * math.Pi * c.radius(ring)
	return max(firstRingCapacity, int(math.Floor(circumference/c.Spacing)))
}

func (c RingConfig) radius(ring int) float64 {
	return c.BaseRadius + float64(ring)*c.RingStep
}

// Cap limits n to MaxLeaves.
func (c RingConfig) Cap(n int) int {
	c = c.withDefaults()
	return max(min(n, c.MaxLeaves), 0)
}

// RingSizes reports how many of n leaves land on each ring.
func RingSizes(n int, cfg RingConfig) []int {
	n = cfg.Cap(n)
	sizes := []int{}
	for placed, ring := 0, 0; placed < n; ring++ {
		count := min(cfg.Capacity(ring), n-placed)
		sizes = append(sizes, count)
		placed += count
	}
	return sizes
}

// Layout places up to MaxLeaves leaves on concentric rings around the origin.
// Ring 0 starts straight up; odd rings are rotated by half a step so legs of
// neighbouring rings do not overlap.
func Layout(n int, cfg RingConfig) []geo.Offset {
	cfg = cfg.withDefaults()
	n = cfg.Cap(n)
	offsets := make([]geo.Offset, 0, n)

	for ring, count := range RingSizes(n, cfg) {
		radius := cfg.radius(ring)
		start := -math.Pi / 2
		if ring%2 == 1 {
			start += math.Pi / float64(count)
		}
		for i := 0; i < count; i++ {
			angle := start + 2*math.Pi*float64(i)/float64(count)
			offsets = append(offsets, geo.Offset{
				DX: radius * math.Cos(angle),
				DY: radius * math.Sin(angle),
			})
		}
	}
	return offsets
}
