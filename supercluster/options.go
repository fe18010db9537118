package supercluster

import "log/slog"

type Options struct {
	MinZoom int
	MaxZoom int
	// MinPoints is the smallest group that forms a cluster.
	MinPoints int
	// Radius is the cluster radius in pixels.
	Radius float64
	// Extent is the tile extent the radius is measured in.
	Extent   float64
	NodeSize int

	Logger *slog.Logger
}

const maxAllowedZoom = 30

func DefaultOptions() Options {
	return Options{
		MinZoom:   0,
		MaxZoom:   14,
		MinPoints: 2,
		Radius:    50,
		Extent:    512,
		NodeSize:  64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinZoom < 0 {
		o.MinZoom = 0
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = d.MaxZoom
	}
	if o.MaxZoom > maxAllowedZoom {
		o.MaxZoom = maxAllowedZoom
	}
	if o.MinZoom > o.MaxZoom {
		o.MinZoom = o.MaxZoom
	}
	if o.MinPoints <= 1 {
		o.MinPoints = d.MinPoints
	}
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.Extent <= 0 {
		o.Extent = d.Extent
	}
	if o.NodeSize <= 0 {
		o.NodeSize = d.NodeSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
