package interaction

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/spider"
)

// ClusterIndex is the renderer's cluster source. Results arrive through
// callbacks, possibly on another goroutine.
type ClusterIndex interface {
	GetClusterExpansionZoom(clusterID int, cb func(zoom float64, err error))
}

// LeafSource is an optional ClusterIndex capability.
type LeafSource interface {
	GetClusterLeaves(clusterID, limit, offset int, cb func(leaves []*geojson.Feature, err error))
}

// Renderer is the subset of the map rendering engine the controller drives.
type Renderer interface {
	hittest.Querier
	spider.Projector

	Zoom() float64
	EaseCamera(center orb.Point, zoom float64, duration time.Duration)
	SetSourceData(sourceID string, fc *geojson.FeatureCollection)
}

type result[T any] struct {
	value T
	err   error
}

// await turns a callback-style call into a blocking one. Only the first
// callback invocation counts.
func await[T any](ctx context.Context, issue func(cb func(T, error))) (T, error) {
	ch := make(chan result[T], 1)
	var once sync.Once
	issue(func(v T, err error) {
		once.Do(func() {
			ch <- result[T]{value: v, err: err}
		})
	})

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func awaitExpansionZoom(ctx context.Context, idx ClusterIndex, clusterID int) (float64, error) {
	return await(ctx, func(cb func(float64, error)) {
		idx.GetClusterExpansionZoom(clusterID, cb)
	})
}

func awaitLeaves(ctx context.Context, src LeafSource, clusterID, limit, offset int) ([]*geojson.Feature, error) {
	return await(ctx, func(cb func([]*geojson.Feature, error)) {
		src.GetClusterLeaves(clusterID, limit, offset, cb)
	})
}
