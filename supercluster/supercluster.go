package supercluster

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/royalcat/cafemap/kdbush"
)

var ErrClusterNotFound = errors.New("no cluster with the specified id")

type Input[T any] struct {
	Point orb.Point
	Data  T
}

// Feature is either a cluster or a single leaf, as rendered at some zoom.
type Feature[T any] struct {
	Point     orb.Point
	Cluster   bool
	ClusterID int
	Count     int
	// Leaf is set only when Cluster is false.
	Leaf T
}

type node struct {
	zoom      int
	index     int // leaf index into points, or cluster id
	parentID  int
	numPoints int
	cluster   bool
}

const unclustered = math.MaxInt

// Index groups points into clusters per zoom level, the same way vector map
// renderers do for clustered GeoJSON sources.
type Index[T any] struct {
	opts   Options
	points []Input[T]
	trees  []*kdbush.KDBush[node]
}

func New[T any](opts Options) *Index[T] {
	return &Index[T]{opts: opts.withDefaults()}
}

func (idx *Index[T]) Options() Options {
	return idx.opts
}

func (idx *Index[T]) Len() int {
	return len(idx.points)
}

// Load replaces the indexed points and rebuilds every zoom level.
func (idx *Index[T]) Load(points []Input[T]) {
	start := time.Now()
	idx.points = points

	leaves := make([]kdbush.Point[node], 0, len(points))
	for i, p := range points {
		leaves = append(leaves, kdbush.Point[node]{
			X: lngX(p.Point[0]),
			Y: latY(p.Point[1]),
			Data: node{
				zoom:      unclustered,
				index:     i,
				parentID:  -1,
				numPoints: 1,
			},
		})
	}

	idx.trees = make([]*kdbush.KDBush[node], idx.opts.MaxZoom+2)
	idx.trees[idx.opts.MaxZoom+1] = kdbush.NewBush(leaves, idx.opts.NodeSize)

	for z := idx.opts.MaxZoom; z >= idx.opts.MinZoom; z-- {
		clusters := idx.cluster(idx.trees[z+1], z)
		idx.trees[z] = kdbush.NewBush(clusters, idx.opts.NodeSize)
	}

	idx.opts.Logger.Debug("cluster index loaded",
		"points", len(points),
		"zooms", idx.opts.MaxZoom-idx.opts.MinZoom+1,
		"took", time.Since(start),
	)
}

func (idx *Index[T]) cluster(prev *kdbush.KDBush[node], zoom int) []kdbush.Point[node] {
	r := idx.opts.Radius / (idx.opts.Extent * math.Exp2(float64(zoom)))
	pts := prev.Points
	next := make([]kdbush.Point[node], 0, len(pts))

	for i := range pts {
		p := &pts[i]
		if p.Data.zoom <= zoom {
			continue
		}
		p.Data.zoom = zoom

		neighbors := prev.WithinIdxs(p.X, p.Y, r)

		origin := p.Data.numPoints
		total := origin
		for _, n := range neighbors {
			if pts[n].Data.zoom > zoom {
				total += pts[n].Data.numPoints
			}
		}

		if total > origin && total >= idx.opts.MinPoints {
			wx := p.X * float64(origin)
			wy := p.Y * float64(origin)
			id := (i << 5) + (zoom + 1) + len(idx.points)

			for _, n := range neighbors {
				b := &pts[n]
				if b.Data.zoom <= zoom {
					continue
				}
				b.Data.zoom = zoom
				wx += b.X * float64(b.Data.numPoints)
				wy += b.Y * float64(b.Data.numPoints)
				b.Data.parentID = id
			}

			p.Data.parentID = id
			next = append(next, kdbush.Point[node]{
				X: wx / float64(total),
				Y: wy / float64(total),
				Data: node{
					zoom:      unclustered,
					index:     id,
					parentID:  -1,
					numPoints: total,
					cluster:   true,
				},
			})
			continue
		}

		next = append(next, *p)
		if total > 1 {
			for _, n := range neighbors {
				b := &pts[n]
				if b.Data.zoom <= zoom {
					continue
				}
				b.Data.zoom = zoom
				next = append(next, *b)
			}
		}
	}

	return next
}

// Clusters returns clusters and leaves inside bound at the given zoom.
func (idx *Index[T]) Clusters(bound orb.Bound, zoom float64) []Feature[T] {
	minLng := math.Mod(math.Mod(bound.Min[0]+180, 360)+360, 360) - 180
	maxLng := math.Mod(math.Mod(bound.Max[0]+180, 360)+360, 360) - 180
	minLat := math.Max(-90, math.Min(90, bound.Min[1]))
	maxLat := math.Max(-90, math.Min(90, bound.Max[1]))

	if bound.Max[0]-bound.Min[0] >= 360 {
		minLng, maxLng = -180, 180
	} else if minLng > maxLng {
		east := idx.Clusters(orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{180, maxLat}}, zoom)
		west := idx.Clusters(orb.Bound{Min: orb.Point{-180, minLat}, Max: orb.Point{maxLng, maxLat}}, zoom)
		return append(east, west...)
	}

	tree := idx.tree(idx.limitZoom(zoom))
	if tree == nil {
		return nil
	}

	ids := tree.Range(lngX(minLng), latY(maxLat), lngX(maxLng), latY(minLat))
	out := make([]Feature[T], 0, len(ids))
	for _, i := range ids {
		out = append(out, idx.feature(tree.Points[i]))
	}
	return out
}

// Children returns the direct children of a cluster one zoom level deeper.
func (idx *Index[T]) Children(clusterID int) ([]Feature[T], error) {
	originID := idx.originID(clusterID)
	originZoom := idx.originZoom(clusterID)

	tree := idx.tree(originZoom)
	if tree == nil || originID < 0 || originID >= tree.Len() {
		return nil, fmt.Errorf("%w: %d", ErrClusterNotFound, clusterID)
	}

	origin := tree.Points[originID]
	r := idx.opts.Radius / (idx.opts.Extent * math.Exp2(float64(originZoom-1)))

	children := []Feature[T]{}
	for _, i := range tree.WithinIdxs(origin.X, origin.Y, r) {
		if tree.Points[i].Data.parentID == clusterID {
			children = append(children, idx.feature(tree.Points[i]))
		}
	}

	if len(children) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrClusterNotFound, clusterID)
	}
	return children, nil
}

// Leaves returns up to limit leaf points under a cluster, skipping offset leaves.
func (idx *Index[T]) Leaves(clusterID, limit, offset int) ([]Feature[T], error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	leaves := make([]Feature[T], 0, limit)
	if _, err := idx.appendLeaves(&leaves, clusterID, limit, offset, 0); err != nil {
		return nil, err
	}
	return leaves, nil
}

func (idx *Index[T]) appendLeaves(result *[]Feature[T], clusterID, limit, offset, skipped int) (int, error) {
	children, err := idx.Children(clusterID)
	if err != nil {
		return skipped, err
	}

	for _, child := range children {
		if child.Cluster {
			if skipped+child.Count <= offset {
				skipped += child.Count
			} else {
				skipped, err = idx.appendLeaves(result, child.ClusterID, limit, offset, skipped)
				if err != nil {
					return skipped, err
				}
			}
		} else if skipped < offset {
			skipped++
		} else {
			*result = append(*result, child)
		}
		if len(*result) == limit {
			break
		}
	}
	return skipped, nil
}

// ExpansionZoom is the zoom at which the cluster splits into more than one child.
func (idx *Index[T]) ExpansionZoom(clusterID int) (int, error) {
	expansionZoom := idx.originZoom(clusterID) - 1
	for expansionZoom <= idx.opts.MaxZoom {
		children, err := idx.Children(clusterID)
		if err != nil {
			return 0, err
		}
		expansionZoom++
		if len(children) != 1 || !children[0].Cluster {
			break
		}
		clusterID = children[0].ClusterID
	}
	return expansionZoom, nil
}

func (idx *Index[T]) feature(p kdbush.Point[node]) Feature[T] {
	if p.Data.cluster {
		return Feature[T]{
			Point:     orb.Point{xLng(p.X), yLat(p.Y)},
			Cluster:   true,
			ClusterID: p.Data.index,
			Count:     p.Data.numPoints,
		}
	}
	leaf := idx.points[p.Data.index]
	return Feature[T]{
		Point: leaf.Point,
		Count: 1,
		Leaf:  leaf.Data,
	}
}

func (idx *Index[T]) tree(zoom int) *kdbush.KDBush[node] {
	if zoom < 0 || zoom >= len(idx.trees) {
		return nil
	}
	return idx.trees[zoom]
}

func (idx *Index[T]) limitZoom(z float64) int {
	zoom := int(math.Floor(z))
	return max(idx.opts.MinZoom, min(zoom, idx.opts.MaxZoom+1))
}

func (idx *Index[T]) originID(clusterID int) int {
	return (clusterID - len(idx.points)) >> 5
}

func (idx *Index[T]) originZoom(clusterID int) int {
	return (clusterID - len(idx.points)) % 32
}

func lngX(lng float64) float64 {
	return lng/360 + 0.5
}

func latY(lat float64) float64 {
	sin := math.Sin(lat * math.Pi / 180)
	y := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi
	return math.Max(0, math.Min(1, y))
}

func xLng(x float64) float64 {
	return (x - 0.5) * 360
}

func yLat(y float64) float64 {
	y2 := (180 - y*360) * math.Pi / 180
	return 360*math.Atan(math.Exp(y2))/math.Pi - 90
}
