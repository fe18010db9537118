package interaction

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/cafemap/debugsink"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/markers"
	"github.com/royalcat/cafemap/spider"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var meter = otel.Meter("github.com/royalcat/cafemap/interaction")

// Context carries the host UI callbacks. Nil callbacks are skipped.
type Context struct {
	SelectCafe func(id string)
	MapClick   func(p orb.Point)
}

// Controller resolves taps on the map into cafe selections, camera eases or
// spiderfied clusters.
//
// Every interaction advances the epoch. Asynchronous cluster queries capture
// the epoch before they are issued and their results are dropped if it moved,
// so the latest interaction always wins.
type Controller struct {
	cfg      Config
	renderer Renderer
	tester   *hittest.Tester
	sink     *debugsink.Sink
	log      *slog.Logger

	taps metric.Int64Counter

	mu         sync.Mutex
	epoch      uint64
	index      ClusterIndex
	spider     *spider.State
	ui         Context
	lastEffect Effect
	lastEpoch  uint64

	inflight conc.WaitGroup
}

func New(renderer Renderer, index ClusterIndex, opts ...Option) *Controller {
	o := loadOptions(opts...)

	var taps metric.Int64Counter = noop.Int64Counter{}
	if c, err := meter.Int64Counter("map_tap_total"); err == nil {
		taps = c
	}

	c := &Controller{
		cfg:      o.config,
		renderer: renderer,
		tester:   hittest.New(renderer, o.config.HitPadding),
		sink:     o.sink,
		log:      o.logger,
		taps:     taps,
		index:    index,
	}
	c.spider = spider.NewState(func(fc *geojson.FeatureCollection) {
		renderer.SetSourceData(spider.SourceID, fc)
	})
	return c
}

func (c *Controller) Config() Config {
	return c.cfg
}

// SetContext replaces the UI callbacks used by later taps.
func (c *Controller) SetContext(ui Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui = ui
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spider.Active() {
		return ModeSpiderfied
	}
	return ModeIdle
}

func (c *Controller) Legs() []spider.Leg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spider.Legs()
}

func (c *Controller) LastEffect() Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEffect
}

// MoveStart must be called when the camera starts moving. It is cheap and
// safe to call whether or not a spider is shown.
func (c *Controller) MoveStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.spider.Clear()
}

// MarkersChanged is called after the point set was rebuilt. A nil index keeps
// the current one.
func (c *Controller) MarkersChanged(index ClusterIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	if index != nil {
		c.index = index
	}
	c.spider.Clear()
}

// Wait blocks until every expansion started by Tap has settled.
func (c *Controller) Wait() {
	if r := c.inflight.WaitAndRecover(); r != nil {
		c.log.Error("cluster expansion panicked", "panic", r.Value)
	}
}

type TapOutcome struct {
	Hit    hittest.Result
	Target hittest.Target
}

// Tap handles a tap at a screen point. Cluster taps start an asynchronous
// expansion; use Wait or LastEffect to observe it.
func (c *Controller) Tap(ctx context.Context, p geo.ScreenPoint) TapOutcome {
	c.mu.Lock()
	c.epoch++
	spiderActive := c.spider.Active()
	ui := c.ui
	c.mu.Unlock()

	hit := c.tester.ResolveAt(p)
	target := hittest.Classify(hit.Features, spiderActive)

	c.taps.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target.Kind.String())))
	c.sink.HitTest(ctx, debugsink.HitTest{
		X:        p.X,
		Y:        p.Y,
		Mode:     string(hit.Mode),
		Features: len(hit.Features),
		Target:   target.Kind.String(),
	})

	switch target.Kind {
	case hittest.KindSpiderLeaf, hittest.KindMarker:
		c.clear()
		if ui.SelectCafe != nil {
			ui.SelectCafe(target.CafeID)
		}
	case hittest.KindCluster:
		cluster := target.Cluster
		epoch := c.begin()
		c.inflight.Go(func() {
			c.expand(ctx, cluster, epoch)
		})
	default:
		c.clear()
		if ui.MapClick != nil {
			ui.MapClick(c.renderer.Unproject(p))
		}
	}

	return TapOutcome{Hit: hit, Target: target}
}

func (c *Controller) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spider.Clear()
}

// begin clears the spider and starts a new request epoch. Results of an
// expansion are applied only while its epoch is still current.
func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.spider.Clear()
	return c.epoch
}

func (c *Controller) stale(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch != epoch
}

// Expand decides between zooming into a cluster and fanning it out. It blocks
// until the cluster index answered; failures and stale answers leave the map
// as it was and are reported only through the returned effect and the debug
// sink.
func (c *Controller) Expand(ctx context.Context, cluster ClusterFeature) Effect {
	return c.expand(ctx, cluster, c.begin())
}

func (c *Controller) expand(ctx context.Context, cluster ClusterFeature, epoch uint64) Effect {
	c.mu.Lock()
	current := c.epoch == epoch
	index := c.index
	zoom := c.renderer.Zoom()
	c.mu.Unlock()

	decision := debugsink.Decision{
		ClusterID:  cluster.ID,
		PointCount: cluster.PointCount,
		Zoom:       zoom,
		Epoch:      epoch,
	}

	if !current {
		return c.settle(ctx, decision, Effect{Kind: EffectNone, Reason: ReasonStale})
	}
	if index == nil {
		return c.settle(ctx, decision, Effect{Kind: EffectNone, Reason: ReasonError, Err: ErrNoClusterIndex})
	}

	expansionZoom, err := awaitExpansionZoom(ctx, index, cluster.ID)
	if err != nil {
		c.sink.Error(ctx, cluster.ID, "expansion-zoom", err)
		return c.settle(ctx, decision, Effect{Kind: EffectNone, Reason: ReasonError, Err: err})
	}
	decision.ExpansionZoom = expansionZoom

	if c.stale(epoch) {
		return c.settle(ctx, decision, Effect{Kind: EffectNone, Reason: ReasonStale})
	}

	if expansionZoom-zoom > c.cfg.ZoomDeltaThreshold {
		return c.ease(ctx, decision, cluster.Center, max(expansionZoom, zoom+1), "")
	}

	leafSource, ok := index.(LeafSource)
	if !ok {
		return c.ease(ctx, decision, cluster.Center, max(expansionZoom, zoom+1), ReasonNoLeafQuery)
	}

	features, err := awaitLeaves(ctx, leafSource, cluster.ID, c.cfg.leafLimit(cluster.PointCount), 0)
	if err != nil {
		c.sink.Error(ctx, cluster.ID, "leaves", err)
		return c.settle(ctx, decision, Effect{Kind: EffectNone, Reason: ReasonError, Err: err})
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return c.settle(ctx, decision, Effect{Kind: EffectNone, Reason: ReasonStale})
	}
	legs := spider.BuildLegs(cluster.Center, markers.FromGeoJSONList(features), c.renderer, c.cfg.Ring)
	if len(legs) < 2 {
		c.mu.Unlock()
		return c.settle(ctx, decision, Effect{Kind: EffectNone, Reason: ReasonDegenerate})
	}
	c.spider.Set(legs)
	c.mu.Unlock()

	return c.settle(ctx, decision, Effect{Kind: EffectSpiderfy, Legs: legs})
}

func (c *Controller) ease(ctx context.Context, decision debugsink.Decision, center orb.Point, zoom float64, reason Reason) Effect {
	// EaseCamera may synchronously report a move start, which takes the lock.
	c.renderer.EaseCamera(center, zoom, c.cfg.EaseDuration)

	return c.settle(ctx, decision, Effect{
		Kind:     EffectCameraEase,
		Center:   center,
		Zoom:     zoom,
		Duration: c.cfg.EaseDuration,
		Reason:   reason,
	})
}

func (c *Controller) settle(ctx context.Context, decision debugsink.Decision, effect Effect) Effect {
	switch {
	case effect.Kind == EffectSpiderfy:
		decision.Branch = debugsink.BranchSpiderfy
		decision.Legs = len(effect.Legs)
	case effect.Kind == EffectCameraEase && effect.Reason == ReasonNoLeafQuery:
		decision.Branch = debugsink.BranchNoLeafQuery
	case effect.Kind == EffectCameraEase:
		decision.Branch = debugsink.BranchCameraEase
	case effect.Reason == ReasonStale:
		decision.Branch = debugsink.BranchStale
		c.log.DebugContext(ctx, "dropping stale cluster result", "cluster_id", decision.ClusterID, "epoch", decision.Epoch)
	case effect.Reason == ReasonDegenerate:
		decision.Branch = debugsink.BranchDegenerate
	default:
		decision.Branch = debugsink.BranchError
	}
	c.sink.Decision(ctx, decision)

	// an expansion never overwrites the outcome of a later one
	c.mu.Lock()
	if decision.Epoch >= c.lastEpoch {
		c.lastEffect = effect
		c.lastEpoch = decision.Epoch
	}
	c.mu.Unlock()

	return effect
}
