package debugsink

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// EnvVar enables the sink for field diagnosis of clustering decisions.
const EnvVar = "CAFEMAP_CLUSTER_DEBUG"

const (
	BranchCameraEase  = "camera-ease"
	BranchSpiderfy    = "spiderfy"
	BranchNoLeafQuery = "leaf-query-unsupported"
	BranchDegenerate  = "degenerate"
	BranchStale       = "stale"
	BranchError       = "error"
)

var meter = otel.Meter("github.com/royalcat/cafemap/debugsink")

// Sink records hit-tests, decision branches and query errors. Only decisions
// are counted; a failed query is followed by its error decision. It never
// influences control flow and all methods are safe on a nil or disabled sink.
type Sink struct {
	enabled bool
	log     *slog.Logger

	decisions metric.Int64Counter
}

func New(enabled bool, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	var decisions metric.Int64Counter = noop.Int64Counter{}
	if enabled {
		if c, err := meter.Int64Counter("cluster_decision_total"); err == nil {
			decisions = c
		}
	}
	return &Sink{
		enabled:   enabled,
		log:       log.With("component", "cluster-debug"),
		decisions: decisions,
	}
}

func Disabled() *Sink {
	return &Sink{}
}

// ParseFlag accepts the usual spellings of a boolean switch.
func ParseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes", "enabled":
		return true
	}
	return false
}

func FromEnv() bool {
	v, ok := os.LookupEnv(EnvVar)
	return ok && ParseFlag(v)
}

func (s *Sink) Enabled() bool {
	return s != nil && s.enabled
}

type HitTest struct {
	X, Y     float64
	Mode     string
	Features int
	Target   string
}

func (s *Sink) HitTest(ctx context.Context, h HitTest) {
	if !s.Enabled() {
		return
	}
	s.log.InfoContext(ctx, "cluster hit-test",
		"x", h.X,
		"y", h.Y,
		"hit_mode", h.Mode,
		"features", h.Features,
		"target", h.Target,
	)
}

type Decision struct {
	ClusterID     int
	PointCount    int
	Zoom          float64
	ExpansionZoom float64
	Branch        string
	Epoch         uint64
	Legs          int
}

func (s *Sink) Decision(ctx context.Context, d Decision) {
	if !s.Enabled() {
		return
	}
	s.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("branch", d.Branch)))
	s.log.InfoContext(ctx, "cluster decision",
		"cluster_id", d.ClusterID,
		"point_count", d.PointCount,
		"zoom", d.Zoom,
		"expansion_zoom", d.ExpansionZoom,
		"branch", d.Branch,
		"epoch", d.Epoch,
		"legs", d.Legs,
	)
}

func (s *Sink) Error(ctx context.Context, clusterID int, query string, err error) {
	if !s.Enabled() || err == nil {
		return
	}
	s.log.InfoContext(ctx, "cluster query failed",
		"cluster_id", clusterID,
		"query", query,
		"branch", BranchError,
		"error", err.Error(),
	)
}
