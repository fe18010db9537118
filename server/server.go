// Package server is a development harness: every session is a headless map
// with its own interaction controller, driven over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/royalcat/cafemap/debugsink"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/headless"
	"github.com/royalcat/cafemap/hittest"
	"github.com/royalcat/cafemap/interaction"
	"github.com/royalcat/cafemap/markers"
	"github.com/royalcat/cafemap/spider"
	"github.com/royalcat/cafemap/supercluster"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const MaxBodySize = 1 << 20

var meter = otel.Meter("github.com/royalcat/cafemap/server")

var ErrSessionNotFound = errors.New("session not found")

type Server struct {
	log      *slog.Logger
	cfg      interaction.Config
	sink     *debugsink.Sink
	features []markers.PointFeature
	sessions *xsync.MapOf[string, *session]

	metricSessions metric.Int64Counter
	metricCalls    metric.Int64Counter
}

func New(features []markers.PointFeature, cfg interaction.Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	metricSessions, err := meter.Int64Counter("session_created_total")
	if err != nil {
		return nil, err
	}
	metricCalls, err := meter.Int64Counter("http_call_total")
	if err != nil {
		return nil, err
	}

	return &Server{
		log:            log.With("component", "server"),
		cfg:            cfg,
		sink:           debugsink.New(cfg.Debug, log),
		features:       features,
		sessions:       xsync.NewMapOf[string, *session](),
		metricSessions: metricSessions,
		metricCalls:    metricCalls,
	}, nil
}

func (s *Server) Router() *router.Router {
	r := router.New()
	r.POST("/session", s.CreateSessionHandler)
	r.DELETE("/session/{id}", s.DeleteSessionHandler)
	r.POST("/session/{id}/tap", s.TapHandler)
	r.POST("/session/{id}/taps", s.TapScriptHandler)
	r.POST("/session/{id}/move-start", s.MoveStartHandler)
	r.POST("/session/{id}/resize", s.ResizeHandler)
	r.GET("/session/{id}/spider", s.SpiderHandler)
	r.GET("/session/{id}", s.SessionHandler)
	r.Handle(http.MethodGet, "/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	return r
}

// Run serves until ctx is cancelled.
func Run(ctx context.Context, address string, s *Server) error {
	server := &fasthttp.Server{
		ReadTimeout:        5 * time.Second,
		MaxRequestBodySize: MaxBodySize,
		Handler:            s.Router().Handler,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "address", address)
		errCh <- server.ListenAndServe(address)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := server.ShutdownWithContext(shutdownCtx)
	s.sessions.Range(func(_ string, sess *session) bool {
		sess.wait()
		return true
	})
	return err
}

type session struct {
	id         string
	m          *headless.Map
	controller *interaction.Controller

	// input serializes taps and waits, like a single UI event loop.
	input sync.Mutex

	mu        sync.Mutex
	selected  string
	lastClick *orb.Point
}

func (s *Server) newSession(vp geo.Viewport) *session {
	id := uuid.NewString()
	log := s.log.With("session", id)

	m := headless.New(vp,
		headless.WithLogger(log),
		headless.WithClusterOptions(supercluster.Options{
			MaxZoom:   s.cfg.ClusterMaxZoom,
			Radius:    s.cfg.ClusterRadius,
			MinPoints: 2,
		}),
	)
	source := m.SetMarkers(s.features)

	c := interaction.New(m, source,
		interaction.WithConfig(s.cfg),
		interaction.WithLogger(log),
		interaction.WithDebugSink(s.sink),
	)
	m.OnMoveStart(c.MoveStart)

	sess := &session{id: id, m: m, controller: c}
	c.SetContext(interaction.Context{
		SelectCafe: func(cafeID string) {
			m.Select(cafeID)
			sess.mu.Lock()
			sess.selected = cafeID
			sess.mu.Unlock()
		},
		MapClick: func(p orb.Point) {
			m.Select("")
			sess.mu.Lock()
			sess.selected = ""
			sess.lastClick = &p
			sess.mu.Unlock()
		},
	})
	return sess
}

func (s *Server) session(ctx *fasthttp.RequestCtx) (*session, bool) {
	id, _ := ctx.UserValue("id").(string)
	sess, ok := s.sessions.Load(id)
	if !ok {
		writeError(ctx, http.StatusNotFound, fmt.Errorf("%w: %q", ErrSessionNotFound, id))
		return nil, false
	}
	return sess, true
}

func (s *Server) count(ctx *fasthttp.RequestCtx, handler string) {
	s.metricCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("handler", handler)))
}

func (s *Server) CreateSessionHandler(ctx *fasthttp.RequestCtx) {
	s.count(ctx, "create_session")

	req := sessionRequest{Zoom: 12, Width: 800, Height: 600}
	if len(s.features) > 0 {
		req.Lng, req.Lat = s.features[0].Lng, s.features[0].Lat
	}
	if body := ctx.Request.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(ctx, http.StatusBadRequest, fmt.Errorf("failed to parse request: %w", err))
			return
		}
	}
	vp, err := req.viewport()
	if err != nil {
		writeError(ctx, http.StatusBadRequest, err)
		return
	}

	sess := s.newSession(vp)
	s.sessions.Store(sess.id, sess)
	s.metricSessions.Add(ctx, 1)
	s.log.InfoContext(ctx, "session created", "session", sess.id, "zoom", vp.Zoom)

	ctx.Response.SetStatusCode(http.StatusCreated)
	writeJSON(ctx, sess.state())
}

func (s *Server) DeleteSessionHandler(ctx *fasthttp.RequestCtx) {
	s.count(ctx, "delete_session")

	sess, ok := s.session(ctx)
	if !ok {
		return
	}
	s.sessions.Delete(sess.id)
	sess.wait()
	ctx.Response.SetStatusCode(http.StatusNoContent)
}

func (s *Server) SessionHandler(ctx *fasthttp.RequestCtx) {
	s.count(ctx, "session")

	sess, ok := s.session(ctx)
	if !ok {
		return
	}
	writeJSON(ctx, sess.state())
}

func (s *Server) TapHandler(ctx *fasthttp.RequestCtx) {
	s.count(ctx, "tap")

	sess, ok := s.session(ctx)
	if !ok {
		return
	}

	var p geo.ScreenPoint
	if err := json.Unmarshal(ctx.Request.Body(), &p); err != nil {
		writeError(ctx, http.StatusBadRequest, fmt.Errorf("failed to parse request: %w", err))
		return
	}
	if !geo.Finite(p.X, p.Y) {
		writeError(ctx, http.StatusBadRequest, fmt.Errorf("invalid point %v", p))
		return
	}

	writeJSON(ctx, sess.tap(context.WithoutCancel(ctx), p))
}

// TapScriptHandler replays a sequence of taps, [[x, y], ...], in order.
func (s *Server) TapScriptHandler(ctx *fasthttp.RequestCtx) {
	s.count(ctx, "tap_script")

	sess, ok := s.session(ctx)
	if !ok {
		return
	}

	var points []geo.ScreenPoint
	if err := unmarshalTapScript(ctx.Request.Body(), &points); err != nil {
		writeError(ctx, http.StatusBadRequest, fmt.Errorf("failed to parse request: %w", err))
		return
	}

	tapCtx := context.WithoutCancel(ctx)
	out := make([]tapResponse, 0, len(points))
	for _, p := range points {
		out = append(out, sess.tap(tapCtx, p))
	}
	writeJSON(ctx, out)
}

func (s *Server) MoveStartHandler(ctx *fasthttp.RequestCtx) {
	s.count(ctx, "move_start")

	sess, ok := s.session(ctx)
	if !ok {
		return
	}
	sess.controller.MoveStart()
	writeJSON(ctx, sess.state())
}

func (s *Server) ResizeHandler(ctx *fasthttp.RequestCtx) {
	s.count(ctx, "resize")

	sess, ok := s.session(ctx)
	if !ok {
		return
	}

	var req struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		writeError(ctx, http.StatusBadRequest, fmt.Errorf("failed to parse request: %w", err))
		return
	}
	if !geo.Finite(req.Width, req.Height) || req.Width <= 0 || req.Height <= 0 {
		writeError(ctx, http.StatusBadRequest, errors.New("width and height must be positive"))
		return
	}

	sess.m.Resize(req.Width, req.Height)
	ctx.Response.SetStatusCode(http.StatusAccepted)
}

func (s *Server) SpiderHandler(ctx *fasthttp.RequestCtx) {
	s.count(ctx, "spider")

	sess, ok := s.session(ctx)
	if !ok {
		return
	}

	data, err := spider.Render(sess.controller.Legs()).MarshalJSON()
	if err != nil {
		writeError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Response.Header.SetContentType("application/geo+json")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(data)
}

func (sess *session) tap(ctx context.Context, p geo.ScreenPoint) tapResponse {
	sess.input.Lock()
	defer sess.input.Unlock()

	out := sess.controller.Tap(ctx, p)
	sess.controller.Wait()

	resp := tapResponse{
		Target:   out.Target.Kind.String(),
		CafeID:   out.Target.CafeID,
		HitMode:  string(out.Hit.Mode),
		Features: len(out.Hit.Features),
	}
	if out.Target.Kind == hittest.KindCluster {
		id := out.Target.Cluster.ID
		resp.ClusterID = &id
		eff := effectJSON(sess.controller.LastEffect())
		resp.Effect = &eff
	}
	resp.Session = sess.state()
	return resp
}

// wait blocks until the session's pending expansions settled.
func (sess *session) wait() {
	sess.input.Lock()
	defer sess.input.Unlock()
	sess.controller.Wait()
}

func (sess *session) state() sessionState {
	vp := sess.m.Camera()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	st := sessionState{
		ID:       sess.id,
		Mode:     sess.controller.Mode().String(),
		Legs:     len(sess.controller.Legs()),
		Selected: sess.selected,
		Camera: cameraJSON{
			Lng:    vp.Center[0],
			Lat:    vp.Center[1],
			Zoom:   vp.Zoom,
			Width:  vp.Width,
			Height: vp.Height,
		},
	}
	if sess.lastClick != nil {
		st.LastClick = &[2]float64{sess.lastClick[0], sess.lastClick[1]}
	}
	return st
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.SetBody(data)
}

func writeError(ctx *fasthttp.RequestCtx, code int, err error) {
	ctx.Response.SetStatusCode(code)
	ctx.Response.SetBodyString(err.Error())
}
