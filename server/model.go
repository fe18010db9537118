package server

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/royalcat/cafemap/geo"
	"github.com/royalcat/cafemap/interaction"
)

type sessionRequest struct {
	Lng    float64 `json:"lng"`
	Lat    float64 `json:"lat"`
	Zoom   float64 `json:"zoom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r sessionRequest) viewport() (geo.Viewport, error) {
	center := orb.Point{r.Lng, r.Lat}
	if !geo.ValidLngLat(center) {
		return geo.Viewport{}, errors.New("invalid camera center")
	}
	if !geo.Finite(r.Zoom, r.Width, r.Height) || r.Zoom < 0 || r.Width <= 0 || r.Height <= 0 {
		return geo.Viewport{}, errors.New("invalid camera zoom or size")
	}
	return geo.Viewport{Center: center, Zoom: r.Zoom, Width: r.Width, Height: r.Height}, nil
}

type cameraJSON struct {
	Lng    float64 `json:"lng"`
	Lat    float64 `json:"lat"`
	Zoom   float64 `json:"zoom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type sessionState struct {
	ID        string      `json:"id"`
	Mode      string      `json:"mode"`
	Legs      int         `json:"legs"`
	Selected  string      `json:"selected,omitempty"`
	LastClick *[2]float64 `json:"last_click,omitempty"`
	Camera    cameraJSON  `json:"camera"`
}

type effectResponse struct {
	Kind       string  `json:"kind"`
	Reason     string  `json:"reason,omitempty"`
	Error      string  `json:"error,omitempty"`
	Zoom       float64 `json:"zoom,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
	Legs       int     `json:"legs,omitempty"`
}

func effectJSON(e interaction.Effect) effectResponse {
	out := effectResponse{
		Kind:       e.Kind.String(),
		Reason:     string(e.Reason),
		Zoom:       e.Zoom,
		DurationMs: e.Duration.Milliseconds(),
		Legs:       len(e.Legs),
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	return out
}

type tapResponse struct {
	Target    string          `json:"target"`
	CafeID    string          `json:"cafe_id,omitempty"`
	ClusterID *int            `json:"cluster_id,omitempty"`
	HitMode   string          `json:"hit_mode"`
	Features  int             `json:"features"`
	Effect    *effectResponse `json:"effect,omitempty"`
	Session   sessionState    `json:"session"`
}
