package main

import "math"

const (
	StarCount         = 150
	StarCountPotato   = 30
	StarOpacityBase   = 0.3
	StarOpacitySwing  = 0.5
	StarOpacityPotato = 0.6
)

// Viewport is the drawing surface size in pixels
type Viewport struct {
	W float64 `json:"w" msgpack:"w"`
	H float64 `json:"h" msgpack:"h"`
}

// Valid reports whether the viewport has a usable area
func (v Viewport) Valid() bool {
	return v.W > 0 && v.H > 0 && !math.IsInf(v.W, 0) && !math.IsInf(v.H, 0)
}

// Star is an ornamental background point that twinkles
type Star struct {
	ID           int
	X, Y         float64
	Size         float64
	Opacity      float64
	TwinkleSpeed float64 // phase constant for the opacity sine
}

// NewStar places a star at a random point in the viewport
func NewStar(id int, vp Viewport, rng Rand) *Star {
	return &Star{
		ID:           id,
		X:            rng.Float64() * vp.W,
		Y:            rng.Float64() * vp.H,
		Size:         rng.Float64()*2 + 0.5,
		Opacity:      rng.Float64()*0.8 + 0.2,
		TwinkleSpeed: rng.Float64()*0.02 + 0.01,
	}
}

// Twinkle sets the opacity for timestamp now (ms)
func (s *Star) Twinkle(now float64) {
	s.Opacity = StarOpacityBase + math.Sin(now*s.TwinkleSpeed)*StarOpacitySwing
}

// ToState converts to protocol state
func (s *Star) ToState() StarState {
	return StarState{X: round1(s.X), Y: round1(s.Y), S: round1(s.Size), O: round2(s.Opacity)}
}
