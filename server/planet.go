package main

import "math"

// Planet is a fixed decorative body; its orbit angle advances but the
// orbit radius is zero so it never moves.
type Planet struct {
	ID          int
	X, Y        float64
	Size        float64
	Color       string
	OrbitSpeed  float64
	OrbitRadius float64
	OrbitAngle  float64
}

// planetLayout places planets at viewport fractions
var planetLayout = []struct {
	fx, fy     float64
	size       float64
	color      string
	orbitSpeed float64
	orbitAngle float64
}{
	{0.15, 0.2, 60, "#ff6b6b", 0.001, 0},
	{0.85, 0.3, 80, "#4ecdc4", 0.0008, math.Pi},
	{0.1, 0.8, 50, "#ffe66d", 0.0012, math.Pi / 2},
	{0.9, 0.75, 70, "#95e1d3", 0.0006, math.Pi * 1.5},
}

// NewPlanets returns the planet set for the viewport; potato mode keeps one
func NewPlanets(vp Viewport, potato bool) []*Planet {
	n := len(planetLayout)
	if potato {
		n = 1
	}
	planets := make([]*Planet, 0, n)
	for i, l := range planetLayout[:n] {
		planets = append(planets, &Planet{
			ID:         i,
			X:          vp.W * l.fx,
			Y:          vp.H * l.fy,
			Size:       l.size,
			Color:      l.color,
			OrbitSpeed: l.orbitSpeed,
			OrbitAngle: l.orbitAngle,
		})
	}
	return planets
}

// HasRings reports whether the planet is drawn with a ring
func (p *Planet) HasRings() bool {
	return p.ID%2 == 0
}

// ToState converts to protocol state
func (p *Planet) ToState() PlanetState {
	return PlanetState{ID: p.ID, X: round1(p.X), Y: round1(p.Y), S: p.Size, C: p.Color, A: round2(p.OrbitAngle)}
}
