package main

import "math"

const (
	MeteorCount       = 12
	MeteorCountPotato = 3
	WrapMargin        = 50.0 // overshoot before an entity teleports to the other edge
)

// Meteor drifts downward across the screen and wraps at the edges
type Meteor struct {
	ID            int
	X, Y          float64
	VX, VY        float64
	Size          float64
	Rotation      float64
	RotationSpeed float64
}

// NewMeteor places a meteor at a random point with a downward drift
func NewMeteor(id int, vp Viewport, rng Rand) *Meteor {
	return &Meteor{
		ID:            id,
		X:             rng.Float64() * vp.W,
		Y:             rng.Float64() * vp.H,
		VX:            (rng.Float64() - 0.5) * 2,
		VY:            rng.Float64()*1.5 + 0.5,
		Size:          10 + rng.Float64()*25,
		Rotation:      rng.Float64() * math.Pi * 2,
		RotationSpeed: (rng.Float64() - 0.5) * 0.05,
	}
}

// Update moves the meteor one frame. Falling off the bottom re-enters at
// the top at a random column.
func (m *Meteor) Update(vp Viewport, potato bool, rng Rand) {
	m.X += m.VX
	m.Y += m.VY
	if !potato {
		m.Rotation += m.RotationSpeed
	}

	m.X = WrapCoord(m.X, vp.W, WrapMargin)
	if m.Y > vp.H+WrapMargin {
		m.Y = -WrapMargin
		m.X = rng.Float64() * vp.W
	} else if m.Y < -WrapMargin {
		m.Y = vp.H + WrapMargin
	}
}

// ToState converts to protocol state
func (m *Meteor) ToState() MeteorState {
	return MeteorState{X: round1(m.X), Y: round1(m.Y), S: round1(m.Size), R: round2(m.Rotation)}
}
