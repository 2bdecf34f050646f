package main

import "math"

const (
	LaserSpeed = 8.0 // pixels/frame
)

// Laser is a beam fired by a chasing ship. It lives until it leaves the viewport.
type Laser struct {
	ID        uint64
	X, Y      float64
	VX, VY    float64
	Color     string
	CreatedAt float64 // ms timestamp of the frame that spawned it
}

// NewLaser fires a laser from the ship's position along its heading
func NewLaser(id uint64, ship *Spaceship, now float64) *Laser {
	return &Laser{
		ID:        id,
		X:         ship.X,
		Y:         ship.Y,
		VX:        math.Cos(ship.Rotation) * LaserSpeed,
		VY:        math.Sin(ship.Rotation) * LaserSpeed,
		Color:     ship.Color,
		CreatedAt: now,
	}
}

// Update moves the laser one frame and reports whether it is still on screen
func (l *Laser) Update(vp Viewport) bool {
	l.X += l.VX
	l.Y += l.VY
	return l.X >= 0 && l.X <= vp.W && l.Y >= 0 && l.Y <= vp.H
}

// Hits reports whether the laser tip is inside the ship's radius
func (l *Laser) Hits(s *Spaceship) bool {
	return PointInCircle(l.X, l.Y, s.X, s.Y, s.Size)
}

// ToState converts to protocol state
func (l *Laser) ToState() LaserState {
	return LaserState{X: round1(l.X), Y: round1(l.Y), R: round2(math.Atan2(l.VY, l.VX)), C: l.Color}
}
