package main

import (
	"fmt"
	"math"
)

const (
	ShipCount         = 8
	ShipMaxSpeed      = 4.0   // pixels/frame
	ShipChaseAccel    = 0.1   // pixels/frame² toward the target
	ShipEvadeAccel    = 0.15  // pixels/frame² away from the chaser
	ShipChaseMinDist  = 50.0  // chasers stop accelerating inside this distance
	ShipEvadeRange    = 200.0 // evaders react inside this distance
	ShipShootRange    = 300.0
	ShipShotCooldown  = 500.0 // ms between shots, shared by all ships
	ShipShotThreshold = 0.95  // random draw must exceed this to fire
)

var shipColors = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff00", "#ff6600"}

// Role partitions ships into pursuers and targets; fixed for a session
type Role int

const (
	RoleEvading Role = iota
	RoleChasing
)

func (r Role) String() string {
	switch r {
	case RoleEvading:
		return "evading"
	case RoleChasing:
		return "chasing"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Spaceship is an AI ship in the menu background
type Spaceship struct {
	ID        int
	X, Y      float64
	VX, VY    float64
	Rotation  float64
	Size      float64
	Color     string
	Role      Role
	TargetID  int // id of the ship being chased, valid when HasTarget
	HasTarget bool
}

// NewSpaceship places ship i of n. Even ships chase the next one, odd ships evade.
func NewSpaceship(i, n int, vp Viewport, rng Rand) *Spaceship {
	s := &Spaceship{
		ID:       i,
		X:        rng.Float64() * vp.W,
		Y:        rng.Float64() * vp.H,
		VX:       (rng.Float64() - 0.5) * 3,
		VY:       (rng.Float64() - 0.5) * 3,
		Rotation: rng.Float64() * math.Pi * 2,
		Size:     15 + rng.Float64()*10,
		Color:    shipColors[i%len(shipColors)],
		Role:     RoleEvading,
	}
	if i%2 == 0 {
		s.Role = RoleChasing
		s.TargetID = (i + 1) % n
		s.HasTarget = true
	}
	return s
}

// IsChasing reports whether the ship pursues another
func (s *Spaceship) IsChasing() bool {
	return s.Role == RoleChasing
}

// Chase steers toward target and returns the distance to it
func (s *Spaceship) Chase(target *Spaceship) float64 {
	dx := target.X - s.X
	dy := target.Y - s.Y
	nx, ny, dist := Direction(dx, dy)
	if dist > ShipChaseMinDist {
		s.VX += nx * ShipChaseAccel
		s.VY += ny * ShipChaseAccel
	}
	if dist > 0 {
		s.Rotation = math.Atan2(dy, dx)
	}
	return dist
}

// Evade steers away from chaser once it is inside ShipEvadeRange
func (s *Spaceship) Evade(chaser *Spaceship) {
	nx, ny, dist := Direction(s.X-chaser.X, s.Y-chaser.Y)
	if dist < ShipEvadeRange {
		s.VX += nx * ShipEvadeAccel
		s.VY += ny * ShipEvadeAccel
	}
	if s.VX != 0 || s.VY != 0 {
		s.Rotation = math.Atan2(s.VY, s.VX)
	}
}

// Move clamps speed, advances one frame and wraps at the viewport edges
func (s *Spaceship) Move(vp Viewport) {
	s.VX, s.VY = ClampSpeed(s.VX, s.VY, ShipMaxSpeed)
	s.X += s.VX
	s.Y += s.VY
	s.X = WrapCoord(s.X, vp.W, WrapMargin)
	s.Y = WrapCoord(s.Y, vp.H, WrapMargin)
}

// Teleport relocates the ship to a random point in the viewport
func (s *Spaceship) Teleport(vp Viewport, rng Rand) {
	s.X = rng.Float64() * vp.W
	s.Y = rng.Float64() * vp.H
}

// ToState converts to protocol state
func (s *Spaceship) ToState() ShipState {
	return ShipState{
		ID: s.ID,
		X:  round1(s.X),
		Y:  round1(s.Y),
		R:  round2(s.Rotation),
		S:  round1(s.Size),
		C:  s.Color,
		Ch: s.IsChasing(),
	}
}
