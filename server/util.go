package main

import (
	"crypto/rand"
	"encoding/binary"
	"math"
)

// Rand is the random source the simulation draws from.
// Tests substitute a scripted source to make spawns deterministic.
type Rand interface {
	Float64() float64
}

// xorshift is a small non-crypto PRNG seeded from crypto/rand
type xorshift struct {
	state uint64
}

// NewRand returns a seeded xorshift source
func NewRand() Rand {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return NewSeededRand(binary.LittleEndian.Uint64(b))
}

// NewSeededRand returns a xorshift source with a fixed seed
func NewSeededRand(seed uint64) Rand {
	if seed == 0 {
		seed = 1
	}
	return &xorshift{state: seed}
}

// Float64 returns a value in [0, 1)
func (x *xorshift) Float64() float64 {
	x.state ^= x.state << 13
	x.state ^= x.state >> 7
	x.state ^= x.state << 17
	return float64(x.state>>11) / (1 << 53)
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// Direction returns the unit vector of (dx, dy) and its length.
// A zero-length vector yields (0, 0, 0) instead of NaN.
func Direction(dx, dy float64) (nx, ny, length float64) {
	length = math.Hypot(dx, dy)
	if length == 0 {
		return 0, 0, 0
	}
	return dx / length, dy / length, length
}

// ClampSpeed rescales (vx, vy) so its magnitude is at most max
func ClampSpeed(vx, vy, max float64) (float64, float64) {
	speed := math.Hypot(vx, vy)
	if speed > max {
		scale := max / speed
		return vx * scale, vy * scale
	}
	return vx, vy
}

// WrapCoord teleports v to the opposite side once it leaves [-margin, size+margin]
func WrapCoord(v, size, margin float64) float64 {
	if v < -margin {
		return size + margin
	}
	if v > size+margin {
		return -margin
	}
	return v
}
