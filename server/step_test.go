package main

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRand replays vals in order, then returns def forever
type scriptedRand struct {
	vals []float64
	i    int
	def  float64
}

func (r *scriptedRand) Float64() float64 {
	if r.i < len(r.vals) {
		v := r.vals[r.i]
		r.i++
		return v
	}
	return r.def
}

// cueRecorder collects cues in order
type cueRecorder struct {
	mu   sync.Mutex
	cues []Cue
}

func (r *cueRecorder) Cue(c Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, c)
}

func (r *cueRecorder) count(c Cue) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.cues {
		if got == c {
			n++
		}
	}
	return n
}

func testScene(vp Viewport, rng Rand, cues CueSink, ships ...*Spaceship) *Scene {
	return &Scene{Viewport: vp, Ships: ships, rng: rng, cues: cues}
}

func chaser(id, target int, x, y float64) *Spaceship {
	return &Spaceship{ID: id, X: x, Y: y, Size: 20, Color: "#00ffff", Role: RoleChasing, TargetID: target, HasTarget: true}
}

func evader(id int, x, y float64) *Spaceship {
	return &Spaceship{ID: id, X: x, Y: y, Size: 20, Color: "#ff00ff", Role: RoleEvading}
}

func TestStepChaserSteersTowardDistantTarget(t *testing.T) {
	a := chaser(0, 1, 100, 300)
	b := evader(1, 500, 300)
	sc := testScene(Viewport{W: 1280, H: 720}, &scriptedRand{def: 0.99}, nil, a, b)

	sc.Step(1000)

	assert.Greater(t, a.VX, 0.0, "A should accelerate toward B")
	assert.InDelta(t, 0, a.VY, 1e-9)
	assert.InDelta(t, ShipChaseAccel, math.Hypot(a.VX, a.VY), 1e-9)
	assert.Zero(t, b.VX, "B is outside the evasion range")
	assert.Zero(t, b.VY)
	assert.Empty(t, sc.Lasers, "400px is out of firing range")
}

func TestStepEvaderFleesInsideRange(t *testing.T) {
	a := chaser(0, 1, 100, 300)
	b := evader(1, 250, 300)
	sc := testScene(Viewport{W: 1280, H: 720}, &scriptedRand{def: 0}, nil, a, b)

	sc.Step(0)

	assert.InDelta(t, ShipEvadeAccel, b.VX, 1e-9)
	assert.InDelta(t, 0, b.VY, 1e-9)
	assert.InDelta(t, 0, b.Rotation, 1e-9)
}

func TestStepChaserHoldsInsideMinDistance(t *testing.T) {
	a := chaser(0, 1, 100, 300)
	b := evader(1, 130, 300)
	sc := testScene(Viewport{W: 1280, H: 720}, &scriptedRand{def: 0}, nil, a, b)

	sc.Step(0)

	assert.Zero(t, a.VX)
	assert.Zero(t, a.VY)
}

func TestStepDanglingTargetIsSkipped(t *testing.T) {
	a := chaser(0, 42, 100, 100)
	a.VX = 1
	sc := testScene(Viewport{W: 800, H: 600}, &scriptedRand{def: 0.99}, nil, a)

	require.NotPanics(t, func() { sc.Step(10000) })
	assert.Equal(t, 101.0, a.X, "ship still moves on its own velocity")
	assert.Empty(t, sc.Lasers)
}

func TestStepSpeedNeverExceedsMax(t *testing.T) {
	sc := NewScene(Viewport{W: 1280, H: 720}, false, NewSeededRand(7), nil)
	for i := 1; i <= 3000; i++ {
		sc.Step(float64(i) * 1000 / FrameRate)
		for _, s := range sc.Ships {
			speed := math.Hypot(s.VX, s.VY)
			require.LessOrEqualf(t, speed, ShipMaxSpeed+1e-9, "ship %d at frame %d", s.ID, i)
		}
	}
}

func TestStepKeepsEntitiesInWrapBounds(t *testing.T) {
	for _, potato := range []bool{false, true} {
		vp := Viewport{W: 640, H: 480}
		sc := NewScene(vp, potato, NewSeededRand(99), nil)
		for i := 1; i <= 5000; i++ {
			sc.Step(float64(i) * 1000 / FrameRate)

			inBounds := func(kind string, id int, x, y float64) {
				require.Truef(t, x >= -WrapMargin && x <= vp.W+WrapMargin && y >= -WrapMargin && y <= vp.H+WrapMargin,
					"%s %d out of bounds at frame %d: (%.1f, %.1f) potato=%v", kind, id, i, x, y, potato)
			}
			for _, m := range sc.Meteors {
				inBounds("meteor", m.ID, m.X, m.Y)
			}
			for _, s := range sc.Ships {
				inBounds("ship", s.ID, s.X, s.Y)
			}
			for _, s := range sc.Stars {
				inBounds("star", s.ID, s.X, s.Y)
			}
			for _, l := range sc.Lasers {
				inBounds("laser", int(l.ID), l.X, l.Y)
			}
		}
	}
}

func TestStepLaserSpawnsRespectCooldown(t *testing.T) {
	a := chaser(0, 1, 100, 300)
	b := evader(1, 200, 300)
	cues := &cueRecorder{}
	// every draw clears the threshold, so only the cooldown limits firing
	sc := testScene(Viewport{W: 1280, H: 720}, &scriptedRand{def: 0.99}, cues, a, b)

	var spawns []float64
	seen := 0
	for i := 1; i <= 600; i++ {
		now := float64(i) * 1000 / FrameRate
		// keep the pair close so range never blocks a shot
		a.X, a.Y, b.X, b.Y = 100, 300, 200, 300
		sc.Step(now)
		if n := cues.count(CueLaser); n > seen {
			require.Equal(t, seen+1, n, "at most one laser per frame")
			seen = n
			spawns = append(spawns, now)
		}
	}

	require.GreaterOrEqual(t, len(spawns), 5)
	for i := 1; i < len(spawns); i++ {
		assert.GreaterOrEqualf(t, spawns[i]-spawns[i-1], ShipShotCooldown, "spawn %d", i)
	}
}

func TestStepRandomDrawOnlyForEligibleShips(t *testing.T) {
	a := chaser(0, 1, 100, 300)
	b := evader(1, 600, 300) // out of range
	rng := &scriptedRand{vals: []float64{0.99}, def: 0.99}
	sc := testScene(Viewport{W: 1280, H: 720}, rng, nil, a, b)

	sc.Step(1000)

	assert.Zero(t, rng.i, "no draw consumed when the target is out of range")
	assert.Empty(t, sc.Lasers)
}

func TestStepLaserDrawMustExceedThreshold(t *testing.T) {
	a := chaser(0, 1, 100, 300)
	b := evader(1, 200, 300)
	sc := testScene(Viewport{W: 1280, H: 720}, &scriptedRand{vals: []float64{ShipShotThreshold}, def: 0}, nil, a, b)

	sc.Step(1000)

	assert.Empty(t, sc.Lasers, "a draw equal to the threshold does not fire")
}

func TestLaserHitTeleportsEvader(t *testing.T) {
	vp := Viewport{W: 1000, H: 800}
	b := evader(1, 200, 200)
	cues := &cueRecorder{}
	sc := testScene(vp, &scriptedRand{def: 0.5}, cues, chaser(0, 1, 100, 200), b)
	sc.Lasers = []*Laser{{ID: 1, X: 185, Y: 200, VX: LaserSpeed}}

	sc.updateLasers()

	assert.Equal(t, 500.0, b.X)
	assert.Equal(t, 400.0, b.Y)
	assert.Equal(t, 1, cues.count(CueExplosion))
	require.Len(t, sc.Lasers, 1, "the laser keeps flying after a hit")
	assert.Equal(t, 193.0, sc.Lasers[0].X)
}

func TestLaserMissLeavesEvaderInPlace(t *testing.T) {
	vp := Viewport{W: 1000, H: 800}
	b := evader(1, 200, 200)
	cues := &cueRecorder{}
	sc := testScene(vp, &scriptedRand{def: 0.5}, cues, b)
	sc.Lasers = []*Laser{{ID: 1, X: 100, Y: 600, VX: LaserSpeed}}

	sc.updateLasers()

	assert.Equal(t, 200.0, b.X)
	assert.Equal(t, 200.0, b.Y)
	assert.Zero(t, cues.count(CueExplosion))
}

func TestLaserNeverHitsChasers(t *testing.T) {
	a := chaser(0, 1, 200, 200)
	sc := testScene(Viewport{W: 1000, H: 800}, &scriptedRand{def: 0.5}, nil, a)
	sc.Lasers = []*Laser{{ID: 1, X: 195, Y: 200, VX: 1}}

	sc.updateLasers()

	assert.Equal(t, 200.0, a.X)
}

func TestLaserRemovedOffScreen(t *testing.T) {
	sc := testScene(Viewport{W: 100, H: 100}, &scriptedRand{}, nil)
	sc.Lasers = []*Laser{
		{ID: 1, X: 95, Y: 50, VX: LaserSpeed},
		{ID: 2, X: 50, Y: 50, VX: LaserSpeed},
	}

	sc.updateLasers()

	require.Len(t, sc.Lasers, 1)
	assert.Equal(t, uint64(2), sc.Lasers[0].ID)
}

func TestMeteorFallsBackToTop(t *testing.T) {
	vp := Viewport{W: 400, H: 300}
	m := &Meteor{X: 100, Y: vp.H + WrapMargin, VY: 1}
	m.Update(vp, false, &scriptedRand{def: 0.25})

	assert.Equal(t, -WrapMargin, m.Y)
	assert.Equal(t, 100.0, m.X, "new column drawn from the random source")
}

func TestMeteorPotatoSkipsRotation(t *testing.T) {
	m := &Meteor{X: 10, Y: 10, RotationSpeed: 0.02, Rotation: 1}
	m.Update(Viewport{W: 400, H: 300}, true, &scriptedRand{})
	assert.Equal(t, 1.0, m.Rotation)
}

func TestSteeringKeepsHeadingWithoutDirection(t *testing.T) {
	a := chaser(0, 1, 200, 200)
	b := evader(1, 200, 200)
	a.Rotation, b.Rotation = 1.25, -2.5

	dist := a.Chase(b)
	b.Evade(a)

	assert.Zero(t, dist)
	assert.Equal(t, 1.25, a.Rotation, "coincident target leaves heading alone")
	assert.Equal(t, -2.5, b.Rotation, "stationary evader leaves heading alone")

	b.X = 300
	b.Evade(a)
	a.Chase(b)
	assert.InDelta(t, 0, b.Rotation, 1e-9)
	assert.InDelta(t, 0, a.Rotation, 1e-9)
}
