package main

// Scene holds every entity of the menu background. It is owned by a single
// goroutine (the frame loop); nothing else mutates it.
type Scene struct {
	Viewport Viewport
	Potato   bool

	Stars   []*Star
	Planets []*Planet
	Meteors []*Meteor
	Ships   []*Spaceship
	Lasers  []*Laser

	Frame uint64

	rng         Rand
	cues        CueSink
	lastShot    float64 // ms timestamp of the last laser, shared by all ships
	nextLaserID uint64
}

// NewScene creates all entities with random placement inside vp.
// Potato mode reduces counts and drops the ships entirely.
func NewScene(vp Viewport, potato bool, rng Rand, cues CueSink) *Scene {
	if rng == nil {
		rng = NewRand()
	}
	sc := &Scene{
		Viewport: vp,
		Potato:   potato,
		rng:      rng,
		cues:     cues,
	}

	starCount, shipCount, meteorCount := StarCount, ShipCount, MeteorCount
	if potato {
		starCount, shipCount, meteorCount = StarCountPotato, 0, MeteorCountPotato
	}

	sc.Stars = make([]*Star, starCount)
	for i := range sc.Stars {
		sc.Stars[i] = NewStar(i, vp, rng)
	}
	sc.Ships = make([]*Spaceship, shipCount)
	for i := range sc.Ships {
		sc.Ships[i] = NewSpaceship(i, ShipCount, vp, rng)
	}
	sc.Meteors = make([]*Meteor, meteorCount)
	for i := range sc.Meteors {
		sc.Meteors[i] = NewMeteor(i, vp, rng)
	}
	sc.Planets = NewPlanets(vp, potato)
	sc.Lasers = nil
	return sc
}

// Resize changes the bounds without touching entity state; entities outside
// the new bounds come back through the normal wrap.
func (sc *Scene) Resize(vp Viewport) {
	if !vp.Valid() {
		return
	}
	sc.Viewport = vp
}

// SetCueSink replaces the audio cue receiver
func (sc *Scene) SetCueSink(cues CueSink) {
	sc.cues = cues
}

// ship returns the ship with the given id, or nil
func (sc *Scene) ship(id int) *Spaceship {
	for _, s := range sc.Ships {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// chaserOf returns the ship targeting id, or nil
func (sc *Scene) chaserOf(id int) *Spaceship {
	for _, s := range sc.Ships {
		if s.HasTarget && s.TargetID == id {
			return s
		}
	}
	return nil
}

func (sc *Scene) emit(c Cue) {
	if sc.cues != nil {
		sc.cues.Cue(c)
	}
}

// Snapshot converts the scene to protocol state
func (sc *Scene) Snapshot() FrameState {
	fs := FrameState{
		Frame:    sc.Frame,
		Viewport: sc.Viewport,
		Potato:   sc.Potato,
		Stars:    make([]StarState, 0, len(sc.Stars)),
		Planets:  make([]PlanetState, 0, len(sc.Planets)),
		Meteors:  make([]MeteorState, 0, len(sc.Meteors)),
		Ships:    make([]ShipState, 0, len(sc.Ships)),
		Lasers:   make([]LaserState, 0, len(sc.Lasers)),
	}
	for _, s := range sc.Stars {
		fs.Stars = append(fs.Stars, s.ToState())
	}
	for _, p := range sc.Planets {
		fs.Planets = append(fs.Planets, p.ToState())
	}
	for _, m := range sc.Meteors {
		fs.Meteors = append(fs.Meteors, m.ToState())
	}
	for _, s := range sc.Ships {
		fs.Ships = append(fs.Ships, s.ToState())
	}
	for _, l := range sc.Lasers {
		fs.Lasers = append(fs.Lasers, l.ToState())
	}
	return fs
}
