package main

import "math"

const (
	WorldSize           = 2000.0
	ExploreSpeed        = 5.0
	ExploreFriction     = 0.95
	ContentStarRadius   = 60.0
	InteractionCooldown = 1500.0 // ms after closing a panel before another can open
	keyboardGain        = 0.1
	joystickGain        = 0.15
	joystickDeadzone    = 0.1
)

// ContentStar is a fixed world point that opens a panel
type ContentStar struct {
	Content ContentType `json:"content"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Hue     float64     `json:"-"`
	Sat     float64     `json:"-"`
	Light   float64     `json:"-"`
	Color   string      `json:"color"`
}

// ContentStars lists the world's interactive stars in collision priority
var ContentStars = []ContentStar{
	{Content: ContentAbout, X: -300, Y: -200, Hue: 180, Sat: 1, Light: 0.5},
	{Content: ContentSkills, X: 300, Y: -300, Hue: 320, Sat: 1, Light: 0.6},
	{Content: ContentGames, X: -400, Y: 200, Hue: 35, Sat: 1, Light: 0.55},
	{Content: ContentWeb, X: 400, Y: 100, Hue: 270, Sat: 0.8, Light: 0.5},
	{Content: ContentCertificates, X: 0, Y: 400, Hue: 150, Sat: 1, Light: 0.45},
	{Content: ContentSocial, X: -200, Y: -450, Hue: 200, Sat: 1, Light: 0.5},
}

func init() {
	for i := range ContentStars {
		s := &ContentStars[i]
		s.Color = hslHex(s.Hue, s.Sat, s.Light)
	}
}

// WorldInfo is the static description served to explore clients
type WorldInfo struct {
	Size     float64       `json:"size"`
	Radius   float64       `json:"radius"`
	Cooldown float64       `json:"cooldownMs"`
	Stars    []ContentStar `json:"stars"`
}

// World returns the static world description
func World() WorldInfo {
	return WorldInfo{
		Size:     WorldSize,
		Radius:   ContentStarRadius,
		Cooldown: InteractionCooldown,
		Stars:    ContentStars,
	}
}

// Explorer is the visitor's ship in the explorable world. The origin is
// the world centre; position is clamped to ±WorldSize/2.
type Explorer struct {
	X, Y     float64
	VX, VY   float64
	Rotation float64 // radians, 0 points up

	open       *ContentType
	cooldownTo float64 // ms timestamp when interaction is allowed again
	inX, inY   float64
	joystick   bool
	Frame      uint64
}

// NewExplorer places the ship at the world centre
func NewExplorer() *Explorer {
	return &Explorer{}
}

// SetInput records the current pilot direction. Keyboard input is
// normalised; joystick input is used as is past a small deadzone.
func (e *Explorer) SetInput(x, y float64, joystick bool) {
	e.inX = Clamp(x, -1, 1)
	e.inY = Clamp(y, -1, 1)
	e.joystick = joystick
}

// Open returns the panel currently open, if any
func (e *Explorer) Open() (ContentType, bool) {
	if e.open == nil {
		return 0, false
	}
	return *e.open, true
}

// CanInteract reports whether touching a star at now would open it
func (e *Explorer) CanInteract(now float64) bool {
	return e.open == nil && now >= e.cooldownTo
}

// Step advances one frame at timestamp now (ms). It returns the content
// that opened this frame, if any.
func (e *Explorer) Step(now float64) (ContentType, bool) {
	e.Frame++

	if e.open == nil {
		e.steer()
	}

	e.VX *= ExploreFriction
	e.VY *= ExploreFriction
	half := WorldSize / 2
	e.X = Clamp(e.X+e.VX, -half, half)
	e.Y = Clamp(e.Y+e.VY, -half, half)

	if !e.CanInteract(now) {
		return 0, false
	}
	for i := range ContentStars {
		s := &ContentStars[i]
		if PointInCircle(e.X, e.Y, s.X, s.Y, ContentStarRadius) {
			c := s.Content
			e.open = &c
			return c, true
		}
	}
	return 0, false
}

func (e *Explorer) steer() {
	dx, dy := e.inX, e.inY
	if e.joystick {
		if math.Abs(dx) <= joystickDeadzone && math.Abs(dy) <= joystickDeadzone {
			return
		}
		e.VX += dx * ExploreSpeed * joystickGain
		e.VY += dy * ExploreSpeed * joystickGain
	} else {
		var l float64
		dx, dy, l = Direction(dx, dy)
		if l == 0 {
			return
		}
		e.VX += dx * ExploreSpeed * keyboardGain
		e.VY += dy * ExploreSpeed * keyboardGain
	}
	e.Rotation = math.Atan2(dy, dx) + math.Pi/2
}

// Close dismisses the open panel and starts the interaction cooldown.
// Closing with nothing open is a no-op.
func (e *Explorer) Close(now float64) {
	if e.open == nil {
		return
	}
	e.open = nil
	e.cooldownTo = now + InteractionCooldown
}

// ToState converts to protocol state
func (e *Explorer) ToState(now float64) ExploreState {
	st := ExploreState{
		X:       round1(e.X),
		Y:       round1(e.Y),
		R:       round2(e.Rotation),
		CanOpen: e.CanInteract(now),
		Frame:   e.Frame,
	}
	if c, ok := e.Open(); ok {
		st.Open = c.String()
	}
	return st
}
