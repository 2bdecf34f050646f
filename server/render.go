package main

import (
	"image"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	trailFill   = color.NRGBA{R: 10, G: 10, B: 30, A: 77} // rgba(10,10,30,0.3)
	transparent = color.NRGBA{}
	meteorHot   = mustHex("#ffcc00")
	meteorMid   = mustHex("#ff6600")
	meteorCool  = mustHex("#993300")
)

// Renderer draws a Scene onto a persistent raster. The surface is never
// cleared, only dimmed, which leaves motion trails behind moving entities.
type Renderer struct {
	mu sync.Mutex
	dc *gg.Context
	vp Viewport
}

// NewRenderer allocates a surface for vp
func NewRenderer(vp Viewport) *Renderer {
	r := &Renderer{}
	r.resize(vp)
	return r
}

func (r *Renderer) resize(vp Viewport) {
	w, h := int(math.Ceil(vp.W)), int(math.Ceil(vp.H))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	r.dc = gg.NewContext(w, h)
	r.vp = vp
}

// Draw paints one frame of sc
func (r *Renderer) Draw(sc *Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sc.Viewport != r.vp {
		r.resize(sc.Viewport)
	}
	dc := r.dc

	dc.SetColor(trailFill)
	dc.DrawRectangle(0, 0, sc.Viewport.W, sc.Viewport.H)
	dc.Fill()

	for _, s := range sc.Stars {
		drawStar(dc, s, sc.Potato)
	}
	for _, p := range sc.Planets {
		drawPlanet(dc, p, sc.Potato)
	}
	for _, m := range sc.Meteors {
		drawMeteor(dc, m, sc.Potato)
	}
	for _, s := range sc.Ships {
		drawShip(dc, s)
	}
	for _, l := range sc.Lasers {
		drawLaser(dc, l)
	}
}

// Image returns the current surface
func (r *Renderer) Image() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dc.Image()
}

// PNG encodes the current surface
func (r *Renderer) PNG(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dc.EncodePNG(w)
}

func drawStar(dc *gg.Context, s *Star, potato bool) {
	opacity := s.Opacity
	if potato {
		opacity = StarOpacityPotato
	}
	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: alpha8(opacity)})
	dc.DrawCircle(s.X, s.Y, s.Size)
	dc.Fill()
}

func drawPlanet(dc *gg.Context, p *Planet, potato bool) {
	base := mustHex(p.Color)

	if !potato {
		glow := gg.NewRadialGradient(p.X, p.Y, 0, p.X, p.Y, p.Size*1.5)
		glow.AddColorStop(0, base)
		glow.AddColorStop(0.5, withAlpha(base, 0x80))
		glow.AddColorStop(1, transparent)
		dc.SetFillStyle(glow)
		dc.DrawCircle(p.X, p.Y, p.Size*1.5)
		dc.Fill()
	}

	dc.SetColor(base)
	dc.DrawCircle(p.X, p.Y, p.Size)
	dc.Fill()

	if !potato && p.HasRings() {
		dc.Push()
		dc.Translate(p.X, p.Y)
		dc.Rotate(0.3)
		dc.Scale(1, 0.3)
		dc.DrawCircle(0, 0, p.Size*1.4)
		dc.Pop()
		dc.SetColor(withAlpha(base, 0x80))
		dc.SetLineWidth(3)
		dc.Stroke()
	}
}

func drawMeteor(dc *gg.Context, m *Meteor, potato bool) {
	dc.Push()
	defer dc.Pop()
	dc.Translate(m.X, m.Y)
	dc.Rotate(m.Rotation)

	if potato {
		dc.SetColor(meteorMid)
		dc.DrawCircle(0, 0, m.Size/2)
		dc.Fill()
		return
	}

	// gg samples gradients in device space, so endpoints go through the
	// current transform
	x0, y0 := dc.TransformPoint(0, 0)
	x1, y1 := dc.TransformPoint(-m.Size*2, -m.Size)
	tail := gg.NewLinearGradient(x0, y0, x1, y1)
	tail.AddColorStop(0, meteorMid)
	tail.AddColorStop(1, transparent)
	dc.MoveTo(0, 0)
	dc.LineTo(-m.Size*2, -m.Size*0.5)
	dc.LineTo(-m.Size*1.5, 0)
	dc.ClosePath()
	dc.SetFillStyle(tail)
	dc.Fill()

	body := gg.NewRadialGradient(x0, y0, 0, x0, y0, m.Size/2)
	body.AddColorStop(0, meteorHot)
	body.AddColorStop(0.5, meteorMid)
	body.AddColorStop(1, meteorCool)
	dc.SetFillStyle(body)
	dc.DrawCircle(0, 0, m.Size/2)
	dc.Fill()
}

func drawShip(dc *gg.Context, s *Spaceship) {
	base := mustHex(s.Color)

	dc.Push()
	defer dc.Pop()
	dc.Translate(s.X, s.Y)
	dc.Rotate(s.Rotation)

	ex, ey := dc.TransformPoint(-s.Size, 0)
	engine := gg.NewRadialGradient(ex, ey, 0, ex, ey, s.Size)
	engine.AddColorStop(0, base)
	engine.AddColorStop(1, transparent)
	dc.SetFillStyle(engine)
	dc.DrawCircle(-s.Size, 0, s.Size*0.8)
	dc.Fill()

	dc.MoveTo(s.Size, 0)
	dc.LineTo(-s.Size*0.7, -s.Size*0.5)
	dc.LineTo(-s.Size*0.4, 0)
	dc.LineTo(-s.Size*0.7, s.Size*0.5)
	dc.ClosePath()
	dc.SetColor(base)
	dc.FillPreserve()
	dc.SetColor(color.White)
	dc.SetLineWidth(1)
	dc.Stroke()
}

func drawLaser(dc *gg.Context, l *Laser) {
	dc.Push()
	defer dc.Pop()
	dc.Translate(l.X, l.Y)
	dc.Rotate(math.Atan2(l.VY, l.VX))

	x0, y0 := dc.TransformPoint(-20, 0)
	x1, y1 := dc.TransformPoint(10, 0)
	beam := gg.NewLinearGradient(x0, y0, x1, y1)
	beam.AddColorStop(0, transparent)
	beam.AddColorStop(0.5, mustHex(l.Color))
	beam.AddColorStop(1, color.White)
	dc.MoveTo(-20, 0)
	dc.LineTo(10, 0)
	dc.SetStrokeStyle(beam)
	dc.SetLineWidth(3)
	dc.Stroke()
}

var (
	hexMu    sync.RWMutex
	hexCache = map[string]color.NRGBA{}
)

// mustHex parses a #rrggbb colour, falling back to white for malformed input.
// Entity colours come from fixed tables so the fallback only guards typos.
func mustHex(s string) color.NRGBA {
	hexMu.RLock()
	c, ok := hexCache[s]
	hexMu.RUnlock()
	if ok {
		return c
	}
	parsed, err := colorful.Hex(s)
	if err != nil {
		c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	} else {
		r, g, b := parsed.RGB255()
		c = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	hexMu.Lock()
	hexCache[s] = c
	hexMu.Unlock()
	return c
}

func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

func alpha8(v float64) uint8 {
	return uint8(math.Round(Clamp(v, 0, 1) * 255))
}

// hslHex converts hue in degrees, saturation and lightness in [0, 1] to #rrggbb
func hslHex(h, s, l float64) string {
	return colorful.Hsl(h, s, l).Clamped().Hex()
}
