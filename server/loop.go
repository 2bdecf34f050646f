package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	FrameRate     = 60 // simulation frames per second
	PublishRate   = 30 // snapshots per second sent to viewers
	FrameDuration = time.Second / FrameRate
	PublishEvery  = FrameRate / PublishRate
)

// FrameFunc receives the scene after each frame. It runs on the loop
// goroutine and must not retain sc.
type FrameFunc func(frame uint64, sc *Scene)

// LoopConfig wires a Loop
type LoopConfig struct {
	Viewport Viewport
	Potato   bool
	Rand     Rand
	Cues     CueSink
	Renderer *Renderer // optional
	OnFrame  FrameFunc // optional
	Logger   *zap.Logger
}

// Loop owns a Scene and advances it at FrameRate. All scene mutation,
// including resize and potato toggles, happens on the Run goroutine.
type Loop struct {
	scene    *Scene
	cfg      LoopConfig
	log      *zap.Logger
	resizeCh chan Viewport
	potatoCh chan bool
	start    time.Time
}

// NewLoop builds the scene for cfg. Run starts it.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Rand == nil {
		cfg.Rand = NewRand()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		scene:    NewScene(cfg.Viewport, cfg.Potato, cfg.Rand, cfg.Cues),
		cfg:      cfg,
		log:      log.Named("loop"),
		resizeCh: make(chan Viewport, 1),
		potatoCh: make(chan bool, 1),
	}
}

// Resize queues a viewport change; only the latest pending value is kept
func (l *Loop) Resize(vp Viewport) {
	offerLatest(l.resizeCh, vp)
}

// SetPotato queues a reduced-effects toggle
func (l *Loop) SetPotato(on bool) {
	offerLatest(l.potatoCh, on)
}

func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Run advances the scene until ctx is cancelled. Cancellation is the only
// way to stop it; no frame is produced after Run returns.
func (l *Loop) Run(ctx context.Context) error {
	l.start = time.Now()
	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	l.log.Debug("loop started",
		zap.Float64("w", l.scene.Viewport.W),
		zap.Float64("h", l.scene.Viewport.H),
		zap.Bool("potato", l.scene.Potato))

	for {
		select {
		case <-ctx.Done():
			l.log.Debug("loop stopped", zap.Uint64("frames", l.scene.Frame))
			return nil
		case vp := <-l.resizeCh:
			l.applyResize(vp)
		case on := <-l.potatoCh:
			l.applyPotato(on)
		case t := <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			l.Tick(float64(t.Sub(l.start)) / float64(time.Millisecond))
		}
	}
}

// Tick runs a single frame at timestamp now (ms). Run calls it from the
// ticker; headless rendering calls it directly with synthetic timestamps.
func (l *Loop) Tick(now float64) {
	l.scene.Step(now)
	if l.cfg.Renderer != nil {
		l.cfg.Renderer.Draw(l.scene)
	}
	if l.cfg.OnFrame != nil {
		l.cfg.OnFrame(l.scene.Frame, l.scene)
	}
}

// Scene exposes the owned scene. Only safe to use when Run is not running.
func (l *Loop) Scene() *Scene {
	return l.scene
}

func (l *Loop) applyResize(vp Viewport) {
	if !vp.Valid() {
		l.log.Debug("ignoring invalid viewport", zap.Float64("w", vp.W), zap.Float64("h", vp.H))
		return
	}
	l.scene.Resize(vp)
}

// applyPotato rebuilds the scene; entity counts differ between modes
func (l *Loop) applyPotato(on bool) {
	if on == l.scene.Potato {
		return
	}
	frame := l.scene.Frame
	l.scene = NewScene(l.scene.Viewport, on, l.cfg.Rand, l.cfg.Cues)
	l.scene.Frame = frame
	l.log.Debug("potato mode toggled", zap.Bool("on", on))
}

// ExploreLoop drives an Explorer at FrameRate. Input and panel close
// requests arrive on channels and are applied on the Run goroutine.
type ExploreLoop struct {
	explorer *Explorer
	inputCh  chan InputMsg
	closeCh  chan struct{}
	onFrame  func(now float64, e *Explorer)
	onOpen   func(c ContentType)
	onClose  func()
	log      *zap.Logger
}

// NewExploreLoop wires the callbacks; any may be nil
func NewExploreLoop(onFrame func(now float64, e *Explorer), onOpen func(ContentType), onClose func(), log *zap.Logger) *ExploreLoop {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExploreLoop{
		explorer: NewExplorer(),
		inputCh:  make(chan InputMsg, 1),
		closeCh:  make(chan struct{}, 1),
		onFrame:  onFrame,
		onOpen:   onOpen,
		onClose:  onClose,
		log:      log.Named("explore"),
	}
}

// Input queues the latest pilot direction
func (l *ExploreLoop) Input(in InputMsg) {
	offerLatest(l.inputCh, in)
}

// ClosePanel queues a panel dismissal
func (l *ExploreLoop) ClosePanel() {
	offerLatest(l.closeCh, struct{}{})
}

// Run advances the explorer until ctx is cancelled
func (l *ExploreLoop) Run(ctx context.Context) error {
	start := time.Now()
	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	var now float64
	for {
		select {
		case <-ctx.Done():
			return nil
		case in := <-l.inputCh:
			l.explorer.SetInput(in.X, in.Y, in.Joystick)
		case <-l.closeCh:
			if _, open := l.explorer.Open(); open {
				l.explorer.Close(now)
				if l.onClose != nil {
					l.onClose()
				}
			}
		case t := <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			now = float64(t.Sub(start)) / float64(time.Millisecond)
			if c, opened := l.explorer.Step(now); opened {
				l.log.Debug("panel opened", zap.Stringer("content", c))
				if l.onOpen != nil {
					l.onOpen(c)
				}
			}
			if l.onFrame != nil {
				l.onFrame(now, l.explorer)
			}
		}
	}
}
