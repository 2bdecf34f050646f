package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestOfferLatestKeepsNewest(t *testing.T) {
	ch := make(chan int, 1)
	offerLatest(ch, 1)
	offerLatest(ch, 2)
	offerLatest(ch, 3)
	assert.Equal(t, 3, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestLoopTickPublishes(t *testing.T) {
	var frames []uint64
	l := NewLoop(LoopConfig{
		Viewport: Viewport{W: 400, H: 300},
		Rand:     NewSeededRand(1),
		OnFrame:  func(frame uint64, _ *Scene) { frames = append(frames, frame) },
		Logger:   zaptest.NewLogger(t),
	})
	for i := 1; i <= 3; i++ {
		l.Tick(float64(i) * 16)
	}
	assert.Equal(t, []uint64{1, 2, 3}, frames)
	assert.Equal(t, uint64(3), l.Scene().Frame)
}

func TestLoopApplyPotatoRebuildsScene(t *testing.T) {
	l := NewLoop(LoopConfig{Viewport: Viewport{W: 400, H: 300}, Rand: NewSeededRand(1)})
	l.Tick(16)
	l.Tick(32)

	l.applyPotato(true)
	sc := l.Scene()
	assert.True(t, sc.Potato)
	assert.Empty(t, sc.Ships)
	assert.Len(t, sc.Stars, StarCountPotato)
	assert.Equal(t, uint64(2), sc.Frame, "frame counter survives the rebuild")

	before := l.Scene()
	l.applyPotato(true)
	assert.Same(t, before, l.Scene(), "same mode is a no-op")

	l.applyPotato(false)
	assert.Len(t, l.Scene().Ships, ShipCount)
}

func TestLoopApplyResize(t *testing.T) {
	l := NewLoop(LoopConfig{Viewport: Viewport{W: 400, H: 300}, Rand: NewSeededRand(1)})
	l.applyResize(Viewport{W: -1, H: 10})
	assert.Equal(t, Viewport{W: 400, H: 300}, l.Scene().Viewport)
	l.applyResize(Viewport{W: 1024, H: 768})
	assert.Equal(t, Viewport{W: 1024, H: 768}, l.Scene().Viewport)
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var published atomic.Uint64
	reached := make(chan struct{})
	l := NewLoop(LoopConfig{
		Viewport: Viewport{W: 400, H: 300},
		OnFrame: func(frame uint64, _ *Scene) {
			if published.Add(1) == 3 {
				close(reached)
			}
		},
		Logger: zaptest.NewLogger(t),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	l.Resize(Viewport{W: 800, H: 600})
	l.SetPotato(true)

	select {
	case <-reached:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not produce frames")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	after := published.Load()
	time.Sleep(3 * FrameDuration)
	assert.Equal(t, after, published.Load(), "no frame after Run returns")
	assert.Equal(t, Viewport{W: 800, H: 600}, l.Scene().Viewport)
	assert.True(t, l.Scene().Potato)
}

func TestExploreLoopOpensAndClosesPanels(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	opened := make(chan ContentType, 1)
	closed := make(chan struct{}, 1)
	var frames atomic.Uint64
	l := NewExploreLoop(
		func(now float64, e *Explorer) { frames.Store(e.Frame) },
		func(c ContentType) { opened <- c },
		func() { closed <- struct{}{} },
		zaptest.NewLogger(t),
	)
	// start on top of the About star
	about := ContentStars[0]
	l.explorer.X, l.explorer.Y = about.X, about.Y

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case c := <-opened:
		assert.Equal(t, ContentAbout, c)
	case <-time.After(2 * time.Second):
		t.Fatal("panel did not open")
	}

	l.ClosePanel()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("panel did not close")
	}
	l.Input(InputMsg{X: 1, Y: 0})

	cancel()
	require.NoError(t, <-done)
	assert.Positive(t, frames.Load())
}
