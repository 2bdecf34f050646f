package main

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"go.uber.org/zap"
)

// Cue names a sound the UI or the simulation asks for
type Cue int

const (
	CueHover Cue = iota
	CueClick
	CueCollision
	CueLaser
	CueExplosion
	CueDialogSystem
	CueDialogAI
	CueDialogNarrator
	CueTypingSystem
	CueTypingAI
	CueTypingNarrator
	CueAmbient
	cueCount
)

var cueNames = [cueCount]string{
	CueHover:          "hover",
	CueClick:          "click",
	CueCollision:      "collision",
	CueLaser:          "laser",
	CueExplosion:      "explosion",
	CueDialogSystem:   "dialog-system",
	CueDialogAI:       "dialog-ai",
	CueDialogNarrator: "dialog-narrator",
	CueTypingSystem:   "typing-system",
	CueTypingAI:       "typing-ai",
	CueTypingNarrator: "typing-narrator",
	CueAmbient:        "ambient",
}

func (c Cue) String() string {
	if c < 0 || c >= cueCount {
		return fmt.Sprintf("Cue(%d)", int(c))
	}
	return cueNames[c]
}

// ErrUnknownCue is returned when parsing an unrecognised cue name
var ErrUnknownCue = errors.New("unknown sound cue")

// ParseCue maps a cue name back to its Cue
func ParseCue(name string) (Cue, error) {
	for i, n := range cueNames {
		if n == name {
			return Cue(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCue, name)
}

// AllCues lists every cue in declaration order
func AllCues() []Cue {
	cues := make([]Cue, cueCount)
	for i := range cues {
		cues[i] = Cue(i)
	}
	return cues
}

// CueSink receives fire-and-forget sound requests. Implementations must not block.
type CueSink interface {
	Cue(c Cue)
}

// CueFunc adapts a function to CueSink
type CueFunc func(c Cue)

func (f CueFunc) Cue(c Cue) { f(c) }

// Output plays a rendered streamer somewhere (a timeline, a speaker)
type Output interface {
	Play(s beep.Streamer)
}

// ErrAudioClosed is returned after the sound bank has been torn down
var ErrAudioClosed = errors.New("audio closed")

// SoundBank is the process-wide audio context. It is created once and passed
// by reference; synthesis happens lazily on the first Init and Close may be
// called any number of times.
type SoundBank struct {
	cfg AudioConfig
	log *zap.Logger

	once    sync.Once
	initErr error

	mu     sync.RWMutex
	wavs   map[Cue][]byte
	out    Output
	volume float64

	ready  atomic.Bool
	closed atomic.Bool
	muted  atomic.Bool
}

// NewSoundBank creates an uninitialised bank; nothing is synthesised yet
func NewSoundBank(cfg AudioConfig, log *zap.Logger) *SoundBank {
	if log == nil {
		log = zap.NewNop()
	}
	b := &SoundBank{
		cfg:    cfg,
		log:    log.Named("audio"),
		volume: Clamp(cfg.Volume, 0, 1),
	}
	b.muted.Store(cfg.Muted)
	return b
}

// Init synthesises every cue once. Later calls return the first result.
func (b *SoundBank) Init() error {
	if b.closed.Load() {
		return ErrAudioClosed
	}
	b.once.Do(func() {
		start := time.Now()
		rendered := make(map[Cue][]byte, cueCount)
		for _, c := range AllCues() {
			data, err := b.encode(c)
			if err != nil {
				b.initErr = fmt.Errorf("render %s: %w", c, err)
				b.log.Error("sound bank init failed", zap.Error(b.initErr))
				return
			}
			rendered[c] = data
		}
		b.mu.Lock()
		b.wavs = rendered
		b.mu.Unlock()
		b.ready.Store(true)
		b.log.Info("sound bank ready",
			zap.Int("cues", len(rendered)),
			zap.Duration("took", time.Since(start)))
	})
	return b.initErr
}

// Ready reports whether Init has completed and Close has not been called
func (b *SoundBank) Ready() bool {
	return b.ready.Load() && !b.closed.Load()
}

// WAV returns the encoded cue, initialising the bank on first use
func (b *SoundBank) WAV(c Cue) ([]byte, error) {
	if c < 0 || c >= cueCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCue, int(c))
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return nil, ErrAudioClosed
	}
	return b.wavs[c], nil
}

// SetOutput attaches where Cue plays to; nil detaches
func (b *SoundBank) SetOutput(out Output) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out = out
}

// SetVolume sets the master volume, clamped to [0, 1]
func (b *SoundBank) SetVolume(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = Clamp(v, 0, 1)
}

// SetMuted mutes or unmutes playback
func (b *SoundBank) SetMuted(m bool) {
	b.muted.Store(m)
}

// Cue plays c on the attached output. Before Init, after Close, while muted
// or without an output this is a silent no-op.
func (b *SoundBank) Cue(c Cue) {
	if !b.Ready() || b.muted.Load() {
		return
	}
	b.mu.RLock()
	out, vol := b.out, b.volume
	b.mu.RUnlock()
	if out == nil {
		return
	}
	s := synthCue(c, b.rate())
	if s == nil {
		b.log.Warn("no synthesis for cue", zap.Stringer("cue", c))
		return
	}
	out.Play(newVolume(s, vol))
}

// Close releases the rendered cues. Safe to call more than once.
func (b *SoundBank) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.mu.Lock()
	b.wavs = nil
	b.out = nil
	b.mu.Unlock()
	b.log.Debug("sound bank closed")
}

func (b *SoundBank) rate() beep.SampleRate {
	return beep.SampleRate(b.cfg.SampleRate)
}

func (b *SoundBank) format() beep.Format {
	return beep.Format{SampleRate: b.rate(), NumChannels: 2, Precision: 2}
}

func (b *SoundBank) encode(c Cue) ([]byte, error) {
	s := synthCue(c, b.rate())
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCue, c)
	}
	var buf seekBuffer
	if err := wav.Encode(&buf, s, b.format()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Timeline collects cues at frame times and mixes them into one track.
// It is the Output used when rendering the menu headless.
type Timeline struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	mixer  *beep.Mixer
	cursor int
	played int
}

// NewTimeline creates an empty track at rate
func NewTimeline(rate beep.SampleRate) *Timeline {
	return &Timeline{rate: rate, mixer: &beep.Mixer{}}
}

// Advance moves the write cursor forward by d
func (t *Timeline) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursor += t.rate.N(d)
}

// Play schedules s at the current cursor
func (t *Timeline) Play(s beep.Streamer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mixer.Add(beep.Seq(beep.Silence(t.cursor), s))
	t.played++
}

// Played returns how many cues were scheduled
func (t *Timeline) Played() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.played
}

// WriteWAV mixes everything up to the cursor plus tail into w
func (t *Timeline) WriteWAV(w io.WriteSeeker, tail time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.cursor + t.rate.N(tail)
	format := beep.Format{SampleRate: t.rate, NumChannels: 2, Precision: 2}
	return wav.Encode(w, beep.Take(total, t.mixer), format)
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch the header sizes once the stream length is known.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if end := s.pos + len(p); end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(s.pos) + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("seekBuffer: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seekBuffer: negative position")
	}
	s.pos = int(abs)
	return abs, nil
}

func (s *seekBuffer) Bytes() []byte {
	return s.buf
}
