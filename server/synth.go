package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSaw
	WaveTriangle
	WaveNoise
)

// rampFloor is the level exponential ramps decay to
const rampFloor = 0.001

// oscillator generates a waveform whose frequency may sweep exponentially
// from f0 to f1 and wobble with a slow vibrato.
type oscillator struct {
	wave         WaveType
	f0, f1       float64
	sweepSamples int
	vibratoHz    float64
	vibratoDepth float64 // fraction of the base frequency
	duration     int
	position     int
	phase        float64
	rate         beep.SampleRate
}

// NewOscillator creates a fixed-frequency oscillator
func NewOscillator(freq float64, duration time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	return &oscillator{wave: wave, f0: freq, f1: freq, duration: rate.N(duration), rate: rate}
}

// NewSweep creates an oscillator that ramps exponentially from f0 to f1 over
// sweep and then holds f1 until duration ends
func NewSweep(f0, f1 float64, sweep, duration time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	return &oscillator{wave: wave, f0: f0, f1: f1, sweepSamples: rate.N(sweep), duration: rate.N(duration), rate: rate}
}

// NewDrone creates a sine with slow frequency modulation
func NewDrone(freq, lfoHz float64, duration time.Duration, rate beep.SampleRate) beep.Streamer {
	return &oscillator{wave: WaveSine, f0: freq, f1: freq, vibratoHz: lfoHz, vibratoDepth: 0.02, duration: rate.N(duration), rate: rate}
}

func (o *oscillator) freq() float64 {
	f := o.f1
	if o.position < o.sweepSamples && o.f0 > 0 && o.f1 > 0 {
		f = o.f0 * math.Pow(o.f1/o.f0, float64(o.position)/float64(o.sweepSamples))
	}
	if o.vibratoHz > 0 {
		t := float64(o.position) / float64(o.rate)
		f += f * o.vibratoDepth * math.Sin(2*math.Pi*o.vibratoHz*t)
	}
	return f
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.duration {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			if o.phase < 0.5 {
				val = 1.0
			} else {
				val = -1.0
			}
		case WaveSaw:
			val = 2.0 * (o.phase - 0.5)
		case WaveTriangle:
			val = 1 - 4*math.Abs(o.phase-0.5)
		case WaveNoise:
			val = rand.Float64()*2 - 1
		}

		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq() / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// expRamp scales a stream from gain down to rampFloor exponentially over
// the ramp length and ends the stream there
type expRamp struct {
	streamer beep.Streamer
	gain     float64
	position int
	total    int
}

// NewExpRamp mirrors an exponential gain ramp: start at gain, reach
// rampFloor after ramp
func NewExpRamp(s beep.Streamer, gain float64, ramp time.Duration, rate beep.SampleRate) beep.Streamer {
	return &expRamp{streamer: s, gain: gain, total: rate.N(ramp)}
}

func (e *expRamp) Stream(samples [][2]float64) (n int, ok bool) {
	if e.position >= e.total {
		return 0, false
	}
	if remaining := e.total - e.position; len(samples) > remaining {
		samples = samples[:remaining]
	}
	n, ok = e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := e.gain
		if e.gain > rampFloor {
			vol = e.gain * math.Pow(rampFloor/e.gain, float64(e.position)/float64(e.total))
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *expRamp) Err() error { return e.streamer.Err() }

// lowpass is a one-pole low-pass filter
type lowpass struct {
	streamer beep.Streamer
	alpha    float64
	prev     [2]float64
}

// NewLowpass filters s above cutoff Hz
func NewLowpass(s beep.Streamer, cutoff float64, rate beep.SampleRate) beep.Streamer {
	dt := 1 / float64(rate)
	rc := 1 / (2 * math.Pi * cutoff)
	return &lowpass{streamer: s, alpha: dt / (rc + dt)}
}

func (l *lowpass) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = l.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		for c := 0; c < 2; c++ {
			l.prev[c] += l.alpha * (samples[i][c] - l.prev[c])
			samples[i][c] = l.prev[c]
		}
	}
	return n, ok
}

func (l *lowpass) Err() error { return l.streamer.Err() }

// noiseBurst is white noise with a quadratic fade to silence
type noiseBurst struct {
	position int
	total    int
}

// NewNoiseBurst creates a decaying noise burst
func NewNoiseBurst(duration time.Duration, rate beep.SampleRate) beep.Streamer {
	return &noiseBurst{total: rate.N(duration)}
}

func (b *noiseBurst) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if b.position >= b.total {
			return i, i > 0
		}
		fade := 1 - float64(b.position)/float64(b.total)
		val := (rand.Float64()*2 - 1) * fade * fade
		samples[i][0] = val
		samples[i][1] = val
		b.position++
	}
	return len(samples), true
}

func (b *noiseBurst) Err() error { return nil }

// delayed prefixes s with silence
func delayed(s beep.Streamer, d time.Duration, rate beep.SampleRate) beep.Streamer {
	if d <= 0 {
		return s
	}
	return beep.Seq(beep.Silence(rate.N(d)), s)
}

// newVolume scales amplitude linearly; math.Log2(0) is -Inf so zero is silent
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

const msec = time.Millisecond

// synthCue builds the streamer graph for a cue at unit master volume
func synthCue(c Cue, rate beep.SampleRate) beep.Streamer {
	switch c {
	case CueHover:
		return NewExpRamp(NewOscillator(800, 100*msec, WaveSine, rate), 0.05, 100*msec, rate)

	case CueClick:
		osc := NewSweep(200, 400, 50*msec, 150*msec, WaveSquare, rate)
		return NewExpRamp(osc, 0.1, 150*msec, rate)

	case CueCollision:
		var parts []beep.Streamer
		for i, f := range []float64{523, 659, 784, 1047} {
			gain := 0.06 * (1 - float64(i)*0.15)
			note := NewLowpass(NewOscillator(f, 550*msec, WaveSine, rate), 2000, rate)
			parts = append(parts, delayed(NewExpRamp(note, gain, 500*msec, rate), time.Duration(i)*80*msec, rate))
		}
		parts = append(parts, NewExpRamp(NewOscillator(80, 300*msec, WaveSine, rate), 0.08, 250*msec, rate))
		return beep.Mix(parts...)

	case CueLaser:
		osc := NewSweep(1000, 200, 150*msec, 150*msec, WaveSaw, rate)
		return NewExpRamp(osc, 0.08, 150*msec, rate)

	case CueExplosion:
		return newVolume(NewLowpass(NewNoiseBurst(300*msec, rate), 800, rate), 0.15)

	case CueDialogSystem:
		var notes []beep.Streamer
		for i, f := range []float64{880, 1100, 880, 1320} {
			note := NewExpRamp(NewOscillator(f, 80*msec, WaveSquare, rate), 0.06, 70*msec, rate)
			notes = append(notes, delayed(note, time.Duration(i)*80*msec, rate))
		}
		return beep.Mix(notes...)

	case CueDialogAI:
		var notes []beep.Streamer
		for i, f := range []float64{523, 659, 784, 1047, 1319} {
			gain := 0.08 * (1 - float64(i)*0.15)
			note := NewExpRamp(NewOscillator(f, 300*msec, WaveSine, rate), gain, 250*msec, rate)
			notes = append(notes, delayed(note, time.Duration(i)*60*msec, rate))
		}
		return beep.Mix(notes...)

	case CueDialogNarrator:
		pair := beep.Mix(
			NewSweep(220, 440, 300*msec, 450*msec, WaveSine, rate),
			NewSweep(330, 550, 300*msec, 450*msec, WaveSine, rate),
		)
		return NewExpRamp(NewLowpass(pair, 800, rate), 0.1, 400*msec, rate)

	case CueTypingSystem:
		osc := NewOscillator(1200+rand.Float64()*400, 30*msec, WaveSquare, rate)
		return NewExpRamp(osc, 0.02, 30*msec, rate)

	case CueTypingAI:
		f := 600 + rand.Float64()*200
		osc := NewSweep(f, f*1.2, 40*msec, 50*msec, WaveSine, rate)
		return NewExpRamp(osc, 0.025, 50*msec, rate)

	case CueTypingNarrator:
		osc := NewOscillator(300+rand.Float64()*100, 60*msec, WaveTriangle, rate)
		return NewExpRamp(NewLowpass(osc, 600, rate), 0.03, 60*msec, rate)

	case CueAmbient:
		const loop = 2 * time.Second
		layers := []beep.Streamer{newVolume(NewNoiseLayer(loop, rate), 0.02)}
		for _, d := range []struct{ freq, gain float64 }{
			{40, 0.08}, {55, 0.05}, {82, 0.03}, {110, 0.02}, {165, 0.01},
		} {
			drone := NewLowpass(NewDrone(d.freq, 0.1+rand.Float64()*0.2, loop, rate), 200, rate)
			layers = append(layers, newVolume(drone, d.gain))
		}
		return beep.Mix(layers...)
	}
	return nil
}

// NewNoiseLayer is flat white noise used as ambient texture
func NewNoiseLayer(duration time.Duration, rate beep.SampleRate) beep.Streamer {
	return NewOscillator(0, duration, WaveNoise, rate)
}
