package main

import (
	"encoding/json"
	"math"
)

// Client -> Server message types
const (
	MsgResize = "resize" // viewport changed
	MsgPotato = "potato" // reduced-effects toggle
	MsgInput  = "input"  // explore mode: pilot direction
	MsgClose  = "close"  // explore mode: content panel closed
)

// Server -> Client message types
const (
	MsgWelcome = "welcome"
	MsgCue     = "cue"
	MsgPanel   = "panel" // explore mode: a content star was reached
	MsgError   = "error"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ResizeMsg reports the client's drawing surface size
type ResizeMsg struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PotatoMsg toggles reduced-effects mode
type PotatoMsg struct {
	On bool `json:"on"`
}

// InputMsg is the explore-mode pilot direction, components in [-1, 1]
type InputMsg struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Joystick bool    `json:"j"` // analog stick: not normalised, small deadzone
}

// WelcomeMsg is sent once after the stream starts
type WelcomeMsg struct {
	Mode     string   `json:"mode"`
	Viewport Viewport `json:"vp"`
	FPS      int      `json:"fps"`
}

// CueMsg tells the client which sound to play
type CueMsg struct {
	Cue string `json:"cue"`
}

// PanelMsg tells the explore client which content panel opened
type PanelMsg struct {
	Content string `json:"content"`
	Panel   Panel  `json:"panel"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// StarState is sent per star each frame
type StarState struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	S float64 `json:"s" msgpack:"s"`
	O float64 `json:"o" msgpack:"o"`
}

// PlanetState is sent per planet
type PlanetState struct {
	ID int     `json:"id" msgpack:"id"`
	X  float64 `json:"x" msgpack:"x"`
	Y  float64 `json:"y" msgpack:"y"`
	S  float64 `json:"s" msgpack:"s"`
	C  string  `json:"c" msgpack:"c"`
	A  float64 `json:"a" msgpack:"a"`
}

// MeteorState is sent per meteor
type MeteorState struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	S float64 `json:"s" msgpack:"s"`
	R float64 `json:"r" msgpack:"r"`
}

// ShipState is sent per ship
type ShipState struct {
	ID int     `json:"id" msgpack:"id"`
	X  float64 `json:"x" msgpack:"x"`
	Y  float64 `json:"y" msgpack:"y"`
	R  float64 `json:"r" msgpack:"r"`
	S  float64 `json:"s" msgpack:"s"`
	C  string  `json:"c" msgpack:"c"`
	Ch bool    `json:"ch" msgpack:"ch"`
}

// LaserState is sent per laser
type LaserState struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	R float64 `json:"r" msgpack:"r"`
	C string  `json:"c" msgpack:"c"`
}

// FrameState is the full menu scene snapshot
type FrameState struct {
	Frame    uint64        `json:"f" msgpack:"f"`
	Viewport Viewport      `json:"vp" msgpack:"vp"`
	Potato   bool          `json:"p" msgpack:"p"`
	Stars    []StarState   `json:"st" msgpack:"st"`
	Planets  []PlanetState `json:"pl" msgpack:"pl"`
	Meteors  []MeteorState `json:"me" msgpack:"me"`
	Ships    []ShipState   `json:"sh" msgpack:"sh"`
	Lasers   []LaserState  `json:"la" msgpack:"la"`
}

// ExploreState is the explore-mode snapshot
type ExploreState struct {
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	R       float64 `json:"r" msgpack:"r"`
	Open    string  `json:"open,omitempty" msgpack:"open,omitempty"`
	CanOpen bool    `json:"can" msgpack:"can"`
	Frame   uint64  `json:"f" msgpack:"f"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
