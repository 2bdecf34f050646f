package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Speaker is who says a cutscene line
type Speaker int

const (
	SpeakerSystem Speaker = iota
	SpeakerAI
	SpeakerNarrator
)

var ErrUnknownSpeaker = errors.New("unknown speaker")

func (s Speaker) String() string {
	switch s {
	case SpeakerSystem:
		return "system"
	case SpeakerAI:
		return "ai"
	case SpeakerNarrator:
		return "narrator"
	}
	return fmt.Sprintf("Speaker(%d)", int(s))
}

func ParseSpeaker(s string) (Speaker, error) {
	switch s {
	case "system":
		return SpeakerSystem, nil
	case "ai":
		return SpeakerAI, nil
	case "narrator":
		return SpeakerNarrator, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSpeaker, s)
}

func (s Speaker) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Speaker) UnmarshalText(b []byte) error {
	v, err := ParseSpeaker(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Label is the on-screen tag shown before the line
func (s Speaker) Label() string {
	switch s {
	case SpeakerSystem:
		return "[NEXUS.SYS]"
	case SpeakerAI:
		return "[NAVIGATOR.AI]"
	case SpeakerNarrator:
		return "[GUIDE]"
	}
	return ""
}

// TypingDelay is the time between revealed characters
func (s Speaker) TypingDelay() time.Duration {
	switch s {
	case SpeakerSystem:
		return 30 * time.Millisecond
	case SpeakerAI, SpeakerNarrator:
		return 50 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// DialogCue is played when a line by this speaker starts
func (s Speaker) DialogCue() Cue {
	switch s {
	case SpeakerSystem:
		return CueDialogSystem
	case SpeakerAI:
		return CueDialogAI
	case SpeakerNarrator:
		return CueDialogNarrator
	}
	return CueDialogSystem
}

// TypingCue is played per revealed character
func (s Speaker) TypingCue() Cue {
	switch s {
	case SpeakerSystem:
		return CueTypingSystem
	case SpeakerAI:
		return CueTypingAI
	case SpeakerNarrator:
		return CueTypingNarrator
	}
	return CueTypingSystem
}

// Phase groups cutscene lines for the client's staging
type Phase string

const (
	PhaseIntro    Phase = "intro"
	PhaseTutorial Phase = "tutorial"
	PhaseReady    Phase = "ready"
)

// PhaseAt returns the phase for line index i
func PhaseAt(i int) Phase {
	switch {
	case i >= 8:
		return PhaseReady
	case i >= 5:
		return PhaseTutorial
	default:
		return PhaseIntro
	}
}

// DialogLine is one cutscene line; the text itself is a translation key
type DialogLine struct {
	Speaker Speaker `json:"speaker"`
	TextKey string  `json:"textKey"`
}

// IntroScript is the cutscene shown before the menu
var IntroScript = []DialogLine{
	{SpeakerSystem, "cutscene_boot"},
	{SpeakerSystem, "cutscene_init"},
	{SpeakerAI, "cutscene_greeting"},
	{SpeakerAI, "cutscene_intro1"},
	{SpeakerAI, "cutscene_intro2"},
	{SpeakerNarrator, "cutscene_tutorial1"},
	{SpeakerNarrator, "cutscene_tutorial2"},
	{SpeakerNarrator, "cutscene_tutorial3"},
	{SpeakerAI, "cutscene_ready"},
	{SpeakerSystem, "cutscene_launch"},
}

// showCharacterFrom is the first line index where the AI portrait appears
const showCharacterFrom = 2

// ScriptLine is a DialogLine with its staging resolved
type ScriptLine struct {
	Index         int     `json:"index"`
	Speaker       Speaker `json:"speaker"`
	Label         string  `json:"label"`
	TextKey       string  `json:"textKey"`
	Phase         Phase   `json:"phase"`
	TypingDelayMs int64   `json:"typingDelayMs"`
	ShowCharacter bool    `json:"showCharacter"`
	DialogCue     string  `json:"dialogCue"`
	TypingCue     string  `json:"typingCue"`
}

// Script resolves IntroScript for the client
func Script() []ScriptLine {
	out := make([]ScriptLine, len(IntroScript))
	for i, l := range IntroScript {
		out[i] = ScriptLine{
			Index:         i,
			Speaker:       l.Speaker,
			Label:         l.Speaker.Label(),
			TextKey:       l.TextKey,
			Phase:         PhaseAt(i),
			TypingDelayMs: l.Speaker.TypingDelay().Milliseconds(),
			ShowCharacter: i >= showCharacterFrom,
			DialogCue:     l.Speaker.DialogCue().String(),
			TypingCue:     l.Speaker.TypingCue().String(),
		}
	}
	return out
}

// silentChars are revealed without a typing cue
const silentChars = " \t\n.,!?;:'\"()[]{}"

// TypedChar is one step of the typewriter
type TypedChar struct {
	At   time.Duration // offset from the start of the line
	Char rune
	Cue  bool // whether a typing cue plays for this character
}

// Typewriter schedules the reveal of text for speaker
func Typewriter(s Speaker, text string) []TypedChar {
	delay := s.TypingDelay()
	out := make([]TypedChar, 0, utf8.RuneCountInString(text))
	i := 0
	for _, r := range text {
		i++
		out = append(out, TypedChar{
			At:   time.Duration(i) * delay,
			Char: r,
			Cue:  !strings.ContainsRune(silentChars, r),
		})
	}
	return out
}
