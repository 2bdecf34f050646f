package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeakerProperties(t *testing.T) {
	tests := []struct {
		speaker Speaker
		label   string
		delay   time.Duration
		dialog  Cue
		typing  Cue
	}{
		{SpeakerSystem, "[NEXUS.SYS]", 30 * time.Millisecond, CueDialogSystem, CueTypingSystem},
		{SpeakerAI, "[NAVIGATOR.AI]", 50 * time.Millisecond, CueDialogAI, CueTypingAI},
		{SpeakerNarrator, "[GUIDE]", 50 * time.Millisecond, CueDialogNarrator, CueTypingNarrator},
	}
	for _, tt := range tests {
		t.Run(tt.speaker.String(), func(t *testing.T) {
			assert.Equal(t, tt.label, tt.speaker.Label())
			assert.Equal(t, tt.delay, tt.speaker.TypingDelay())
			assert.Equal(t, tt.dialog, tt.speaker.DialogCue())
			assert.Equal(t, tt.typing, tt.speaker.TypingCue())

			parsed, err := ParseSpeaker(tt.speaker.String())
			require.NoError(t, err)
			assert.Equal(t, tt.speaker, parsed)
		})
	}
	_, err := ParseSpeaker("villain")
	assert.ErrorIs(t, err, ErrUnknownSpeaker)
}

func TestPhaseAt(t *testing.T) {
	var got []Phase
	for i := range IntroScript {
		got = append(got, PhaseAt(i))
	}
	want := []Phase{
		PhaseIntro, PhaseIntro, PhaseIntro, PhaseIntro, PhaseIntro,
		PhaseTutorial, PhaseTutorial, PhaseTutorial,
		PhaseReady, PhaseReady,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptResolvesStaging(t *testing.T) {
	lines := Script()
	require.Len(t, lines, len(IntroScript))

	assert.False(t, lines[0].ShowCharacter)
	assert.False(t, lines[1].ShowCharacter)
	assert.True(t, lines[2].ShowCharacter)
	assert.Equal(t, "[NAVIGATOR.AI]", lines[2].Label)
	assert.Equal(t, int64(50), lines[2].TypingDelayMs)
	assert.Equal(t, "typing-ai", lines[2].TypingCue)
	assert.Equal(t, "dialog-system", lines[0].DialogCue)

	raw, err := json.Marshal(lines[5])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"index": 5,
		"speaker": "narrator",
		"label": "[GUIDE]",
		"textKey": "cutscene_tutorial1",
		"phase": "tutorial",
		"typingDelayMs": 50,
		"showCharacter": true,
		"dialogCue": "dialog-narrator",
		"typingCue": "typing-narrator"
	}`, string(raw))
}

func TestTypewriter(t *testing.T) {
	chars := Typewriter(SpeakerSystem, "Hi, Ü!")
	require.Len(t, chars, 6, "counts runes, not bytes")

	assert.Equal(t, 30*time.Millisecond, chars[0].At)
	assert.Equal(t, 180*time.Millisecond, chars[5].At)
	assert.Equal(t, 'Ü', chars[4].Char)

	var cues []bool
	for _, c := range chars {
		cues = append(cues, c.Cue)
	}
	if diff := cmp.Diff([]bool{true, true, false, false, true, false}, cues); diff != "" {
		t.Errorf("cue flags mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Typewriter(SpeakerAI, ""))
}
