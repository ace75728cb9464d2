// Package narration implements the batched speech-synthesis pipeline:
// it partitions a multi-speaker script into provider-safe batches, drives
// one remote synthesis call per batch with retry and rate-limit handling,
// and reassembles the returned PCM into playable WAV containers.
package narration

import "strings"

// DialogueLine is one parsed utterance of the script.
type DialogueLine struct {
	ID      string // Stable identifier assigned by the script parser
	Speaker string // Speaker name as written in the script
	Text    string // Utterance text, non-empty after trimming
}

// SpeakerConfig holds the synthesis parameters for one speaker.
type SpeakerConfig struct {
	Voice           string  // Base voice identifier (see Voices)
	Volume          float64 // Playback volume (0.0 to 1.5), passthrough only
	ToneDescription string  // Persona constraint, may be empty
	Temperature     float64 // Sampling temperature (0.5 to 2.0)
}

// SpeakerTrack pairs a speaker with its configuration. Tracks are kept in
// an ordered slice rather than a map so that separate-mode output order is
// deterministic.
type SpeakerTrack struct {
	Speaker string
	Config  SpeakerConfig
}

// Batch is one speaker-homogeneous unit of text submitted as a single
// remote synthesis request.
type Batch struct {
	Speaker string
	Text    string
}

// Voice describes a prebuilt provider voice.
type Voice struct {
	ID   string // Provider voice identifier
	Name string // Human-readable name
	Tone string // Coarse tone hint used for display
}

// DefaultTone is applied to speakers whose configuration carries no
// explicit tone description.
const DefaultTone = "comfortable:"

// DefaultModel is the synthesis model used when none is configured.
const DefaultModel = "gemini-2.5-flash-preview-tts"

// DefaultTemperature matches the provider's recommended narration setting.
const DefaultTemperature = 0.75

// Voices returns the prebuilt voice catalog in display order.
func Voices() []Voice {
	return []Voice{
		{ID: "Enceladus", Name: "Enceladus (Male, Smooth)", Tone: "male"},
		{ID: "Iapetus", Name: "Iapetus (Male, Warm Wisdom)", Tone: "male"},
		{ID: "Charon", Name: "Charon (Male, Deep)", Tone: "male"},
		{ID: "Kore", Name: "Kore (Female)", Tone: "female"},
		{ID: "Zephyr", Name: "Zephyr (Female, Soft)", Tone: "female"},
		{ID: "Puck", Name: "Puck (Male)", Tone: "male"},
		{ID: "Fenrir", Name: "Fenrir (Male, Raspy)", Tone: "male"},
	}
}

// LookupVoice resolves a voice identifier against the catalog.
func LookupVoice(id string) (Voice, bool) {
	for _, v := range Voices() {
		if strings.EqualFold(v.ID, id) {
			return v, true
		}
	}
	return Voice{}, false
}

// FindTrack returns the configuration for the named speaker.
func FindTrack(tracks []SpeakerTrack, speaker string) (SpeakerConfig, bool) {
	for _, t := range tracks {
		if t.Speaker == speaker {
			return t.Config, true
		}
	}
	return SpeakerConfig{}, false
}
