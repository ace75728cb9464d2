// Package script parses narration scripts into dialogue lines. A line of
// the form "Name: text" assigns the speaker; lines without a prefix
// belong to the last explicit speaker, or to a default speaker when none
// has appeared yet.
package script

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgnsrekt/narrator/narration"
)

// DefaultSpeaker is assigned to lines before any "Name:" prefix appears.
const DefaultSpeaker = "Speaker 1"

var speakerPrefix = regexp.MustCompile(`^([^:]+):\s*(.*)$`)

// Parse splits script text into dialogue lines. Blank lines are skipped
// and lines whose text is empty after the speaker prefix are dropped.
func Parse(text string) []narration.DialogueLine {
	var lines []narration.DialogueLine
	lastSpeaker := ""
	for idx, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		speaker := lastSpeaker
		if speaker == "" {
			speaker = DefaultSpeaker
		}
		body := trimmed
		if m := speakerPrefix.FindStringSubmatch(trimmed); m != nil {
			speaker = strings.TrimSpace(m[1])
			body = strings.TrimSpace(m[2])
			lastSpeaker = speaker
		}
		if speaker == "" || body == "" {
			continue
		}
		lines = append(lines, narration.DialogueLine{
			ID:      fmt.Sprintf("%d-%s", idx, speaker),
			Speaker: speaker,
			Text:    body,
		})
	}
	return lines
}

// Speakers lists the distinct speakers in first-appearance order.
func Speakers(lines []narration.DialogueLine) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lines {
		if !seen[l.Speaker] {
			seen[l.Speaker] = true
			out = append(out, l.Speaker)
		}
	}
	return out
}

// DefaultTracks builds a configuration track per speaker in
// first-appearance order, assigning catalog voices round-robin with the
// studio's default volume, tone and temperature.
func DefaultTracks(lines []narration.DialogueLine) []narration.SpeakerTrack {
	voices := narration.Voices()
	var tracks []narration.SpeakerTrack
	for i, speaker := range Speakers(lines) {
		tracks = append(tracks, narration.SpeakerTrack{
			Speaker: speaker,
			Config: narration.SpeakerConfig{
				Voice:           voices[i%len(voices)].ID,
				Volume:          1.0,
				ToneDescription: narration.DefaultTone,
				Temperature:     narration.DefaultTemperature,
			},
		})
	}
	return tracks
}
