package narration

import (
	"strings"
	"unicode/utf8"
)

// Plan groups ordered dialogue lines into speaker-homogeneous batches of
// at most maxChars runes. Consecutive lines from the same speaker are
// merged (joined with a single space) while they fit; a speaker change
// always starts a new batch; a line that alone exceeds the budget is
// chunked, with all but the last piece emitted immediately and the last
// piece seeding the next accumulation.
func Plan(lines []DialogueLine, maxChars int) []Batch {
	if maxChars < 1 {
		maxChars = 1
	}

	var batches []Batch
	var curSpeaker, curText string

	flush := func() {
		if curSpeaker != "" && curText != "" {
			batches = append(batches, Batch{Speaker: curSpeaker, Text: curText})
		}
	}

	for _, line := range lines {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		merged := strings.TrimSpace(curText + " " + text)
		if line.Speaker != curSpeaker || utf8.RuneCountInString(merged) > maxChars {
			flush()
			curSpeaker = line.Speaker
			curText = text

			if utf8.RuneCountInString(curText) > maxChars {
				pieces := Chunk(curText, maxChars)
				for _, piece := range pieces[:len(pieces)-1] {
					batches = append(batches, Batch{Speaker: curSpeaker, Text: piece})
				}
				curText = pieces[len(pieces)-1]
			}
			continue
		}
		curText = merged
	}
	flush()
	return batches
}

// totalRunes sums the rune counts of all line texts, the unit used for
// percent-complete accounting.
func totalRunes(lines []DialogueLine) int {
	total := 0
	for _, l := range lines {
		total += utf8.RuneCountInString(l.Text)
	}
	return total
}

// speakerLines filters lines down to one speaker, preserving order.
func speakerLines(lines []DialogueLine, speaker string) []DialogueLine {
	var out []DialogueLine
	for _, l := range lines {
		if l.Speaker == speaker {
			out = append(out, l)
		}
	}
	return out
}
