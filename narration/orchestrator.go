package narration

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/dgnsrekt/narrator/narration/wav"
)

// SpeakerAudio is one speaker's finished container from a separate-mode
// run.
type SpeakerAudio struct {
	Speaker string
	Audio   *wav.Container
}

// NarrateCombined runs the whole script into a single container. Batches
// are planned across the full line sequence, synthesized sequentially and
// assembled in submission order. A user abort salvages everything
// produced so far; any other escaped error fails the run with no partial
// output.
func (p *Pipeline) NarrateCombined(ctx context.Context, lines []DialogueLine, tracks []SpeakerTrack) (*wav.Container, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	totalChars := totalRunes(lines)
	processedChars := 0
	batches := Plan(lines, p.maxChars)
	out := wav.NewWithRate(p.sampleRate)

	for i, batch := range batches {
		if p.token.Aborted() {
			return out, nil
		}

		cfg, ok := FindTrack(tracks, batch.Speaker)
		if !ok {
			// Mirrors the studio: untracked speakers are skipped, not fatal.
			p.logger.Warn("skipping batch for unconfigured speaker", "speaker", batch.Speaker)
			continue
		}

		label := batchLabel(percentOf(processedChars, totalChars), batch.Speaker, batch.Text)
		p.progress.post(label)

		pcm, err := p.synthesize(ctx, batch.Text, cfg, label)
		if err != nil {
			if errors.Is(err, ErrAborted) {
				p.logger.Info("run aborted, salvaging partial result", "chunks", out.Chunks())
				return out, nil
			}
			return nil, err
		}

		out.Append(pcm)
		processedChars += utf8.RuneCountInString(batch.Text)

		if i < len(batches)-1 {
			p.interBatchWait(processedChars, totalChars, batches[i+1].Text)
		}
	}
	return out, nil
}

// NarrateSeparate produces one container per speaker, processing
// speakers in track order. Abort stops the outer loop: speakers already
// finished keep their containers, and the speaker in progress keeps
// whatever chunks it had accumulated.
func (p *Pipeline) NarrateSeparate(ctx context.Context, lines []DialogueLine, tracks []SpeakerTrack) ([]SpeakerAudio, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	var results []SpeakerAudio
	for sIdx, track := range tracks {
		if p.token.Aborted() {
			break
		}
		own := speakerLines(lines, track.Speaker)
		if len(own) == 0 {
			continue
		}

		batches := Plan(own, p.maxChars)
		out := wav.NewWithRate(p.sampleRate)
		aborted := false

		for bIdx, batch := range batches {
			if p.token.Aborted() {
				aborted = true
				break
			}

			label := separateLabel(track.Speaker, batch.Text)
			p.progress.post(label)

			pcm, err := p.synthesize(ctx, batch.Text, track.Config, label)
			if err != nil {
				if errors.Is(err, ErrAborted) {
					aborted = true
					break
				}
				return nil, err
			}
			out.Append(pcm)

			lastOverall := sIdx == len(tracks)-1 && bIdx == len(batches)-1
			if !lastOverall {
				p.interBatchWait(bIdx+1, len(batches), nextSeparatePreview(batches, bIdx, tracks, sIdx))
			}
		}

		if out.Chunks() > 0 {
			results = append(results, SpeakerAudio{Speaker: track.Speaker, Audio: out})
		}
		if aborted {
			p.logger.Info("separate run aborted", "completed_speakers", len(results))
			break
		}
	}
	return results, nil
}

// NarrateLine synthesizes a single utterance, used for previews. The
// retry policy applies; there is no batching or inter-batch wait.
func (p *Pipeline) NarrateLine(ctx context.Context, text string, cfg SpeakerConfig) (*wav.Container, error) {
	label := batchLabel(0, "preview", text)
	pcm, err := p.synthesize(ctx, text, cfg, label)
	if err != nil {
		return nil, err
	}
	return wav.NewWithRate(p.sampleRate, pcm), nil
}

// nextSeparatePreview describes the next unit of work during a
// separate-mode wait: the next batch of the same speaker, the next
// speaker, or the end of the run.
func nextSeparatePreview(batches []Batch, bIdx int, tracks []SpeakerTrack, sIdx int) string {
	if bIdx < len(batches)-1 {
		return batches[bIdx+1].Text
	}
	if sIdx < len(tracks)-1 {
		return "starting speaker " + tracks[sIdx+1].Speaker
	}
	return "end of run"
}
