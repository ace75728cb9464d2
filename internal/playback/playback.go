// Package playback plays finished narration audio on the local audio
// device. It is a passthrough: samples go to the device untouched, with
// no resampling or mixing.
package playback

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Play blocks until the raw 16-bit mono PCM has finished playing.
func Play(pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return errors.New("no audio to play")
	}
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("initializing audio device: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
	if err := player.Close(); err != nil {
		return fmt.Errorf("closing player: %w", err)
	}
	return nil
}
