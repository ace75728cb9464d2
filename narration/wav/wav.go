// Package wav assembles raw PCM chunks into a playable RIFF/WAVE
// container. Chunks are referenced, never copied into one contiguous
// buffer: the container streams its header followed by each chunk in
// order, so arbitrarily long narrations never need a single giant
// allocation.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// HeaderSize is the fixed size of the canonical PCM WAV header.
const HeaderSize = 44

// DefaultSampleRate matches the synthesis provider's PCM profile
// (24000 Hz, mono, 16-bit).
const DefaultSampleRate = 24000

const (
	numChannels   = 1
	bitsPerSample = 16
	blockAlign    = numChannels * bitsPerSample / 8
)

// Container is an assembled WAV file: a 44-byte header plus the PCM
// chunks in submission order. The zero value is not usable; construct
// with New.
type Container struct {
	sampleRate int
	chunks     [][]byte
	dataSize   int
}

// New creates a container over the given chunks at the default sample
// rate. The chunk slices are retained, not copied.
func New(chunks ...[]byte) *Container {
	return NewWithRate(DefaultSampleRate, chunks...)
}

// NewWithRate creates a container with an explicit sample rate.
func NewWithRate(sampleRate int, chunks ...[]byte) *Container {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	c := &Container{sampleRate: sampleRate}
	for _, chunk := range chunks {
		c.Append(chunk)
	}
	return c
}

// Append adds one PCM chunk to the end of the container.
func (c *Container) Append(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	c.chunks = append(c.chunks, pcm)
	c.dataSize += len(pcm)
}

// SampleRate returns the declared sample rate.
func (c *Container) SampleRate() int { return c.sampleRate }

// DataSize returns the total PCM payload size in bytes.
func (c *Container) DataSize() int { return c.dataSize }

// Len returns the total container size, header included.
func (c *Container) Len() int { return HeaderSize + c.dataSize }

// Chunks returns how many PCM chunks the container references.
func (c *Container) Chunks() int { return len(c.chunks) }

// Duration returns the playing time in seconds.
func (c *Container) Duration() float64 {
	return float64(c.dataSize) / float64(c.sampleRate*blockAlign)
}

// Header renders the 44-byte RIFF/WAVE header for the current payload:
// uncompressed PCM, mono, 16-bit, little endian throughout.
func (c *Container) Header() []byte {
	h := make([]byte, HeaderSize)
	byteRate := c.sampleRate * blockAlign

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+c.dataSize))
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], numChannels)
	binary.LittleEndian.PutUint32(h[24:28], uint32(c.sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:34], blockAlign)
	binary.LittleEndian.PutUint16(h[34:36], bitsPerSample)

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(c.dataSize))
	return h
}

// WriteTo streams the header and every chunk to w in order, implementing
// io.WriterTo. No intermediate concatenation happens.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	var written int64
	n, err := w.Write(c.Header())
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("writing wav header: %w", err)
	}
	for _, chunk := range c.chunks {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("writing wav data: %w", err)
		}
	}
	return written, nil
}

// WriteFile streams the container to a file.
func (c *Container) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := c.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// Bytes concatenates the container into one slice. Intended for short
// previews and tests; long narrations should use WriteTo.
func (c *Container) Bytes() []byte {
	out := make([]byte, 0, c.Len())
	out = append(out, c.Header()...)
	for _, chunk := range c.chunks {
		out = append(out, chunk...)
	}
	return out
}

// PCM concatenates only the payload, without the header. Used by the
// playback layer, which feeds raw samples to the audio device.
func (c *Container) PCM() []byte {
	out := make([]byte, 0, c.dataSize)
	for _, chunk := range c.chunks {
		out = append(out, chunk...)
	}
	return out
}
