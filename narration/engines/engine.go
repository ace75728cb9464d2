// Package engines provides remote speech-synthesis backends.
package engines

import (
	"context"
	"fmt"
	"strings"
)

// Request carries everything one synthesis call needs. The prompt may
// already be persona-wrapped by the caller; engines send it verbatim.
type Request struct {
	Model       string  // Synthesis model identifier
	Text        string  // Prompt text
	Voice       string  // Prebuilt voice identifier
	Temperature float64 // Sampling temperature
}

// Synthesizer converts one request into raw decoded PCM bytes
// (24000 Hz, mono, 16-bit little endian). Implementations classify
// provider failures only through error message content; retry policy
// lives in the pipeline, not here.
type Synthesizer interface {
	// Synthesize performs one remote call. The context bounds the HTTP
	// exchange only; cooperative cancellation of a whole run is handled
	// a layer up.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// Name identifies the backend for logs.
	Name() string
}

// Config aggregates backend-specific settings for the factory.
type Config struct {
	Gemini GeminiConfig
}

// New creates a synthesizer by backend name.
func New(name string, cfg Config) (Synthesizer, error) {
	switch strings.ToLower(name) {
	case "gemini":
		return NewGemini(cfg.Gemini)
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown synthesis engine %q", name)
	}
}
