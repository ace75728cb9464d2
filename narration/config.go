package narration

import (
	"fmt"
	"strings"
)

// Hard provider ceiling on batch size. The UI may pick anything lower;
// the planner never receives more than this.
const MaxBatchCeiling = 3000

// DefaultMaxCharsPerBatch balances request count against provider
// stability; matches the studio's default.
const DefaultMaxCharsPerBatch = 1900

// DefaultInterBatchDelaySec is the recommended pause between remote
// calls.
const DefaultInterBatchDelaySec = 120

// Config contains all narration pipeline options.
type Config struct {
	// Engine selects the synthesizer backend: gemini or mock.
	Engine string `yaml:"engine" env:"NARRATOR_ENGINE"`

	// Model is the remote synthesis model identifier.
	Model string `yaml:"model" env:"NARRATOR_MODEL"`

	// MaxCharsPerBatch bounds each synthesis request.
	MaxCharsPerBatch int `yaml:"max_chars_per_batch" env:"NARRATOR_MAX_CHARS"`

	// InterBatchDelaySec is the base pause between successive remote
	// calls; jitter is added on top. Zero disables the pause.
	InterBatchDelaySec int `yaml:"inter_batch_delay" env:"NARRATOR_DELAY"`

	// SampleRate of the provider's PCM output.
	SampleRate int `yaml:"sample_rate" env:"NARRATOR_SAMPLE_RATE"`

	// DefaultVoice seeds speakers without an explicit voice.
	DefaultVoice string `yaml:"default_voice" env:"NARRATOR_VOICE"`

	// DefaultTemperature seeds speakers without an explicit temperature.
	DefaultTemperature float64 `yaml:"temperature" env:"NARRATOR_TEMPERATURE"`

	// Separate switches to per-speaker output files.
	Separate bool `yaml:"separate" env:"NARRATOR_SEPARATE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:             "gemini",
		Model:              DefaultModel,
		MaxCharsPerBatch:   DefaultMaxCharsPerBatch,
		InterBatchDelaySec: DefaultInterBatchDelaySec,
		SampleRate:         24000,
		DefaultVoice:       "Enceladus",
		DefaultTemperature: DefaultTemperature,
	}
}

// Validate checks if the configuration is valid, normalizing where the
// value is merely out of preferred range.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Engine) {
	case "gemini", "mock":
		c.Engine = strings.ToLower(c.Engine)
	default:
		return fmt.Errorf("invalid engine %q: must be gemini or mock", c.Engine)
	}

	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if c.MaxCharsPerBatch < 1 {
		return fmt.Errorf("max_chars_per_batch must be positive, got %d", c.MaxCharsPerBatch)
	}
	if c.MaxCharsPerBatch > MaxBatchCeiling {
		c.MaxCharsPerBatch = MaxBatchCeiling
	}

	if c.InterBatchDelaySec < 0 {
		return fmt.Errorf("inter_batch_delay cannot be negative, got %d", c.InterBatchDelaySec)
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}

	if _, ok := LookupVoice(c.DefaultVoice); !ok {
		return fmt.Errorf("unknown default voice %q", c.DefaultVoice)
	}

	if c.DefaultTemperature < 0.5 || c.DefaultTemperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.5 and 2.0, got %f", c.DefaultTemperature)
	}

	return nil
}
