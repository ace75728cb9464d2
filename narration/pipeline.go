package narration

import (
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/narration/engines"
)

// Options configures a Pipeline. Zero values fall back to the package
// defaults.
type Options struct {
	Model              string       // Remote synthesis model
	MaxCharsPerBatch   int          // Batch budget in characters
	InterBatchDelaySec int          // Base pause between remote calls
	SampleRate         int          // PCM sample rate of the provider
	Progress           ProgressFunc // Receives status strings, may be nil
	Token              *Token       // Cancellation token, may be nil
	Logger             *log.Logger  // Defaults to the standard logger
}

// Pipeline drives batched synthesis runs. Batches are processed strictly
// sequentially: the remote service is rate-limited per key and chunks
// must be assembled in submission order, so there is nothing to win from
// parallelism.
type Pipeline struct {
	synth      engines.Synthesizer
	model      string
	maxChars   int
	delaySec   int
	sampleRate int
	progress   ProgressFunc
	token      *Token
	logger     *log.Logger

	// Test seams. Production uses the real clock and a 1-10s roll.
	sleep    func(time.Duration)
	jitterFn func() int
}

// NewPipeline creates a pipeline over the given synthesizer.
func NewPipeline(synth engines.Synthesizer, opts Options) *Pipeline {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxCharsPerBatch <= 0 {
		opts.MaxCharsPerBatch = DefaultMaxCharsPerBatch
	}
	if opts.MaxCharsPerBatch > MaxBatchCeiling {
		opts.MaxCharsPerBatch = MaxBatchCeiling
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 24000
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Pipeline{
		synth:      synth,
		model:      opts.Model,
		maxChars:   opts.MaxCharsPerBatch,
		delaySec:   opts.InterBatchDelaySec,
		sampleRate: opts.SampleRate,
		progress:   opts.Progress,
		token:      opts.Token,
		logger:     opts.Logger,
		sleep:      time.Sleep,
		jitterFn:   func() int { return rand.IntN(10) + 1 },
	}
}
