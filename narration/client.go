package narration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/narrator/narration/engines"
)

// maxTransientAttempts is the total number of tries a 500-class failure
// gets before the error propagates.
const maxTransientAttempts = 3

// wrapPersona prefixes text with a persona constraint when a tone is
// present; otherwise the text goes out verbatim.
func wrapPersona(text, tone string) string {
	tone = strings.TrimSpace(tone)
	if tone == "" {
		return text
	}
	return fmt.Sprintf("[STRICT VOICE PERSONA: %s] Text to speak: %s", tone, text)
}

// synthesize performs one remote synthesis with the full retry policy:
// rate-limit waits are ridden out second-by-second without consuming an
// attempt, transient server errors get maxTransientAttempts tries with a
// linearly growing delay, and everything else propagates immediately.
// The cancellation token is polled before each attempt and during every
// countdown second. Implemented as an explicit loop so pathological
// countdowns cannot grow the stack.
func (p *Pipeline) synthesize(ctx context.Context, text string, cfg SpeakerConfig, label string) ([]byte, error) {
	req := engines.Request{
		Model:       p.model,
		Text:        wrapPersona(text, cfg.ToneDescription),
		Voice:       cfg.Voice,
		Temperature: cfg.Temperature,
	}

	attempt := 1
	for {
		if p.token.Aborted() {
			return nil, ErrAborted
		}

		pcm, err := p.synth.Synthesize(ctx, req)
		if err == nil {
			if len(pcm) == 0 {
				return nil, ErrNoAudio
			}
			return pcm, nil
		}

		if wait, ok := isRateLimited(err); ok {
			if wait > quotaWallThreshold {
				p.logger.Warn("quota wall hit", "wait", wait)
				return nil, &QuotaExceededError{RetryAfter: wait}
			}
			p.logger.Warn("rate limited, riding out suggested wait", "wait", wait)
			if aborted := p.countdown(int(wait/time.Second), func(left int) string {
				return rateLimitStatus(label, left)
			}); aborted {
				return nil, ErrAborted
			}
			continue // same attempt counter: throttling is not a failure of ours
		}

		if isTransient(err) && attempt < maxTransientAttempts {
			p.logger.Warn("transient server error, retrying", "attempt", attempt, "err", err)
			p.progress.post(transientRetryStatus(label, attempt, maxTransientAttempts))
			p.sleep(time.Duration(attempt) * 2 * time.Second)
			attempt++
			continue
		}

		return nil, err
	}
}

// countdown ticks once per second, posting a status for each remaining
// second, and reports whether the token aborted the wait.
func (p *Pipeline) countdown(seconds int, status func(left int) string) bool {
	for i := seconds; i > 0; i-- {
		if p.token.Aborted() {
			return true
		}
		p.progress.post(status(i))
		p.sleep(time.Second)
	}
	return p.token.Aborted()
}
