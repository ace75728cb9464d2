package narration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Common errors for the narration pipeline.
var (
	// ErrAborted is returned when the caller's cancellation token fires.
	// It is expected, not a failure: orchestrators convert it into a
	// partial result.
	ErrAborted = errors.New("narration aborted by user")

	// ErrNoAudio is returned when the provider answers without an audio
	// payload. The response shape is unexpected, so it is never retried.
	ErrNoAudio = errors.New("no audio data returned from provider")

	// ErrUnknownSpeaker is returned when a batch references a speaker
	// with no configured track.
	ErrUnknownSpeaker = errors.New("speaker has no configuration")

	// ErrNoLines is returned when a run is started with an empty script.
	ErrNoLines = errors.New("script contains no dialogue lines")
)

// QuotaExceededError is returned when a rate-limit response implies a
// wait too long to ride out inside the current run. It is terminal for
// the run; the caller decides whether to resume later.
type QuotaExceededError struct {
	RetryAfter time.Duration // Provider-suggested wait, margin included
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota exceeded: retry in about %s hours", e.Hours())
}

// Hours renders the suggested wait in hours with one decimal, the form
// surfaced to users ("1.0" for a 3700s wait).
func (e *QuotaExceededError) Hours() string {
	return strconv.FormatFloat(e.RetryAfter.Hours(), 'f', 1, 64)
}

// quotaWallThreshold is the longest rate-limit wait the client rides out
// automatically. Anything above it becomes a QuotaExceededError.
const quotaWallThreshold = 600 * time.Second

// rateLimitMargin is added to provider-suggested waits for safety.
const rateLimitMargin = 2 * time.Second

// defaultRateLimitWait applies when a throttling response carries no
// retry hint.
const defaultRateLimitWait = 60 * time.Second

var retryHintPattern = regexp.MustCompile(`(?i)retry in ([\d.]+)s`)

// isRateLimited classifies provider throttling by message content, the
// only signal the remote API guarantees. The returned duration is the
// suggested wait including the safety margin.
func isRateLimited(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	msg := err.Error()
	if !strings.Contains(msg, "RESOURCE_EXHAUSTED") && !strings.Contains(msg, "429") {
		return 0, false
	}
	wait := defaultRateLimitWait
	if m := retryHintPattern.FindStringSubmatch(msg); m != nil {
		if secs, perr := strconv.ParseFloat(m[1], 64); perr == nil {
			wait = time.Duration(math.Ceil(secs)) * time.Second
		}
	}
	return wait + rateLimitMargin, true
}

// isTransient reports whether an error looks like a retryable 500-class
// provider failure.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "500") || strings.Contains(msg, "Internal Error")
}
