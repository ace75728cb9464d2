package narration

import (
	"fmt"

	"github.com/muesli/reflow/truncate"
)

// ProgressFunc receives human-readable status strings from the pipeline.
// The strings are display-only: they always contain a percent-complete
// figure and descriptive text, but callers must not parse them as
// structured state.
type ProgressFunc func(status string)

// post invokes the callback when one is set.
func (f ProgressFunc) post(status string) {
	if f != nil {
		f(status)
	}
}

// snippetWidth is how much of a batch text progress messages quote.
const snippetWidth = 50

// snippet shortens text to the preview width, appending an ellipsis when
// anything was cut off.
func snippet(text string) string {
	return truncate.StringWithTail(text, snippetWidth, "...")
}

// batchLabel describes the batch currently being voiced. It prefixes
// every wait and retry message emitted while the batch is in flight.
func batchLabel(percent int, speaker, text string) string {
	return fmt.Sprintf("Done: %d%%\nNow voicing: %s\nCurrent text: %q", percent, speaker, snippet(text))
}

// separateLabel is the batchLabel variant for per-speaker file runs.
func separateLabel(speaker, text string) string {
	return fmt.Sprintf("Generating separate file: %s\nCurrent text: %q", speaker, snippet(text))
}

// rateLimitStatus is emitted once per second while riding out provider
// throttling.
func rateLimitStatus(label string, secondsLeft int) string {
	return fmt.Sprintf("%s\n\nRate limited by the provider... retrying in %d s.\n(Stop now to keep the finished portion.)", label, secondsLeft)
}

// transientRetryStatus is emitted before a retry of a 500-class failure.
func transientRetryStatus(label string, attempt, maxAttempts int) string {
	return fmt.Sprintf("%s\n\nServer error... retrying, attempt %d/%d.", label, attempt, maxAttempts)
}

// interBatchStatus is emitted once per second during the pause between
// batches.
func interBatchStatus(percent, secondsLeft, jitter int, next string) string {
	return fmt.Sprintf("Done: %d%%\nInter-batch delay... %d s remaining (+%d s jitter for stability).\n\nNext up: %q", percent, secondsLeft, jitter, snippet(next))
}

// percentOf computes a rounded percent-complete figure.
func percentOf(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(processed)/float64(total)*100 + 0.5)
}
