package narration

import "time"

// interBatchWait enforces the configured pause between successive remote
// calls, plus 1-10 seconds of random jitter so repeated runs do not
// hammer the provider in lockstep. It ticks once per second, reporting
// percent complete, time remaining, the jitter applied and a preview of
// the next unit of work; the token is polled every tick and ends the
// wait immediately.
func (p *Pipeline) interBatchWait(processedUnits, totalUnits int, nextPreview string) {
	if p.delaySec <= 0 {
		return
	}
	jitter := p.jitterFn()
	total := p.delaySec + jitter
	percent := percentOf(processedUnits, totalUnits)

	for i := total; i > 0; i-- {
		if p.token.Aborted() {
			return
		}
		p.progress.post(interBatchStatus(percent, i, jitter, nextPreview))
		p.sleep(time.Second)
	}
}
