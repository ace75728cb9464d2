package narration

import "sync/atomic"

// Token is a polled cancellation signal shared between the caller and
// every suspension point in the pipeline. It is checked at the start of
// each remote call and once per second during countdowns; an in-flight
// remote request is never interrupted.
type Token struct {
	aborted atomic.Bool
}

// NewToken returns a fresh, unaborted token.
func NewToken() *Token {
	return &Token{}
}

// Abort requests a cooperative stop. Safe to call from any goroutine and
// more than once.
func (t *Token) Abort() {
	if t != nil {
		t.aborted.Store(true)
	}
}

// Aborted reports whether a stop has been requested. A nil token never
// aborts.
func (t *Token) Aborted() bool {
	return t != nil && t.aborted.Load()
}
