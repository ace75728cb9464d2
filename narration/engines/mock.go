package engines

import (
	"context"
	"sync"
)

// MockResponse scripts one synthesize call of the mock engine.
type MockResponse struct {
	PCM []byte
	Err error
}

// MockEngine implements Synthesizer for testing. Responses are consumed
// in order; once the script runs out, calls succeed with a fixed silent
// payload.
type MockEngine struct {
	mu        sync.Mutex
	script    []MockResponse
	requests  []Request
	onCall    func(n int, req Request)
	silentLen int
}

// NewMock creates a mock synthesizer that succeeds with silence.
func NewMock() *MockEngine {
	return &MockEngine{silentLen: 4800} // 100ms of 24kHz mono 16-bit
}

// Name implements Synthesizer.
func (m *MockEngine) Name() string { return "mock" }

// Enqueue appends scripted responses.
func (m *MockEngine) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
}

// OnCall registers a hook invoked at the start of every synthesize call
// with the 1-based call number. Tests use it to flip abort tokens at a
// chosen point.
func (m *MockEngine) OnCall(hook func(n int, req Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCall = hook
}

// Requests returns a copy of all requests seen so far, in order.
func (m *MockEngine) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many synthesize calls have been made.
func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Synthesize implements Synthesizer.
func (m *MockEngine) Synthesize(_ context.Context, req Request) ([]byte, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	hook := m.onCall
	var resp MockResponse
	scripted := len(m.script) > 0
	if scripted {
		resp = m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	if hook != nil {
		hook(n, req)
	}
	if scripted {
		return resp.PCM, resp.Err
	}
	return make([]byte, m.silentLen), nil
}
