package narration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/narration/engines"
)

// testPipeline builds a pipeline over a mock engine with an instant
// clock and a fixed jitter roll, recording every sleep and progress
// post.
type testPipeline struct {
	*Pipeline
	mock   *engines.MockEngine
	sleeps []time.Duration
	posts  []string
}

func newTestPipeline(t *testing.T, opts Options) *testPipeline {
	t.Helper()
	tp := &testPipeline{mock: engines.NewMock()}
	if opts.Token == nil {
		opts.Token = NewToken()
	}
	opts.Progress = func(status string) { tp.posts = append(tp.posts, status) }
	tp.Pipeline = NewPipeline(tp.mock, opts)
	tp.sleep = func(d time.Duration) { tp.sleeps = append(tp.sleeps, d) }
	tp.jitterFn = func() int { return 3 }
	return tp
}

func speakerCfg(tone string) SpeakerConfig {
	return SpeakerConfig{Voice: "Puck", Volume: 1.0, ToneDescription: tone, Temperature: 0.75}
}

func TestSynthesizeWrapsPersona(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	if _, err := tp.synthesize(context.Background(), "Hello.", speakerCfg("gravelly and slow:"), "label"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	reqs := tp.mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(reqs))
	}
	want := "[STRICT VOICE PERSONA: gravelly and slow:] Text to speak: Hello."
	if reqs[0].Text != want {
		t.Errorf("Expected persona wrap %q, got %q", want, reqs[0].Text)
	}
	if reqs[0].Voice != "Puck" || reqs[0].Temperature != 0.75 {
		t.Errorf("Voice/temperature not forwarded: %+v", reqs[0])
	}
}

func TestSynthesizeEmptyToneGoesVerbatim(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	if _, err := tp.synthesize(context.Background(), "Hello.", speakerCfg("  "), "label"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := tp.mock.Requests()[0].Text; got != "Hello." {
		t.Errorf("Expected verbatim text, got %q", got)
	}
}

func TestSynthesizeEmptyAudioIsHardFailure(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	tp.mock.Enqueue(engines.MockResponse{PCM: nil, Err: nil})
	_, err := tp.synthesize(context.Background(), "Hello.", speakerCfg(""), "label")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("Expected ErrNoAudio, got %v", err)
	}
	if tp.mock.Calls() != 1 {
		t.Errorf("Expected no retry after empty audio, got %d calls", tp.mock.Calls())
	}
}

func TestSynthesizeTransientRetriesThreeTimesTotal(t *testing.T) {
	t.Run("succeeds on the last attempt", func(t *testing.T) {
		tp := newTestPipeline(t, Options{})
		tp.mock.Enqueue(
			engines.MockResponse{Err: errors.New("gemini: 500 Internal Error: boom")},
			engines.MockResponse{Err: errors.New("gemini: 500 Internal Error: boom")},
			engines.MockResponse{PCM: []byte{1, 2}},
		)
		pcm, err := tp.synthesize(context.Background(), "Hello.", speakerCfg(""), "label")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(pcm) != 2 {
			t.Errorf("Expected scripted PCM, got %d bytes", len(pcm))
		}
		if tp.mock.Calls() != 3 {
			t.Errorf("Expected 3 calls, got %d", tp.mock.Calls())
		}
		// Backoff grows linearly with the attempt number.
		want := []time.Duration{2 * time.Second, 4 * time.Second}
		if len(tp.sleeps) != len(want) {
			t.Fatalf("Expected %d sleeps, got %v", len(want), tp.sleeps)
		}
		for i := range want {
			if tp.sleeps[i] != want[i] {
				t.Errorf("sleep %d: expected %v, got %v", i, want[i], tp.sleeps[i])
			}
		}
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		tp := newTestPipeline(t, Options{})
		tp.mock.Enqueue(
			engines.MockResponse{Err: errors.New("gemini: 500 Internal Error: boom")},
			engines.MockResponse{Err: errors.New("gemini: 500 Internal Error: boom")},
			engines.MockResponse{Err: errors.New("gemini: 500 Internal Error: boom")},
		)
		_, err := tp.synthesize(context.Background(), "Hello.", speakerCfg(""), "label")
		if err == nil || !strings.Contains(err.Error(), "500") {
			t.Fatalf("Expected the server error to propagate, got %v", err)
		}
		if tp.mock.Calls() != 3 {
			t.Errorf("Expected exactly 3 calls, got %d", tp.mock.Calls())
		}
	})
}

func TestSynthesizeNonRetryableErrorPropagates(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	boom := errors.New("gemini: 400 INVALID_ARGUMENT: bad voice")
	tp.mock.Enqueue(engines.MockResponse{Err: boom})
	_, err := tp.synthesize(context.Background(), "Hello.", speakerCfg(""), "label")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the original error, got %v", err)
	}
	if tp.mock.Calls() != 1 {
		t.Errorf("Expected no retry, got %d calls", tp.mock.Calls())
	}
}

func TestSynthesizeRidesOutRateLimit(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	tp.mock.Enqueue(
		engines.MockResponse{Err: errors.New("gemini: 429 RESOURCE_EXHAUSTED: retry in 5s")},
		engines.MockResponse{PCM: []byte{1}},
	)
	pcm, err := tp.synthesize(context.Background(), "Hello.", speakerCfg(""), "label")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(pcm) != 1 {
		t.Errorf("Expected scripted PCM after the wait, got %d bytes", len(pcm))
	}
	if tp.mock.Calls() != 2 {
		t.Errorf("Expected 2 calls, got %d", tp.mock.Calls())
	}
	// 5s suggestion + 2s margin = one status per remaining second.
	if len(tp.posts) != 7 {
		t.Fatalf("Expected 7 countdown posts, got %d: %v", len(tp.posts), tp.posts)
	}
	if !strings.Contains(tp.posts[0], "7 s") {
		t.Errorf("Expected first post to count from 7, got %q", tp.posts[0])
	}
	if !strings.Contains(tp.posts[6], "1 s") {
		t.Errorf("Expected last post to count 1, got %q", tp.posts[6])
	}
}

func TestSynthesizeRateLimitDoesNotConsumeAttempts(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	tp.mock.Enqueue(
		engines.MockResponse{Err: errors.New("gemini: 500 Internal Error: boom")},
		engines.MockResponse{Err: errors.New("gemini: 429 RESOURCE_EXHAUSTED: retry in 1s")},
		engines.MockResponse{Err: errors.New("gemini: 500 Internal Error: boom")},
		engines.MockResponse{PCM: []byte{1}},
	)
	_, err := tp.synthesize(context.Background(), "Hello.", speakerCfg(""), "label")
	if err != nil {
		t.Fatalf("Expected success: the throttled call must not count as an attempt, got %v", err)
	}
	if tp.mock.Calls() != 4 {
		t.Errorf("Expected 4 calls, got %d", tp.mock.Calls())
	}
}

func TestSynthesizeQuotaWall(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	tp.mock.Enqueue(engines.MockResponse{Err: errors.New("gemini: 429 RESOURCE_EXHAUSTED: retry in 3700s")})
	_, err := tp.synthesize(context.Background(), "Hello.", speakerCfg(""), "label")
	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("Expected QuotaExceededError, got %v", err)
	}
	if got := quota.Hours(); got != "1.0" {
		t.Errorf("Expected 1.0 hours, got %q", got)
	}
	if tp.mock.Calls() != 1 {
		t.Errorf("Expected a single call before the quota bail, got %d", tp.mock.Calls())
	}
	if len(tp.sleeps) != 0 {
		t.Errorf("Expected no waiting on a quota wall, got %v", tp.sleeps)
	}
}

func TestSynthesizeAbortBeforeCall(t *testing.T) {
	token := NewToken()
	token.Abort()
	tp := newTestPipeline(t, Options{Token: token})
	_, err := tp.synthesize(context.Background(), "Hello.", speakerCfg(""), "label")
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Expected ErrAborted, got %v", err)
	}
	if tp.mock.Calls() != 0 {
		t.Errorf("Expected no remote call after abort, got %d", tp.mock.Calls())
	}
}

func TestSynthesizeAbortDuringCountdown(t *testing.T) {
	token := NewToken()
	tp := newTestPipeline(t, Options{Token: token})
	tp.mock.Enqueue(engines.MockResponse{Err: errors.New("gemini: 429 RESOURCE_EXHAUSTED: retry in 30s")})
	ticks := 0
	tp.sleep = func(time.Duration) {
		ticks++
		if ticks == 2 {
			token.Abort()
		}
	}
	_, err := tp.synthesize(context.Background(), "Hello.", speakerCfg(""), "label")
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Expected ErrAborted during countdown, got %v", err)
	}
	if ticks != 2 {
		t.Errorf("Expected the countdown to stop after the abort, got %d ticks", ticks)
	}
}
