package narration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dgnsrekt/narrator/narration/engines"
)

func twoSpeakerScript() ([]DialogueLine, []SpeakerTrack) {
	lines := []DialogueLine{
		line("Alice", "Alice speaks first."),
		line("Bob", "Bob replies."),
		line("Alice", "Alice again."),
	}
	tracks := []SpeakerTrack{
		{Speaker: "Alice", Config: speakerCfg("")},
		{Speaker: "Bob", Config: speakerCfg("")},
	}
	return lines, tracks
}

func TestNarrateCombinedAssemblesAllBatches(t *testing.T) {
	tp := newTestPipeline(t, Options{InterBatchDelaySec: 2})
	tp.mock.Enqueue(
		engines.MockResponse{PCM: []byte{1, 1}},
		engines.MockResponse{PCM: []byte{2, 2}},
		engines.MockResponse{PCM: []byte{3, 3}},
	)
	lines, tracks := twoSpeakerScript()

	out, err := tp.NarrateCombined(context.Background(), lines, tracks)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Chunks() != 3 {
		t.Errorf("Expected 3 chunks, got %d", out.Chunks())
	}
	if out.DataSize() != 6 {
		t.Errorf("Expected 6 payload bytes, got %d", out.DataSize())
	}
	pcm := out.PCM()
	if want := []byte{1, 1, 2, 2, 3, 3}; string(pcm) != string(want) {
		t.Errorf("Chunks out of order: %v", pcm)
	}
	if tp.mock.Calls() != 3 {
		t.Errorf("Expected 3 synthesis calls, got %d", tp.mock.Calls())
	}
	// No wait after the final batch.
	waits := 0
	for _, p := range tp.posts {
		if strings.Contains(p, "Inter-batch delay") {
			waits++
		}
	}
	// 2 gaps, each 2s base + 3s jitter = 5 ticks.
	if waits != 10 {
		t.Errorf("Expected 10 inter-batch ticks, got %d", waits)
	}
}

func TestNarrateCombinedEmptyScript(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	_, err := tp.NarrateCombined(context.Background(), nil, nil)
	if !errors.Is(err, ErrNoLines) {
		t.Fatalf("Expected ErrNoLines, got %v", err)
	}
}

func TestNarrateCombinedSkipsUnconfiguredSpeaker(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	lines, _ := twoSpeakerScript()
	tracks := []SpeakerTrack{{Speaker: "Alice", Config: speakerCfg("")}}

	out, err := tp.NarrateCombined(context.Background(), lines, tracks)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if tp.mock.Calls() != 2 {
		t.Errorf("Expected only Alice's 2 batches, got %d calls", tp.mock.Calls())
	}
	if out.Chunks() != 2 {
		t.Errorf("Expected 2 chunks, got %d", out.Chunks())
	}
}

func TestNarrateCombinedAbortSalvagesPartial(t *testing.T) {
	token := NewToken()
	tp := newTestPipeline(t, Options{Token: token})
	tp.mock.OnCall(func(n int, _ engines.Request) {
		if n == 2 {
			token.Abort()
		}
	})
	lines, tracks := twoSpeakerScript()

	out, err := tp.NarrateCombined(context.Background(), lines, tracks)
	if err != nil {
		t.Fatalf("Expected a salvaged partial result, got error: %v", err)
	}
	// The second call still returns audio; the abort lands before the
	// third batch starts.
	if out.Chunks() != 2 {
		t.Errorf("Expected exactly 2 salvaged chunks, got %d", out.Chunks())
	}
	if tp.mock.Calls() != 2 {
		t.Errorf("Expected no calls after the abort, got %d", tp.mock.Calls())
	}
}

func TestNarrateCombinedHardFailureDropsPartial(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	tp.mock.Enqueue(
		engines.MockResponse{PCM: []byte{1}},
		engines.MockResponse{Err: errors.New("gemini: 400 INVALID_ARGUMENT: bad request")},
	)
	lines, tracks := twoSpeakerScript()

	out, err := tp.NarrateCombined(context.Background(), lines, tracks)
	if err == nil {
		t.Fatal("Expected the hard failure to propagate")
	}
	if out != nil {
		t.Errorf("Expected no partial output on hard failure, got %d chunks", out.Chunks())
	}
}

func TestNarrateSeparateProducesTrackOrderedFiles(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	lines, tracks := twoSpeakerScript()

	results, err := tp.NarrateSeparate(context.Background(), lines, tracks)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 speaker results, got %d", len(results))
	}
	if results[0].Speaker != "Alice" || results[1].Speaker != "Bob" {
		t.Errorf("Expected track order Alice, Bob; got %s, %s", results[0].Speaker, results[1].Speaker)
	}
	// Alice's two lines merge into one batch; Bob has one.
	if results[0].Audio.Chunks() != 1 {
		t.Errorf("Expected Alice's lines merged into 1 chunk, got %d", results[0].Audio.Chunks())
	}
	reqs := tp.mock.Requests()
	if len(reqs) != 2 {
		t.Fatalf("Expected 2 synthesis calls, got %d", len(reqs))
	}
	if want := "Alice speaks first. Alice again."; reqs[0].Text != want {
		t.Errorf("Expected Alice's merged batch %q, got %q", want, reqs[0].Text)
	}
}

func TestNarrateSeparateSkipsSilentTrack(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	lines := []DialogueLine{line("Alice", "Only Alice speaks.")}
	tracks := []SpeakerTrack{
		{Speaker: "Alice", Config: speakerCfg("")},
		{Speaker: "Bob", Config: speakerCfg("")},
	}

	results, err := tp.NarrateSeparate(context.Background(), lines, tracks)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Speaker != "Alice" {
		t.Errorf("Expected only Alice's result, got %v", results)
	}
}

func TestNarrateSeparateAbortKeepsInProgressSpeaker(t *testing.T) {
	token := NewToken()
	tp := newTestPipeline(t, Options{Token: token})
	// Force one batch per line so Alice needs two calls.
	tp.maxChars = 20
	tp.mock.OnCall(func(n int, _ engines.Request) {
		if n == 2 {
			token.Abort()
		}
	})
	lines := []DialogueLine{
		line("Alice", "Alice line one here."),
		line("Alice", "Alice line two here."),
		line("Bob", "Bob never speaks."),
	}
	tracks := []SpeakerTrack{
		{Speaker: "Alice", Config: speakerCfg("")},
		{Speaker: "Bob", Config: speakerCfg("")},
	}

	results, err := tp.NarrateSeparate(context.Background(), lines, tracks)
	if err != nil {
		t.Fatalf("Expected salvaged results, got error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected only the in-progress speaker, got %d results", len(results))
	}
	if results[0].Speaker != "Alice" {
		t.Errorf("Expected Alice's partial track, got %s", results[0].Speaker)
	}
	if results[0].Audio.Chunks() != 2 {
		t.Errorf("Expected both finished chunks kept, got %d", results[0].Audio.Chunks())
	}
	if tp.mock.Calls() != 2 {
		t.Errorf("Expected Bob never reached, got %d calls", tp.mock.Calls())
	}
}

func TestNarrateSeparateHardFailureDropsEverything(t *testing.T) {
	tp := newTestPipeline(t, Options{})
	tp.mock.Enqueue(
		engines.MockResponse{PCM: []byte{1}},
		engines.MockResponse{Err: errors.New("gemini: 403 PERMISSION_DENIED: key revoked")},
	)
	lines, tracks := twoSpeakerScript()

	results, err := tp.NarrateSeparate(context.Background(), lines, tracks)
	if err == nil {
		t.Fatal("Expected the hard failure to propagate")
	}
	if results != nil {
		t.Errorf("Expected no results on hard failure, got %v", results)
	}
}

func TestNarrateLine(t *testing.T) {
	tp := newTestPipeline(t, Options{SampleRate: 24000})
	tp.mock.Enqueue(engines.MockResponse{PCM: []byte{9, 9, 9, 9}})

	out, err := tp.NarrateLine(context.Background(), "Preview me.", speakerCfg("bright:"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.DataSize() != 4 {
		t.Errorf("Expected 4 payload bytes, got %d", out.DataSize())
	}
	if out.SampleRate() != 24000 {
		t.Errorf("Expected 24000 Hz, got %d", out.SampleRate())
	}
	if !strings.Contains(tp.mock.Requests()[0].Text, "bright:") {
		t.Errorf("Expected persona in request, got %q", tp.mock.Requests()[0].Text)
	}
}
