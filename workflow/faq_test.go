package workflow

import (
	"context"
	stderrors "errors"
	"log/slog"
	"testing"

	"github.com/sweetpotato0/ragrouter/faq"
)

// stubFAQStore returns a fixed match.
type stubFAQStore struct {
	match faq.Match
	found bool
	err   error
}

func (s *stubFAQStore) Lookup(ctx context.Context, emb []float32) (faq.Match, bool, error) {
	return s.match, s.found, s.err
}

func (s *stubFAQStore) Add(ctx context.Context, entry faq.Entry) error { return nil }
func (s *stubFAQStore) Delete(ctx context.Context, id string) error    { return nil }
func (s *stubFAQStore) Count(ctx context.Context) (int, error)         { return 1, nil }

func testFAQStage(store faq.Store, opts ...Option) *faqStage {
	cfg := applyOptions(nil, opts)
	return newFAQStage(&keywordEmbedder{}, store, cfg, slog.Default())
}

func TestFAQAboveThresholdTerminates(t *testing.T) {
	stage := testFAQStage(&stubFAQStore{
		match: faq.Match{
			Entry: faq.Entry{ID: "faq-1", Answer: "stored answer"},
			Score: 0.92,
		},
		found: true,
	}, WithSimilarityThreshold(0.7))

	out := stage.Execute(context.Background(), &State{Question: "q"})
	if out.Kind != OutcomeTerminate || out.Terminal != TerminalFAQHit {
		t.Fatalf("expected FAQ_HIT termination, got %#v", out)
	}
	if out.Answer != "stored answer" {
		t.Fatalf("expected stored answer, got %q", out.Answer)
	}
}

func TestFAQBelowThresholdFallsThrough(t *testing.T) {
	stage := testFAQStage(&stubFAQStore{
		match: faq.Match{Entry: faq.Entry{ID: "faq-1"}, Score: 0.5},
		found: true,
	}, WithSimilarityThreshold(0.7))

	out := stage.Execute(context.Background(), &State{Question: "q"})
	if out.Kind != OutcomeContinue || out.NextHint != StageRetriever {
		t.Fatalf("expected fall-through to retriever, got %#v", out)
	}
}

func TestFAQExactThresholdFallsThrough(t *testing.T) {
	// acceptance requires strictly exceeding the threshold
	stage := testFAQStage(&stubFAQStore{
		match: faq.Match{Entry: faq.Entry{ID: "faq-1"}, Score: 0.7},
		found: true,
	}, WithSimilarityThreshold(0.7))

	out := stage.Execute(context.Background(), &State{Question: "q"})
	if out.Kind != OutcomeContinue {
		t.Fatalf("expected fall-through at the exact threshold, got %#v", out)
	}
}

func TestFAQLookupErrorFallsThrough(t *testing.T) {
	stage := testFAQStage(&stubFAQStore{err: stderrors.New("bank offline")})

	out := stage.Execute(context.Background(), &State{Question: "q"})
	if out.Kind != OutcomeContinue || out.NextHint != StageRetriever {
		t.Fatalf("expected graceful fall-through on lookup error, got %#v", out)
	}
}

func TestFAQEmptyBankFallsThrough(t *testing.T) {
	stage := testFAQStage(&stubFAQStore{found: false})

	out := stage.Execute(context.Background(), &State{Question: "q"})
	if out.Kind != OutcomeContinue {
		t.Fatalf("expected fall-through on empty bank, got %#v", out)
	}
}

func TestFAQWithoutStoreFallsThrough(t *testing.T) {
	stage := testFAQStage(nil)

	out := stage.Execute(context.Background(), &State{Question: "q"})
	if out.Kind != OutcomeContinue || out.NextHint != StageRetriever {
		t.Fatalf("expected fall-through without a bank, got %#v", out)
	}
}
