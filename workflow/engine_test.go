package workflow

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	faqmem "github.com/sweetpotato0/ragrouter/contrib/faq/inmemory"
	vecmem "github.com/sweetpotato0/ragrouter/contrib/vector/inmemory"
	"github.com/sweetpotato0/ragrouter/errors"
	"github.com/sweetpotato0/ragrouter/faq"
	"github.com/sweetpotato0/ragrouter/history"
	"github.com/sweetpotato0/ragrouter/message"
	"github.com/sweetpotato0/ragrouter/vector"
)

func TestRunFAQHitShortCircuits(t *testing.T) {
	ctx := context.Background()

	classifier := &stubLLM{response: `{"intent":"FAQ","reasoning":"common question"}`}
	generator := &stubLLM{response: "should never be used"}

	faqs := faqmem.New()
	embedder := &keywordEmbedder{}
	emb, _ := embedder.Embed(ctx, "What is the shipping policy?")
	if err := faqs.Add(ctx, faq.Entry{
		ID:        "faq-shipping",
		Question:  "What is the shipping policy?",
		Answer:    "Orders ship within two business days.",
		Embedding: emb,
	}); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	eng, err := New(Backends{
		LLM:        generator,
		Classifier: classifier,
		Embedder:   embedder,
		Documents:  vecmem.New(),
		FAQs:       faqs,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	resp, err := eng.Run(ctx, "What is the shipping policy?")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp.Terminal != TerminalFAQHit {
		t.Fatalf("expected FAQ_HIT, got %s", resp.Terminal)
	}
	if resp.Answer != "Orders ship within two business days." {
		t.Fatalf("expected stored FAQ answer, got %q", resp.Answer)
	}
	if resp.Iterations != 0 {
		t.Fatalf("expected 0 iterations, got %d", resp.Iterations)
	}
	if generator.calls != 0 {
		t.Fatalf("expected generator LLM untouched, got %d calls", generator.calls)
	}
	if len(resp.References) != 1 || resp.References[0].Type != "FAQ" {
		t.Fatalf("expected one FAQ reference, got %#v", resp.References)
	}
}

func TestRunSufficientEvidenceAnswersInTwoIterations(t *testing.T) {
	ctx := context.Background()

	classifier := &stubLLM{response: `{"intent":"RETRIEVER","reasoning":"factual"}`}
	grader := &stubLLM{response: `{"grades":[{"id":1,"relevance":"strong"}],"coverage":true,"missing":""}`}
	generator := &stubLLM{response: "Shipping takes two business days according to the policy."}

	docs := vecmem.New()
	embedder := &keywordEmbedder{}
	seedDocuments(t, docs, embedder,
		"shipping-policy", "All shipping policy details and timelines.",
		"returns", "Return windows and labels.",
	)

	eng, err := New(Backends{
		LLM:        generator,
		Classifier: classifier,
		Grader:     grader,
		Embedder:   embedder,
		Documents:  docs,
	}, WithMinSearchScore(0))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	resp, err := eng.Run(ctx, "What is the shipping policy timeline?")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp.Terminal != TerminalAnswered {
		t.Fatalf("expected ANSWERED, got %s", resp.Terminal)
	}
	if resp.Iterations != 2 {
		t.Fatalf("expected exactly 2 iterations (retrieve, generate), got %d", resp.Iterations)
	}
	if len(resp.References) == 0 {
		t.Fatalf("expected references on an answered run")
	}
	if generator.calls != 1 {
		t.Fatalf("expected one generation call, got %d", generator.calls)
	}
}

func TestRunInsufficientEvidenceExhaustsBudget(t *testing.T) {
	ctx := context.Background()

	classifier := &stubLLM{response: `{"intent":"RETRIEVER","reasoning":"factual"}`}
	grader := &stubLLM{response: `{"grades":[{"id":1,"relevance":"none"}],"coverage":false,"missing":""}`}
	// fallback generation is unavailable so the templated message is used
	broken := &stubLLM{err: stderrors.New("backend offline")}

	docs := vecmem.New()
	embedder := &keywordEmbedder{}
	seedDocuments(t, docs, embedder, "shipping-policy", "All shipping policy details.")

	eng, err := New(Backends{
		LLM:        broken,
		Classifier: classifier,
		Grader:     grader,
		Embedder:   embedder,
		Documents:  docs,
	}, WithMaxIterations(5), WithMinSearchScore(0), WithSupportContact("1900-1234"))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	resp, err := eng.Run(ctx, "What is the shipping policy?")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp.Terminal != TerminalNotEnoughInfo {
		t.Fatalf("expected NOT_ENOUGH_INFO, got %s", resp.Terminal)
	}
	if resp.Iterations != 5 {
		t.Fatalf("expected iteration count 5 at the cap, got %d", resp.Iterations)
	}
	if !strings.Contains(resp.Answer, "1900-1234") {
		t.Fatalf("expected support contact in fallback answer, got %q", resp.Answer)
	}
}

func TestRunChatterNeverRetrieves(t *testing.T) {
	ctx := context.Background()

	classifier := &stubLLM{response: `{"intent":"CHATTER","reasoning":"upset user"}`}
	responder := &stubLLM{response: "I am really sorry to hear that, let me help make this right."}
	docs := &scriptedStore{err: stderrors.New("must not be called")}

	eng, err := New(Backends{
		LLM:        responder,
		Classifier: classifier,
		Embedder:   &keywordEmbedder{},
		Documents:  docs,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	resp, err := eng.Run(ctx, "this service has been absolutely terrible today")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp.Terminal != TerminalChatter {
		t.Fatalf("expected CHATTER, got %s", resp.Terminal)
	}
	if resp.Iterations != 0 {
		t.Fatalf("expected 0 iterations, got %d", resp.Iterations)
	}
	if docs.searchCalls != 0 {
		t.Fatalf("expected no retrieval, got %d search calls", docs.searchCalls)
	}
}

func TestRunBackendFailureRoutesToReporter(t *testing.T) {
	ctx := context.Background()

	classifier := &stubLLM{response: `{"intent":"RETRIEVER","reasoning":"factual"}`}
	docs := &scriptedStore{err: stderrors.New("connection refused")}

	eng, err := New(Backends{
		LLM:        &stubLLM{response: "unused"},
		Classifier: classifier,
		Embedder:   &keywordEmbedder{},
		Documents:  docs,
	}, WithSupportContact("1900-1234"))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	resp, err := eng.Run(ctx, "What is the shipping policy?")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp.Terminal != TerminalReporter {
		t.Fatalf("expected REPORTER, got %s", resp.Terminal)
	}
	if docs.searchCalls != 1 {
		t.Fatalf("expected a single search attempt, got %d", docs.searchCalls)
	}
	if !strings.Contains(resp.Answer, "1900-1234") {
		t.Fatalf("expected maintenance notice with support contact, got %q", resp.Answer)
	}
}

func TestRunGraderFailureRoutesToReporter(t *testing.T) {
	ctx := context.Background()

	classifier := &stubLLM{response: `{"intent":"RETRIEVER","reasoning":"factual"}`}
	grader := &stubLLM{err: stderrors.New("inference backend down")}

	docs := vecmem.New()
	embedder := &keywordEmbedder{}
	seedDocuments(t, docs, embedder, "shipping-policy", "All shipping policy details.")

	eng, err := New(Backends{
		LLM:        &stubLLM{response: "unused"},
		Classifier: classifier,
		Grader:     grader,
		Embedder:   embedder,
		Documents:  docs,
	}, WithMinSearchScore(0))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	resp, err := eng.Run(ctx, "What is the shipping policy?")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp.Terminal != TerminalReporter {
		t.Fatalf("expected REPORTER after grader failure, got %s", resp.Terminal)
	}
}

func TestRunStageTimeoutRoutesToReporter(t *testing.T) {
	ctx := context.Background()

	classifier := &stubLLM{response: `{"intent":"RETRIEVER","reasoning":"factual"}`}
	grader := &stubLLM{response: `{"grades":[{"id":1,"relevance":"strong"}],"coverage":true,"missing":""}`}

	docs := vecmem.New()
	embedder := &keywordEmbedder{}
	seedDocuments(t, docs, embedder, "shipping-policy", "All shipping policy details.")

	eng, err := New(Backends{
		LLM:        &slowLLM{}, // generation hangs until the stage deadline
		Classifier: classifier,
		Grader:     grader,
		Embedder:   embedder,
		Documents:  docs,
	}, WithMinSearchScore(0), WithStageTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	resp, err := eng.Run(ctx, "What is the shipping policy?")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp.Terminal != TerminalReporter {
		t.Fatalf("expected REPORTER after stage timeout, got %s", resp.Terminal)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng, err := New(Backends{
		LLM:       &stubLLM{response: "unused"},
		Embedder:  &keywordEmbedder{},
		Documents: vecmem.New(),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, err := eng.Run(ctx, "What is the shipping policy?"); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunEmptyQuestionRejected(t *testing.T) {
	eng, err := New(Backends{
		LLM:       &stubLLM{response: "unused"},
		Embedder:  &keywordEmbedder{},
		Documents: vecmem.New(),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, err := eng.Run(context.Background(), "   "); !stderrors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRunConversationPersistsHistory(t *testing.T) {
	ctx := context.Background()

	classifier := &stubLLM{response: `{"intent":"RETRIEVER","reasoning":"factual"}`}
	grader := &stubLLM{response: `{"grades":[{"id":1,"relevance":"strong"}],"coverage":true,"missing":""}`}
	generator := &stubLLM{response: "Shipping takes two business days."}

	docs := vecmem.New()
	embedder := &keywordEmbedder{}
	seedDocuments(t, docs, embedder, "shipping-policy", "All shipping policy details.")

	conversations := history.NewInMemoryStore()
	eng, err := New(Backends{
		LLM:        generator,
		Classifier: classifier,
		Grader:     grader,
		Embedder:   embedder,
		Documents:  docs,
		History:    conversations,
	}, WithMinSearchScore(0))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, err := eng.RunConversation(ctx, "conv-1", "What is the shipping policy?"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	msgs, err := conversations.Recent(ctx, "conv-1", 0)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected question and answer persisted, got %d messages", len(msgs))
	}
	if msgs[0].Role != message.RoleUser || msgs[1].Role != message.RoleAssistant {
		t.Fatalf("expected user then assistant, got %s, %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestRunPartialVerdictLoopHitsCap(t *testing.T) {
	ctx := context.Background()

	// partial verdicts keep requesting refined retrieval until the budget runs out
	classifier := &stubLLM{response: `{"intent":"RETRIEVER","reasoning":"factual"}`}
	grader := &stubLLM{response: `{"grades":[{"id":1,"relevance":"weak"}],"coverage":false,"missing":"delivery times"}`}

	docs := vecmem.New()
	embedder := &keywordEmbedder{}
	seedDocuments(t, docs, embedder, "shipping-policy", "All shipping policy details.")

	eng, err := New(Backends{
		LLM:        &stubLLM{err: stderrors.New("offline")},
		Classifier: classifier,
		Grader:     grader,
		Embedder:   embedder,
		Documents:  docs,
	}, WithMaxIterations(3), WithMinSearchScore(0))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	resp, err := eng.Run(ctx, "What is the shipping policy?")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp.Terminal != TerminalNotEnoughInfo {
		t.Fatalf("expected NOT_ENOUGH_INFO at the cap, got %s", resp.Terminal)
	}
	if resp.Iterations > 3 {
		t.Fatalf("iteration count %d exceeds the cap", resp.Iterations)
	}
	// weakly graded passages were accepted along the way, but the final
	// answer never used them
	if len(resp.References) != 0 {
		t.Fatalf("expected no references on NOT_ENOUGH_INFO, got %#v", resp.References)
	}
}

// --- shared test doubles ---

type stubLLM struct {
	response string
	err      error
	calls    int
}

func (s *stubLLM) Generate(ctx context.Context, msgs []*message.Message) (*message.Message, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return message.NewMessage(message.RoleAssistant, s.response), nil
}

func (s *stubLLM) SetTemperature(float64) {}
func (s *stubLLM) SetMaxTokens(int64)     {}
func (s *stubLLM) SetModel(string)        {}

// slowLLM blocks until the caller's context expires.
type slowLLM struct{}

func (s *slowLLM) Generate(ctx context.Context, msgs []*message.Message) (*message.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *slowLLM) SetTemperature(float64) {}
func (s *slowLLM) SetMaxTokens(int64)     {}
func (s *slowLLM) SetModel(string)        {}

type keywordEmbedder struct{}

var keywordSpace = []string{"shipping", "policy", "return", "timeline", "label"}

func (k *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(keywordSpace))
	lower := strings.ToLower(text)
	for idx, kw := range keywordSpace {
		if strings.Contains(lower, kw) {
			vec[idx] = 1
		}
	}
	return vec, nil
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := k.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (k *keywordEmbedder) Dimension() int {
	return len(keywordSpace)
}

// scriptedStore returns canned results (or an error) and records calls.
type scriptedStore struct {
	results     []vector.SearchResult
	err         error
	searchCalls int
	lastTopK    int
}

func (s *scriptedStore) Upsert(ctx context.Context, emb *vector.Embedding) error { return nil }

func (s *scriptedStore) Search(ctx context.Context, query []float32, topK int) ([]vector.SearchResult, error) {
	s.searchCalls++
	s.lastTopK = topK
	if s.err != nil {
		return nil, s.err
	}
	if topK > 0 && len(s.results) > topK {
		return append([]vector.SearchResult(nil), s.results[:topK]...), nil
	}
	return append([]vector.SearchResult(nil), s.results...), nil
}

func (s *scriptedStore) Delete(ctx context.Context, id string) error { return nil }
func (s *scriptedStore) Clear(ctx context.Context) error             { return nil }
func (s *scriptedStore) Count(ctx context.Context) (int, error)      { return len(s.results), nil }

func seedDocuments(t *testing.T, store vector.Store, embedder vector.Embedder, pairs ...string) {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatalf("seedDocuments needs id/text pairs")
	}
	ctx := context.Background()
	for i := 0; i < len(pairs); i += 2 {
		emb, err := embedder.Embed(ctx, pairs[i+1])
		if err != nil {
			t.Fatalf("embed error: %v", err)
		}
		if err := store.Upsert(ctx, &vector.Embedding{
			ID:     pairs[i],
			Vector: emb,
			Text:   pairs[i+1],
		}); err != nil {
			t.Fatalf("upsert error: %v", err)
		}
	}
}
