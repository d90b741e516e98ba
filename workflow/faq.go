package workflow

import (
	"context"
	"log/slog"

	"github.com/sweetpotato0/ragrouter/faq"
	"github.com/sweetpotato0/ragrouter/vector"
)

// faqStage checks the curated question bank before any document retrieval.
// Lookup failures fall through to the retriever instead of aborting the run:
// a broken FAQ bank should degrade to document answering, not to an error.
type faqStage struct {
	cfg      *Config
	embedder vector.Embedder
	store    faq.Store
	logger   *slog.Logger
}

func newFAQStage(embedder vector.Embedder, store faq.Store, cfg *Config, logger *slog.Logger) *faqStage {
	return &faqStage{cfg: cfg, embedder: embedder, store: store, logger: logger}
}

func (f *faqStage) ID() StageID { return StageFAQ }

func (f *faqStage) Execute(ctx context.Context, st *State) Outcome {
	if f.store == nil || f.embedder == nil {
		return Continue(StageRetriever)
	}

	emb, err := f.embedder.Embed(ctx, st.Question)
	if err != nil {
		f.logger.Warn("question embedding failed, falling through to retriever",
			"run_id", st.RunID, "error", err)
		return Continue(StageRetriever)
	}

	match, ok, err := f.store.Lookup(ctx, emb)
	if err != nil {
		f.logger.Warn("faq lookup failed, falling through to retriever",
			"run_id", st.RunID, "error", err)
		return Continue(StageRetriever)
	}
	if !ok {
		return Continue(StageRetriever)
	}

	if match.Score <= f.cfg.SimilarityThreshold {
		f.logger.Debug("best faq below threshold",
			"run_id", st.RunID, "score", match.Score,
			"threshold", f.cfg.SimilarityThreshold)
		return Continue(StageRetriever)
	}

	f.logger.Info("faq hit", "run_id", st.RunID,
		"faq_id", match.Entry.ID, "score", match.Score)
	return Finish(TerminalFAQHit, match.Entry.Answer, Reference{
		DocID: match.Entry.ID,
		Type:  "FAQ",
		Score: match.Score,
	})
}
