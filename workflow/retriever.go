package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ragrouter/vector"
)

// retrieverStage queries the vector store for candidate passages. The
// strategy set by the supervisor shapes the query: refined retrieval folds
// grader feedback into the query text, broadened retrieval widens top-k and
// drops the minimum-score filter.
type retrieverStage struct {
	cfg      *Config
	embedder vector.Embedder
	docs     vector.Store
	logger   *slog.Logger
}

func newRetrieverStage(embedder vector.Embedder, docs vector.Store, cfg *Config, logger *slog.Logger) *retrieverStage {
	return &retrieverStage{cfg: cfg, embedder: embedder, docs: docs, logger: logger}
}

func (r *retrieverStage) ID() StageID { return StageRetriever }

func (r *retrieverStage) Execute(ctx context.Context, st *State) Outcome {
	query := st.Question
	topK := r.cfg.TopK
	minScore := r.cfg.MinSearchScore

	switch st.Strategy {
	case StrategyRefined:
		if notes := strings.TrimSpace(st.GraderNotes); notes != "" {
			query = st.Question + " " + notes
		}
	case StrategyBroadened:
		topK = r.cfg.BroadenedTopK
		minScore = 0
	}

	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return Failure(fmt.Sprintf("embed query: %v", err))
	}

	results, err := r.docs.Search(ctx, emb, topK)
	if err != nil {
		return Failure(fmt.Sprintf("vector search: %v", err))
	}
	vector.SortResults(results)

	retrieved := make([]Candidate, 0, len(results))
	for _, res := range results {
		if res.Score < minScore {
			continue
		}
		retrieved = append(retrieved, Candidate{
			DocID: res.DocID,
			Text:  res.Text,
			Score: res.Score,
		})
	}

	if r.cfg.MergeCandidates && st.Strategy == StrategyRefined {
		retrieved = mergeCandidates(st.Candidates, retrieved, topK)
	}
	st.Candidates = retrieved

	// a fresh retrieval invalidates any earlier grading
	st.Verdict = VerdictNone
	st.Accepted = nil

	r.logger.Info("retrieval completed", "run_id", st.RunID,
		"strategy", st.Strategy, "query", trimForLog(query, 120),
		"hits", len(retrieved))

	if len(retrieved) == 0 {
		return Continue(StageNotEnoughInfo)
	}
	return Continue(StageGrader)
}

// mergeCandidates unions prior and fresh candidates, keeping the higher score
// per document and trimming to limit after re-sorting.
func mergeCandidates(prior, fresh []Candidate, limit int) []Candidate {
	byDoc := make(map[string]int, len(fresh))
	merged := make([]Candidate, 0, len(prior)+len(fresh))
	for _, c := range fresh {
		byDoc[c.DocID] = len(merged)
		merged = append(merged, c)
	}
	for _, c := range prior {
		if idx, ok := byDoc[c.DocID]; ok {
			if c.Score > merged[idx].Score {
				merged[idx].Score = c.Score
			}
			continue
		}
		byDoc[c.DocID] = len(merged)
		merged = append(merged, c)
	}
	sortCandidates(merged)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func sortCandidates(cands []Candidate) {
	results := make([]vector.SearchResult, len(cands))
	for i, c := range cands {
		results[i] = vector.SearchResult{DocID: c.DocID, Text: c.Text, Score: c.Score}
	}
	vector.SortResults(results)
	for i, res := range results {
		cands[i] = Candidate{DocID: res.DocID, Text: res.Text, Score: res.Score}
	}
}
