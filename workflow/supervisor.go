package workflow

import (
	"context"
	"log/slog"

	"github.com/sweetpotato0/ragrouter/llm"
)

// Supervisor decides which stage acts next. Rules are evaluated fresh on
// every loop iteration, in priority order:
//
//  1. stage failure             -> REPORTER
//  2. iteration budget exhausted -> NOT_ENOUGH_INFO
//  3. first decision of the run  -> intent classification
//  4. verdict SUFFICIENT         -> GENERATOR
//  5. verdict PARTIAL            -> RETRIEVER (refined query)
//  6. verdict INSUFFICIENT       -> RETRIEVER (broadened query)
//  7. no verdict yet             -> stage hint, else RETRIEVER
type Supervisor struct {
	cfg        *Config
	classifier *classifier
	logger     *slog.Logger
}

// NewSupervisor builds the router. client may be nil, in which case intent
// classification uses the keyword fallback only.
func NewSupervisor(client llm.Client, cfg *Config, opts ...Option) *Supervisor {
	cfg = applyOptions(cfg, opts)
	logger := slog.Default().With("component", "supervisor")
	return &Supervisor{
		cfg:        cfg,
		classifier: newClassifier(client, cfg, logger),
		logger:     logger,
	}
}

func newSupervisor(client llm.Client, cfg *Config, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		classifier: newClassifier(client, cfg, logger),
		logger:     logger,
	}
}

// Decide returns the next stage given the state and the previous stage's
// outcome. last is nil on the first decision of a run. Decide also adjusts
// the retrieval strategy when a verdict sends the run back for more evidence.
func (s *Supervisor) Decide(ctx context.Context, st *State, last *Outcome) StageID {
	if last != nil && last.Kind == OutcomeFail {
		s.logger.Warn("stage failed, routing to reporter",
			"run_id", st.RunID, "stage", st.Route, "reason", last.Reason)
		return StageReporter
	}

	if st.Iterations >= s.cfg.MaxIterations {
		s.logger.Info("iteration budget exhausted",
			"run_id", st.RunID, "iterations", st.Iterations)
		return StageNotEnoughInfo
	}

	if last == nil {
		st.Strategy = StrategyInitial
		next := s.classifier.Classify(ctx, st.Question, st.History)
		s.logger.Info("question classified", "run_id", st.RunID, "intent", next)
		return next
	}

	switch st.Verdict {
	case VerdictSufficient:
		return StageGenerator
	case VerdictPartial:
		st.Strategy = StrategyRefined
		return StageRetriever
	case VerdictInsufficient:
		st.Strategy = StrategyBroadened
		return StageRetriever
	}

	// retrieval branch, nothing graded yet
	if last.NextHint != "" {
		return last.NextHint
	}
	return StageRetriever
}

// countsAsIteration reports whether routing into stage consumes iteration
// budget. Only the working stages of the retrieval branch do: classification
// short-circuits, grading, and terminal fallbacks are free.
func countsAsIteration(stage StageID) bool {
	return stage == StageRetriever || stage == StageGenerator
}
