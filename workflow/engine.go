package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/ragrouter/errors"
	"github.com/sweetpotato0/ragrouter/faq"
	"github.com/sweetpotato0/ragrouter/history"
	"github.com/sweetpotato0/ragrouter/llm"
	"github.com/sweetpotato0/ragrouter/message"
	"github.com/sweetpotato0/ragrouter/pkg/logging"
	"github.com/sweetpotato0/ragrouter/pkg/metrics"
	"github.com/sweetpotato0/ragrouter/pkg/telemetry"
	"github.com/sweetpotato0/ragrouter/vector"
)

// Backends groups the external collaborators the workflow depends on. LLM,
// Embedder and Documents are required; the rest are optional and degrade
// gracefully when absent.
type Backends struct {
	LLM       llm.Client      // answer generation and default for all judgment calls
	Embedder  vector.Embedder // question/query embeddings
	Documents vector.Store    // document passages
	FAQs      faq.Store       // curated question bank, optional
	History   history.Store   // conversation persistence, optional

	// Optional per-concern overrides, e.g. a cheaper model for routing.
	Classifier llm.Client
	Grader     llm.Client
}

// Engine drives the supervisor→stage→supervisor loop for one question at a
// time. Engines are safe for concurrent use: each run owns its own State and
// the engine itself holds no per-run mutable state.
type Engine struct {
	cfg        *Config
	supervisor *Supervisor
	stages     map[StageID]Stage
	history    history.Store
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New wires the workflow engine from backends and options.
func New(b Backends, opts ...Option) (*Engine, error) {
	cfg := applyOptions(nil, opts)

	if b.LLM == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if b.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if b.Documents == nil {
		return nil, fmt.Errorf("document store is required")
	}

	logger := logging.WithComponent("workflow").With("workflow", cfg.Name)

	stages := map[StageID]Stage{}
	for _, st := range []Stage{
		newFAQStage(b.Embedder, b.FAQs, cfg, logger),
		newRetrieverStage(b.Embedder, b.Documents, cfg, logger),
		newGraderStage(pickClient(b.Grader, b.LLM), cfg, logger),
		newGeneratorStage(b.LLM, cfg, logger),
		newNotEnoughInfoStage(b.LLM, cfg, logger),
		newChatterStage(b.LLM, cfg, logger),
		newReporterStage(cfg),
		newOtherStage(cfg),
	} {
		stages[st.ID()] = st
	}

	e := &Engine{
		cfg:        cfg,
		supervisor: newSupervisor(pickClient(b.Classifier, b.LLM), cfg, logger),
		stages:     stages,
		history:    b.History,
		logger:     logger,
		tracer:     telemetry.Tracer("ragrouter/workflow"),
	}
	logger.Info("workflow engine initialised",
		"top_k", cfg.TopK,
		"similarity_threshold", cfg.SimilarityThreshold,
		"max_iterations", cfg.MaxIterations,
		"stage_timeout", cfg.StageTimeout,
	)
	return e, nil
}

func pickClient(primary, fallback llm.Client) llm.Client {
	if primary != nil {
		return primary
	}
	return fallback
}

// Run processes a single question with no conversation context.
func (e *Engine) Run(ctx context.Context, question string) (*Response, error) {
	return e.RunConversation(ctx, "", question)
}

// RunConversation processes a question inside a conversation. When a history
// store is wired and conversationID is non-empty, prior turns feed the
// prompts and the exchange is appended afterwards.
func (e *Engine) RunConversation(ctx context.Context, conversationID, question string) (*Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question cannot be empty", errors.ErrInvalidInput)
	}

	st := &State{
		RunID:    uuid.NewString(),
		Question: question,
	}
	if e.history != nil && conversationID != "" {
		msgs, err := e.history.Recent(ctx, conversationID, 0)
		if err != nil {
			e.logger.Warn("history load failed, running without context",
				"run_id", st.RunID, "error", err)
		} else {
			st.History = msgs
		}
	}

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("run.id", st.RunID),
			attribute.String("workflow.name", e.cfg.Name),
		))
	e.logger.Info("run started", "run_id", st.RunID,
		"question", trimForLog(question, 120))

	err := e.loop(ctx, st)
	telemetry.End(span, err)
	if err != nil {
		return nil, err
	}

	metrics.RecordRun(string(st.Terminal), st.Iterations, time.Since(start))
	e.logger.Info("run completed", "run_id", st.RunID,
		"terminal", st.Terminal, "iterations", st.Iterations,
		"duration", time.Since(start))

	if e.history != nil && conversationID != "" {
		if err := e.history.Append(ctx, conversationID,
			message.NewMessage(message.RoleUser, st.Question),
			message.NewMessage(message.RoleAssistant, st.FinalAnswer),
		); err != nil {
			e.logger.Warn("history append failed", "run_id", st.RunID, "error", err)
		}
	}

	return &Response{
		RunID:      st.RunID,
		Question:   st.Question,
		Answer:     st.FinalAnswer,
		Terminal:   st.Terminal,
		References: st.References,
		Iterations: st.Iterations,
	}, nil
}

// loop runs supervisor decisions and stage executions until a terminal stage
// sets the final answer. The hard step guard is independent of supervisor
// logic so the run terminates even if routing misbehaves.
func (e *Engine) loop(ctx context.Context, st *State) error {
	maxSteps := 3*e.cfg.MaxIterations + 4

	var last *Outcome
	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if step >= maxSteps {
			e.logger.Error("step guard tripped, forcing not-enough-info",
				"run_id", st.RunID, "steps", step)
			st.FinalAnswer = e.cfg.renderTemplate(e.cfg.NoEvidenceMessage)
			st.Terminal = TerminalNotEnoughInfo
			st.References = nil
			return nil
		}

		next := e.supervisor.Decide(ctx, st, last)
		if countsAsIteration(next) {
			st.Iterations++
		}
		st.Route = next

		stage, ok := e.stages[next]
		if !ok {
			// unreachable with the closed stage set; absorb anyway
			st.FinalAnswer = e.cfg.renderTemplate(e.cfg.MaintenanceMessage)
			st.Terminal = TerminalReporter
			return nil
		}

		out := e.execute(ctx, stage, st)
		if err := ctx.Err(); err != nil {
			return err
		}

		if out.Kind == OutcomeTerminate {
			st.FinalAnswer = out.Answer
			st.Terminal = out.Terminal
			// the terminal outcome owns the reference set: grading references
			// must not leak into answers that never used the evidence
			st.References = out.References
			return nil
		}
		if out.Kind == OutcomeFail && next == StageReporter {
			// reporter is templated and cannot fail, but never loop on it
			st.FinalAnswer = e.cfg.renderTemplate(e.cfg.MaintenanceMessage)
			st.Terminal = TerminalReporter
			st.References = nil
			return nil
		}
		last = &out
	}
}

// execute runs one stage under the per-stage timeout, recording duration and
// outcome. A deadline hit inside the stage surfaces as a failure outcome.
func (e *Engine) execute(ctx context.Context, stage Stage, st *State) Outcome {
	stageCtx := ctx
	var cancel context.CancelFunc
	if e.cfg.StageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, e.cfg.StageTimeout)
		defer cancel()
	}

	start := time.Now()
	ctxSpan, span := e.tracer.Start(stageCtx, "workflow.stage",
		trace.WithAttributes(
			attribute.String("run.id", st.RunID),
			attribute.String("stage.id", string(stage.ID())),
		))

	out := stage.Execute(ctxSpan, st)

	// a stage starved by its own deadline reports as failed even if it
	// returned a continue outcome on the way out
	if out.Kind == OutcomeContinue && stageCtx.Err() != nil && ctx.Err() == nil {
		out = Failure(fmt.Sprintf("stage %s timed out", stage.ID()))
	}

	var spanErr error
	if out.Kind == OutcomeFail {
		spanErr = fmt.Errorf("%w: %s", errors.ErrBackendUnavailable, out.Reason)
	}
	telemetry.End(span, spanErr)
	metrics.RecordStage(string(stage.ID()), string(out.Kind), time.Since(start))

	e.logger.Debug("stage executed", "run_id", st.RunID,
		"stage", stage.ID(), "outcome", out.Kind,
		"duration", time.Since(start))
	return out
}
