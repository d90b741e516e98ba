package workflow

import "context"

// OutcomeKind is a stage's self-reported routing signal.
type OutcomeKind string

const (
	// OutcomeContinue hands control back to the supervisor, optionally with
	// a routing hint.
	OutcomeContinue OutcomeKind = "continue"
	// OutcomeTerminate carries the final answer; the run ends here.
	OutcomeTerminate OutcomeKind = "terminate"
	// OutcomeFail signals a backend failure the supervisor must absorb.
	OutcomeFail OutcomeKind = "fail"
)

// Outcome is what a stage reports back after executing.
type Outcome struct {
	Kind       OutcomeKind
	NextHint   StageID // only meaningful for OutcomeContinue
	Answer     string  // only meaningful for OutcomeTerminate
	Terminal   TerminalKind
	References []Reference
	Reason     string // only meaningful for OutcomeFail
}

// Continue reports a non-terminal outcome with a routing hint for the
// supervisor. An empty hint lets the supervisor decide from the verdict.
func Continue(hint StageID) Outcome {
	return Outcome{Kind: OutcomeContinue, NextHint: hint}
}

// Finish reports a terminal outcome with the final answer.
func Finish(kind TerminalKind, answer string, refs ...Reference) Outcome {
	return Outcome{Kind: OutcomeTerminate, Terminal: kind, Answer: answer, References: refs}
}

// Failure reports a stage failure the supervisor routes to the reporter.
func Failure(reason string) Outcome {
	return Outcome{Kind: OutcomeFail, Reason: reason}
}

// Stage is the uniform contract every reasoning stage implements. A stage
// reads the state, performs its work (any external calls happen behind this
// boundary), writes only its own contribution back, and self-reports an
// outcome. Stages must not touch Route or Iterations.
type Stage interface {
	ID() StageID
	Execute(ctx context.Context, st *State) Outcome
}
