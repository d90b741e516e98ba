package workflow

import (
	"github.com/sweetpotato0/ragrouter/message"
)

// StageID identifies one reasoning stage in the workflow. The set is closed:
// the supervisor switches on these identifiers, never on concrete types.
type StageID string

const (
	StageFAQ           StageID = "FAQ"
	StageRetriever     StageID = "RETRIEVER"
	StageGrader        StageID = "GRADER"
	StageGenerator     StageID = "GENERATOR"
	StageNotEnoughInfo StageID = "NOT_ENOUGH_INFO"
	StageChatter       StageID = "CHATTER"
	StageReporter      StageID = "REPORTER"
	StageOther         StageID = "OTHER"
)

// TerminalKind classifies how a run ended.
type TerminalKind string

const (
	TerminalAnswered      TerminalKind = "ANSWERED"
	TerminalNotEnoughInfo TerminalKind = "NOT_ENOUGH_INFO"
	TerminalChatter       TerminalKind = "CHATTER"
	TerminalReporter      TerminalKind = "REPORTER"
	TerminalOther         TerminalKind = "OTHER"
	TerminalFAQHit        TerminalKind = "FAQ_HIT"
)

// Verdict is the grader's judgment of evidence sufficiency. The zero value
// means no grading has happened since the last retrieval.
type Verdict string

const (
	VerdictNone         Verdict = ""
	VerdictSufficient   Verdict = "SUFFICIENT"
	VerdictPartial      Verdict = "PARTIAL"
	VerdictInsufficient Verdict = "INSUFFICIENT"
)

// RetrievalStrategy tells the retriever how to build its query on loop-back.
type RetrievalStrategy string

const (
	// StrategyInitial is the plain first-pass retrieval.
	StrategyInitial RetrievalStrategy = "initial"
	// StrategyRefined narrows the query using grader feedback after a
	// PARTIAL verdict.
	StrategyRefined RetrievalStrategy = "refined"
	// StrategyBroadened widens the net after an INSUFFICIENT verdict:
	// the minimum-score filter is dropped and top-k is increased.
	StrategyBroadened RetrievalStrategy = "broadened"
)

// Candidate is one retrieved passage under consideration.
type Candidate struct {
	DocID string  `json:"doc_id"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// Reference records a source document attached to the final response.
type Reference struct {
	DocID string  `json:"doc_id"`
	Type  string  `json:"type"` // DOCUMENT, FAQ, SYSTEM
	Score float32 `json:"score,omitempty"`
}

// State is the mutable record threaded through one run. The engine owns it
// exclusively; stages receive it and write only their own contribution.
// Route and Iterations belong to the engine/supervisor, never to stages.
type State struct {
	RunID    string
	Question string // immutable for the run
	History  []*message.Message

	Route    StageID
	Strategy RetrievalStrategy

	Candidates []Candidate // replaced wholesale per retrieval
	Accepted   []Candidate // grader-qualified subset fed to generation
	References []Reference
	Verdict    Verdict

	// GraderNotes carries the grader's description of what the current
	// candidates fail to cover; the retriever folds it into refined queries.
	GraderNotes string

	Iterations int

	FinalAnswer string
	Terminal    TerminalKind
}

// Terminated reports whether a terminal stage has produced the final answer.
func (s *State) Terminated() bool {
	return s.Terminal != ""
}

// Response is the structured run result applications consume.
type Response struct {
	RunID      string       `json:"run_id"`
	Question   string       `json:"question"`
	Answer     string       `json:"answer"`
	Terminal   TerminalKind `json:"terminal"`
	References []Reference  `json:"references,omitempty"`
	Iterations int          `json:"iterations"`
}
