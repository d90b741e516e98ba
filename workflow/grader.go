package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ragrouter/llm"
	"github.com/sweetpotato0/ragrouter/message"
	"github.com/sweetpotato0/ragrouter/preprocess"
)

// graderStage asks the inference backend to judge whether the retrieved
// passages actually answer the question, decoupling "vector-close" from
// "answers the question". Unparseable model output falls back to grading on
// raw similarity scores; a transport error is a stage failure.
type graderStage struct {
	cfg    *Config
	llm    llm.Client
	logger *slog.Logger
}

type gradeItem struct {
	ID        int    `json:"id"`
	Relevance string `json:"relevance"` // strong | weak | none
}

type gradeReport struct {
	Grades   []gradeItem `json:"grades"`
	Coverage bool        `json:"coverage"`
	Missing  string      `json:"missing"`
}

func newGraderStage(client llm.Client, cfg *Config, logger *slog.Logger) *graderStage {
	return &graderStage{cfg: cfg, llm: client, logger: logger}
}

func (g *graderStage) ID() StageID { return StageGrader }

func (g *graderStage) Execute(ctx context.Context, st *State) Outcome {
	if len(st.Candidates) == 0 {
		st.Verdict = VerdictInsufficient
		st.Accepted = nil
		return Continue("")
	}

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, g.cfg.GraderPrompt),
		message.NewMessage(message.RoleUser, g.buildPrompt(st)),
	}
	resp, err := g.llm.Generate(ctx, msgs)
	if err != nil {
		return Failure(fmt.Sprintf("grading call: %v", err))
	}

	report, err := decodeJSON[gradeReport](resp.Text())
	if err != nil || len(report.Grades) == 0 {
		g.logger.Warn("grader output unparseable, falling back to similarity grading",
			"run_id", st.RunID, "output", trimForLog(resp.Text(), 120))
		g.fallbackGrade(st)
		return Continue("")
	}

	g.apply(st, report)
	g.logger.Info("grading completed", "run_id", st.RunID,
		"verdict", st.Verdict, "accepted", len(st.Accepted))
	return Continue("")
}

func (g *graderStage) buildPrompt(st *State) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(st.Question)
	b.WriteString("\n\nPassages:\n")
	for i, c := range st.Candidates {
		fmt.Fprintf(&b, "[%d] (score %.2f) %s\n\n", i+1, c.Score,
			trimForLog(preprocess.Passage(c.Text), 600))
	}
	b.WriteString("Return JSON only.")
	return b.String()
}

// apply aggregates per-candidate grades into the verdict:
// SUFFICIENT needs at least one strong passage plus full coverage, PARTIAL
// needs any relevant passage without coverage, everything else is
// INSUFFICIENT.
func (g *graderStage) apply(st *State, report *gradeReport) {
	var strong, relevant int
	accepted := make([]Candidate, 0, len(st.Candidates))
	for _, grade := range report.Grades {
		idx := grade.ID - 1
		if idx < 0 || idx >= len(st.Candidates) {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(grade.Relevance)) {
		case "strong":
			strong++
			relevant++
			accepted = append(accepted, st.Candidates[idx])
		case "weak":
			relevant++
			accepted = append(accepted, st.Candidates[idx])
		}
	}

	switch {
	case strong > 0 && report.Coverage:
		st.Verdict = VerdictSufficient
	case relevant > 0:
		st.Verdict = VerdictPartial
	default:
		st.Verdict = VerdictInsufficient
	}
	st.GraderNotes = strings.TrimSpace(report.Missing)
	g.accept(st, accepted)
}

// fallbackGrade keeps only candidates whose similarity clears the configured
// threshold, mirroring the behavior when no judgment call is available.
func (g *graderStage) fallbackGrade(st *State) {
	accepted := make([]Candidate, 0, len(st.Candidates))
	for _, c := range st.Candidates {
		if c.Score >= g.cfg.SimilarityThreshold {
			accepted = append(accepted, c)
		}
	}
	if len(accepted) > 0 {
		st.Verdict = VerdictSufficient
	} else {
		st.Verdict = VerdictInsufficient
	}
	st.GraderNotes = ""
	g.accept(st, accepted)
}

func (g *graderStage) accept(st *State, accepted []Candidate) {
	st.Accepted = accepted
	st.References = st.References[:0]
	seen := make(map[string]struct{}, len(accepted))
	for _, c := range accepted {
		if _, dup := seen[c.DocID]; dup {
			continue
		}
		seen[c.DocID] = struct{}{}
		st.References = append(st.References, Reference{
			DocID: c.DocID,
			Type:  "DOCUMENT",
			Score: c.Score,
		})
	}
}
