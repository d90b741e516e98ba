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

// generatorStage produces the final answer from the accepted passages. It is
// the only stage allowed to terminate with ANSWERED. Evidence is sanitized
// and capped by the token budget before prompting; an unusable answer is
// replaced by an apologetic retry message rather than failing the run.
type generatorStage struct {
	cfg    *Config
	llm    llm.Client
	logger *slog.Logger
}

func newGeneratorStage(client llm.Client, cfg *Config, logger *slog.Logger) *generatorStage {
	return &generatorStage{cfg: cfg, llm: client, logger: logger}
}

func (g *generatorStage) ID() StageID { return StageGenerator }

func (g *generatorStage) Execute(ctx context.Context, st *State) Outcome {
	evidence := st.Accepted
	if len(evidence) == 0 {
		evidence = st.Candidates
	}

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, g.cfg.GeneratorPrompt),
		message.NewMessage(message.RoleUser, g.buildPrompt(st, evidence)),
	}
	resp, err := g.llm.Generate(ctx, msgs)
	if err != nil {
		return Failure(fmt.Sprintf("generation call: %v", err))
	}

	answer := strings.TrimSpace(resp.Text())
	if len([]rune(answer)) < 10 {
		g.logger.Warn("generated answer too short, using retry message",
			"run_id", st.RunID, "length", len(answer))
		answer = g.cfg.renderTemplate(g.cfg.RetryMessage)
	}

	g.logger.Info("answer generated", "run_id", st.RunID,
		"references", len(st.References), "answer_length", len(answer))
	return Finish(TerminalAnswered, answer, st.References...)
}

func (g *generatorStage) buildPrompt(st *State, evidence []Candidate) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(st.Question)

	b.WriteString("\n\nReference passages:\n")
	b.WriteString(g.formatEvidence(evidence))

	if g.cfg.HistoryWindow > 0 && len(st.History) > 0 {
		b.WriteString("\n\nRecent conversation:\n")
		b.WriteString(formatHistory(st.History, g.cfg.HistoryWindow))
	}
	return b.String()
}

// formatEvidence renders passages until the token budget runs out. The last
// passage that fits partially is truncated rather than dropped.
func (g *generatorStage) formatEvidence(evidence []Candidate) string {
	if len(evidence) == 0 {
		return "(no reference passages)"
	}
	budget := g.cfg.MaxContextTokens
	var b strings.Builder
	for i, c := range evidence {
		passage := preprocess.Passage(c.Text)
		if passage == "" {
			continue
		}
		cost := g.countTokens(passage)
		if budget > 0 && cost > budget {
			passage = g.truncate(passage, budget)
			if passage == "" {
				break
			}
			cost = budget
		}
		fmt.Fprintf(&b, "[%d] (relevance %.2f) %s\n\n", i+1, c.Score, passage)
		if budget > 0 {
			budget -= cost
			if budget <= 0 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "(no reference passages)"
	}
	return strings.TrimSpace(b.String())
}

func (g *generatorStage) countTokens(text string) int {
	if g.cfg.tokens != nil {
		return g.cfg.tokens.CountTokens(text)
	}
	// rough heuristic when no tokenizer is wired
	return len([]rune(text)) / 4
}

func (g *generatorStage) truncate(text string, maxTokens int) string {
	if g.cfg.tokens != nil {
		return g.cfg.tokens.Truncate(text, maxTokens)
	}
	runes := []rune(text)
	limit := maxTokens * 4
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
