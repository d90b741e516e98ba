package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ragrouter/llm"
	"github.com/sweetpotato0/ragrouter/message"
)

// Terminal fallback stages. Each returns a templated or lightly generated
// response and always terminates; none of them ever loops back or fails the
// run, since a failed fallback would have nowhere left to go.

// notEnoughInfoStage acknowledges the evidence gap. With an LLM it produces
// a softer, question-aware response; otherwise (or on any error) it emits the
// configured template.
type notEnoughInfoStage struct {
	cfg    *Config
	llm    llm.Client
	logger *slog.Logger
}

func newNotEnoughInfoStage(client llm.Client, cfg *Config, logger *slog.Logger) *notEnoughInfoStage {
	return &notEnoughInfoStage{cfg: cfg, llm: client, logger: logger}
}

func (n *notEnoughInfoStage) ID() StageID { return StageNotEnoughInfo }

func (n *notEnoughInfoStage) Execute(ctx context.Context, st *State) Outcome {
	fallback := n.cfg.renderTemplate(n.cfg.NoEvidenceMessage)
	if n.llm == nil {
		return Finish(TerminalNotEnoughInfo, fallback)
	}

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, n.cfg.renderTemplate(n.cfg.NotEnoughInfoPrompt)),
		message.NewMessage(message.RoleUser, fmt.Sprintf("Question: %s", st.Question)),
	}
	resp, err := n.llm.Generate(ctx, msgs)
	if err != nil {
		n.logger.Warn("not-enough-info generation failed, using template",
			"run_id", st.RunID, "error", err)
		return Finish(TerminalNotEnoughInfo, fallback)
	}
	answer := strings.TrimSpace(resp.Text())
	if len([]rune(answer)) < 10 {
		answer = fallback
	}
	return Finish(TerminalNotEnoughInfo, answer)
}

// chatterStage calms an upset user. History-aware when an LLM is wired,
// template otherwise.
type chatterStage struct {
	cfg    *Config
	llm    llm.Client
	logger *slog.Logger
}

func newChatterStage(client llm.Client, cfg *Config, logger *slog.Logger) *chatterStage {
	return &chatterStage{cfg: cfg, llm: client, logger: logger}
}

func (c *chatterStage) ID() StageID { return StageChatter }

func (c *chatterStage) Execute(ctx context.Context, st *State) Outcome {
	fallback := c.cfg.renderTemplate(
		"I completely understand how you feel, and I am sincerely sorry for the inconvenience. " +
			"We will do better. For direct assistance please contact {{support_contact}}.")
	if c.llm == nil {
		return Finish(TerminalChatter, fallback)
	}

	prompt := fmt.Sprintf("Message: %s\n\nRecent conversation:\n%s",
		st.Question, formatHistory(st.History, c.cfg.HistoryWindow))
	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, c.cfg.renderTemplate(c.cfg.ChatterPrompt)),
		message.NewMessage(message.RoleUser, prompt),
	}
	resp, err := c.llm.Generate(ctx, msgs)
	if err != nil {
		c.logger.Warn("chatter generation failed, using template",
			"run_id", st.RunID, "error", err)
		return Finish(TerminalChatter, fallback)
	}
	answer := strings.TrimSpace(resp.Text())
	if len([]rune(answer)) < 10 {
		answer = fallback
	}
	return Finish(TerminalChatter, answer)
}

// reporterStage emits the maintenance notice. Purely templated: it is the
// destination for failed stages, so it must not depend on any backend.
type reporterStage struct {
	cfg *Config
}

func newReporterStage(cfg *Config) *reporterStage {
	return &reporterStage{cfg: cfg}
}

func (r *reporterStage) ID() StageID { return StageReporter }

func (r *reporterStage) Execute(ctx context.Context, st *State) Outcome {
	return Finish(TerminalReporter, r.cfg.renderTemplate(r.cfg.MaintenanceMessage),
		Reference{DocID: "system_status", Type: "SYSTEM"})
}

// otherStage deflects out-of-scope requests with a templated message.
type otherStage struct {
	cfg *Config
}

func newOtherStage(cfg *Config) *otherStage {
	return &otherStage{cfg: cfg}
}

func (o *otherStage) ID() StageID { return StageOther }

func (o *otherStage) Execute(ctx context.Context, st *State) Outcome {
	return Finish(TerminalOther, o.cfg.renderTemplate(o.cfg.OutOfScopeMessage))
}
