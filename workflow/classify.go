package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ragrouter/llm"
	"github.com/sweetpotato0/ragrouter/message"
)

// classifier maps the raw question to an initial stage. It asks the inference
// backend first and falls back to keyword rules when the call fails or the
// label cannot be parsed, so a run never blocks on classification.
type classifier struct {
	llm    llm.Client
	prompt string
	logger *slog.Logger
}

type classification struct {
	Intent    string `json:"intent"`
	Reasoning string `json:"reasoning"`
}

var validIntents = map[string]StageID{
	"FAQ":       StageFAQ,
	"RETRIEVER": StageRetriever,
	"CHATTER":   StageChatter,
	"REPORTER":  StageReporter,
	"OTHER":     StageOther,
}

func newClassifier(client llm.Client, cfg *Config, logger *slog.Logger) *classifier {
	return &classifier{
		llm:    client,
		prompt: cfg.ClassifierPrompt,
		logger: logger,
	}
}

// Classify returns the stage the question should enter the workflow through.
func (c *classifier) Classify(ctx context.Context, question string, history []*message.Message) StageID {
	if c.llm == nil {
		return fallbackClassify(question)
	}

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, c.prompt),
	}
	if len(history) > 0 {
		msgs = append(msgs, message.NewMessage(message.RoleSystem,
			"Recent conversation:\n"+formatHistory(history, 3)))
	}
	msgs = append(msgs, message.NewMessage(message.RoleUser,
		fmt.Sprintf("Question: %s\nReturn JSON only.", question)))

	resp, err := c.llm.Generate(ctx, msgs)
	if err != nil {
		c.logger.Warn("intent classification failed, using keyword fallback", "error", err)
		return fallbackClassify(question)
	}

	parsed, err := decodeJSON[classification](resp.Text())
	if err != nil {
		c.logger.Warn("intent classification unparseable, using keyword fallback",
			"output", trimForLog(resp.Text(), 120))
		return fallbackClassify(question)
	}

	stage, ok := validIntents[strings.ToUpper(strings.TrimSpace(parsed.Intent))]
	if !ok {
		c.logger.Warn("intent classification returned unknown label",
			"intent", parsed.Intent)
		return fallbackClassify(question)
	}
	c.logger.Debug("intent classified", "intent", parsed.Intent,
		"reasoning", trimForLog(parsed.Reasoning, 120))
	return stage
}

// keyword tables for the rule-based fallback. Matches are resolved in the
// fixed priority order FAQ > REPORTER > CHATTER > RETRIEVER > OTHER.
var (
	faqKeywords = []string{
		"what is", "what are", "how do", "how to", "how can", "why",
		"opening hours", "contact", "guide", "where can", "is it possible",
	}
	reporterKeywords = []string{
		"error", "not working", "broken", "cannot connect", "can't connect",
		"no response", "crashed", "outage", "system down", "keeps failing",
	}
	chatterKeywords = []string{
		"terrible", "awful", "useless", "angry", "frustrated", "disappointed",
		"complaint", "not satisfied", "unacceptable", "fed up",
	}
	retrieverKeywords = []string{
		"tell me about", "explain", "describe", "details", "document",
		"compare", "difference between", "when was", "who is",
	}
)

// fallbackClassify applies keyword rules when the backend cannot classify. A
// question matching no table at all is treated as ambiguous and defaults to
// OTHER through the same priority order.
func fallbackClassify(question string) StageID {
	lower := strings.ToLower(question)

	if containsAny(lower, faqKeywords) {
		return StageFAQ
	}
	if containsAny(lower, reporterKeywords) {
		return StageReporter
	}
	if containsAny(lower, chatterKeywords) {
		return StageChatter
	}
	if containsAny(lower, retrieverKeywords) || strings.Contains(lower, "?") {
		return StageRetriever
	}
	return StageOther
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// formatHistory renders the last maxTurns conversation turns as plain text
// for prompt construction.
func formatHistory(history []*message.Message, maxTurns int) string {
	if len(history) == 0 {
		return "(no history)"
	}
	limit := maxTurns * 2
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		content := strings.TrimSpace(msg.Text())
		if content == "" {
			continue
		}
		role := "User"
		if msg.Role == message.RoleAssistant {
			role = "Assistant"
		}
		lines = append(lines, role+": "+trimForLog(content, 200))
	}
	if len(lines) == 0 {
		return "(no history)"
	}
	return strings.Join(lines, "\n")
}
