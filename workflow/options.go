package workflow

import (
	"strings"
	"time"
)

// TokenCounter abstracts the tokenizer used to enforce the generation context
// budget. contrib/tokenizer/tiktoken satisfies it.
type TokenCounter interface {
	CountTokens(text string) int
	Truncate(text string, maxTokens int) string
}

// Config controls routing thresholds, the iteration budget, prompts and
// fallback messages. It groups everything needed to construct reproducible
// workflows from a single struct.
type Config struct {
	Name string // Logical name for tracing/logging

	SimilarityThreshold float32 // FAQ acceptance bar and fallback-grading bar
	MinSearchScore      float32 // Retrieval filter; dropped when broadening
	TopK                int     // How many neighbors to pull from the vector store
	BroadenedTopK       int     // Top-k used by the broadened retrieval strategy
	MaxIterations       int     // Loop cap before the forced not-enough-info fallback
	StageTimeout        time.Duration
	MergeCandidates     bool // Carry prior candidates into refined retrieval
	HistoryWindow       int  // Conversation turns shown to generation prompts
	MaxContextTokens    int  // Token budget for evidence passed to generation

	SupportContact string // Rendered into fallback/maintenance messages

	ClassifierPrompt    string
	GraderPrompt        string
	GeneratorPrompt     string
	ChatterPrompt       string
	NotEnoughInfoPrompt string

	NoEvidenceMessage  string // Emitted when evidence never becomes sufficient
	MaintenanceMessage string // Emitted by the reporter stage
	OutOfScopeMessage  string // Emitted by the other stage
	RetryMessage       string // Emitted when generation produces an unusable answer

	tokens TokenCounter // optional override for token counting
}

// Option customises the workflow configuration.
type Option func(*Config)

// WithName sets the logical workflow name used in logs and traces.
func WithName(name string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(name) != "" {
			cfg.Name = name
		}
	}
}

// WithSimilarityThreshold sets the FAQ acceptance bar.
func WithSimilarityThreshold(threshold float32) Option {
	return func(cfg *Config) {
		if threshold >= 0 && threshold <= 1 {
			cfg.SimilarityThreshold = threshold
		}
	}
}

// WithMinSearchScore filters retrieval results below the provided score.
func WithMinSearchScore(score float32) Option {
	return func(cfg *Config) {
		if score >= 0 {
			cfg.MinSearchScore = score
		}
	}
}

// WithTopK overrides how many documents each retrieval pulls from the vector store.
func WithTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.TopK = k
			if cfg.BroadenedTopK < k {
				cfg.BroadenedTopK = 2 * k
			}
		}
	}
}

// WithBroadenedTopK overrides the widened top-k used after an INSUFFICIENT verdict.
func WithBroadenedTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.BroadenedTopK = k
		}
	}
}

// WithMaxIterations caps how many retrieval/generation steps a run may take
// before it is forced into the not-enough-info terminal.
func WithMaxIterations(max int) Option {
	return func(cfg *Config) {
		if max > 0 {
			cfg.MaxIterations = max
		}
	}
}

// WithStageTimeout bounds each stage invocation; a timed-out stage is treated
// as a failure and routed to the reporter.
func WithStageTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.StageTimeout = d
		}
	}
}

// WithCandidateMerge keeps the best prior candidates when a PARTIAL verdict
// triggers refined retrieval, instead of discarding them.
func WithCandidateMerge(enabled bool) Option {
	return func(cfg *Config) {
		cfg.MergeCandidates = enabled
	}
}

// WithHistoryWindow sets how many past conversation turns generation sees.
func WithHistoryWindow(turns int) Option {
	return func(cfg *Config) {
		if turns >= 0 {
			cfg.HistoryWindow = turns
		}
	}
}

// WithMaxContextTokens caps the evidence token budget for generation prompts.
func WithMaxContextTokens(tokens int) Option {
	return func(cfg *Config) {
		if tokens > 0 {
			cfg.MaxContextTokens = tokens
		}
	}
}

// WithSupportContact sets the support line rendered into fallback messages.
func WithSupportContact(contact string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(contact) != "" {
			cfg.SupportContact = contact
		}
	}
}

// WithClassifierPrompt overrides the intent-classification system prompt.
func WithClassifierPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.ClassifierPrompt = prompt
		}
	}
}

// WithGraderPrompt overrides the evidence-grading system prompt.
func WithGraderPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.GraderPrompt = prompt
		}
	}
}

// WithGeneratorPrompt overrides the answer-generation system prompt.
func WithGeneratorPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.GeneratorPrompt = prompt
		}
	}
}

// WithChatterPrompt overrides the empathetic-response system prompt.
func WithChatterPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.ChatterPrompt = prompt
		}
	}
}

// WithNotEnoughInfoPrompt overrides the insufficient-evidence system prompt.
func WithNotEnoughInfoPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.NotEnoughInfoPrompt = prompt
		}
	}
}

// WithNoEvidenceMessage customises the templated not-enough-info answer.
func WithNoEvidenceMessage(msg string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(msg) != "" {
			cfg.NoEvidenceMessage = msg
		}
	}
}

// WithMaintenanceMessage customises the reporter stage answer.
func WithMaintenanceMessage(msg string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(msg) != "" {
			cfg.MaintenanceMessage = msg
		}
	}
}

// WithOutOfScopeMessage customises the other stage answer.
func WithOutOfScopeMessage(msg string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(msg) != "" {
			cfg.OutOfScopeMessage = msg
		}
	}
}

// WithTokenCounter plugs in a tokenizer for the generation context budget.
// Without one the budget falls back to a rune-count approximation.
func WithTokenCounter(tc TokenCounter) Option {
	return func(cfg *Config) {
		if tc != nil {
			cfg.tokens = tc
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Name:                "ragrouter",
		SimilarityThreshold: 0.7,
		MinSearchScore:      0.2,
		TopK:                5,
		BroadenedTopK:       10,
		MaxIterations:       5,
		StageTimeout:        30 * time.Second,
		MergeCandidates:     false,
		HistoryWindow:       2,
		MaxContextTokens:    3000,
		SupportContact:      "our support line",
		ClassifierPrompt: `You are the routing supervisor of a retrieval-augmented support assistant. Classify the user's request into exactly one category:
- FAQ: greetings or questions likely answered by the curated FAQ bank.
- RETRIEVER: factual questions that need a document search.
- CHATTER: the user is upset, venting, or needs to be calmed rather than informed.
- REPORTER: the user reports an outage, error, or technical fault of this system.
- OTHER: requests outside the assistant's scope.
Return strict JSON only: {"intent":"FAQ|RETRIEVER|CHATTER|REPORTER|OTHER","reasoning":"one short sentence"}.`,
		GraderPrompt: `You are the evidence grader of a retrieval-augmented assistant. Judge whether the numbered passages answer the user's question.
Return strict JSON only:
{"grades":[{"id":1,"relevance":"strong|weak|none"}],"coverage":true,"missing":"what the passages fail to cover, empty if nothing"}.
Rules:
- "strong" means the passage directly answers part of the question; "weak" means related background; "none" means irrelevant.
- "coverage" is true only when the passages collectively contain everything needed for a complete answer.
- Keep "missing" to one short phrase usable as a follow-up search query.`,
		GeneratorPrompt: `You are a friendly, professional support assistant. Answer the user's question using only the supplied reference passages.
Guidelines:
- Answer directly and concisely in a natural, conversational tone.
- Stay strictly within the passages; if they only partially cover the question, say what is known and what is not.
- Do not invent facts, citations, or numbers beyond the provided context.
- Close with a short offer to help further.`,
		ChatterPrompt: `You are a support assistant handling an upset or emotional user. Acknowledge their feelings, apologise sincerely, reassure them the service will improve, and point them to {{support_contact}} for direct help. Stay warm and professional, no markdown.`,
		NotEnoughInfoPrompt: `You are a support assistant. The knowledge base has no verified answer for the user's question. Acknowledge that openly, share cautious general guidance if you have any, make clear it is not official information, and suggest contacting {{support_contact}} for a definitive answer. No markdown.`,
		NoEvidenceMessage:   "I could not find enough verified information to answer that. Could you rephrase the question or add more detail? You can also reach {{support_contact}} for direct assistance.",
		MaintenanceMessage: `The system is currently undergoing maintenance and some answers may be unavailable.

For immediate assistance please contact {{support_contact}}.

We apologise for the inconvenience.`,
		OutOfScopeMessage: "Thanks for reaching out! That request is outside what I can help with here. For this topic please contact {{support_contact}}, where a specialist can assist you directly.",
		RetryMessage:      "I found relevant information but had trouble putting an answer together. Could you rephrase the question?",
	}
}

func applyOptions(cfg *Config, opts []Option) *Config {
	if cfg == nil {
		cfg = defaultConfig()
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// renderTemplate substitutes the configured support contact into message
// templates.
func (c *Config) renderTemplate(tpl string) string {
	return strings.ReplaceAll(tpl, "{{support_contact}}", c.SupportContact)
}
