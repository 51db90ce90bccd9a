// Package pipeline implements the multi-stage reasoning pipeline that
// turns a user utterance plus conversation history into an assistant
// response.
//
// Most modes are a single model round trip. Knowledge mode runs up to
// three dependent stages: a schema-constrained classification deciding
// whether summarization is needed, an optional summarization stage, and
// the answer stage. Any stage failing aborts the whole pipeline; the
// caller receives a single failure signal and never a partial response.
//
// Callers always pass role-tagged turns; translating the role tag into
// the shapes the prompts expect happens inside this package, never at
// the call site.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// ErrStageFailed is the single failure signal for a pipeline run. Which
// stage failed is deliberately not part of the public contract; the
// detail is logged, not returned.
var ErrStageFailed = errors.New("reasoning pipeline failed")

// Mode selects the behavioral framing the model uses.
type Mode string

// The fixed mode set. Modes change prompt framing only, never the data
// model.
const (
	ModeGeneral   Mode = "general"
	ModeCoding    Mode = "coding"
	ModeCognitive Mode = "cognitive"
	ModeKnowledge Mode = "knowledge"
	ModeTask      Mode = "task"
)

// ParseMode maps a wire string to a Mode. Empty defaults to general.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeGeneral, nil
	case ModeGeneral, ModeCoding, ModeCognitive, ModeKnowledge, ModeTask:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Turn is one role-tagged history entry as callers supply it.
type Turn struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// Response is the ephemeral pipeline result; never persisted.
type Response struct {
	Text string

	// Knowledge-mode auxiliary artifacts. Summary is present only when
	// the classification stage requested summarization.
	RequiresSummary bool
	Summary         string
}

// fallbackResponse is returned when a successful generation produced no
// text at all.
const fallbackResponse = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// Config contains all required parameters for the Runner.
type Config struct {
	Genkit *genkit.Genkit
	Logger *slog.Logger

	// ModelName is the provider-qualified model name
	// (e.g. "googleai/gemini-2.5-flash", "ollama/llama3.3").
	ModelName string

	// RetryConfig for transient model errors (zero-value uses defaults).
	RetryConfig RetryConfig

	// RateLimiter throttles model calls proactively (nil = default).
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Runner executes the reasoning pipeline. Stateless and safe for
// concurrent use; all configuration is captured at construction.
type Runner struct {
	g           *genkit.Genkit
	logger      *slog.Logger
	modelName   string
	retryConfig RetryConfig
	rateLimiter *rate.Limiter
}

// New creates a Runner.
func New(cfg Config) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	rl := cfg.RateLimiter
	if rl == nil {
		// 10 req/s sustained, burst of 30
		rl = rate.NewLimiter(10, 30)
	}

	return &Runner{
		g:           cfg.Genkit,
		logger:      cfg.Logger,
		modelName:   cfg.ModelName,
		retryConfig: retryConfig,
		rateLimiter: rl,
	}, nil
}

// Run produces an assistant response for the utterance given the
// conversation history and operating mode. Knowledge mode runs the
// multi-stage branch; every other mode is a single round trip.
func (r *Runner) Run(ctx context.Context, utterance string, history []Turn, mode Mode) (*Response, error) {
	r.logger.Debug("running pipeline",
		"mode", mode,
		"history_len", len(history),
		"utterance_len", len(utterance))

	if mode == ModeKnowledge {
		return r.runKnowledge(ctx, utterance, history)
	}
	return r.runSingleStage(ctx, utterance, history, mode)
}

// runSingleStage handles general, coding, cognitive and task modes: the
// model receives the full normalized history with the mode framing as
// system guidance and returns the final response directly.
func (r *Runner) runSingleStage(ctx context.Context, utterance string, history []Turn, mode Mode) (*Response, error) {
	messages, err := normalizeHistory(history)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStageFailed, err)
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(utterance)))

	resp, err := r.generate(ctx,
		ai.WithModelName(r.modelName),
		ai.WithSystem(modeFraming(mode)),
		ai.WithMessages(messages...),
	)
	if err != nil {
		r.logger.Debug("answer stage failed", "mode", mode, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStageFailed, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		r.logger.Warn("model returned empty response", "mode", mode)
		text = fallbackResponse
	}

	return &Response{Text: text}, nil
}

// normalizeHistory translates role-tagged turns into Genkit messages.
// This is the only place the role tag crosses into the model's shape.
func normalizeHistory(history []Turn) ([]*ai.Message, error) {
	messages := make([]*ai.Message, 0, len(history))
	for _, t := range history {
		switch t.Role {
		case "user":
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(t.Content)))
		case "assistant":
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(t.Content)))
		default:
			return nil, fmt.Errorf("unknown history role %q", t.Role)
		}
	}
	return messages, nil
}

// renderTranscript flattens role-tagged turns into prompt text for the
// knowledge stages, which consume the history as a document.
func renderTranscript(history []Turn) string {
	var b strings.Builder
	for _, t := range history {
		if t.Role == "user" {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}
