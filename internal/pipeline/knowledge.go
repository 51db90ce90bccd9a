package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// Structured stage outputs. Each stage declares exactly the shape it
// expects back; a malformed or absent structured output is a hard
// failure for that stage, not a partial success.

type classification struct {
	RequiresSummary bool `json:"requiresSummary"`
}

type summarization struct {
	Summary string `json:"summary"`
}

type answer struct {
	Answer string `json:"answer"`
}

// runKnowledge executes the knowledge-mode branch: classification,
// optional summarization, then the answer stage. Stages are sequential
// and dependent; the first failure aborts the run.
func (r *Runner) runKnowledge(ctx context.Context, utterance string, history []Turn) (*Response, error) {
	document := renderTranscript(history)

	// Stage 1: decide whether the question needs a summary. Cheap,
	// schema-constrained: the model returns exactly one boolean field.
	var cls classification
	resp, err := r.generate(ctx,
		ai.WithModelName(r.modelName),
		ai.WithPrompt(fmt.Sprintf(classifyPrompt, utterance, document)),
		ai.WithOutputType(classification{}),
	)
	if err != nil {
		r.logger.Debug("classification stage failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStageFailed, err)
	}
	if err := resp.Output(&cls); err != nil {
		r.logger.Debug("classification output malformed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStageFailed, err)
	}

	// Stage 2: summarize, only when stage 1 asked for it.
	var sum summarization
	if cls.RequiresSummary {
		resp, err := r.generate(ctx,
			ai.WithModelName(r.modelName),
			ai.WithPrompt(fmt.Sprintf(summaryPrompt, document)),
			ai.WithOutputType(summarization{}),
		)
		if err != nil {
			r.logger.Debug("summarization stage failed", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrStageFailed, err)
		}
		if err := resp.Output(&sum); err != nil {
			r.logger.Debug("summarization output malformed", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrStageFailed, err)
		}
	}

	// Stage 3: answer with the document and the summary when present.
	var ans answer
	resp, err = r.generate(ctx,
		ai.WithModelName(r.modelName),
		ai.WithPrompt(fmt.Sprintf(answerPrompt, utterance, document, sum.Summary)),
		ai.WithOutputType(answer{}),
	)
	if err != nil {
		r.logger.Debug("answer stage failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStageFailed, err)
	}
	if err := resp.Output(&ans); err != nil {
		r.logger.Debug("answer output malformed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStageFailed, err)
	}

	text := strings.TrimSpace(ans.Answer)
	if text == "" {
		r.logger.Warn("knowledge answer stage returned empty text")
		text = fallbackResponse
	}

	return &Response{
		Text:            text,
		RequiresSummary: cls.RequiresSummary,
		Summary:         sum.Summary,
	}, nil
}
