package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
)

// Input defines the request payload for the converse flow. Mode is a
// wire string and defaults to general when absent.
type Input struct {
	Utterance string `json:"utterance"`
	History   []Turn `json:"history,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

// Output defines the response payload from the converse flow.
type Output struct {
	Response string `json:"response"`
}

// FlowName is the registered name of the converse flow in Genkit.
const FlowName = "lumen/converse"

// Flow is the converse flow type. Exported for use with genkit.Handler().
type Flow = core.Flow[Input, Output, struct{}]

// Package-level singleton: genkit.DefineFlow panics on re-registration,
// so the flow is defined at most once per process.
var (
	flowOnce sync.Once
	flow     *Flow
)

// NewFlow returns the converse flow singleton, initializing it on first
// call. Subsequent calls return the existing flow.
func NewFlow(g *genkit.Genkit, runner *Runner) *Flow {
	flowOnce.Do(func() {
		flow = defineFlow(g, runner)
	})
	return flow
}

// ResetFlowForTesting resets the flow singleton so tests can initialize
// with different configurations. Not safe for concurrent use.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

// defineFlow registers the converse flow: the pipeline entry point
// consumed by the UI layer. The flow is a thin wrapper; Runner.Run
// contains the logic.
func defineFlow(g *genkit.Genkit, runner *Runner) *Flow {
	return genkit.DefineFlow(g, FlowName,
		func(ctx context.Context, input Input) (Output, error) {
			mode, err := ParseMode(input.Mode)
			if err != nil {
				return Output{}, fmt.Errorf("%w: %w", ErrStageFailed, err)
			}

			resp, err := runner.Run(ctx, input.Utterance, input.History, mode)
			if err != nil {
				return Output{}, err
			}

			return Output{Response: resp.Text}, nil
		},
	)
}
