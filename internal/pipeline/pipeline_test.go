package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/lumenlabs/lumen/internal/log"
	"github.com/lumenlabs/lumen/internal/testutil"
)

// newTestRunner wires a Runner to a fresh Genkit instance backed by the
// mock model.
func newTestRunner(t *testing.T, mock *testutil.MockLLM) *Runner {
	t.Helper()

	g := genkit.Init(context.Background())
	mock.RegisterModel(g)

	runner, err := New(Config{
		Genkit:    g,
		Logger:    log.NewNop(),
		ModelName: testutil.ModelName,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return runner
}

// ============================================================================
// ParseMode Tests
// ============================================================================

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Mode
		wantErr bool
	}{
		{name: "empty defaults to general", input: "", want: ModeGeneral},
		{name: "general", input: "general", want: ModeGeneral},
		{name: "coding", input: "coding", want: ModeCoding},
		{name: "cognitive", input: "cognitive", want: ModeCognitive},
		{name: "knowledge", input: "knowledge", want: ModeKnowledge},
		{name: "task", input: "task", want: ModeTask},
		{name: "unknown mode", input: "wizard", wantErr: true},
		{name: "wrong case", input: "Coding", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// Single-Stage Mode Tests
// ============================================================================

func TestRunSingleStage(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.AddResponse("what is go", "Go is a programming language.")
	runner := newTestRunner(t, mock)

	history := []Turn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}

	resp, err := runner.Run(context.Background(), "What is Go?", history, ModeGeneral)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if resp.Text != "Go is a programming language." {
		t.Errorf("Run() text = %q, want %q", resp.Text, "Go is a programming language.")
	}
	if resp.RequiresSummary {
		t.Error("single-stage response should not request a summary")
	}
	if got := mock.CallCount(); got != 1 {
		t.Errorf("model called %d times, want 1", got)
	}
}

func TestRunSingleStageModes(t *testing.T) {
	// Every non-knowledge mode is exactly one round trip.
	for _, mode := range []Mode{ModeGeneral, ModeCoding, ModeCognitive, ModeTask} {
		t.Run(string(mode), func(t *testing.T) {
			mock := testutil.NewMockLLM("answer")
			runner := newTestRunner(t, mock)

			resp, err := runner.Run(context.Background(), "do something", nil, mode)
			if err != nil {
				t.Fatalf("Run(%s) error = %v", mode, err)
			}
			if resp.Text != "answer" {
				t.Errorf("Run(%s) text = %q, want %q", mode, resp.Text, "answer")
			}
			if got := mock.CallCount(); got != 1 {
				t.Errorf("Run(%s) called model %d times, want 1", mode, got)
			}
		})
	}
}

func TestRunRejectsUnknownHistoryRole(t *testing.T) {
	mock := testutil.NewMockLLM("unused")
	runner := newTestRunner(t, mock)

	history := []Turn{{Role: "narrator", Content: "once upon a time"}}

	_, err := runner.Run(context.Background(), "hello", history, ModeGeneral)
	if !errors.Is(err, ErrStageFailed) {
		t.Fatalf("Run() error = %v, want ErrStageFailed", err)
	}
	if got := mock.CallCount(); got != 0 {
		t.Errorf("model called %d times, want 0", got)
	}
}

func TestRunFailurePropagatesSingleSignal(t *testing.T) {
	mock := testutil.NewMockLLM("unused")
	mock.FailWith(testutil.ErrMockFailure)
	runner := newTestRunner(t, mock)

	_, err := runner.Run(context.Background(), "hello", nil, ModeGeneral)
	if !errors.Is(err, ErrStageFailed) {
		t.Fatalf("Run() error = %v, want ErrStageFailed", err)
	}
}

// ============================================================================
// Knowledge Mode Tests
// ============================================================================

func TestRunKnowledgeWithoutSummary(t *testing.T) {
	mock := testutil.NewMockLLM(`{"answer": "default"}`)
	mock.AddResponse("requires a summary", `{"requiresSummary": false}`)
	mock.AddResponse("answer the following question", `{"answer": "The capital is Paris."}`)
	runner := newTestRunner(t, mock)

	resp, err := runner.Run(context.Background(), "What is the capital of France?", nil, ModeKnowledge)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if resp.Text != "The capital is Paris." {
		t.Errorf("Run() text = %q, want %q", resp.Text, "The capital is Paris.")
	}
	if resp.RequiresSummary {
		t.Error("RequiresSummary = true, want false")
	}
	if resp.Summary != "" {
		t.Errorf("Summary = %q, want empty", resp.Summary)
	}
	// Classification said no: the summarization stage must be skipped.
	if got := mock.CallCount(); got != 2 {
		t.Errorf("model called %d times, want 2", got)
	}
}

func TestRunKnowledgeWithSummary(t *testing.T) {
	mock := testutil.NewMockLLM(`{"answer": "default"}`)
	mock.AddResponse("requires a summary", `{"requiresSummary": true}`)
	mock.AddResponse("summarize the following document", `{"summary": "A discussion about rivers."}`)
	mock.AddResponse("answer the following question", `{"answer": "The Nile is the longest."}`)
	runner := newTestRunner(t, mock)

	history := []Turn{
		{Role: "user", Content: "Tell me about rivers."},
		{Role: "assistant", Content: "Rivers are long."},
	}

	resp, err := runner.Run(context.Background(), "Which river is longest?", history, ModeKnowledge)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if resp.Text != "The Nile is the longest." {
		t.Errorf("Run() text = %q, want %q", resp.Text, "The Nile is the longest.")
	}
	if !resp.RequiresSummary {
		t.Error("RequiresSummary = false, want true")
	}
	if resp.Summary != "A discussion about rivers." {
		t.Errorf("Summary = %q, want %q", resp.Summary, "A discussion about rivers.")
	}
	if got := mock.CallCount(); got != 3 {
		t.Errorf("model called %d times, want 3", got)
	}
}

func TestRunKnowledgeClassificationFailureAbortsRun(t *testing.T) {
	mock := testutil.NewMockLLM(`{"answer": "never reached"}`)
	mock.FailWith(testutil.ErrMockFailure)
	runner := newTestRunner(t, mock)

	_, err := runner.Run(context.Background(), "question", nil, ModeKnowledge)
	if !errors.Is(err, ErrStageFailed) {
		t.Fatalf("Run() error = %v, want ErrStageFailed", err)
	}
}

func TestRunKnowledgeSummaryFeedsAnswerStage(t *testing.T) {
	mock := testutil.NewMockLLM(`{"answer": "ok"}`)
	mock.AddResponse("requires a summary", `{"requiresSummary": true}`)
	mock.AddResponse("summarize the following document", `{"summary": "SUMMARY-MARKER"}`)
	mock.AddResponse("answer the following question", `{"answer": "ok"}`)
	runner := newTestRunner(t, mock)

	_, err := runner.Run(context.Background(), "question", nil, ModeKnowledge)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(calls))
	}
	if !strings.Contains(calls[2].UserMessage, "SUMMARY-MARKER") {
		t.Error("answer stage prompt does not include the stage 2 summary")
	}
}

// ============================================================================
// Helper Tests
// ============================================================================

func TestNormalizeHistory(t *testing.T) {
	history := []Turn{
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "response"},
	}

	messages, err := normalizeHistory(history)
	if err != nil {
		t.Fatalf("normalizeHistory() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != "user" {
		t.Errorf("messages[0].Role = %q, want user", messages[0].Role)
	}
	if messages[1].Role != "model" {
		t.Errorf("messages[1].Role = %q, want model", messages[1].Role)
	}
}

func TestRenderTranscript(t *testing.T) {
	history := []Turn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}

	got := renderTranscript(history)
	want := "User: hello\nAssistant: hi\n"
	if got != want {
		t.Errorf("renderTranscript() = %q, want %q", got, want)
	}
}

func TestConfigValidate(t *testing.T) {
	g := genkit.Init(context.Background())

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid",
			cfg:     Config{Genkit: g, Logger: log.NewNop(), ModelName: "mock/m"},
			wantErr: false,
		},
		{
			name:    "missing genkit",
			cfg:     Config{Logger: log.NewNop(), ModelName: "mock/m"},
			wantErr: true,
		},
		{
			name:    "missing logger",
			cfg:     Config{Genkit: g, ModelName: "mock/m"},
			wantErr: true,
		},
		{
			name:    "missing model name",
			cfg:     Config{Genkit: g, Logger: log.NewNop()},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
