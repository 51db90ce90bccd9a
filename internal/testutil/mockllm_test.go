package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

func generateText(t *testing.T, g *genkit.Genkit, prompt string) (string, error) {
	t.Helper()
	resp, err := genkit.Generate(context.Background(), g,
		ai.WithModelName(ModelName),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func TestMockLLMPatternMatching(t *testing.T) {
	tests := []struct {
		name     string
		patterns [][2]string
		input    string
		want     string
	}{
		{name: "fallback when no patterns", input: "hello", want: "default response"},
		{
			name:     "exact match",
			patterns: [][2]string{{"hello", "hi there"}},
			input:    "hello",
			want:     "hi there",
		},
		{
			name:     "case insensitive match",
			patterns: [][2]string{{"hello", "hi there"}},
			input:    "HELLO world",
			want:     "hi there",
		},
		{
			name:     "first match wins",
			patterns: [][2]string{{"hello", "first"}, {"hello", "second"}},
			input:    "hello",
			want:     "first",
		},
		{
			name:     "no match returns fallback",
			patterns: [][2]string{{"hello", "hi"}},
			input:    "goodbye",
			want:     "default response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockLLM("default response")
			for _, p := range tt.patterns {
				mock.AddResponse(p[0], p[1])
			}

			g := genkit.Init(context.Background())
			mock.RegisterModel(g)

			got, err := generateText(t, g, tt.input)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMockLLMFailWith(t *testing.T) {
	mock := NewMockLLM("ok")
	mock.FailWith(ErrMockFailure)

	g := genkit.Init(context.Background())
	mock.RegisterModel(g)

	_, err := generateText(t, g, "anything")
	if err == nil || !strings.Contains(err.Error(), ErrMockFailure.Error()) {
		t.Fatalf("Generate() error = %v, want mock failure", err)
	}

	// Restoring normal behavior resumes responses.
	mock.FailWith(nil)
	got, err := generateText(t, g, "anything")
	if err != nil {
		t.Fatalf("Generate() after reset error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Generate() = %q, want %q", got, "ok")
	}
}

func TestMockLLMCallTracking(t *testing.T) {
	mock := NewMockLLM("reply")
	g := genkit.Init(context.Background())
	mock.RegisterModel(g)

	if _, err := generateText(t, g, "first call"); err != nil {
		t.Fatal(err)
	}
	if _, err := generateText(t, g, "second call"); err != nil {
		t.Fatal(err)
	}

	if got := mock.CallCount(); got != 2 {
		t.Errorf("CallCount() = %d, want 2", got)
	}
	calls := mock.Calls()
	if calls[0].UserMessage != "first call" || calls[1].UserMessage != "second call" {
		t.Errorf("recorded calls = %+v", calls)
	}

	mock.Reset()
	if got := mock.CallCount(); got != 0 {
		t.Errorf("CallCount() after Reset = %d, want 0", got)
	}
}
