package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubGenerator returns canned responses, failing the first failCount calls.
type stubGenerator struct {
	failCount int
	failWith  error
	response  string
	calls     int
}

func (s *stubGenerator) Generate(ctx context.Context, req Request) (string, error) {
	s.calls++
	if s.calls <= s.failCount {
		return "", s.failWith
	}
	return s.response, nil
}

var errTransient = errors.New("connection reset")

func TestRetryingGeneratorRecovers(t *testing.T) {
	stub := &stubGenerator{failCount: 2, failWith: errTransient, response: "ok"}
	gen := NewRetryingGenerator(stub, RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
	})

	text, err := gen.Generate(context.Background(), Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "ok" {
		t.Errorf("Generate() = %q, want ok", text)
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d, want 3", stub.calls)
	}
}

func TestRetryingGeneratorExhaustsAttempts(t *testing.T) {
	stub := &stubGenerator{failCount: 100, failWith: errTransient}
	gen := NewRetryingGenerator(stub, RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})

	_, err := gen.Generate(context.Background(), Request{Prompt: "hello"})
	if !errors.Is(err, errTransient) {
		t.Errorf("expected transient error, got %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d, want 3", stub.calls)
	}
}

func TestRetryingGeneratorStopsOnCancellation(t *testing.T) {
	stub := &stubGenerator{failCount: 100, failWith: context.Canceled}
	gen := NewRetryingGenerator(stub, RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
	})

	_, err := gen.Generate(context.Background(), Request{Prompt: "hello"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1 (cancellation is not retryable)", stub.calls)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, false},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"prose wrapped", `Here is the result: {"a": 1} as requested.`, `{"a": 1}`, false},
		{"no object", "nothing here", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractJSONObject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	got, err := ExtractJSONArray("prefix [1, 2, 3] suffix")
	if err != nil {
		t.Fatalf("ExtractJSONArray() error = %v", err)
	}
	if got != "[1, 2, 3]" {
		t.Errorf("ExtractJSONArray() = %q", got)
	}

	if _, err := ExtractJSONArray("no array"); err == nil {
		t.Error("expected error for missing array")
	}
}
