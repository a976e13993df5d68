package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Request describes one generation call.
type Request struct {
	// Prompt is the user-role content.
	Prompt string
	// SystemPrompt sets the system role content. Optional.
	SystemPrompt string
	// MaxTokens caps the response length. Zero selects a default.
	MaxTokens int64
	// Temperature controls sampling. Negative means unset.
	Temperature float64
}

// Generator produces text completions. Implementations must honor
// context cancellation and deadlines.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse indicates the model returned no text content.
var ErrEmptyResponse = errors.New("empty model response")

// Generate performs a single non-streaming Messages call and returns the
// concatenated text blocks.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}
	if req.Temperature >= 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("messages call: %w", err)
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var sb strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(variant.Text)
		}
	}

	text := sb.String()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ExtractJSONObject returns the first top-level JSON object embedded in
// text, or an error if none is found. Models often wrap JSON in prose or
// code fences, so the extraction is positional rather than a strict parse.
func ExtractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return text[start : end+1], nil
}

// ExtractJSONArray returns the first top-level JSON array embedded in text.
func ExtractJSONArray(text string) (string, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON array found in response")
	}
	return text[start : end+1], nil
}
