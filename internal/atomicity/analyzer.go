// Package atomicity decides whether a task is small enough to hand to a
// single worker without further decomposition. A generative judgment is
// gathered first, then deterministic rules override it so that bad model
// output can never admit an oversized task.
package atomicity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/freshtechbro/taskforge/internal/llm"
	"github.com/freshtechbro/taskforge/pkg/models"
)

// HeuristicConfidence is the confidence assigned when the generative
// judgment is unavailable and the analyzer falls back to size heuristics.
const HeuristicConfidence = 0.4

// Judgment is the outcome of an atomicity analysis.
type Judgment struct {
	// Atomic is true when the task needs no further decomposition.
	Atomic bool `json:"atomic"`
	// Confidence is the certainty of the judgment in [0,1].
	Confidence float64 `json:"confidence"`
	// Reason explains the judgment in one sentence.
	Reason string `json:"reason"`
	// RuleHits lists the names of override rules that fired, in order.
	RuleHits []string `json:"rule_hits,omitempty"`
}

// Analyzer combines a generative judgment with deterministic override rules.
type Analyzer struct {
	gen   llm.Generator
	rules []Rule
}

// NewAnalyzer creates an analyzer backed by gen. A nil generator skips the
// generative pass and relies on heuristics plus rules alone.
func NewAnalyzer(gen llm.Generator) *Analyzer {
	return &Analyzer{
		gen:   gen,
		rules: DefaultRules(),
	}
}

// Analyze judges whether task is atomic. remainingHours is the unspent
// portion of the owning epic's time budget, +Inf when no budget applies;
// rules use it to flag overflow.
// The generative pass failing is not an error: the analyzer degrades to a
// heuristic judgment so decomposition can continue offline.
func (a *Analyzer) Analyze(ctx context.Context, task *models.AtomicTask, remainingHours float64) Judgment {
	j, err := a.generativeJudgment(ctx, task)
	if err != nil {
		log.Printf("[atomicity] generative judgment for %q failed, using heuristics: %v", task.Title, err)
		j = heuristicJudgment(task)
	}

	return ApplyRules(a.rules, task, j, remainingHours)
}

func (a *Analyzer) generativeJudgment(ctx context.Context, task *models.AtomicTask) (Judgment, error) {
	if a.gen == nil {
		return Judgment{}, fmt.Errorf("no generator configured")
	}

	prompt := buildJudgmentPrompt(task)
	text, err := a.gen.Generate(ctx, llm.Request{
		Prompt:       prompt,
		SystemPrompt: judgmentSystemPrompt,
		Temperature:  0.1,
		MaxTokens:    1024,
	})
	if err != nil {
		return Judgment{}, err
	}

	jsonStr, err := llm.ExtractJSONObject(text)
	if err != nil {
		return Judgment{}, err
	}

	var j Judgment
	if err := json.Unmarshal([]byte(jsonStr), &j); err != nil {
		return Judgment{}, fmt.Errorf("unmarshal judgment: %w", err)
	}
	if j.Confidence < 0 {
		j.Confidence = 0
	}
	if j.Confidence > 1 {
		j.Confidence = 1
	}
	return j, nil
}

// heuristicJudgment estimates atomicity from task shape alone. It carries
// low confidence so the acceptance threshold forces another split pass
// unless the override rules agree the task is clearly small.
func heuristicJudgment(task *models.AtomicTask) Judgment {
	atomic := task.WithinAtomicDuration() &&
		len(task.AcceptanceCriteria) == 1 &&
		len(task.FilePaths) <= models.MaxAtomicFiles &&
		!ContainsConjunction(task.Title+" "+task.Description)

	reason := "heuristic: task shape within atomic bounds"
	if !atomic {
		reason = "heuristic: task shape exceeds atomic bounds"
	}

	return Judgment{
		Atomic:     atomic,
		Confidence: HeuristicConfidence,
		Reason:     reason,
	}
}
