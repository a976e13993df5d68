package rdd

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/freshtechbro/taskforge/internal/atomicity"
	"github.com/freshtechbro/taskforge/internal/llm"
	"github.com/freshtechbro/taskforge/pkg/models"
)

// scriptedGen answers judgment prompts with a fixed verdict and split
// prompts based on the parent's estimated hours.
type scriptedGen struct {
	judgment   string
	splitFor   map[string]string // "16.00" -> JSON array response
	splitCalls int
}

func (s *scriptedGen) Generate(ctx context.Context, req llm.Request) (string, error) {
	if strings.Contains(req.Prompt, "Judge whether this task is atomic") {
		return s.judgment, nil
	}
	s.splitCalls++
	for hours, resp := range s.splitFor {
		if strings.Contains(req.Prompt, "Estimated hours: "+hours) {
			return resp, nil
		}
	}
	return "", fmt.Errorf("no scripted split for prompt")
}

func subtasksJSON(count int, hours float64, prefix string) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < count; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{
			"title": "%s step %d",
			"description": "do the work for step %d",
			"task_type": "feature",
			"estimated_hours": %v,
			"acceptance_criterion": "step %d verified",
			"file_paths": ["internal/auth/step%d.go"],
			"depends_on": []
		}`, prefix, i+1, i+1, hours, i+1, i+1)
	}
	sb.WriteString("]")
	return sb.String()
}

func rootTask(hours float64) *models.AtomicTask {
	return &models.AtomicTask{
		ID:             "root",
		Title:          "User authentication overhaul",
		Description:    "Login, sessions, and password reset",
		Priority:       models.PriorityHigh,
		EstimatedHours: hours,
		ProjectID:      "proj-1",
	}
}

func TestDecomposeRecursesToAtomicLeaves(t *testing.T) {
	gen := &scriptedGen{
		judgment: `{"atomic": true, "confidence": 0.9, "reason": "ok"}`,
		splitFor: map[string]string{
			"16.00": subtasksJSON(4, 1.0, "Login stage"),
			"1.00":  subtasksJSON(6, 0.12, "Auth change"),
		},
	}
	engine := NewEngine(gen, atomicity.NewAnalyzer(gen), nil, DefaultOptions())

	result, err := engine.Decompose(context.Background(), rootTask(16), "s1")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}

	if len(result.Leaves) != 24 {
		t.Fatalf("leaves = %d, want 24", len(result.Leaves))
	}
	for _, leaf := range result.Leaves {
		hrs := leaf.Task.EstimatedHours
		if hrs < models.MinAtomicHours || hrs > models.MaxAtomicHours {
			t.Errorf("leaf %q hours = %v, want within [%v, %v]",
				leaf.Task.Title, hrs, models.MinAtomicHours, models.MaxAtomicHours)
		}
		if len(leaf.Task.AcceptanceCriteria) != 1 {
			t.Errorf("leaf %q has %d criteria, want 1", leaf.Task.Title, len(leaf.Task.AcceptanceCriteria))
		}
		if leaf.Forced {
			t.Errorf("leaf %q was force-accepted: %s", leaf.Task.Title, leaf.Reason)
		}
	}
	if result.MaxDepthReached != 2 {
		t.Errorf("MaxDepthReached = %d, want 2", result.MaxDepthReached)
	}
	if result.Truncated {
		t.Error("Truncated = true, want false")
	}
	if engine.Registry().Active() != 0 {
		t.Errorf("registry has %d active operations after run", engine.Registry().Active())
	}
}

func TestDecomposeDepthBoundForcesAcceptance(t *testing.T) {
	// Splits keep returning one-hour tasks, so only the depth bound can
	// stop the recursion.
	gen := &scriptedGen{
		judgment: `{"atomic": false, "confidence": 0.9, "reason": "too big"}`,
		splitFor: map[string]string{
			"16.00": subtasksJSON(2, 1.0, "Phase"),
			"1.00":  subtasksJSON(2, 1.0, "Slice"),
		},
	}
	opts := DefaultOptions()
	opts.MaxDepth = 2
	engine := NewEngine(gen, atomicity.NewAnalyzer(gen), nil, opts)

	result, err := engine.Decompose(context.Background(), rootTask(16), "")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}

	if len(result.Leaves) != 4 {
		t.Fatalf("leaves = %d, want 4", len(result.Leaves))
	}
	for _, leaf := range result.Leaves {
		if !leaf.Forced {
			t.Errorf("leaf %q should be force-accepted at the depth bound", leaf.Task.Title)
		}
		if leaf.Depth != 2 {
			t.Errorf("leaf %q depth = %d, want 2", leaf.Task.Title, leaf.Depth)
		}
	}
}

func TestDecomposeTruncatesAtEpicCap(t *testing.T) {
	gen := &scriptedGen{
		judgment: `{"atomic": true, "confidence": 0.9, "reason": "ok"}`,
		splitFor: map[string]string{
			"1.00": subtasksJSON(6, 0.12, "Auth change"),
		},
	}
	opts := DefaultOptions()
	opts.EpicCapHours = 0.3
	engine := NewEngine(gen, atomicity.NewAnalyzer(gen), nil, opts)

	result, err := engine.Decompose(context.Background(), rootTask(1), "")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}

	if !result.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(result.Leaves) != 2 {
		t.Errorf("leaves = %d, want 2 within the 0.3h cap", len(result.Leaves))
	}
	if result.TotalHours > opts.EpicCapHours {
		t.Errorf("TotalHours = %v exceeds cap %v", result.TotalHours, opts.EpicCapHours)
	}
}

func TestDecomposeExhaustionAcceptsParent(t *testing.T) {
	// Every candidate overflows the cap, so the parent itself becomes
	// the leaf.
	gen := &scriptedGen{
		judgment: `{"atomic": false, "confidence": 0.9, "reason": "too big"}`,
		splitFor: map[string]string{
			"1.00": subtasksJSON(3, 2.0, "Oversized"),
		},
	}
	opts := DefaultOptions()
	opts.EpicCapHours = 1.5
	engine := NewEngine(gen, atomicity.NewAnalyzer(gen), nil, opts)

	result, err := engine.Decompose(context.Background(), rootTask(1), "")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}

	if len(result.Leaves) != 1 {
		t.Fatalf("leaves = %d, want 1", len(result.Leaves))
	}
	leaf := result.Leaves[0]
	if leaf.Task.ID != "root" || !leaf.Forced {
		t.Errorf("leaf = %+v, want forced root", leaf)
	}
	if !strings.Contains(leaf.Reason, "exhaustion") {
		t.Errorf("Reason = %q, want exhaustion note", leaf.Reason)
	}
}

// blockingGen hangs split calls until the context expires.
type blockingGen struct{}

func (b *blockingGen) Generate(ctx context.Context, req llm.Request) (string, error) {
	if strings.Contains(req.Prompt, "Judge whether this task is atomic") {
		return `{"atomic": false, "confidence": 0.9, "reason": "too big"}`, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestDecomposeSplitTimeoutForcesLeaf(t *testing.T) {
	gen := &blockingGen{}
	opts := DefaultOptions()
	opts.SplitTimeout = 10 * time.Millisecond
	engine := NewEngine(gen, atomicity.NewAnalyzer(gen), nil, opts)

	result, err := engine.Decompose(context.Background(), rootTask(1), "")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}

	if len(result.Leaves) != 1 {
		t.Fatalf("leaves = %d, want 1", len(result.Leaves))
	}
	leaf := result.Leaves[0]
	if !leaf.Forced || !strings.Contains(leaf.Reason, "timed out") {
		t.Errorf("leaf = %+v, want timeout-forced", leaf)
	}
}

func TestDecomposeRejectsEmptyRoot(t *testing.T) {
	gen := &scriptedGen{judgment: `{"atomic": true, "confidence": 0.9}`}
	engine := NewEngine(gen, atomicity.NewAnalyzer(gen), nil, DefaultOptions())

	if _, err := engine.Decompose(context.Background(), nil, ""); err == nil {
		t.Error("expected error for nil root")
	}
	if _, err := engine.Decompose(context.Background(), &models.AtomicTask{}, ""); err == nil {
		t.Error("expected error for untitled root")
	}
}

func TestParseSplitRemapsDependencies(t *testing.T) {
	engine := NewEngine(nil, atomicity.NewAnalyzer(nil), nil, DefaultOptions())

	response := `[
		{"title": "Write schema", "estimated_hours": 0.1, "acceptance_criterion": "schema exists", "depends_on": []},
		{"title": "Write handler", "estimated_hours": 0.12, "acceptance_criterion": "handler compiles", "depends_on": ["Write schema", "Unknown task"]}
	]`

	tasks, err := engine.parseSplit(rootTask(1), response)
	if err != nil {
		t.Fatalf("parseSplit() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if len(tasks[1].Dependencies) != 1 || tasks[1].Dependencies[0] != tasks[0].ID {
		t.Errorf("Dependencies = %v, want [%s]", tasks[1].Dependencies, tasks[0].ID)
	}
}

func TestParseSplitDropsInvalidCandidates(t *testing.T) {
	engine := NewEngine(nil, atomicity.NewAnalyzer(nil), nil, DefaultOptions())

	// Only the first and last candidates have the atomic task shape. The
	// dropped ones must also vanish as dependency targets.
	response := `[
		{"title": "Write schema", "estimated_hours": 0.1, "acceptance_criterion": "schema exists"},
		{"title": "Touch everything", "estimated_hours": 0.1, "acceptance_criterion": "done", "file_paths": ["a.go", "b.go", "c.go"]},
		{"title": "No criterion", "estimated_hours": 0.1},
		{"title": "Write docs and tests", "estimated_hours": 0.1, "acceptance_criterion": "done"},
		{"title": "Write handler", "estimated_hours": 0.12, "acceptance_criterion": "handler compiles", "depends_on": ["Write schema", "Touch everything"]}
	]`

	tasks, err := engine.parseSplit(rootTask(1), response)
	if err != nil {
		t.Fatalf("parseSplit() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if tasks[0].Title != "Write schema" || tasks[1].Title != "Write handler" {
		t.Errorf("kept = %q, %q", tasks[0].Title, tasks[1].Title)
	}
	if len(tasks[1].Dependencies) != 1 || tasks[1].Dependencies[0] != tasks[0].ID {
		t.Errorf("Dependencies = %v, want [%s]", tasks[1].Dependencies, tasks[0].ID)
	}
}

func TestOperationRegistry(t *testing.T) {
	r := NewOperationRegistry()

	id1 := r.Begin("split:alpha", "s1")
	r.Begin("split:beta", "s1")
	if r.Active() != 2 {
		t.Errorf("Active() = %d, want 2", r.Active())
	}

	r.End(id1)
	if r.Active() != 1 {
		t.Errorf("Active() = %d, want 1", r.Active())
	}

	if long := r.LongRunning(0); len(long) != 1 {
		t.Errorf("LongRunning(0) = %d ops, want 1", len(long))
	}
	if long := r.LongRunning(time.Hour); len(long) != 0 {
		t.Errorf("LongRunning(1h) = %d ops, want 0", len(long))
	}

	if n := r.CleanupStale(time.Hour); n != 0 {
		t.Errorf("CleanupStale(1h) = %d, want 0", n)
	}
	if n := r.CleanupStale(0); n != 1 {
		t.Errorf("CleanupStale(0) = %d, want 1", n)
	}
	if r.Active() != 0 {
		t.Errorf("Active() = %d, want 0", r.Active())
	}
}
