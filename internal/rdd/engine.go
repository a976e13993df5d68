// Package rdd implements recursive task decomposition: repeatedly splitting
// a task until every piece is judged atomic or a hard bound stops the
// recursion. Bounds always win over model output, so the engine terminates
// even when the model keeps proposing oversized subtasks.
package rdd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/freshtechbro/taskforge/internal/atomicity"
	"github.com/freshtechbro/taskforge/internal/llm"
	"github.com/freshtechbro/taskforge/pkg/models"
)

// Options bound a decomposition run.
type Options struct {
	// MaxDepth is the recursion limit. Tasks at this depth are accepted
	// as leaves regardless of their judgment.
	MaxDepth int
	// MaxSubTasks caps the candidates taken from one split.
	MaxSubTasks int
	// MinConfidence is the judgment confidence required to accept a leaf
	// before the depth bound forces acceptance.
	MinConfidence float64
	// EpicCapHours is the epic time budget. Candidates that would push
	// the accepted total past it are dropped.
	EpicCapHours float64
	// AnalyzeTimeout bounds one atomicity judgment.
	AnalyzeTimeout time.Duration
	// SplitTimeout bounds one split call.
	SplitTimeout time.Duration
}

// DefaultOptions returns the standard bounds.
func DefaultOptions() Options {
	return Options{
		MaxDepth:       3,
		MaxSubTasks:    48,
		MinConfidence:  0.8,
		EpicCapHours:   models.DefaultEpicCapHours,
		AnalyzeTimeout: 5 * time.Minute,
		SplitTimeout:   10 * time.Minute,
	}
}

// Leaf is one accepted atomic task together with why it was accepted.
type Leaf struct {
	Task *models.AtomicTask
	// Judgment is the final atomicity judgment for the task.
	Judgment atomicity.Judgment
	// Depth is the recursion level at which the task was accepted.
	Depth int
	// Forced is true when a bound (depth, timeout, exhaustion) accepted
	// the task instead of the judgment.
	Forced bool
	// Reason explains forced acceptance.
	Reason string
}

// Result is the outcome of one decomposition run.
type Result struct {
	// Leaves are the accepted atomic tasks in acceptance order.
	Leaves []Leaf
	// Truncated is true when the epic cap dropped candidates.
	Truncated bool
	// MaxDepthReached is the deepest recursion level seen.
	MaxDepthReached int
	// TotalHours is the sum of accepted leaf estimates.
	TotalHours float64
	// Splits counts the split calls made.
	Splits int
}

// Tasks returns the accepted tasks without leaf metadata.
func (r *Result) Tasks() []*models.AtomicTask {
	tasks := make([]*models.AtomicTask, len(r.Leaves))
	for i, l := range r.Leaves {
		tasks[i] = l.Task
	}
	return tasks
}

// Engine drives the decomposition work list.
type Engine struct {
	gen      llm.Generator
	analyzer *atomicity.Analyzer
	registry *OperationRegistry
	opts     Options
	debugLog func(format string, args ...interface{})
}

// NewEngine creates an engine. The registry may be shared across engines;
// nil creates a private one.
func NewEngine(gen llm.Generator, analyzer *atomicity.Analyzer, registry *OperationRegistry, opts Options) *Engine {
	if registry == nil {
		registry = NewOperationRegistry()
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = 1
	}
	if opts.MaxSubTasks < 2 {
		opts.MaxSubTasks = 2
	}
	return &Engine{
		gen:      gen,
		analyzer: analyzer,
		registry: registry,
		opts:     opts,
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (e *Engine) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		e.debugLog = fn
	}
}

// Registry returns the operation registry used by this engine.
func (e *Engine) Registry() *OperationRegistry {
	return e.registry
}

// Options returns the bounds this engine runs under.
func (e *Engine) Options() Options {
	return e.opts
}

type workItem struct {
	task  *models.AtomicTask
	depth int
}

// Decompose breaks root into atomic leaves. sessionID labels registry
// operations; it may be empty. The run fails only on context cancellation
// or an invalid root; model failures degrade to forced leaves so a partial
// result is always produced.
func (e *Engine) Decompose(ctx context.Context, root *models.AtomicTask, sessionID string) (*Result, error) {
	if root == nil || root.Title == "" {
		return nil, fmt.Errorf("decompose: root task must have a title")
	}
	if root.ID == "" {
		root.ID = uuid.New().String()
	}

	result := &Result{}
	queue := []workItem{{task: root, depth: 0}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := queue[0]
		queue = queue[1:]

		if item.depth > result.MaxDepthReached {
			result.MaxDepthReached = item.depth
		}

		// Depth bound: accept without judgment.
		if item.depth >= e.opts.MaxDepth {
			e.accept(result, Leaf{
				Task:   item.task,
				Depth:  item.depth,
				Forced: true,
				Reason: fmt.Sprintf("depth bound %d reached", e.opts.MaxDepth),
			})
			continue
		}

		remaining := math.Inf(1)
		if e.opts.EpicCapHours > 0 {
			remaining = e.opts.EpicCapHours - result.TotalHours
		}
		judgment := e.analyze(ctx, item.task, remaining)
		if judgment.Atomic && judgment.Confidence >= e.opts.MinConfidence {
			e.accept(result, Leaf{Task: item.task, Judgment: judgment, Depth: item.depth})
			continue
		}

		children, err := e.splitTracked(ctx, item.task, sessionID)
		result.Splits++
		if err != nil {
			var timeoutErr *splitTimeoutErr
			if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
				e.accept(result, Leaf{
					Task:     item.task,
					Judgment: judgment,
					Depth:    item.depth,
					Forced:   true,
					Reason:   "split timed out, accepted as-is",
				})
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.debugLog("[rdd.Decompose] split of %q failed: %v", item.task.Title, err)
			e.accept(result, Leaf{
				Task:     item.task,
				Judgment: judgment,
				Depth:    item.depth,
				Forced:   true,
				Reason:   fmt.Sprintf("split failed: %v", err),
			})
			continue
		}

		// Drop candidates that would overflow the epic budget. Queued
		// work does not count until accepted, so the check uses the
		// running accepted total plus this batch.
		var kept []*models.AtomicTask
		batch := result.TotalHours
		for _, c := range children {
			if e.opts.EpicCapHours > 0 && batch+c.EstimatedHours > e.opts.EpicCapHours {
				result.Truncated = true
				e.debugLog("[rdd.Decompose] dropping %q: would exceed %.1fh epic cap", c.Title, e.opts.EpicCapHours)
				continue
			}
			batch += c.EstimatedHours
			kept = append(kept, c)
		}

		if len(kept) == 0 {
			e.accept(result, Leaf{
				Task:     item.task,
				Judgment: judgment,
				Depth:    item.depth,
				Forced:   true,
				Reason:   "no valid split candidates, atomic by exhaustion",
			})
			continue
		}

		for _, c := range kept {
			queue = append(queue, workItem{task: c, depth: item.depth + 1})
		}
	}

	e.debugLog("[rdd.Decompose] done: %d leaves, %.2fh total, depth %d, truncated=%v",
		len(result.Leaves), result.TotalHours, result.MaxDepthReached, result.Truncated)
	return result, nil
}

func (e *Engine) accept(result *Result, leaf Leaf) {
	if leaf.Task.ID == "" {
		leaf.Task.ID = uuid.New().String()
	}
	result.Leaves = append(result.Leaves, leaf)
	result.TotalHours += leaf.Task.EstimatedHours
}

func (e *Engine) analyze(ctx context.Context, task *models.AtomicTask, remainingHours float64) atomicity.Judgment {
	if e.opts.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.AnalyzeTimeout)
		defer cancel()
	}
	return e.analyzer.Analyze(ctx, task, remainingHours)
}

func (e *Engine) splitTracked(ctx context.Context, task *models.AtomicTask, sessionID string) ([]*models.AtomicTask, error) {
	opID := e.registry.Begin("split:"+task.Title, sessionID)
	defer e.registry.End(opID)
	return e.split(ctx, task)
}
