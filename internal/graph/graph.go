// Package graph provides a dependency graph over atomic tasks with cycle
// detection, topological ordering, and critical path analysis.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed graph of task dependencies. An edge A -> B
// means A is a prerequisite of B: A must complete before B starts.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.AtomicTask
	// out maps a prerequisite to the tasks it unlocks.
	out map[string][]string
	// in maps a task to its prerequisites.
	in map[string][]string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:    make(map[string]*models.AtomicTask),
		out:      make(map[string][]string),
		in:       make(map[string][]string),
		debugLog: func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the graph from tasks and explicit dependency records.
// Task-embedded prerequisite lists and dependency records are merged;
// duplicate edges collapse. Returns an error if an edge references an
// unknown task. Build does not reject cycles so that DetectCycle can
// report the offending path afterwards.
func (g *DependencyGraph) Build(tasks []*models.AtomicTask, deps []*models.Dependency) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Build] building graph from %d tasks, %d dependency records", len(tasks), len(deps))

	g.nodes = make(map[string]*models.AtomicTask, len(tasks))
	g.out = make(map[string][]string, len(tasks))
	g.in = make(map[string][]string, len(tasks))

	for _, task := range tasks {
		if task.ID == "" {
			return fmt.Errorf("task %q has empty ID", task.Title)
		}
		g.nodes[task.ID] = task
		g.out[task.ID] = nil
		g.in[task.ID] = nil
	}

	seen := make(map[[2]string]bool)
	addEdge := func(from, to string) error {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("edge references unknown task %s", from)
		}
		if _, ok := g.nodes[to]; !ok {
			return fmt.Errorf("edge references unknown task %s", to)
		}
		key := [2]string{from, to}
		if seen[key] {
			return nil
		}
		seen[key] = true
		g.out[from] = append(g.out[from], to)
		g.in[to] = append(g.in[to], from)
		return nil
	}

	for _, task := range tasks {
		for _, prereq := range task.Dependencies {
			if err := addEdge(prereq, task.ID); err != nil {
				return fmt.Errorf("task %s: %w", task.ID, err)
			}
		}
	}
	for _, d := range deps {
		if err := addEdge(d.FromTaskID, d.ToTaskID); err != nil {
			return fmt.Errorf("dependency %s: %w", d.ID, err)
		}
	}

	// Deterministic adjacency order regardless of input order.
	for id := range g.out {
		sort.Strings(g.out[id])
		sort.Strings(g.in[id])
	}

	g.debugLog("[graph.Build] graph built with %d nodes, %d edges", len(g.nodes), len(seen))
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
func (g *DependencyGraph) HasCycle() bool {
	return len(g.DetectCycle()) > 0
}

// DetectCycle returns one dependency cycle as an ordered task ID path, with
// the starting task repeated at the end (for edges A->B, B->C, C->A the
// result is [A, B, C, A]). Returns nil if the graph is acyclic. Detection
// is deterministic: traversal visits task IDs in sorted order.
func (g *DependencyGraph) DetectCycle() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.detectCycleLocked()
}

func (g *DependencyGraph) detectCycleLocked() []string {
	// Color states: 0 = white (unvisited), 1 = gray (on current path), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		colors[id] = 1
		path = append(path, id)

		for _, next := range g.out[id] {
			switch colors[next] {
			case 1:
				// Back edge: slice the path from the first occurrence of next.
				for i, p := range path {
					if p == next {
						cycle := append([]string{}, path[i:]...)
						return append(cycle, next)
					}
				}
			case 0:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}

		colors[id] = 2
		path = path[:len(path)-1]
		return nil
	}

	ids := g.sortedIDs()
	for _, id := range ids {
		if colors[id] == 0 {
			path = path[:0]
			if cycle := visit(id); cycle != nil {
				g.debugLog("[graph.DetectCycle] cycle found: %v", cycle)
				return cycle
			}
		}
	}
	return nil
}

// ExecutionOrder returns task IDs in an order where every prerequisite
// precedes its dependents (Kahn's algorithm). Ties break by task ID so the
// order is stable across runs. Returns ErrCycleDetected for cyclic graphs.
func (g *DependencyGraph) ExecutionOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.in[id])
	}

	var queue []string
	for _, id := range g.sortedIDs() {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var unlocked []string
		for _, next := range g.out[id] {
			indegree[next]--
			if indegree[next] == 0 {
				unlocked = append(unlocked, next)
			}
		}
		sort.Strings(unlocked)
		queue = append(queue, unlocked...)
	}

	if len(order) != len(g.nodes) {
		return nil, ErrCycleDetected
	}
	return order, nil
}

// CriticalPath returns the longest dependency chain by cumulative estimated
// hours and its total duration. The path bounds how fast the project can
// finish with unlimited parallelism. Returns ErrCycleDetected for cyclic
// graphs and an empty path for an empty graph.
func (g *DependencyGraph) CriticalPath() ([]string, float64, error) {
	order, err := g.ExecutionOrder()
	if err != nil {
		return nil, 0, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	// finish[id] is the earliest completion time of id given its
	// prerequisites; pred tracks the heaviest incoming chain.
	finish := make(map[string]float64, len(order))
	pred := make(map[string]string, len(order))

	for _, id := range order {
		start := 0.0
		for _, prereq := range g.in[id] {
			if finish[prereq] > start {
				start = finish[prereq]
				pred[id] = prereq
			}
		}
		finish[id] = start + g.nodes[id].EstimatedHours
	}

	var endID string
	var total float64
	for _, id := range order {
		if finish[id] > total || (finish[id] == total && (endID == "" || id < endID)) {
			total = finish[id]
			endID = id
		}
	}
	if endID == "" {
		return nil, 0, nil
	}

	var path []string
	for id := endID; id != ""; {
		path = append(path, id)
		next, ok := pred[id]
		if !ok {
			break
		}
		id = next
	}
	// Reverse into prerequisite-first order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, total, nil
}

// Stats summarizes graph shape.
type Stats struct {
	// TaskCount is the number of nodes.
	TaskCount int `json:"task_count"`
	// DependencyCount is the number of distinct edges.
	DependencyCount int `json:"dependency_count"`
	// MaxDepth is the length in edges of the longest dependency chain.
	MaxDepth int `json:"max_depth"`
	// RootCount is the number of tasks with no prerequisites.
	RootCount int `json:"root_count"`
	// LeafCount is the number of tasks nothing depends on.
	LeafCount int `json:"leaf_count"`
	// IsolatedCount is the number of tasks with no edges at all.
	IsolatedCount int `json:"isolated_count"`
	// TotalHours is the sum of all task estimates.
	TotalHours float64 `json:"total_hours"`
}

// ComputeStats returns summary statistics for the graph. Depth is zero for
// cyclic graphs since chain length is undefined there.
func (g *DependencyGraph) ComputeStats() Stats {
	order, err := g.ExecutionOrder()

	g.mu.RLock()
	defer g.mu.RUnlock()

	var s Stats
	s.TaskCount = len(g.nodes)

	for id, task := range g.nodes {
		s.DependencyCount += len(g.out[id])
		s.TotalHours += task.EstimatedHours
		if len(g.in[id]) == 0 {
			s.RootCount++
		}
		if len(g.out[id]) == 0 {
			s.LeafCount++
		}
		if len(g.in[id]) == 0 && len(g.out[id]) == 0 {
			s.IsolatedCount++
		}
	}

	if err == nil {
		depth := make(map[string]int, len(order))
		for _, id := range order {
			for _, prereq := range g.in[id] {
				if depth[prereq]+1 > depth[id] {
					depth[id] = depth[prereq] + 1
				}
			}
			if depth[id] > s.MaxDepth {
				s.MaxDepth = depth[id]
			}
		}
	}

	return s
}

// Task returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) Task(taskID string) *models.AtomicTask {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Prerequisites returns the IDs of tasks that must complete before taskID.
func (g *DependencyGraph) Prerequisites(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.in[taskID]...)
}

// Dependents returns the IDs of tasks unlocked by taskID.
func (g *DependencyGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.out[taskID]...)
}

func (g *DependencyGraph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
