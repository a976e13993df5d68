// Package scheduler turns a task graph into an execution timeline. All
// algorithms share one list-scheduling simulation and differ only in how
// they rank the ready set, so dependency ordering holds regardless of the
// algorithm chosen.
package scheduler

import (
	"fmt"
	"sort"

	"github.com/freshtechbro/taskforge/internal/graph"
	"github.com/freshtechbro/taskforge/pkg/models"
)

// Algorithm selects a ready-set ranking strategy.
type Algorithm string

const (
	// PriorityFirst runs higher-priority tasks before lower ones.
	PriorityFirst Algorithm = "priority-first"
	// EarliestDeadline runs tasks by derived deadline, soonest first.
	EarliestDeadline Algorithm = "earliest-deadline"
	// CriticalPath runs tasks with the heaviest downstream chain first.
	CriticalPath Algorithm = "critical-path"
	// ResourceBalanced spreads long tasks across slots early.
	ResourceBalanced Algorithm = "resource-balanced"
	// ShortestJobFirst runs quick tasks first to surface progress.
	ShortestJobFirst Algorithm = "shortest-job-first"
	// HybridOptimal blends priority, path weight, and duration.
	HybridOptimal Algorithm = "hybrid-optimal"
)

// Valid returns true for a known algorithm name.
func (a Algorithm) Valid() bool {
	switch a {
	case PriorityFirst, EarliestDeadline, CriticalPath,
		ResourceBalanced, ShortestJobFirst, HybridOptimal:
		return true
	default:
		return false
	}
}

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{
		PriorityFirst, EarliestDeadline, CriticalPath,
		ResourceBalanced, ShortestJobFirst, HybridOptimal,
	}
}

// parallel reports whether the algorithm uses multiple execution slots.
func (a Algorithm) parallel() bool {
	switch a {
	case CriticalPath, ResourceBalanced, HybridOptimal:
		return true
	default:
		return false
	}
}

// Options configure a scheduling run.
type Options struct {
	// Algorithm is the ranking strategy. Empty selects HybridOptimal.
	Algorithm Algorithm
	// Slots is the number of concurrent execution slots for parallel
	// algorithms. Zero selects 3. Sequential algorithms always use 1.
	Slots int
}

// ScheduledTask is one task placed on the timeline. Times are hour offsets
// from the start of execution.
type ScheduledTask struct {
	TaskID string  `json:"task_id"`
	Title  string  `json:"title"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	// Slot is the execution slot index the task was placed in.
	Slot int `json:"slot"`
}

// Schedule is a complete execution timeline.
type Schedule struct {
	Algorithm Algorithm       `json:"algorithm"`
	Slots     int             `json:"slots"`
	Tasks     []ScheduledTask `json:"tasks"`
	// MakespanHours is the end time of the last task.
	MakespanHours float64 `json:"makespan_hours"`
}

// Scheduler builds execution timelines from task graphs.
type Scheduler struct {
	debugLog func(format string, args ...interface{})
}

// New creates a scheduler.
func New() *Scheduler {
	return &Scheduler{debugLog: func(format string, args ...interface{}) {}}
}

// SetDebugLog sets the debug logging function.
func (s *Scheduler) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.debugLog = fn
	}
}

// Build constructs a schedule. Every task appears exactly once, and for
// each dependency edge the dependent starts no earlier than its
// prerequisite finishes. Cyclic graphs are an error.
func (s *Scheduler) Build(tasks []*models.AtomicTask, deps []*models.Dependency, opts Options) (*Schedule, error) {
	alg := opts.Algorithm
	if alg == "" {
		alg = HybridOptimal
	}
	if !alg.Valid() {
		return nil, fmt.Errorf("unknown scheduling algorithm %q", alg)
	}

	// Duplicate IDs would collapse in the graph but not in the task list,
	// leaving the simulation unable to drain its work list.
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		seen[t.ID] = true
	}

	g := graph.New()
	if err := g.Build(tasks, deps); err != nil {
		return nil, fmt.Errorf("build schedule graph: %w", err)
	}
	if cycle := g.DetectCycle(); cycle != nil {
		return nil, fmt.Errorf("cannot schedule: %w (cycle: %v)", graph.ErrCycleDetected, cycle)
	}

	slots := 1
	if alg.parallel() {
		slots = opts.Slots
		if slots < 1 {
			slots = 3
		}
	}

	rank := s.ranker(alg, g, tasks)
	timeline := s.simulate(g, tasks, slots, rank)

	sched := &Schedule{
		Algorithm: alg,
		Slots:     slots,
		Tasks:     timeline,
	}
	for _, st := range timeline {
		if st.End > sched.MakespanHours {
			sched.MakespanHours = st.End
		}
	}

	s.debugLog("[scheduler.Build] %s: %d tasks over %d slots, makespan %.2fh",
		alg, len(timeline), slots, sched.MakespanHours)
	return sched, nil
}

// simulate performs list scheduling: repeatedly take the best ready task
// and place it in the earliest-free slot, starting no earlier than its
// latest prerequisite finish.
func (s *Scheduler) simulate(g *graph.DependencyGraph, tasks []*models.AtomicTask, slots int, better func(a, b *models.AtomicTask) bool) []ScheduledTask {
	byID := make(map[string]*models.AtomicTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	remaining := make(map[string]int, len(tasks)) // unscheduled prereq count
	for _, t := range tasks {
		remaining[t.ID] = len(g.Prerequisites(t.ID))
	}

	finish := make(map[string]float64, len(tasks))
	slotFree := make([]float64, slots)
	scheduled := make(map[string]bool, len(tasks))

	var timeline []ScheduledTask
	for len(timeline) < len(tasks) {
		// Collect the ready set in deterministic order.
		var ready []*models.AtomicTask
		for _, t := range tasks {
			if !scheduled[t.ID] && remaining[t.ID] == 0 {
				ready = append(ready, t)
			}
		}
		sort.Slice(ready, func(i, j int) bool {
			if better(ready[i], ready[j]) != better(ready[j], ready[i]) {
				return better(ready[i], ready[j])
			}
			return ready[i].ID < ready[j].ID
		})

		pick := ready[0]

		// Earliest start: latest prerequisite finish.
		earliest := 0.0
		for _, prereq := range g.Prerequisites(pick.ID) {
			if finish[prereq] > earliest {
				earliest = finish[prereq]
			}
		}

		// Earliest-free slot, lowest index on ties.
		slot := 0
		for i := 1; i < slots; i++ {
			if slotFree[i] < slotFree[slot] {
				slot = i
			}
		}

		start := earliest
		if slotFree[slot] > start {
			start = slotFree[slot]
		}
		end := start + pick.EstimatedHours

		timeline = append(timeline, ScheduledTask{
			TaskID: pick.ID,
			Title:  pick.Title,
			Start:  start,
			End:    end,
			Slot:   slot,
		})
		scheduled[pick.ID] = true
		finish[pick.ID] = end
		slotFree[slot] = end

		for _, dep := range g.Dependents(pick.ID) {
			remaining[dep]--
		}
	}

	return timeline
}
