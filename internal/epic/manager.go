// Package epic derives epic-level structure from task-level dependencies:
// coupling strength between epics, execution phases, conflicts, and
// planning recommendations.
package epic

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// ErrEpicCycle indicates a circular dependency between epics.
var ErrEpicCycle = errors.New("circular epic dependency")

// Config holds the thresholds for epic analysis.
type Config struct {
	// StrengthThreshold is the minimum coupling that materializes an edge.
	StrengthThreshold float64
	// RequiresThreshold classifies an edge as "requires" above it.
	RequiresThreshold float64
	// BlocksThreshold classifies an edge as "blocks" above it.
	BlocksThreshold float64
	// MergeStrength is the coupling above which small epics should merge.
	MergeStrength float64
	// SplitTaskCount is the size above which an epic should split.
	SplitTaskCount int
	// SmallEpicTasks is the size below which an epic counts as small.
	SmallEpicTasks int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		StrengthThreshold: 0.3,
		RequiresThreshold: 0.5,
		BlocksThreshold:   0.7,
		MergeStrength:     0.8,
		SplitTaskCount:    10,
		SmallEpicTasks:    5,
	}
}

// Manager performs epic-level analysis.
type Manager struct {
	cfg      Config
	debugLog func(format string, args ...interface{})
}

// NewManager creates a manager with the given thresholds.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (m *Manager) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		m.debugLog = fn
	}
}

// Strength computes the coupling between two epics from the number of
// cross-epic task dependencies. The density term rewards many edges
// relative to all possible pairs; the coverage term rewards edges touching
// a large share of the bigger epic. Coverage dominates so a few strong
// links between small epics still register.
func Strength(crossDeps, fromTasks, toTasks int) float64 {
	if crossDeps == 0 || fromTasks == 0 || toTasks == 0 {
		return 0
	}
	density := float64(crossDeps) / float64(fromTasks*toTasks)
	larger := fromTasks
	if toTasks > larger {
		larger = toTasks
	}
	coverage := float64(crossDeps) / float64(larger)
	if coverage > 1 {
		coverage = 1
	}
	return 0.4*density + 0.6*coverage
}

// AnalyzeDependencies derives epic-level edges from task dependencies.
// Task membership comes from each epic's TaskIDs list. Pairs whose
// coupling falls below the strength threshold produce no edge.
func (m *Manager) AnalyzeDependencies(epics []*models.Epic, deps []*models.Dependency) []*models.EpicDependency {
	taskEpic := make(map[string]string)
	taskCount := make(map[string]int, len(epics))
	for _, e := range epics {
		taskCount[e.ID] = len(e.TaskIDs)
		for _, tid := range e.TaskIDs {
			taskEpic[tid] = e.ID
		}
	}

	type pair struct{ from, to string }
	crossDeps := make(map[pair][]string)
	for _, d := range deps {
		fromEpic, okFrom := taskEpic[d.FromTaskID]
		toEpic, okTo := taskEpic[d.ToTaskID]
		if !okFrom || !okTo || fromEpic == toEpic {
			continue
		}
		p := pair{from: fromEpic, to: toEpic}
		crossDeps[p] = append(crossDeps[p], d.ID)
	}

	var out []*models.EpicDependency
	for p, depIDs := range crossDeps {
		strength := Strength(len(depIDs), taskCount[p.from], taskCount[p.to])
		if strength < m.cfg.StrengthThreshold {
			m.debugLog("[epic.AnalyzeDependencies] %s -> %s strength %.3f below threshold, skipped",
				p.from, p.to, strength)
			continue
		}

		kind := models.DependencySuggests
		switch {
		case strength > m.cfg.BlocksThreshold:
			kind = models.DependencyBlocks
		case strength > m.cfg.RequiresThreshold:
			kind = models.DependencyRequires
		}

		out = append(out, &models.EpicDependency{
			ID:                uuid.New().String(),
			FromEpicID:        p.from,
			ToEpicID:          p.to,
			Kind:              kind,
			Strength:          strength,
			Critical:          strength > models.CriticalStrength,
			TaskDependencyIDs: depIDs,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FromEpicID != out[j].FromEpicID {
			return out[i].FromEpicID < out[j].FromEpicID
		}
		return out[i].ToEpicID < out[j].ToEpicID
	})
	return out
}

// TopologicalOrder returns epic IDs with every prerequisite epic before
// its dependents. Returns ErrEpicCycle for circular epic graphs.
func (m *Manager) TopologicalOrder(epics []*models.Epic, edges []*models.EpicDependency) ([]string, error) {
	phases, err := m.Phases(epics, edges)
	if err != nil {
		return nil, err
	}
	var order []string
	for _, phase := range phases {
		order = append(order, phase...)
	}
	return order, nil
}

// Phases groups epics into waves: every epic in phase n depends only on
// epics in phases before n, so each phase can run in parallel.
func (m *Manager) Phases(epics []*models.Epic, edges []*models.EpicDependency) ([][]string, error) {
	indegree := make(map[string]int, len(epics))
	out := make(map[string][]string, len(epics))
	for _, e := range epics {
		indegree[e.ID] = 0
	}
	for _, edge := range edges {
		if _, ok := indegree[edge.FromEpicID]; !ok {
			continue
		}
		if _, ok := indegree[edge.ToEpicID]; !ok {
			continue
		}
		out[edge.FromEpicID] = append(out[edge.FromEpicID], edge.ToEpicID)
		indegree[edge.ToEpicID]++
	}

	var current []string
	for id, d := range indegree {
		if d == 0 {
			current = append(current, id)
		}
	}
	sort.Strings(current)

	var phases [][]string
	placed := 0
	for len(current) > 0 {
		phases = append(phases, current)
		placed += len(current)

		var next []string
		for _, id := range current {
			for _, dep := range out[id] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Strings(next)
		current = next
	}

	if placed != len(epics) {
		return nil, ErrEpicCycle
	}
	return phases, nil
}

// Conflict is a structural problem in the epic graph.
type Conflict struct {
	// Kind is one of circular_dependency, priority_inversion, file_overlap.
	Kind string `json:"kind"`
	// Severity is critical, medium, or low.
	Severity string `json:"severity"`
	// EpicIDs names the epics involved.
	EpicIDs []string `json:"epic_ids"`
	// Detail is a human-readable explanation.
	Detail string `json:"detail"`
}

// DetectConflicts finds structural problems: circular epic dependencies
// (critical), high-priority epics gated by low-priority prerequisites
// (medium), and epics whose tasks touch the same files (low).
func (m *Manager) DetectConflicts(epics []*models.Epic, edges []*models.EpicDependency, tasks []*models.AtomicTask) []Conflict {
	var conflicts []Conflict

	byID := make(map[string]*models.Epic, len(epics))
	for _, e := range epics {
		byID[e.ID] = e
	}

	if _, err := m.Phases(epics, edges); errors.Is(err, ErrEpicCycle) {
		var ids []string
		for _, e := range epics {
			ids = append(ids, e.ID)
		}
		sort.Strings(ids)
		conflicts = append(conflicts, Conflict{
			Kind:     "circular_dependency",
			Severity: "critical",
			EpicIDs:  ids,
			Detail:   "epic dependencies form a cycle; no execution order exists",
		})
	}

	for _, edge := range edges {
		from, to := byID[edge.FromEpicID], byID[edge.ToEpicID]
		if from == nil || to == nil {
			continue
		}
		if to.Priority.Rank() > from.Priority.Rank() {
			conflicts = append(conflicts, Conflict{
				Kind:     "priority_inversion",
				Severity: "medium",
				EpicIDs:  []string{from.ID, to.ID},
				Detail: fmt.Sprintf("%s priority epic %q is gated by %s priority epic %q",
					to.Priority, to.Title, from.Priority, from.Title),
			})
		}
	}

	epicFiles := make(map[string]map[string]bool, len(epics))
	taskByID := make(map[string]*models.AtomicTask, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}
	for _, e := range epics {
		files := make(map[string]bool)
		for _, tid := range e.TaskIDs {
			if t := taskByID[tid]; t != nil {
				for _, f := range t.FilePaths {
					files[f] = true
				}
			}
		}
		epicFiles[e.ID] = files
	}
	for i := 0; i < len(epics); i++ {
		for j := i + 1; j < len(epics); j++ {
			var shared []string
			for f := range epicFiles[epics[i].ID] {
				if epicFiles[epics[j].ID][f] {
					shared = append(shared, f)
				}
			}
			if len(shared) > 0 {
				sort.Strings(shared)
				conflicts = append(conflicts, Conflict{
					Kind:     "file_overlap",
					Severity: "low",
					EpicIDs:  []string{epics[i].ID, epics[j].ID},
					Detail:   fmt.Sprintf("epics touch the same files: %v", shared),
				})
			}
		}
	}

	return conflicts
}

// Recommendation suggests a planning change.
type Recommendation struct {
	// Kind is one of parallelize, split, merge.
	Kind string `json:"kind"`
	// EpicIDs names the epics involved.
	EpicIDs []string `json:"epic_ids"`
	// Detail is a human-readable explanation.
	Detail string `json:"detail"`
}

// Recommend suggests planning changes: running unrelated epics in
// parallel, splitting oversized epics, and merging small tightly-coupled
// pairs.
func (m *Manager) Recommend(epics []*models.Epic, edges []*models.EpicDependency) []Recommendation {
	var recs []Recommendation

	// Epics with no edges in either direction can run concurrently.
	connected := make(map[string]bool)
	for _, edge := range edges {
		connected[edge.FromEpicID] = true
		connected[edge.ToEpicID] = true
	}
	var independent []string
	for _, e := range epics {
		if !connected[e.ID] {
			independent = append(independent, e.ID)
		}
	}
	sort.Strings(independent)
	if len(independent) >= 2 {
		recs = append(recs, Recommendation{
			Kind:    "parallelize",
			EpicIDs: independent,
			Detail:  fmt.Sprintf("%d epics share no dependencies and can run concurrently", len(independent)),
		})
	}

	for _, e := range epics {
		if len(e.TaskIDs) > m.cfg.SplitTaskCount {
			recs = append(recs, Recommendation{
				Kind:    "split",
				EpicIDs: []string{e.ID},
				Detail: fmt.Sprintf("epic %q has %d tasks, above the %d task guideline",
					e.Title, len(e.TaskIDs), m.cfg.SplitTaskCount),
			})
		}
	}

	byID := make(map[string]*models.Epic, len(epics))
	for _, e := range epics {
		byID[e.ID] = e
	}
	merged := make(map[string]bool)
	for _, edge := range edges {
		if edge.Strength <= m.cfg.MergeStrength {
			continue
		}
		from, to := byID[edge.FromEpicID], byID[edge.ToEpicID]
		if from == nil || to == nil {
			continue
		}
		if len(from.TaskIDs) >= m.cfg.SmallEpicTasks || len(to.TaskIDs) >= m.cfg.SmallEpicTasks {
			continue
		}
		key := edge.FromEpicID + "|" + edge.ToEpicID
		if edge.ToEpicID < edge.FromEpicID {
			key = edge.ToEpicID + "|" + edge.FromEpicID
		}
		if merged[key] {
			continue
		}
		merged[key] = true
		recs = append(recs, Recommendation{
			Kind:    "merge",
			EpicIDs: []string{edge.FromEpicID, edge.ToEpicID},
			Detail: fmt.Sprintf("epics %q and %q are small and tightly coupled (strength %.2f)",
				from.Title, to.Title, edge.Strength),
		})
	}

	return recs
}
