package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/freshtechbro/taskforge/pkg/models"
)

func task(id string, hours float64, deps ...string) *models.AtomicTask {
	return &models.AtomicTask{
		ID:             id,
		Title:          id,
		EstimatedHours: hours,
		Dependencies:   deps,
	}
}

func TestBuildRejectsUnknownTask(t *testing.T) {
	g := New()
	err := g.Build([]*models.AtomicTask{task("a", 1, "ghost")}, nil)
	if err == nil {
		t.Fatal("expected error for unknown prerequisite")
	}
}

func TestDetectCycleReturnsOrderedPath(t *testing.T) {
	g := New()
	tasks := []*models.AtomicTask{
		task("a", 1, "c"),
		task("b", 1, "a"),
		task("c", 1, "b"),
	}
	if err := g.Build(tasks, nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cycle := g.DetectCycle()
	want := []string{"a", "b", "c", "a"}
	if !reflect.DeepEqual(cycle, want) {
		t.Errorf("DetectCycle() = %v, want %v", cycle, want)
	}

	if _, err := g.ExecutionOrder(); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("ExecutionOrder() error = %v, want ErrCycleDetected", err)
	}
}

func TestDetectCycleAcyclic(t *testing.T) {
	g := New()
	tasks := []*models.AtomicTask{
		task("a", 1),
		task("b", 1, "a"),
		task("c", 1, "a"),
		task("d", 1, "b", "c"),
	}
	if err := g.Build(tasks, nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cycle := g.DetectCycle(); cycle != nil {
		t.Errorf("DetectCycle() = %v, want nil", cycle)
	}
}

func TestExecutionOrderRespectsPrerequisites(t *testing.T) {
	g := New()
	tasks := []*models.AtomicTask{
		task("d", 1, "b", "c"),
		task("b", 1, "a"),
		task("c", 1, "a"),
		task("a", 1),
	}
	if err := g.Build(tasks, nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	order, err := g.ExecutionOrder()
	if err != nil {
		t.Fatalf("ExecutionOrder() error = %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, pair := range [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}} {
		if pos[pair[0]] >= pos[pair[1]] {
			t.Errorf("order %v: %s must precede %s", order, pair[0], pair[1])
		}
	}

	// Ties break by ID, so the full order is deterministic.
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("ExecutionOrder() = %v, want %v", order, want)
	}
}

func TestExecutionOrderMergesDependencyRecords(t *testing.T) {
	g := New()
	tasks := []*models.AtomicTask{task("a", 1), task("b", 1)}
	deps := []*models.Dependency{
		{ID: "d1", FromTaskID: "a", ToTaskID: "b", Kind: models.DependencyBlocks},
	}
	if err := g.Build(tasks, deps); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	order, err := g.ExecutionOrder()
	if err != nil {
		t.Fatalf("ExecutionOrder() error = %v", err)
	}
	if !reflect.DeepEqual(order, []string{"a", "b"}) {
		t.Errorf("ExecutionOrder() = %v", order)
	}
}

func TestCriticalPath(t *testing.T) {
	// a(2) -> b(1) -> d(4) is the heaviest chain (7h);
	// a(2) -> c(3) totals only 5h.
	g := New()
	tasks := []*models.AtomicTask{
		task("a", 2),
		task("b", 1, "a"),
		task("c", 3, "a"),
		task("d", 4, "b"),
	}
	if err := g.Build(tasks, nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	path, total, err := g.CriticalPath()
	if err != nil {
		t.Fatalf("CriticalPath() error = %v", err)
	}
	if total != 7 {
		t.Errorf("total = %v, want 7", total)
	}
	if !reflect.DeepEqual(path, []string{"a", "b", "d"}) {
		t.Errorf("path = %v, want [a b d]", path)
	}
}

func TestCriticalPathEmptyGraph(t *testing.T) {
	g := New()
	if err := g.Build(nil, nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	path, total, err := g.CriticalPath()
	if err != nil || path != nil || total != 0 {
		t.Errorf("CriticalPath() = %v, %v, %v; want nil, 0, nil", path, total, err)
	}
}

func TestComputeStats(t *testing.T) {
	g := New()
	tasks := []*models.AtomicTask{
		task("a", 2),
		task("b", 1, "a"),
		task("c", 3, "b"),
		task("lone", 0.5),
	}
	if err := g.Build(tasks, nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	s := g.ComputeStats()
	if s.TaskCount != 4 {
		t.Errorf("TaskCount = %d, want 4", s.TaskCount)
	}
	if s.DependencyCount != 2 {
		t.Errorf("DependencyCount = %d, want 2", s.DependencyCount)
	}
	if s.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", s.MaxDepth)
	}
	if s.RootCount != 2 {
		t.Errorf("RootCount = %d, want 2", s.RootCount)
	}
	if s.IsolatedCount != 1 {
		t.Errorf("IsolatedCount = %d, want 1", s.IsolatedCount)
	}
	if s.TotalHours != 6.5 {
		t.Errorf("TotalHours = %v, want 6.5", s.TotalHours)
	}
}

func TestDuplicateEdgesCollapse(t *testing.T) {
	g := New()
	tasks := []*models.AtomicTask{task("a", 1), task("b", 1, "a")}
	deps := []*models.Dependency{
		{ID: "d1", FromTaskID: "a", ToTaskID: "b"},
	}
	if err := g.Build(tasks, deps); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if s := g.ComputeStats(); s.DependencyCount != 1 {
		t.Errorf("DependencyCount = %d, want 1 (duplicate edge must collapse)", s.DependencyCount)
	}
}
