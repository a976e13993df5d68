package scheduler

import (
	"errors"
	"strings"
	"testing"

	"github.com/freshtechbro/taskforge/internal/graph"
	"github.com/freshtechbro/taskforge/pkg/models"
)

func task(id string, hours float64, priority models.Priority, deps ...string) *models.AtomicTask {
	return &models.AtomicTask{
		ID:             id,
		Title:          id,
		EstimatedHours: hours,
		Priority:       priority,
		Dependencies:   deps,
	}
}

func TestDependencyOrderingHoldsForAllAlgorithms(t *testing.T) {
	// T2 depends on T1; T1 is critical, T2 is low priority. No ranking
	// strategy may start T2 before T1.
	tasks := []*models.AtomicTask{
		task("t1", 2, models.PriorityCritical),
		task("t2", 1, models.PriorityLow, "t1"),
	}

	s := New()
	for _, alg := range Algorithms() {
		t.Run(string(alg), func(t *testing.T) {
			sched, err := s.Build(tasks, nil, Options{Algorithm: alg, Slots: 3})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			if len(sched.Tasks) != 2 {
				t.Fatalf("scheduled %d tasks, want 2", len(sched.Tasks))
			}

			byID := make(map[string]ScheduledTask)
			for _, st := range sched.Tasks {
				if _, dup := byID[st.TaskID]; dup {
					t.Fatalf("task %s scheduled twice", st.TaskID)
				}
				byID[st.TaskID] = st
			}

			t1, t2 := byID["t1"], byID["t2"]
			if t2.Start < t1.End {
				t.Errorf("t2 starts at %v before t1 ends at %v", t2.Start, t1.End)
			}
			if t2.Start < t1.Start {
				t.Errorf("t2 starts at %v before t1 starts at %v", t2.Start, t1.Start)
			}
		})
	}
}

func TestEveryTaskScheduledExactlyOnce(t *testing.T) {
	tasks := []*models.AtomicTask{
		task("a", 1, models.PriorityHigh),
		task("b", 2, models.PriorityMedium, "a"),
		task("c", 1.5, models.PriorityLow, "a"),
		task("d", 0.5, models.PriorityCritical, "b", "c"),
		task("e", 3, models.PriorityMedium),
	}

	s := New()
	for _, alg := range Algorithms() {
		sched, err := s.Build(tasks, nil, Options{Algorithm: alg, Slots: 2})
		if err != nil {
			t.Fatalf("%s: Build() error = %v", alg, err)
		}

		seen := make(map[string]int)
		for _, st := range sched.Tasks {
			seen[st.TaskID]++
		}
		for _, tk := range tasks {
			if seen[tk.ID] != 1 {
				t.Errorf("%s: task %s scheduled %d times", alg, tk.ID, seen[tk.ID])
			}
		}
	}
}

func TestCycleIsAnError(t *testing.T) {
	tasks := []*models.AtomicTask{
		task("a", 1, models.PriorityHigh, "b"),
		task("b", 1, models.PriorityHigh, "a"),
	}

	_, err := New().Build(tasks, nil, Options{Algorithm: PriorityFirst})
	if !errors.Is(err, graph.ErrCycleDetected) {
		t.Errorf("Build() error = %v, want ErrCycleDetected", err)
	}
	if err != nil && !strings.Contains(err.Error(), "cycle:") {
		t.Errorf("error %q should name the cycle", err)
	}
}

func TestPriorityFirstOrdering(t *testing.T) {
	tasks := []*models.AtomicTask{
		task("low", 1, models.PriorityLow),
		task("crit", 1, models.PriorityCritical),
		task("med", 1, models.PriorityMedium),
	}

	sched, err := New().Build(tasks, nil, Options{Algorithm: PriorityFirst})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	order := []string{sched.Tasks[0].TaskID, sched.Tasks[1].TaskID, sched.Tasks[2].TaskID}
	want := []string{"crit", "med", "low"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestShortestJobFirstOrdering(t *testing.T) {
	tasks := []*models.AtomicTask{
		task("long", 5, models.PriorityMedium),
		task("short", 0.5, models.PriorityMedium),
		task("mid", 2, models.PriorityMedium),
	}

	sched, err := New().Build(tasks, nil, Options{Algorithm: ShortestJobFirst})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if sched.Tasks[0].TaskID != "short" || sched.Tasks[2].TaskID != "long" {
		t.Errorf("order = %v", sched.Tasks)
	}
}

func TestCriticalPathPrefersHeavyChains(t *testing.T) {
	// gate unlocks a 6-hour chain; lone is independent and heavier on
	// its own but gates nothing.
	tasks := []*models.AtomicTask{
		task("gate", 1, models.PriorityMedium),
		task("chain", 6, models.PriorityMedium, "gate"),
		task("lone", 2, models.PriorityMedium),
	}

	sched, err := New().Build(tasks, nil, Options{Algorithm: CriticalPath, Slots: 1})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if sched.Tasks[0].TaskID != "gate" {
		t.Errorf("first = %s, want gate (weight 7 beats lone's 2)", sched.Tasks[0].TaskID)
	}
}

func TestParallelAlgorithmsUseMultipleSlots(t *testing.T) {
	tasks := []*models.AtomicTask{
		task("a", 2, models.PriorityMedium),
		task("b", 2, models.PriorityMedium),
		task("c", 2, models.PriorityMedium),
		task("d", 2, models.PriorityMedium),
	}

	sched, err := New().Build(tasks, nil, Options{Algorithm: ResourceBalanced, Slots: 2})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if sched.Slots != 2 {
		t.Errorf("Slots = %d, want 2", sched.Slots)
	}
	// Four 2h tasks over 2 slots finish in 4h, not 8h.
	if sched.MakespanHours != 4 {
		t.Errorf("MakespanHours = %v, want 4", sched.MakespanHours)
	}
}

func TestSequentialAlgorithmsIgnoreSlots(t *testing.T) {
	tasks := []*models.AtomicTask{
		task("a", 1, models.PriorityMedium),
		task("b", 1, models.PriorityMedium),
	}

	sched, err := New().Build(tasks, nil, Options{Algorithm: PriorityFirst, Slots: 4})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if sched.Slots != 1 {
		t.Errorf("Slots = %d, want 1 for sequential algorithm", sched.Slots)
	}
	if sched.MakespanHours != 2 {
		t.Errorf("MakespanHours = %v, want 2", sched.MakespanHours)
	}
}

func TestDuplicateTaskIDsRejected(t *testing.T) {
	tasks := []*models.AtomicTask{
		task("a", 1, models.PriorityHigh),
		task("a", 2, models.PriorityLow),
	}

	_, err := New().Build(tasks, nil, Options{Algorithm: PriorityFirst})
	if err == nil || !strings.Contains(err.Error(), "duplicate task id") {
		t.Errorf("Build() error = %v, want duplicate id rejection", err)
	}
}

func TestUnknownAlgorithmRejected(t *testing.T) {
	_, err := New().Build(nil, nil, Options{Algorithm: "fastest"})
	if err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestDefaultAlgorithmIsHybrid(t *testing.T) {
	tasks := []*models.AtomicTask{task("a", 1, models.PriorityMedium)}
	sched, err := New().Build(tasks, nil, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if sched.Algorithm != HybridOptimal {
		t.Errorf("Algorithm = %s, want hybrid-optimal", sched.Algorithm)
	}
}
