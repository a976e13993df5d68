package epic

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/freshtechbro/taskforge/pkg/models"
)

func epicFixture(id string, taskIDs ...string) *models.Epic {
	return &models.Epic{ID: id, Title: id, ProjectID: "p", TaskIDs: taskIDs, Priority: models.PriorityMedium}
}

func dep(id, from, to string) *models.Dependency {
	return &models.Dependency{ID: id, FromTaskID: from, ToTaskID: to, Kind: models.DependencyBlocks}
}

func TestStrengthFormula(t *testing.T) {
	// 4 cross dependencies between two 5-task epics:
	// 0.4*(4/25) + 0.6*(4/5) = 0.064 + 0.48 = 0.544
	got := Strength(4, 5, 5)
	if math.Abs(got-0.544) > 1e-9 {
		t.Errorf("Strength(4,5,5) = %v, want 0.544", got)
	}

	if Strength(0, 5, 5) != 0 {
		t.Error("no cross deps must mean zero strength")
	}
	if Strength(3, 0, 5) != 0 {
		t.Error("empty epic must mean zero strength")
	}

	// Coverage saturates at 1: many edges between tiny epics cannot
	// push strength past 0.4*density + 0.6.
	got = Strength(4, 2, 2)
	want := 0.4*1.0 + 0.6*1.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Strength(4,2,2) = %v, want %v", got, want)
	}
}

func TestAnalyzeDependenciesClassification(t *testing.T) {
	m := NewManager(DefaultConfig())

	epicA := epicFixture("A", "a1", "a2", "a3", "a4", "a5")
	epicB := epicFixture("B", "b1", "b2", "b3", "b4", "b5")

	// 4 cross deps -> strength 0.544 -> requires (above 0.5, not 0.7).
	deps := []*models.Dependency{
		dep("d1", "a1", "b1"),
		dep("d2", "a2", "b2"),
		dep("d3", "a3", "b3"),
		dep("d4", "a4", "b4"),
	}

	edges := m.AnalyzeDependencies([]*models.Epic{epicA, epicB}, deps)
	if len(edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(edges))
	}

	e := edges[0]
	if e.FromEpicID != "A" || e.ToEpicID != "B" {
		t.Errorf("edge %s -> %s, want A -> B", e.FromEpicID, e.ToEpicID)
	}
	if e.Kind != models.DependencyRequires {
		t.Errorf("Kind = %q, want requires", e.Kind)
	}
	if e.Critical {
		t.Error("Critical = true, want false below 0.7")
	}
	if len(e.TaskDependencyIDs) != 4 {
		t.Errorf("TaskDependencyIDs = %v", e.TaskDependencyIDs)
	}
}

func TestAnalyzeDependenciesBelowThresholdDropped(t *testing.T) {
	m := NewManager(DefaultConfig())

	epicA := epicFixture("A", "a1", "a2", "a3", "a4", "a5")
	epicB := epicFixture("B", "b1", "b2", "b3", "b4", "b5")

	// 1 cross dep: 0.4*(1/25) + 0.6*(1/5) = 0.136 < 0.3
	edges := m.AnalyzeDependencies(
		[]*models.Epic{epicA, epicB},
		[]*models.Dependency{dep("d1", "a1", "b1")})
	if len(edges) != 0 {
		t.Errorf("edges = %v, want none below threshold", edges)
	}
}

func TestAnalyzeDependenciesBlocksAndCritical(t *testing.T) {
	m := NewManager(DefaultConfig())

	epicA := epicFixture("A", "a1", "a2")
	epicB := epicFixture("B", "b1", "b2")

	// 2 cross deps between 2-task epics: 0.4*(2/4) + 0.6*(2/2) = 0.8
	edges := m.AnalyzeDependencies(
		[]*models.Epic{epicA, epicB},
		[]*models.Dependency{dep("d1", "a1", "b1"), dep("d2", "a2", "b2")})
	if len(edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(edges))
	}
	if edges[0].Kind != models.DependencyBlocks {
		t.Errorf("Kind = %q, want blocks above 0.7", edges[0].Kind)
	}
	if !edges[0].Critical {
		t.Error("Critical = false, want true above 0.7")
	}
}

func TestIntraEpicDependenciesIgnored(t *testing.T) {
	m := NewManager(DefaultConfig())
	epicA := epicFixture("A", "a1", "a2")

	edges := m.AnalyzeDependencies(
		[]*models.Epic{epicA},
		[]*models.Dependency{dep("d1", "a1", "a2")})
	if len(edges) != 0 {
		t.Errorf("edges = %v, intra-epic deps must not produce edges", edges)
	}
}

func epicEdge(from, to string, strength float64) *models.EpicDependency {
	return &models.EpicDependency{
		ID: from + "-" + to, FromEpicID: from, ToEpicID: to,
		Kind: models.DependencyRequires, Strength: strength,
	}
}

func TestPhasesAndTopologicalOrder(t *testing.T) {
	m := NewManager(DefaultConfig())
	epics := []*models.Epic{
		epicFixture("A"), epicFixture("B"), epicFixture("C"), epicFixture("D"),
	}
	edges := []*models.EpicDependency{
		epicEdge("A", "B", 0.6),
		epicEdge("A", "C", 0.6),
		epicEdge("B", "D", 0.6),
		epicEdge("C", "D", 0.6),
	}

	phases, err := m.Phases(epics, edges)
	if err != nil {
		t.Fatalf("Phases() error = %v", err)
	}
	want := [][]string{{"A"}, {"B", "C"}, {"D"}}
	if !reflect.DeepEqual(phases, want) {
		t.Errorf("Phases() = %v, want %v", phases, want)
	}

	order, err := m.TopologicalOrder(epics, edges)
	if err != nil {
		t.Fatalf("TopologicalOrder() error = %v", err)
	}
	if !reflect.DeepEqual(order, []string{"A", "B", "C", "D"}) {
		t.Errorf("order = %v", order)
	}
}

func TestPhasesDetectsCycle(t *testing.T) {
	m := NewManager(DefaultConfig())
	epics := []*models.Epic{epicFixture("A"), epicFixture("B")}
	edges := []*models.EpicDependency{
		epicEdge("A", "B", 0.6),
		epicEdge("B", "A", 0.6),
	}

	if _, err := m.Phases(epics, edges); !errors.Is(err, ErrEpicCycle) {
		t.Errorf("Phases() error = %v, want ErrEpicCycle", err)
	}
}

func TestDetectConflicts(t *testing.T) {
	m := NewManager(DefaultConfig())

	low := epicFixture("low-epic", "l1")
	low.Priority = models.PriorityLow
	high := epicFixture("high-epic", "h1")
	high.Priority = models.PriorityCritical

	tasks := []*models.AtomicTask{
		{ID: "l1", FilePaths: []string{"shared/config.go"}},
		{ID: "h1", FilePaths: []string{"shared/config.go"}},
	}
	edges := []*models.EpicDependency{epicEdge("low-epic", "high-epic", 0.6)}

	conflicts := m.DetectConflicts([]*models.Epic{low, high}, edges, tasks)

	kinds := make(map[string]string)
	for _, c := range conflicts {
		kinds[c.Kind] = c.Severity
	}
	if kinds["priority_inversion"] != "medium" {
		t.Errorf("conflicts = %+v, want medium priority_inversion", conflicts)
	}
	if kinds["file_overlap"] != "low" {
		t.Errorf("conflicts = %+v, want low file_overlap", conflicts)
	}
	if _, ok := kinds["circular_dependency"]; ok {
		t.Error("no cycle present, circular_dependency must not fire")
	}
}

func TestDetectConflictsCircular(t *testing.T) {
	m := NewManager(DefaultConfig())
	epics := []*models.Epic{epicFixture("A"), epicFixture("B")}
	edges := []*models.EpicDependency{
		epicEdge("A", "B", 0.6),
		epicEdge("B", "A", 0.6),
	}

	conflicts := m.DetectConflicts(epics, edges, nil)
	found := false
	for _, c := range conflicts {
		if c.Kind == "circular_dependency" && c.Severity == "critical" {
			found = true
		}
	}
	if !found {
		t.Errorf("conflicts = %+v, want critical circular_dependency", conflicts)
	}
}

func TestRecommend(t *testing.T) {
	m := NewManager(DefaultConfig())

	big := epicFixture("big", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9", "t10", "t11")
	smallA := epicFixture("small-a", "s1", "s2")
	smallB := epicFixture("small-b", "s3", "s4")
	loneX := epicFixture("lone-x", "x1")
	loneY := epicFixture("lone-y", "y1")

	edges := []*models.EpicDependency{epicEdge("small-a", "small-b", 0.85)}

	recs := m.Recommend([]*models.Epic{big, smallA, smallB, loneX, loneY}, edges)

	byKind := make(map[string]Recommendation)
	for _, r := range recs {
		byKind[r.Kind] = r
	}

	if r, ok := byKind["split"]; !ok || r.EpicIDs[0] != "big" {
		t.Errorf("recs = %+v, want split of big", recs)
	}
	if r, ok := byKind["merge"]; !ok || len(r.EpicIDs) != 2 {
		t.Errorf("recs = %+v, want merge of small pair", recs)
	}
	if r, ok := byKind["parallelize"]; ok {
		// big, lone-x, lone-y share no edges.
		want := []string{"big", "lone-x", "lone-y"}
		if !reflect.DeepEqual(r.EpicIDs, want) {
			t.Errorf("parallelize = %v, want %v", r.EpicIDs, want)
		}
	} else {
		t.Errorf("recs = %+v, want parallelize", recs)
	}
}
