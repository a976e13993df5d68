package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if TaskStatus("bogus").Valid() {
		t.Error("expected bogus status to be invalid")
	}
}

func TestPriorityRank(t *testing.T) {
	tests := []struct {
		priority Priority
		rank     int
	}{
		{PriorityCritical, 4},
		{PriorityHigh, 3},
		{PriorityMedium, 2},
		{PriorityLow, 1},
		{Priority("unknown"), 0},
	}

	for _, tt := range tests {
		if got := tt.priority.Rank(); got != tt.rank {
			t.Errorf("Rank(%q) = %d, want %d", tt.priority, got, tt.rank)
		}
	}
}

func TestWithinAtomicDuration(t *testing.T) {
	tests := []struct {
		hours float64
		want  bool
	}{
		{0.08, true},
		{0.10, true},
		{0.17, true},
		{0.05, false},
		{0.25, false},
		{0, false},
	}

	for _, tt := range tests {
		task := &AtomicTask{EstimatedHours: tt.hours}
		if got := task.WithinAtomicDuration(); got != tt.want {
			t.Errorf("WithinAtomicDuration(%v) = %v, want %v", tt.hours, got, tt.want)
		}
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	if SessionPending.Terminal() || SessionInProgress.Terminal() {
		t.Error("pending and in_progress must not be terminal")
	}
	if !SessionCompleted.Terminal() || !SessionFailed.Terminal() {
		t.Error("completed and failed must be terminal")
	}
}

func TestDependencyKindValid(t *testing.T) {
	for _, k := range []DependencyKind{DependencyBlocks, DependencyEnables, DependencyRequires, DependencySuggests} {
		if !k.Valid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if DependencyKind("soft").Valid() {
		t.Error("expected unknown kind to be invalid")
	}
}
