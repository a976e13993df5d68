// Package assign hands ready tasks to workers.
package assign

import (
	"context"
	"sort"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// Assignment pairs a task with a worker.
type Assignment struct {
	TaskID string `json:"task_id"`
	Worker string `json:"worker"`
}

// Assigner distributes ready tasks across workers.
type Assigner interface {
	Assign(ctx context.Context, tasks []*models.AtomicTask) ([]Assignment, error)
}

// RoundRobin spreads tasks evenly over a fixed worker list, higher
// priority tasks first so they land on the least-loaded workers.
type RoundRobin struct {
	workers []string
}

// NewRoundRobin creates an assigner over the given worker names. An empty
// list assigns everything to a single default worker.
func NewRoundRobin(workers []string) *RoundRobin {
	if len(workers) == 0 {
		workers = []string{"worker-1"}
	}
	return &RoundRobin{workers: workers}
}

// Assign distributes tasks over the workers.
func (r *RoundRobin) Assign(ctx context.Context, tasks []*models.AtomicTask) ([]Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sorted := append([]*models.AtomicTask(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Priority.Rank() != sorted[j].Priority.Rank() {
			return sorted[i].Priority.Rank() > sorted[j].Priority.Rank()
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := make([]Assignment, len(sorted))
	for i, t := range sorted {
		out[i] = Assignment{TaskID: t.ID, Worker: r.workers[i%len(r.workers)]}
	}
	return out, nil
}
