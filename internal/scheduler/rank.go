package scheduler

import (
	"github.com/freshtechbro/taskforge/internal/graph"
	"github.com/freshtechbro/taskforge/pkg/models"
)

// ranker returns the "a should run before b" comparator for an algorithm.
// Comparators must be strict: better(a, b) and better(b, a) cannot both be
// true, and equal tasks fall through to ID ordering in the simulation.
func (s *Scheduler) ranker(alg Algorithm, g *graph.DependencyGraph, tasks []*models.AtomicTask) func(a, b *models.AtomicTask) bool {
	switch alg {
	case PriorityFirst:
		return func(a, b *models.AtomicTask) bool {
			if a.Priority.Rank() != b.Priority.Rank() {
				return a.Priority.Rank() > b.Priority.Rank()
			}
			return a.EstimatedHours < b.EstimatedHours
		}

	case EarliestDeadline:
		// Without explicit deadlines, urgency is derived from priority:
		// a critical task's slack window is its own duration, a low one
		// gets four times that.
		deadline := func(t *models.AtomicTask) float64 {
			return t.EstimatedHours * float64(5-t.Priority.Rank())
		}
		return func(a, b *models.AtomicTask) bool {
			return deadline(a) < deadline(b)
		}

	case CriticalPath:
		weight := downstreamWeights(g, tasks)
		return func(a, b *models.AtomicTask) bool {
			return weight[a.ID] > weight[b.ID]
		}

	case ResourceBalanced:
		// Longest processing time first keeps slot loads even.
		return func(a, b *models.AtomicTask) bool {
			return a.EstimatedHours > b.EstimatedHours
		}

	case ShortestJobFirst:
		return func(a, b *models.AtomicTask) bool {
			return a.EstimatedHours < b.EstimatedHours
		}

	case HybridOptimal:
		weight := downstreamWeights(g, tasks)
		var maxWeight, maxHours float64
		for _, t := range tasks {
			if weight[t.ID] > maxWeight {
				maxWeight = weight[t.ID]
			}
			if t.EstimatedHours > maxHours {
				maxHours = t.EstimatedHours
			}
		}
		score := func(t *models.AtomicTask) float64 {
			v := 0.5 * float64(t.Priority.Rank()) / 4.0
			if maxWeight > 0 {
				v += 0.3 * weight[t.ID] / maxWeight
			}
			if maxHours > 0 {
				v += 0.2 * (1.0 - t.EstimatedHours/maxHours)
			}
			return v
		}
		return func(a, b *models.AtomicTask) bool {
			return score(a) > score(b)
		}

	default:
		return func(a, b *models.AtomicTask) bool { return false }
	}
}

// downstreamWeights returns, for each task, the total hours of the heaviest
// chain starting at it (the task itself included). Tasks that gate long
// chains rank first under critical-path ordering.
func downstreamWeights(g *graph.DependencyGraph, tasks []*models.AtomicTask) map[string]float64 {
	order, err := g.ExecutionOrder()
	if err != nil {
		return map[string]float64{}
	}

	hours := make(map[string]float64, len(tasks))
	for _, t := range tasks {
		hours[t.ID] = t.EstimatedHours
	}

	weight := make(map[string]float64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		best := 0.0
		for _, dep := range g.Dependents(id) {
			if weight[dep] > best {
				best = weight[dep]
			}
		}
		weight[id] = hours[id] + best
	}
	return weight
}
