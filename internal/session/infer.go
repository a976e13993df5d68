package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freshtechbro/taskforge/internal/graph"
	"github.com/freshtechbro/taskforge/internal/llm"
	"github.com/freshtechbro/taskforge/pkg/models"
)

const inferSystemPrompt = `You analyze sibling software tasks and identify which must complete before others can start. Only report orderings that are genuinely required by the work, not preferences. Respond with JSON only.`

const inferPromptTemplate = `These tasks were produced by decomposing a single parent task:

%s

Identify hard ordering constraints between them. Reply with a JSON array, possibly empty:
[{"from": "<title of prerequisite>", "to": "<title of dependent>", "reason": "<one sentence>"}]`

// inferredEdge is the shape the model replies with.
type inferredEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// inferSiblingDependencies asks the model for ordering constraints among
// the persisted tasks and merges the ones that keep the graph acyclic.
// Edges already present, self references, and unknown titles are dropped.
func (m *Manager) inferSiblingDependencies(ctx context.Context, sess *models.Session, tasks []*models.AtomicTask) error {
	if len(tasks) < 2 {
		return nil
	}

	var listing strings.Builder
	byTitle := make(map[string]*models.AtomicTask, len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&listing, "- %s: %s\n", t.Title, t.Description)
		byTitle[t.Title] = t
	}

	raw, err := m.gen.Generate(ctx, llm.Request{
		Prompt:       fmt.Sprintf(inferPromptTemplate, listing.String()),
		SystemPrompt: inferSystemPrompt,
		Temperature:  0.1,
	})
	if err != nil {
		return fmt.Errorf("dependency inference: %w", err)
	}

	payload, err := llm.ExtractJSONArray(raw)
	if err != nil {
		return fmt.Errorf("dependency inference: %w", err)
	}
	var edges []inferredEdge
	if err := json.Unmarshal([]byte(payload), &edges); err != nil {
		return fmt.Errorf("dependency inference: %w", err)
	}

	for _, edge := range edges {
		from, okFrom := byTitle[edge.From]
		to, okTo := byTitle[edge.To]
		if !okFrom || !okTo || from.ID == to.ID {
			continue
		}
		if hasDependency(to, from.ID) {
			continue
		}

		// Trial merge: an inferred edge that closes a cycle is discarded,
		// the split-time edges always win.
		to.Dependencies = append(to.Dependencies, from.ID)
		g := graph.New()
		if err := g.Build(tasks, nil); err != nil {
			to.Dependencies = to.Dependencies[:len(to.Dependencies)-1]
			continue
		}
		if cycle := g.DetectCycle(); cycle != nil {
			to.Dependencies = to.Dependencies[:len(to.Dependencies)-1]
			log.Printf("[session] %s: inferred edge %s -> %s rejected, would close cycle %v",
				sess.ID, from.ID, to.ID, cycle)
			continue
		}

		dep := &models.Dependency{
			ID:         uuid.New().String(),
			FromTaskID: from.ID,
			ToTaskID:   to.ID,
			Kind:       models.DependencySuggests,
			Reason:     edge.Reason,
			ProjectID:  sess.ProjectID,
			CreatedAt:  time.Now(),
		}
		if err := m.store.SaveDependency(dep); err != nil {
			return fmt.Errorf("dependency inference: %w", err)
		}
	}

	if err := m.store.SaveTasks(tasks); err != nil {
		return fmt.Errorf("dependency inference: %w", err)
	}
	return nil
}

func hasDependency(t *models.AtomicTask, id string) bool {
	for _, d := range t.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}
