// Package artifact renders decomposition outputs in the forms consumers
// ask for: machine-readable JSON and YAML, a Mermaid diagram for docs,
// and a prose narrative for review.
package artifact

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/freshtechbro/taskforge/internal/graph"
	"github.com/freshtechbro/taskforge/pkg/models"
)

// Artifact kinds.
const (
	KindGraphJSON    = "graph_json"
	KindGraphYAML    = "graph_yaml"
	KindGraphMermaid = "graph_mermaid"
	KindNarrative    = "narrative"
)

// Kinds lists every artifact kind in render order.
func Kinds() []string {
	return []string{KindGraphJSON, KindGraphYAML, KindGraphMermaid, KindNarrative}
}

// graphDoc is the serialized shape shared by the JSON and YAML renderers.
type graphDoc struct {
	Tasks        []*models.AtomicTask `json:"tasks" yaml:"tasks"`
	Dependencies []*models.Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Stats        graph.Stats          `json:"stats" yaml:"stats"`
}

// Render produces the artifact content for one kind.
func Render(kind string, tasks []*models.AtomicTask, deps []*models.Dependency) (string, error) {
	g := graph.New()
	if err := g.Build(tasks, deps); err != nil {
		return "", fmt.Errorf("render %s: %w", kind, err)
	}

	switch kind {
	case KindGraphJSON:
		doc := graphDoc{Tasks: tasks, Dependencies: deps, Stats: g.ComputeStats()}
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("render %s: %w", kind, err)
		}
		return string(b), nil

	case KindGraphYAML:
		doc := graphDoc{Tasks: tasks, Dependencies: deps, Stats: g.ComputeStats()}
		b, err := yaml.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", kind, err)
		}
		return string(b), nil

	case KindGraphMermaid:
		return renderMermaid(g, tasks), nil

	case KindNarrative:
		return renderNarrative(g, tasks)

	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

var mermaidIDRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func mermaidID(id string) string {
	return "t_" + mermaidIDRe.ReplaceAllString(id, "_")
}

func renderMermaid(g *graph.DependencyGraph, tasks []*models.AtomicTask) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sorted := append([]*models.AtomicTask(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, t := range sorted {
		label := strings.ReplaceAll(t.Title, `"`, `'`)
		fmt.Fprintf(&sb, "    %s[\"%s (%.2fh)\"]\n", mermaidID(t.ID), label, t.EstimatedHours)
	}
	for _, t := range sorted {
		for _, dep := range g.Dependents(t.ID) {
			fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(t.ID), mermaidID(dep))
		}
	}
	return sb.String()
}

func renderNarrative(g *graph.DependencyGraph, tasks []*models.AtomicTask) (string, error) {
	stats := g.ComputeStats()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Decomposition produced %d atomic tasks totaling %.2f hours.\n",
		stats.TaskCount, stats.TotalHours)
	fmt.Fprintf(&sb, "The graph has %d dependencies, %d independent starting points, and runs %d levels deep.\n",
		stats.DependencyCount, stats.RootCount, stats.MaxDepth)

	if path, hours, err := g.CriticalPath(); err == nil && len(path) > 0 {
		titles := make([]string, len(path))
		for i, id := range path {
			if t := g.Task(id); t != nil {
				titles[i] = t.Title
			} else {
				titles[i] = id
			}
		}
		fmt.Fprintf(&sb, "The critical path takes %.2f hours: %s.\n",
			hours, strings.Join(titles, " -> "))
	}

	byPriority := make(map[models.Priority]int)
	for _, t := range tasks {
		byPriority[t.Priority]++
	}
	var parts []string
	for _, p := range []models.Priority{models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		if n := byPriority[p]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, p))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&sb, "Priorities: %s.\n", strings.Join(parts, ", "))
	}

	return sb.String(), nil
}
