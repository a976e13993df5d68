package artifact

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/freshtechbro/taskforge/pkg/models"
)

func fixtureTasks() []*models.AtomicTask {
	return []*models.AtomicTask{
		{ID: "t1", Title: "Write schema", EstimatedHours: 0.1, Priority: models.PriorityHigh},
		{ID: "t2", Title: "Write handler", EstimatedHours: 0.15, Priority: models.PriorityMedium, Dependencies: []string{"t1"}},
	}
}

func TestRenderJSON(t *testing.T) {
	out, err := Render(KindGraphJSON, fixtureTasks(), nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := doc["stats"]; !ok {
		t.Error("JSON output missing stats")
	}
}

func TestRenderYAML(t *testing.T) {
	out, err := Render(KindGraphYAML, fixtureTasks(), nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
}

func TestRenderMermaid(t *testing.T) {
	out, err := Render(KindGraphMermaid, fixtureTasks(), nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !strings.HasPrefix(out, "graph TD\n") {
		t.Errorf("mermaid output missing header: %q", out)
	}
	if !strings.Contains(out, "t_t1 --> t_t2") {
		t.Errorf("mermaid output missing edge: %q", out)
	}
}

func TestRenderNarrative(t *testing.T) {
	out, err := Render(KindNarrative, fixtureTasks(), nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !strings.Contains(out, "2 atomic tasks") {
		t.Errorf("narrative missing task count: %q", out)
	}
	if !strings.Contains(out, "critical path") {
		t.Errorf("narrative missing critical path: %q", out)
	}
}

func TestRenderUnknownKind(t *testing.T) {
	if _, err := Render("hologram", fixtureTasks(), nil); err == nil {
		t.Error("expected error for unknown kind")
	}
}
