package rdd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freshtechbro/taskforge/internal/atomicity"
	"github.com/freshtechbro/taskforge/internal/llm"
	"github.com/freshtechbro/taskforge/pkg/models"
)

// splitTask is the JSON structure returned by the model for one subtask.
type splitTask struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	TaskType            string   `json:"task_type"`
	EstimatedHours      float64  `json:"estimated_hours"`
	AcceptanceCriterion string   `json:"acceptance_criterion"`
	FilePaths           []string `json:"file_paths"`
	DependsOn           []string `json:"depends_on"`
}

const splitPromptTemplate = `Break this task into smaller subtasks. Each subtask should take 5 to 10 minutes of focused work for one person.

Task:
  Title: %s
  Description: %s
  Estimated hours: %.2f

Return ONLY a JSON array of at most %d subtasks with this exact structure (no other text):
[
  {
    "title": "Short imperative title, one action",
    "description": "What to do and where",
    "task_type": "setup|feature|bugfix|refactor|test|docs",
    "estimated_hours": 0.12,
    "acceptance_criterion": "One verifiable outcome",
    "file_paths": ["internal/auth/login.go"],
    "depends_on": ["title of an earlier subtask in this list"]
  }
]

Guidelines:
- estimated_hours between 0.08 and 0.17 (5 to 10 minutes)
- exactly one acceptance_criterion per subtask
- at most 2 file_paths per subtask
- depends_on references subtask titles from THIS list only; use [] when independent
- subtasks together must cover the whole parent task
- order the array so prerequisites come first`

// splitTimeoutErr marks a split that exceeded its deadline. The engine
// treats it as a signal to stop splitting, not as a pipeline failure.
type splitTimeoutErr struct {
	taskTitle string
	limit     time.Duration
}

func (e *splitTimeoutErr) Error() string {
	return fmt.Sprintf("split of %q exceeded %v", e.taskTitle, e.limit)
}

// split asks the model to break parent into subtasks. Dependencies arrive
// as titles and are remapped to the generated task IDs.
func (e *Engine) split(ctx context.Context, parent *models.AtomicTask) ([]*models.AtomicTask, error) {
	timeout := e.opts.SplitTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(splitPromptTemplate,
		parent.Title, parent.Description, parent.EstimatedHours, e.opts.MaxSubTasks)

	text, err := e.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   8192,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &splitTimeoutErr{taskTitle: parent.Title, limit: timeout}
		}
		return nil, fmt.Errorf("split %q: %w", parent.Title, err)
	}

	return e.parseSplit(parent, text)
}

// parseSplit converts the model response into tasks, dropping malformed
// candidates rather than failing the whole split.
func (e *Engine) parseSplit(parent *models.AtomicTask, response string) ([]*models.AtomicTask, error) {
	jsonStr, err := llm.ExtractJSONArray(response)
	if err != nil {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return nil, fmt.Errorf("no JSON array in split response: %q", preview)
	}

	var raw []splitTask
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal split response: %w", err)
	}

	if len(raw) > e.opts.MaxSubTasks {
		e.debugLog("[rdd.split] model returned %d subtasks, capping at %d", len(raw), e.opts.MaxSubTasks)
		raw = raw[:e.opts.MaxSubTasks]
	}

	now := time.Now()
	titleToID := make(map[string]string, len(raw))
	var tasks []*models.AtomicTask

	for _, st := range raw {
		if issue := candidateIssue(st); issue != "" {
			e.debugLog("[rdd.split] dropping candidate %q: %s", st.Title, issue)
			continue
		}

		id := uuid.New().String()
		titleToID[st.Title] = id

		tasks = append(tasks, &models.AtomicTask{
			ID:                 id,
			Title:              st.Title,
			Description:        st.Description,
			Type:               parseTaskType(st.TaskType, parent.Type),
			Priority:           parent.Priority,
			Status:             models.TaskStatusPending,
			EstimatedHours:     st.EstimatedHours,
			AcceptanceCriteria: []string{st.AcceptanceCriterion},
			FilePaths:          st.FilePaths,
			EpicID:             parent.EpicID,
			ProjectID:          parent.ProjectID,
			Tags:               parent.Tags,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	// Second pass: remap depends_on titles to IDs. Unknown titles are
	// dropped since siblings are the only legal reference targets.
	idx := 0
	for _, st := range raw {
		if candidateIssue(st) != "" {
			continue
		}
		for _, depTitle := range st.DependsOn {
			if depID, ok := titleToID[depTitle]; ok && depID != tasks[idx].ID {
				tasks[idx].Dependencies = append(tasks[idx].Dependencies, depID)
			} else {
				e.debugLog("[rdd.split] dropping unknown dependency %q on %q", depTitle, st.Title)
			}
		}
		idx++
	}

	return tasks, nil
}

// candidateIssue reports why a split candidate violates the atomic task
// shape, or "" when it is acceptable. Oversized estimates are not an
// issue here: the recursion splits those further.
func candidateIssue(st splitTask) string {
	switch {
	case strings.TrimSpace(st.Title) == "":
		return "empty title"
	case st.EstimatedHours <= 0:
		return "non-positive estimate"
	case strings.TrimSpace(st.AcceptanceCriterion) == "":
		return "missing acceptance criterion"
	case len(st.FilePaths) > models.MaxAtomicFiles:
		return fmt.Sprintf("touches %d files, atomic maximum is %d", len(st.FilePaths), models.MaxAtomicFiles)
	case atomicity.ContainsConjunction(st.Title + " " + st.Description):
		return "conjoined actions in title or description"
	}
	return ""
}

func parseTaskType(s string, fallback models.TaskType) models.TaskType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "setup":
		return models.TaskTypeSetup
	case "feature":
		return models.TaskTypeFeature
	case "bugfix":
		return models.TaskTypeBugfix
	case "refactor":
		return models.TaskTypeRefactor
	case "test":
		return models.TaskTypeTest
	case "docs":
		return models.TaskTypeDocs
	default:
		if fallback != "" {
			return fallback
		}
		return models.TaskTypeFeature
	}
}
