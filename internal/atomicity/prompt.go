package atomicity

import (
	"fmt"
	"strings"

	"github.com/freshtechbro/taskforge/pkg/models"
)

const judgmentSystemPrompt = `You judge whether a software task is atomic: small enough for one worker to finish in a single focused session of 5 to 10 minutes, touching at most 2 files, with exactly one verifiable acceptance criterion.`

const judgmentPromptTemplate = `Judge whether this task is atomic.

Task:
  Title: %s
  Description: %s
  Estimated hours: %.2f
  Acceptance criteria (%d): %s
  File paths (%d): %s

Return ONLY a JSON object with this exact structure (no other text):
{
  "atomic": true,
  "confidence": 0.95,
  "reason": "One sentence explaining the judgment"
}

Guidelines:
- Atomic means 5-10 minutes of work for one person, one clear outcome
- A task that needs design decisions mid-way is NOT atomic
- A task whose title names two actions is NOT atomic
- confidence is your certainty in [0,1], not the task quality`

func buildJudgmentPrompt(task *models.AtomicTask) string {
	return fmt.Sprintf(judgmentPromptTemplate,
		task.Title,
		task.Description,
		task.EstimatedHours,
		len(task.AcceptanceCriteria), strings.Join(task.AcceptanceCriteria, "; "),
		len(task.FilePaths), strings.Join(task.FilePaths, ", "))
}
