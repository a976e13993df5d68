package atomicity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// Rule is one deterministic override applied after the generative judgment.
// Rules run in declaration order and their effects accumulate: a later rule
// sees the judgment as modified by earlier rules.
type Rule struct {
	// Name identifies the rule in RuleHits.
	Name string
	// Apply inspects the task and mutates the judgment. remainingHours is
	// the unspent epic budget, +Inf when no budget applies. Returns true
	// if the rule fired.
	Apply func(task *models.AtomicTask, j *Judgment, remainingHours float64) bool
}

// ApplyRules folds the rules over the judgment in order.
func ApplyRules(rules []Rule, task *models.AtomicTask, j Judgment, remainingHours float64) Judgment {
	for _, r := range rules {
		if r.Apply(task, &j, remainingHours) {
			j.RuleHits = append(j.RuleHits, r.Name)
		}
	}
	return j
}

var (
	conjunctionRe = regexp.MustCompile(`(?i)\band\b`)

	// complexVerbs signal work that always spans multiple concerns.
	complexVerbs = []string{
		"implement", "architect", "design", "integrate", "build",
		"develop", "create system", "overhaul", "migrate",
	}

	// vagueQualifiers signal underspecified scope.
	vagueQualifiers = []string{
		"various", "multiple", "several", "appropriate", "necessary",
		"etc", "miscellaneous", "general", "some",
	}
)

func capConfidence(j *Judgment, cap float64) {
	if j.Confidence > cap {
		j.Confidence = cap
	}
}

// DefaultRules returns the ordered override rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			// Anything over the atomic maximum cannot be atomic,
			// regardless of what the model said.
			Name: "duration_exceeds_max",
			Apply: func(task *models.AtomicTask, j *Judgment, _ float64) bool {
				if task.EstimatedHours > models.MaxAtomicHours {
					j.Atomic = false
					j.Confidence = 0
					j.Reason = fmt.Sprintf("estimated %.2fh exceeds the %.2fh atomic maximum",
						task.EstimatedHours, models.MaxAtomicHours)
					return true
				}
				return false
			},
		},
		{
			// Under five minutes usually means the estimate is wrong,
			// not that the task is small. Keep the verdict but doubt it.
			Name: "duration_below_min",
			Apply: func(task *models.AtomicTask, j *Judgment, _ float64) bool {
				if task.EstimatedHours > 0 && task.EstimatedHours < models.MinAtomicHours {
					capConfidence(j, 0.7)
					return true
				}
				return false
			},
		},
		{
			Name: "criteria_count",
			Apply: func(task *models.AtomicTask, j *Judgment, _ float64) bool {
				if len(task.AcceptanceCriteria) != 1 {
					j.Atomic = false
					j.Confidence = 0
					j.Reason = fmt.Sprintf("atomic tasks need exactly one acceptance criterion, got %d",
						len(task.AcceptanceCriteria))
					return true
				}
				return false
			},
		},
		{
			Name: "conjunction",
			Apply: func(task *models.AtomicTask, j *Judgment, _ float64) bool {
				if ContainsConjunction(task.Title + " " + task.Description) {
					j.Atomic = false
					j.Confidence = 0
					j.Reason = "title or description joins multiple actions with a conjunction"
					return true
				}
				return false
			},
		},
		{
			Name: "file_count",
			Apply: func(task *models.AtomicTask, j *Judgment, _ float64) bool {
				if len(task.FilePaths) > models.MaxAtomicFiles {
					j.Atomic = false
					j.Confidence = 0
					j.Reason = fmt.Sprintf("touches %d files, atomic maximum is %d",
						len(task.FilePaths), models.MaxAtomicFiles)
					return true
				}
				return false
			},
		},
		{
			Name: "complex_verb",
			Apply: func(task *models.AtomicTask, j *Judgment, _ float64) bool {
				text := strings.ToLower(task.Title + " " + task.Description)
				for _, verb := range complexVerbs {
					if strings.Contains(text, verb) {
						j.Atomic = false
						capConfidence(j, 0.3)
						j.Reason = fmt.Sprintf("verb %q implies multi-step work", verb)
						return true
					}
				}
				return false
			},
		},
		{
			Name: "vague_qualifier",
			Apply: func(task *models.AtomicTask, j *Judgment, _ float64) bool {
				text := strings.ToLower(task.Title + " " + task.Description)
				for _, q := range vagueQualifiers {
					if containsWord(text, q) {
						j.Atomic = false
						capConfidence(j, 0.4)
						j.Reason = fmt.Sprintf("scope qualifier %q leaves the task underspecified", q)
						return true
					}
				}
				return false
			},
		},
		{
			// Overflowing the epic budget does not make the task any less
			// atomic, it only makes the judgment less trustworthy.
			Name: "epic_budget_overflow",
			Apply: func(task *models.AtomicTask, j *Judgment, remainingHours float64) bool {
				if task.EstimatedHours > 0 && task.EstimatedHours > remainingHours {
					capConfidence(j, 0.5)
					return true
				}
				return false
			},
		},
	}
}

// ContainsConjunction reports whether text contains "and" as a whole word.
func ContainsConjunction(text string) bool {
	return conjunctionRe.MatchString(text)
}

var wordRe = regexp.MustCompile(`[a-z]+`)

// containsWord matches q as a whole word within text.
func containsWord(text, q string) bool {
	for _, w := range wordRe.FindAllString(text, -1) {
		if w == q {
			return true
		}
	}
	return false
}
