// Package enrich gathers project context for a task before decomposition
// so splits reference real files instead of inventing paths.
package enrich

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/freshtechbro/taskforge/pkg/models"
)

// Context is the gathered material handed to the decomposition prompt.
type Context struct {
	// RelatedFiles are project paths whose names match the task wording.
	RelatedFiles []string
	// Notes are free-form observations about the project layout.
	Notes []string
}

// Gatherer collects context for a task.
type Gatherer interface {
	Gather(ctx context.Context, projectRoot string, task *models.AtomicTask) (*Context, error)
}

// skipDirs are directories never worth scanning.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	".taskforge": true, "dist": true, "build": true,
}

// maxRelatedFiles caps the gathered file list so prompts stay small.
const maxRelatedFiles = 20

// FSGatherer walks the project tree and matches file names against the
// task's title words.
type FSGatherer struct{}

// NewFSGatherer creates a filesystem-backed gatherer.
func NewFSGatherer() *FSGatherer {
	return &FSGatherer{}
}

// Gather scans projectRoot for files whose path contains any significant
// word from the task title. A missing or unreadable root yields an empty
// context, not an error: enrichment is best-effort.
func (g *FSGatherer) Gather(ctx context.Context, projectRoot string, task *models.AtomicTask) (*Context, error) {
	out := &Context{}
	if projectRoot == "" {
		return out, nil
	}

	words := significantWords(task.Title)
	if len(words) == 0 {
		return out, nil
	}

	err := filepath.WalkDir(projectRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if len(out.RelatedFiles) >= maxRelatedFiles {
			return filepath.SkipAll
		}

		rel, relErr := filepath.Rel(projectRoot, path)
		if relErr != nil {
			rel = path
		}
		lower := strings.ToLower(rel)
		for _, w := range words {
			if strings.Contains(lower, w) {
				out.RelatedFiles = append(out.RelatedFiles, rel)
				break
			}
		}
		return nil
	})
	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		// Walk failures other than cancellation are swallowed; the
		// context just comes back thinner.
		err = nil
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(out.RelatedFiles)
	if len(out.RelatedFiles) == 0 {
		out.Notes = append(out.Notes, "no project files matched the task wording")
	}
	return out, nil
}

// stopWords are too common to identify relevant files.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"for": true, "with": true, "add": true, "fix": true, "update": true,
	"new": true, "to": true, "in": true, "of": true, "on": true,
}

func significantWords(title string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, ".,:;!?()[]\"'")
		if len(w) >= 3 && !stopWords[w] {
			words = append(words, w)
		}
	}
	return words
}
