// Package session orchestrates asynchronous decomposition runs: start a
// session, decompose in the background, persist the results, and expose
// progress while the pipeline advances.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/freshtechbro/taskforge/internal/artifact"
	"github.com/freshtechbro/taskforge/internal/assign"
	"github.com/freshtechbro/taskforge/internal/enrich"
	"github.com/freshtechbro/taskforge/internal/llm"
	"github.com/freshtechbro/taskforge/internal/rdd"
	"github.com/freshtechbro/taskforge/pkg/models"
)

// Store is the persistence surface the manager needs. *store.DB satisfies it.
type Store interface {
	SaveTasks(tasks []*models.AtomicTask) error
	SaveDependency(d *models.Dependency) error
	SaveEpic(e *models.Epic) error
	SaveSession(s *models.Session) error
	GetSession(id string) (*models.Session, error)
	ListSessions(projectID string) ([]*models.Session, error)
	SaveArtifact(a *models.Artifact) error
	ListReadyTasks(projectID string) ([]*models.AtomicTask, error)
	PurgeOldSessions(olderThan time.Duration) (int64, error)
}

// StartRequest describes one decomposition to run.
type StartRequest struct {
	// Task is the source task to decompose. Required, with a title.
	Task *models.AtomicTask
	// ProjectID is the owning project. Required.
	ProjectID string
	// ProjectRoot is the filesystem root used for context gathering.
	// Optional.
	ProjectRoot string
}

// Manager runs decomposition sessions.
type Manager struct {
	store    Store
	engine   *rdd.Engine
	gen      llm.Generator
	gatherer enrich.Gatherer
	assigner assign.Assigner

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a session manager. gen, gatherer, and assigner may be
// nil; the corresponding pipeline stages are then skipped.
func NewManager(st Store, engine *rdd.Engine, gen llm.Generator, gatherer enrich.Gatherer, assigner assign.Assigner) *Manager {
	return &Manager{
		store:    st,
		engine:   engine,
		gen:      gen,
		gatherer: gatherer,
		assigner: assigner,
		active:   make(map[string]context.CancelFunc),
	}
}

// StartDecomposition validates the request, persists a pending session,
// and launches the pipeline in the background. The returned session is a
// snapshot; poll Status for progress. Validation problems are returned
// synchronously as *ValidationError.
func (m *Manager) StartDecomposition(ctx context.Context, req StartRequest) (*models.Session, error) {
	if req.Task == nil || req.Task.Title == "" {
		return nil, &ValidationError{Field: "task", Message: "a task with a title is required"}
	}
	if req.ProjectID == "" {
		return nil, &ValidationError{Field: "project_id", Message: "a project id is required"}
	}
	if req.Task.ID == "" {
		req.Task.ID = uuid.New().String()
	}
	req.Task.ProjectID = req.ProjectID

	sess := &models.Session{
		ID:        uuid.New().String(),
		TaskID:    req.Task.ID,
		ProjectID: req.ProjectID,
		Status:    models.SessionPending,
		MaxDepth:  m.engine.Options().MaxDepth,
		StartedAt: time.Now(),
	}
	if err := m.store.SaveSession(sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	// The pipeline outlives the caller's context: starting is a request
	// to run to completion, and only Cancel stops it.
	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.active[sess.ID] = cancel
	m.mu.Unlock()

	snapshot := *sess
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			cancel()
			m.mu.Lock()
			delete(m.active, sess.ID)
			m.mu.Unlock()
		}()
		m.run(runCtx, sess, req)
	}()

	return &snapshot, nil
}

// Cancel requests cooperative cancellation of a running session. The
// pipeline stops at the next stage boundary; work already persisted stays.
func (m *Manager) Cancel(sessionID string) error {
	m.mu.Lock()
	cancel, ok := m.active[sessionID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s is not running", sessionID)
	}
	cancel()
	return nil
}

// Status returns the persisted session record.
func (m *Manager) Status(sessionID string) (*models.Session, error) {
	return m.store.GetSession(sessionID)
}

// List returns all sessions for a project.
func (m *Manager) List(projectID string) ([]*models.Session, error) {
	return m.store.ListSessions(projectID)
}

// Cleanup purges terminal sessions older than retention.
func (m *Manager) Cleanup(retention time.Duration) (int64, error) {
	return m.store.PurgeOldSessions(retention)
}

// Wait blocks until all running sessions finish. Intended for shutdown
// and tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// run executes the pipeline. Failures mark the session failed with the
// stage recorded; already-persisted tasks are never rolled back.
func (m *Manager) run(ctx context.Context, sess *models.Session, req StartRequest) {
	m.transition(sess, models.SessionInProgress, 5)

	// Context gathering is best-effort enrichment of the source task.
	if m.gatherer != nil {
		if gathered, err := m.gatherer.Gather(ctx, req.ProjectRoot, req.Task); err == nil && len(gathered.RelatedFiles) > 0 {
			req.Task.Description = fmt.Sprintf("%s\n\nRelated files: %v", req.Task.Description, gathered.RelatedFiles)
		}
		if m.failIfCancelled(ctx, sess, "gather") {
			return
		}
		m.transition(sess, models.SessionInProgress, 15)
	}

	result, err := m.engine.Decompose(ctx, req.Task, sess.ID)
	if err != nil {
		m.fail(sess, &StageError{SessionID: sess.ID, Stage: "decompose", Err: err})
		return
	}
	sess.CurrentDepth = result.MaxDepthReached
	m.transition(sess, models.SessionInProgress, 50)
	if m.failIfCancelled(ctx, sess, "decompose") {
		return
	}

	tasks, err := m.persistTasks(sess, result.Tasks())
	if err != nil {
		m.fail(sess, &StageError{SessionID: sess.ID, Stage: "persist", Err: err})
		return
	}
	m.transition(sess, models.SessionInProgress, 70)
	if m.failIfCancelled(ctx, sess, "persist") {
		return
	}

	if m.gen != nil {
		// Inference failures are tolerated: the explicit split
		// dependencies are already persisted.
		if err := m.inferSiblingDependencies(ctx, sess, tasks); err != nil {
			log.Printf("[session] %s: dependency inference skipped: %v", sess.ID, err)
		}
		if m.failIfCancelled(ctx, sess, "infer") {
			return
		}
	}
	m.transition(sess, models.SessionInProgress, 80)

	m.persistEpic(sess, req.Task, tasks)
	m.renderArtifacts(sess, tasks)
	m.transition(sess, models.SessionInProgress, 90)

	quality := ScoreDecomposition(tasks)
	log.Printf("[session] %s: %d tasks, confidence %.2f, parallelism %d, %d critical issues",
		sess.ID, quality.TotalTasks, quality.OverallConfidence,
		quality.EstimatedParallelism, quality.CriticalIssues)
	for _, w := range quality.Warnings {
		log.Printf("[session] %s: warning: %s", sess.ID, w)
	}

	m.transition(sess, models.SessionCompleted, 100)

	if m.assigner != nil {
		ready, err := m.store.ListReadyTasks(sess.ProjectID)
		if err == nil {
			if assignments, err := m.assigner.Assign(context.Background(), ready); err == nil {
				for _, a := range assignments {
					log.Printf("[session] %s: task %s assigned to %s", sess.ID, a.TaskID, a.Worker)
				}
			}
		}
	}
}

// persistTasks stores the decomposition output in two passes. Pass one
// saves every task under a fresh persisted ID with dependencies stripped;
// pass two rewrites dependency references through the ID map and records
// the dependency edges. A failure mid-way leaves the already-saved rows
// in place and the session reports what was persisted.
func (m *Manager) persistTasks(sess *models.Session, produced []*models.AtomicTask) ([]*models.AtomicTask, error) {
	idMap := make(map[string]string, len(produced))
	now := time.Now()

	provisionalDeps := make([][]string, len(produced))
	for i, t := range produced {
		provisionalDeps[i] = t.Dependencies
		persisted := uuid.New().String()
		idMap[t.ID] = persisted
		t.ID = persisted
		t.Dependencies = nil
		t.ProjectID = sess.ProjectID
		t.Status = models.TaskStatusPending
		t.UpdatedAt = now
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
	}

	if err := m.store.SaveTasks(produced); err != nil {
		return nil, fmt.Errorf("persist pass one: %w", err)
	}
	for _, t := range produced {
		sess.PersistedTaskIDs = append(sess.PersistedTaskIDs, t.ID)
	}
	m.persist(sess)

	for i, t := range produced {
		for _, prov := range provisionalDeps[i] {
			persisted, ok := idMap[prov]
			if !ok {
				// References outside this batch point at pre-existing
				// project tasks and pass through unchanged.
				persisted = prov
			}
			t.Dependencies = append(t.Dependencies, persisted)
			dep := &models.Dependency{
				ID:         uuid.New().String(),
				FromTaskID: persisted,
				ToTaskID:   t.ID,
				Kind:       models.DependencyBlocks,
				ProjectID:  sess.ProjectID,
				CreatedAt:  now,
			}
			if err := m.store.SaveDependency(dep); err != nil {
				return nil, fmt.Errorf("persist pass two: %w", err)
			}
		}
	}
	if err := m.store.SaveTasks(produced); err != nil {
		return nil, fmt.Errorf("persist pass two: %w", err)
	}

	return produced, nil
}

// persistEpic groups the produced tasks under one epic derived from the
// source task.
func (m *Manager) persistEpic(sess *models.Session, source *models.AtomicTask, tasks []*models.AtomicTask) {
	now := time.Now()
	epic := &models.Epic{
		ID:        uuid.New().String(),
		Title:     source.Title,
		ProjectID: sess.ProjectID,
		Priority:  source.Priority,
		Tags:      source.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, t := range tasks {
		epic.TaskIDs = append(epic.TaskIDs, t.ID)
		epic.EstimatedHours += t.EstimatedHours
		t.EpicID = epic.ID
	}
	if err := m.store.SaveEpic(epic); err != nil {
		log.Printf("[session] %s: epic not saved: %v", sess.ID, err)
		return
	}
	if err := m.store.SaveTasks(tasks); err != nil {
		log.Printf("[session] %s: epic membership not saved: %v", sess.ID, err)
	}
}

// renderArtifacts produces every artifact kind, rendering in parallel.
// Render failures are logged and skipped; artifacts are outputs, not
// preconditions.
func (m *Manager) renderArtifacts(sess *models.Session, tasks []*models.AtomicTask) {
	var g errgroup.Group
	for _, kind := range artifact.Kinds() {
		g.Go(func() error {
			content, err := artifact.Render(kind, tasks, nil)
			if err != nil {
				log.Printf("[session] %s: artifact %s not rendered: %v", sess.ID, kind, err)
				return nil
			}
			a := &models.Artifact{
				ID:        uuid.New().String(),
				ProjectID: sess.ProjectID,
				Kind:      kind,
				Content:   content,
				CreatedAt: time.Now(),
			}
			if err := m.store.SaveArtifact(a); err != nil {
				log.Printf("[session] %s: artifact %s not saved: %v", sess.ID, kind, err)
			}
			return nil
		})
	}
	g.Wait()
}

// failIfCancelled marks the session failed when the context is done.
func (m *Manager) failIfCancelled(ctx context.Context, sess *models.Session, stage string) bool {
	if ctx.Err() == nil {
		return false
	}
	m.fail(sess, &StageError{SessionID: sess.ID, Stage: stage, Err: fmt.Errorf("cancelled")})
	return true
}

func (m *Manager) fail(sess *models.Session, err error) {
	log.Printf("[session] %v", err)
	sess.Error = err.Error()
	m.transition(sess, models.SessionFailed, sess.Progress)
}

// transition advances the session state machine and persists the record.
// Terminal states admit no further transitions.
func (m *Manager) transition(sess *models.Session, status models.SessionStatus, progress int) {
	if sess.Status.Terminal() {
		return
	}
	sess.Status = status
	sess.Progress = progress
	if status.Terminal() {
		now := time.Now()
		sess.CompletedAt = &now
	}
	m.persist(sess)
}

func (m *Manager) persist(sess *models.Session) {
	if err := m.store.SaveSession(sess); err != nil {
		log.Printf("[session] %s: state not persisted: %v", sess.ID, err)
	}
}
