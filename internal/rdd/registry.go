package rdd

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation is one in-flight decomposition step tracked by the registry.
type Operation struct {
	// ID is the unique identifier of this operation.
	ID string
	// Name describes the step, e.g. "split:Implement login".
	Name string
	// SessionID ties the operation to its owning session.
	SessionID string
	// StartedAt is when the operation began.
	StartedAt time.Time
}

// Age returns how long the operation has been running.
func (o *Operation) Age() time.Duration {
	return time.Since(o.StartedAt)
}

// OperationRegistry tracks in-flight decomposition operations so that
// stuck steps can be surfaced and eventually dropped. A finished operation
// must be ended by the caller; the registry never ends operations on its
// own except through CleanupStale.
type OperationRegistry struct {
	mu  sync.Mutex
	ops map[string]*Operation
}

// NewOperationRegistry creates an empty registry.
func NewOperationRegistry() *OperationRegistry {
	return &OperationRegistry{ops: make(map[string]*Operation)}
}

// Begin registers a new operation and returns its ID.
func (r *OperationRegistry) Begin(name, sessionID string) string {
	op := &Operation{
		ID:        uuid.New().String(),
		Name:      name,
		SessionID: sessionID,
		StartedAt: time.Now(),
	}
	r.mu.Lock()
	r.ops[op.ID] = op
	r.mu.Unlock()
	return op.ID
}

// End removes a finished operation. Unknown IDs are ignored.
func (r *OperationRegistry) End(id string) {
	r.mu.Lock()
	delete(r.ops, id)
	r.mu.Unlock()
}

// Active returns the number of in-flight operations.
func (r *OperationRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// LongRunning returns copies of operations older than threshold.
func (r *OperationRegistry) LongRunning(threshold time.Duration) []Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Operation
	for _, op := range r.ops {
		if op.Age() >= threshold {
			out = append(out, *op)
		}
	}
	return out
}

// CleanupStale drops operations older than threshold and returns how many
// were removed. Dropped operations are presumed abandoned by a crashed or
// hung caller.
func (r *OperationRegistry) CleanupStale(threshold time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, op := range r.ops {
		if op.Age() >= threshold {
			log.Printf("[rdd] dropping stale operation %s (%s) after %v", op.ID, op.Name, op.Age())
			delete(r.ops, id)
			n++
		}
	}
	return n
}
