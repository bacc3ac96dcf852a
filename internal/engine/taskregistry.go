package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/flowgridgo/internal/pathid"
)

// DecisionTask is one in-flight oracle consultation. The handle is the
// correlation id the owning path releases the task by, never identified by
// scanning pending state.
type DecisionTask struct {
	Handle uuid.UUID
	PathID pathid.Address
	NodeID string

	ctx    context.Context
	cancel context.CancelFunc
}

// Context governs the oracle call for this task. It is cancelled when the
// task is released or the whole registry is cancelled.
func (t *DecisionTask) Context() context.Context {
	return t.ctx
}

// TaskRegistry tracks live decision tasks by handle. It enforces the
// one-live-task-per-path rule and is the engine's source of truth for
// "is any oracle call still outstanding".
type TaskRegistry struct {
	mu     sync.Mutex
	tasks  map[uuid.UUID]*DecisionTask
	byPath map[string]uuid.UUID
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks:  make(map[uuid.UUID]*DecisionTask),
		byPath: make(map[string]uuid.UUID),
	}
}

// Register creates a live task for the given path and node. Registering a
// second task for a path that already has one is a programming error in the
// engine's state machine and is rejected.
func (r *TaskRegistry) Register(ctx context.Context, pathID pathid.Address, nodeID string) (*DecisionTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pathID.String()
	if handle, ok := r.byPath[key]; ok {
		return nil, fmt.Errorf("path '%s' already has a live decision task (%s)", key, handle)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := &DecisionTask{
		Handle: uuid.New(),
		PathID: pathID,
		NodeID: nodeID,
		ctx:    taskCtx,
		cancel: cancel,
	}
	r.tasks[task.Handle] = task
	r.byPath[key] = task.Handle
	return task, nil
}

// Release removes the task and cancels its context. Releasing an unknown
// handle is a no-op so that cancellation and normal resolution may race.
func (r *TaskRegistry) Release(handle uuid.UUID) {
	r.mu.Lock()
	task, ok := r.tasks[handle]
	if ok {
		delete(r.tasks, handle)
		delete(r.byPath, task.PathID.String())
	}
	r.mu.Unlock()

	if ok {
		task.cancel()
	}
}

// CancelAll requests cancellation of every live task. Best-effort: a task
// may still deliver a result, which the engine then discards.
func (r *TaskRegistry) CancelAll() {
	r.mu.Lock()
	tasks := make([]*DecisionTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task)
	}
	r.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
	}
}

// Live reports the number of outstanding tasks.
func (r *TaskRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
