package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrTaskRunning is returned when a task id already has an active session.
	ErrTaskRunning = errors.New("task is already running")
	// ErrTaskFinished is returned when a task id already reached a terminal
	// state; finished tasks cannot be restarted.
	ErrTaskFinished = errors.New("task already finished")
)

// Registry enforces at most one active session per task ID and refuses to
// restart tasks that already reached a terminal state.
type Registry struct {
	mu       sync.Mutex
	active   map[string]*Session
	finished map[string]Status
}

func NewRegistry() *Registry {
	return &Registry{
		active:   make(map[string]*Session),
		finished: make(map[string]Status),
	}
}

// Start registers a session for task and launches it. It fails when the
// task is already running or already finished.
func (r *Registry) Start(ctx context.Context, task *Task, opts Options) (<-chan any, error) {
	r.mu.Lock()
	if _, running := r.active[task.ID]; running {
		r.mu.Unlock()
		return nil, fmt.Errorf("task %s: %w", task.ID, ErrTaskRunning)
	}
	if st, done := r.finished[task.ID]; done {
		r.mu.Unlock()
		return nil, fmt.Errorf("task %s (%s): %w", task.ID, st, ErrTaskFinished)
	}

	opts.onFinish = func(t *Task) {
		r.mu.Lock()
		delete(r.active, t.ID)
		r.finished[t.ID] = t.Status()
		r.mu.Unlock()
	}
	s := New(task, opts)
	r.active[task.ID] = s
	r.mu.Unlock()

	return s.Start(ctx), nil
}

// Cancel requests cancellation of a running task. It reports whether the
// task was active.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	s, ok := r.active[id]
	r.mu.Unlock()
	if ok {
		s.Cancel()
	}
	return ok
}

// CancelAll cancels every active session, typically during shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.active))
	for _, s := range r.active {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		s.Cancel()
	}
}

// ActiveCount reports how many sessions are currently running.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
