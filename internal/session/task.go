package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ytgrab/ytgrab/internal/validate"
)

// Status is the lifecycle state of a download task.
type Status int

const (
	StatusPending Status = iota
	StatusFetching
	StatusDownloading
	StatusMerging
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFetching:
		return "fetching"
	case StatusDownloading:
		return "downloading"
	case StatusMerging:
		return "merging"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Task is one user-initiated download attempt. It is owned by a single
// Session, which is the only mutator of its state.
type Task struct {
	ID        string
	Ref       validate.VideoRef
	TargetDir string
	Quality   string
	Format    string

	mu        sync.Mutex
	status    Status
	progress  float64
	title     string
	finalPath string
	err       error
}

// NewTask creates a pending task for ref, to be written into targetDir.
func NewTask(ref validate.VideoRef, targetDir, quality, format string) *Task {
	return &Task{
		ID:        uuid.New().String(),
		Ref:       ref,
		TargetDir: targetDir,
		Quality:   quality,
		Format:    format,
		status:    StatusPending,
	}
}

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Progress returns the last recorded completion fraction in [0,1],
// or -1 when indeterminate.
func (t *Task) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Title returns the video title once metadata has been resolved.
func (t *Task) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

// FinalPath returns the destination file path once the task completed.
func (t *Task) FinalPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finalPath
}

// Err returns the failure cause for a failed task.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// transition advances the task's status. Transitions are monotonic through
// pending → fetching → downloading → merging → completed; cancelled and
// failed are reachable from any non-terminal state; terminal states are
// final.
func (t *Task) transition(next Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.status
	if cur.Terminal() {
		return fmt.Errorf("task %s: no transition out of terminal state %s", t.ID, cur)
	}
	switch next {
	case StatusCancelled, StatusFailed:
		// allowed from any non-terminal state
	default:
		if next <= cur {
			return fmt.Errorf("task %s: illegal transition %s -> %s", t.ID, cur, next)
		}
	}
	t.status = next
	return nil
}

func (t *Task) setProgress(fraction float64) {
	t.mu.Lock()
	t.progress = fraction
	t.mu.Unlock()
}

func (t *Task) setTitle(title string) {
	t.mu.Lock()
	t.title = title
	t.mu.Unlock()
}

func (t *Task) setFinalPath(path string) {
	t.mu.Lock()
	t.finalPath = path
	t.mu.Unlock()
}

func (t *Task) setErr(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}
