package session

import (
	"sync/atomic"
	"time"

	"github.com/ytgrab/ytgrab/internal/events"
)

// meter accumulates downloaded bytes and emits throttled progress events.
// Writes happen on the session goroutine; reads may come from anywhere.
type meter struct {
	taskID   string
	total    int64 // 0 = indeterminate
	interval time.Duration
	ch       chan<- any
	task     *Task

	start    time.Time
	current  atomic.Int64
	lastEmit atomic.Int64 // unix nanoseconds
}

func newMeter(taskID string, total int64, interval time.Duration, ch chan<- any, task *Task) *meter {
	now := time.Now()
	m := &meter{
		taskID:   taskID,
		total:    total,
		interval: interval,
		ch:       ch,
		task:     task,
		start:    now,
	}
	m.lastEmit.Store(now.UnixNano())
	return m
}

// Add records n freshly transferred bytes and emits a progress event if the
// throttle interval has elapsed. At most one event per interval.
func (m *meter) Add(n int) {
	m.current.Add(int64(n))

	now := time.Now()
	last := m.lastEmit.Load()
	if now.UnixNano()-last < m.interval.Nanoseconds() {
		return
	}
	if m.lastEmit.CompareAndSwap(last, now.UnixNano()) {
		m.emit()
	}
}

// Current returns the transferred byte count so far.
func (m *meter) Current() int64 {
	return m.current.Load()
}

// Rewind resets the transferred count to v, used when a stream attempt is
// retried from the beginning.
func (m *meter) Rewind(v int64) {
	m.current.Store(v)
}

func (m *meter) fraction() float64 {
	if m.total <= 0 {
		return -1
	}
	f := float64(m.current.Load()) / float64(m.total)
	if f > 1 {
		f = 1
	}
	return f
}

// emit sends a progress event without ever blocking the session: if the
// observer is behind, the update is dropped.
func (m *meter) emit() {
	downloaded := m.current.Load()
	elapsed := time.Since(m.start)
	var speed float64
	if elapsed > 0 {
		speed = float64(downloaded) / elapsed.Seconds()
	}
	fraction := m.fraction()
	m.task.setProgress(fraction)

	select {
	case m.ch <- events.ProgressMsg{
		TaskID:     m.taskID,
		Downloaded: downloaded,
		Total:      m.total,
		Fraction:   fraction,
		Speed:      speed,
		Elapsed:    elapsed,
	}:
	default:
	}
}
