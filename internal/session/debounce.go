package session

import (
	"slices"
	"sync"
	"time"
)

// Debouncer coalesces deferred tasks by key. Scheduling a key that already
// has a pending task replaces it, so at most one task per key is pending.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*debounceTask
}

type debounceTask struct {
	timer *time.Timer
	fn    func()
}

// NewDebouncer creates an empty Debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{pending: make(map[string]*debounceTask)}
}

// Schedule runs fn after delay unless it is cancelled, flushed, or
// replaced first. A non-positive delay runs fn immediately on the caller's
// goroutine.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
		delete(d.pending, key)
	}
	if delay <= 0 {
		d.mu.Unlock()
		fn()
		return
	}

	task := &debounceTask{fn: fn}
	task.timer = time.AfterFunc(delay, func() {
		if d.take(key, task) {
			fn()
		}
	})
	d.pending[key] = task
	d.mu.Unlock()
}

// take removes task if it is still the pending task for key.
func (d *Debouncer) take(key string, task *debounceTask) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[key] != task {
		return false
	}
	delete(d.pending, key)
	return true
}

// Cancel drops the pending task for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.pending[key]
	if !ok {
		return false
	}
	task.timer.Stop()
	delete(d.pending, key)
	return true
}

// Flush runs the pending task for key now. It reports whether one ran.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	task, ok := d.pending[key]
	if ok {
		task.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok {
		task.fn()
	}
	return ok
}

// FlushAll runs every pending task now, in key order.
func (d *Debouncer) FlushAll() int {
	d.mu.Lock()
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	tasks := make([]*debounceTask, 0, len(keys))
	for _, k := range keys {
		task := d.pending[k]
		task.timer.Stop()
		tasks = append(tasks, task)
		delete(d.pending, k)
	}
	d.mu.Unlock()

	for _, task := range tasks {
		task.fn()
	}
	return len(tasks)
}

// Pending returns the number of pending tasks.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
