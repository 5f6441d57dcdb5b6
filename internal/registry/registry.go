// Package registry tracks orchestration tasks in memory. One background
// execution owns each task's writes; callers only ever read snapshots, so a
// single mutex plus copy-on-read keeps the whole surface race-free.
package registry

import (
	"sort"
	"sync"
	"time"

	"tuneforge/internal/domain"
)

// Registry is the id→task table behind GetStatus polling. Terminal tasks
// are retained up to a cap; the oldest terminal records are evicted once
// the cap is exceeded. In-flight tasks are never evicted.
type Registry struct {
	mu        sync.Mutex
	tasks     map[string]*domain.Task
	retention int
}

// New creates a registry retaining up to retention terminal tasks.
func New(retention int) *Registry {
	if retention < 1 {
		retention = 1
	}
	return &Registry{
		tasks:     make(map[string]*domain.Task),
		retention: retention,
	}
}

// Create inserts a new task and applies the retention policy. A duplicate
// id is a conflict; the orchestrator generates ids, so this only fires on
// a programming error.
func (r *Registry) Create(task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[task.ID]; exists {
		return domain.ErrConflict
	}
	cp := *task
	r.tasks[task.ID] = &cp
	r.evictLocked()
	return nil
}

// Update runs mutate against the live task under the registry lock. Writes
// to a task that already reached a terminal state are refused so a late
// cancellation can never overwrite a completed result. Progress never moves
// backwards regardless of what the mutator sets.
func (r *Registry) Update(id string, mutate func(*domain.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	if task.Status.Terminal() {
		return domain.ErrAlreadyTerminal
	}
	before := task.Progress
	mutate(task)
	if task.Progress < before {
		task.Progress = before
	}
	if task.Progress > 100 {
		task.Progress = 100
	}
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a snapshot of the task.
func (r *Registry) Get(id string) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return snapshot(task), nil
}

// List returns snapshots of every retained task, newest first.
func (r *Registry) List() []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, snapshot(task))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// CountByStatus reports how many retained tasks sit in each state.
func (r *Registry) CountByStatus() map[domain.TaskStatus]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.TaskStatus]int)
	for _, task := range r.tasks {
		counts[task.Status]++
	}
	return counts
}

func (r *Registry) evictLocked() {
	if len(r.tasks) <= r.retention {
		return
	}
	var terminal []*domain.Task
	for _, task := range r.tasks {
		if task.Status.Terminal() {
			terminal = append(terminal, task)
		}
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].CreatedAt.Before(terminal[j].CreatedAt)
	})
	for _, task := range terminal {
		if len(r.tasks) <= r.retention {
			return
		}
		delete(r.tasks, task.ID)
	}
}

func snapshot(task *domain.Task) domain.Task {
	cp := *task
	if task.Result != nil {
		res := *task.Result
		cp.Result = &res
	}
	return cp
}
