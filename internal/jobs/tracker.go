// Package jobs tracks the status of long-running background passes
// (crawl, research, trending) so callers can poll progress without
// holding a handle to the running goroutine.
package jobs

import (
	"log/slog"
	"sync"
	"time"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Known job names.
const (
	JobCrawl    = "crawl"
	JobResearch = "research"
	JobTrending = "trending"
)

// State is a point-in-time snapshot of one job.
type State struct {
	Status      Status    `json:"status"`
	CurrentStep string    `json:"current_step,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	Error       string    `json:"error,omitempty"`
	Results     any       `json:"results,omitempty"`
}

// Tracker is a concurrency-safe in-memory job registry. Unknown job
// names are created on first start.
type Tracker struct {
	mu     sync.RWMutex
	jobs   map[string]State
	logger *slog.Logger
}

// NewTracker creates a tracker with the standard jobs pre-registered.
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		jobs: map[string]State{
			JobCrawl:    {Status: StatusIdle},
			JobResearch: {Status: StatusIdle},
			JobTrending: {Status: StatusIdle},
		},
		logger: logger.With("component", "jobs"),
	}
}

// Start marks a job running and clears the previous outcome. Returns
// false if the job is already running.
func (t *Tracker) Start(name, step string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.jobs[name].Status == StatusRunning {
		return false
	}
	t.jobs[name] = State{
		Status:      StatusRunning,
		CurrentStep: step,
		StartedAt:   time.Now().UTC(),
	}
	t.logger.Info("job started", "job", name)
	return true
}

// Step updates the current step of a running job.
func (t *Tracker) Step(name, step string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.jobs[name]
	if !ok || state.Status != StatusRunning {
		return
	}
	state.CurrentStep = step
	t.jobs[name] = state
	t.logger.Info("job progress", "job", name, "step", step)
}

// Complete marks a job finished and attaches its results.
func (t *Tracker) Complete(name string, results any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.jobs[name]
	if !ok {
		return
	}
	state.Status = StatusCompleted
	state.CompletedAt = time.Now().UTC()
	state.CurrentStep = "Completed"
	state.Results = results
	t.jobs[name] = state
	t.logger.Info("job completed", "job", name)
}

// Fail marks a job failed with an error message.
func (t *Tracker) Fail(name, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.jobs[name]
	if !ok {
		return
	}
	state.Status = StatusError
	state.CompletedAt = time.Now().UTC()
	state.Error = errMsg
	state.CurrentStep = "Failed: " + errMsg
	t.jobs[name] = state
	t.logger.Error("job failed", "job", name, "error", errMsg)
}

// Get returns the snapshot of one job. Unknown names read as idle.
func (t *Tracker) Get(name string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.jobs[name]
}

// All returns a snapshot of every tracked job.
func (t *Tracker) All() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]State, len(t.jobs))
	for name, state := range t.jobs {
		out[name] = state
	}
	return out
}

// Running reports whether the named job is currently running.
func (t *Tracker) Running(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.jobs[name].Status == StatusRunning
}

// AnyRunning reports whether any job is currently running.
func (t *Tracker) AnyRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, state := range t.jobs {
		if state.Status == StatusRunning {
			return true
		}
	}
	return false
}

// Reset returns a job to idle.
func (t *Tracker) Reset(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[name]; ok {
		t.jobs[name] = State{Status: StatusIdle}
	}
}
