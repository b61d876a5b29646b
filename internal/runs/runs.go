// Package runs tracks conversion passes started over the API. Passes are
// serialized: every run writes into the same destination tree, so at most
// one may be active at a time.
package runs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"officeconv/internal/batch"
)

// maxHistory bounds how many finished runs stay queryable.
const maxHistory = 20

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

var (
	ErrRunActive   = errors.New("a conversion run is already active")
	ErrRunNotFound = errors.New("run not found")
)

// Run is one tracked pass. Error is set only for pass-level faults; per-file
// failures live inside Summary.
type Run struct {
	ID         string         `json:"id"`
	Status     Status         `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Summary    *batch.Summary `json:"summary,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Runner executes one pass. Implemented by *batch.Orchestrator.
type Runner interface {
	Run(ctx context.Context) (*batch.Summary, error)
}

type Manager struct {
	mu     sync.Mutex
	runner Runner
	log    *slog.Logger
	runs   map[string]*Run
	order  []string // insertion order, oldest first
	active string   // ID of the running pass, empty when idle
}

func NewManager(runner Runner, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		runner: runner,
		log:    log.With("component", "runs"),
		runs:   make(map[string]*Run),
	}
}

// Start launches a pass in the background and returns its initial snapshot.
// The context should outlive the request that triggered the run.
func (m *Manager) Start(ctx context.Context) (Run, error) {
	r, err := m.begin()
	if err != nil {
		return Run{}, err
	}

	go func() {
		m.setStatus(r.ID, StatusInProgress)
		summary, runErr := m.runner.Run(ctx)
		m.finish(r.ID, summary, runErr)
	}()

	return m.Get(r.ID)
}

// RunSync executes a pass on the calling goroutine and returns the finished
// run. The run is recorded and queryable like a background one.
func (m *Manager) RunSync(ctx context.Context) (Run, error) {
	r, err := m.begin()
	if err != nil {
		return Run{}, err
	}

	m.setStatus(r.ID, StatusInProgress)
	summary, runErr := m.runner.Run(ctx)
	m.finish(r.ID, summary, runErr)

	snap, getErr := m.Get(r.ID)
	if getErr != nil {
		return Run{}, getErr
	}

	return snap, runErr
}

// Get returns a copy of the run. Finished runs are immutable, so sharing the
// summary pointer is safe.
func (m *Manager) Get(id string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}

	return *r, nil
}

// Busy reports whether a pass is currently active.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.active != ""
}

func (m *Manager) begin() (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		return nil, ErrRunActive
	}

	r := &Run{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		StartedAt: time.Now(),
	}
	m.runs[r.ID] = r
	m.order = append(m.order, r.ID)
	m.active = r.ID
	m.trimLocked()

	return r, nil
}

func (m *Manager) setStatus(id string, s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.runs[id]; ok {
		r.Status = s
	}
}

func (m *Manager) finish(id string, summary *batch.Summary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return
	}

	now := time.Now()
	r.FinishedAt = &now

	if err != nil {
		// Background runs have no caller waiting on the error, so the record
		// alone would hide the fault from the logs.
		m.log.Error("pass failed", "run_id", id, "error", err)
		r.Status = StatusError
		r.Error = err.Error()
	} else {
		r.Status = StatusDone
		r.Summary = summary
	}

	m.active = ""
}

// trimLocked drops the oldest finished runs beyond maxHistory. The active
// run is never evicted. Callers hold mu.
func (m *Manager) trimLocked() {
	for len(m.order) > maxHistory {
		oldest := m.order[0]
		if oldest == m.active {
			return
		}

		delete(m.runs, oldest)
		m.order = m.order[1:]
	}
}
