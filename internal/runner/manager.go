package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smazurov/framegraph/internal/jobs"
)

// RunState is the lifecycle state of a background run.
type RunState string

const (
	RunRunning  RunState = "running"
	RunFinished RunState = "finished"
	RunFailed   RunState = "failed"
	RunStopped  RunState = "stopped"
)

// RunStatus describes the latest run of a job.
type RunStatus struct {
	JobID      string
	State      RunState
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
	// Result is set once the run has ended.
	Result *Result
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
	status RunStatus
}

// Manager runs jobs in the background, at most one run per job ID. Each run
// owns its graph on its own goroutine.
type Manager struct {
	runner *Runner
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	runs map[string]*run
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewManager creates a manager executing runs with r.
func NewManager(r *Runner) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner: r,
		ctx:    ctx,
		cancel: cancel,
		runs:   make(map[string]*run),
		now:    time.Now,
	}
}

// Start launches job in the background. Starting a job that is still
// running fails with JOB_RUNNING.
func (m *Manager) Start(job jobs.JobSpec) (RunStatus, error) {
	job = job.WithDefaults()
	if err := job.Validate(); err != nil {
		return RunStatus{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		return RunStatus{}, jobs.NewJobError(jobs.ErrCodeStopped, "runner is shutting down", nil)
	}
	if r, ok := m.runs[job.ID]; ok && r.status.State == RunRunning {
		return r.status, jobs.NewJobError(jobs.ErrCodeJobRunning, "job "+job.ID+" is already running", nil)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	r := &run{
		cancel: cancel,
		done:   make(chan struct{}),
		status: RunStatus{JobID: job.ID, State: RunRunning, StartedAt: m.now()},
	}
	m.runs[job.ID] = r

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(r.done)
		defer cancel()

		res, err := m.runner.Run(ctx, job)

		m.mu.Lock()
		defer m.mu.Unlock()
		r.status.FinishedAt = m.now()
		r.status.Result = res
		switch {
		case errors.Is(err, context.Canceled):
			r.status.State = RunStopped
		case err != nil:
			r.status.State = RunFailed
			r.status.Error = err.Error()
		default:
			r.status.State = RunFinished
		}
	}()
	return r.status, nil
}

// Stop cancels the run of job id and waits for it to end.
func (m *Manager) Stop(id string) (RunStatus, error) {
	m.mu.Lock()
	r, ok := m.runs[id]
	if !ok || r.status.State != RunRunning {
		m.mu.Unlock()
		return RunStatus{}, jobs.NewJobError(jobs.ErrCodeNotRunning, "job "+id+" is not running", nil)
	}
	m.mu.Unlock()

	r.cancel()
	<-r.done

	m.mu.Lock()
	defer m.mu.Unlock()
	return r.status, nil
}

// Status returns the latest run of job id.
func (m *Manager) Status(id string) (RunStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return RunStatus{}, false
	}
	return r.status, true
}

// Wait blocks until the current run of job id has ended.
func (m *Manager) Wait(id string) (RunStatus, bool) {
	m.mu.Lock()
	r, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return RunStatus{}, false
	}
	<-r.done
	return m.Status(id)
}

// StopAll cancels every run and waits for them to end. Later calls to
// Start fail with RUNNER_STOPPED.
func (m *Manager) StopAll() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}
