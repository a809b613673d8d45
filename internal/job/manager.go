package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager runs refresh jobs in the background, one at a time, and keeps
// their history for the lifetime of the process.
type Manager struct {
	mu    sync.RWMutex
	jobs  map[string]*Status
	order []string
	wg    sync.WaitGroup
}

// NewManager creates a new job manager
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Status),
	}
}

// Start runs fn in a new job unless another job is still active.
func (m *Manager) Start(fn RunFunc) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		if m.jobs[id].Active() {
			return Status{}, fmt.Errorf("%w: %s", ErrBusy, id)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Status{
		ID:         uuid.NewString(),
		Status:     StatusPending,
		Message:    "Job created",
		StartTime:  time.Now(),
		cancelFunc: cancel,
	}
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)

	m.wg.Add(1)
	go m.run(ctx, job.ID, fn)
	return *job, nil
}

func (m *Manager) run(ctx context.Context, id string, fn RunFunc) {
	defer m.wg.Done()

	m.mu.Lock()
	if job := m.jobs[id]; job.Status == StatusPending {
		job.Status = StatusProcessing
		job.Message = "Refreshing records"
	}
	m.mu.Unlock()

	tracks, err := fn(ctx)

	m.mu.Lock()
	job := m.jobs[id]
	endTime := time.Now()
	job.EndTime = &endTime
	switch {
	case job.Status == StatusCancelled:
	case err != nil && errors.Is(ctx.Err(), context.Canceled):
		job.Status = StatusCancelled
		job.Message = "Job cancelled"
	case err != nil && tracks == 0:
		job.Status = StatusFailed
		job.Message = "Refresh failed"
		job.Error = err.Error()
	default:
		// A refresh that loaded tracks but could not cache them still completed.
		job.Status = StatusCompleted
		job.Progress = 100
		job.Tracks = tracks
		job.Message = fmt.Sprintf("Loaded %d tracks", tracks)
		if err != nil {
			job.Error = err.Error()
		}
	}
	job.cancelFunc()
	m.mu.Unlock()

	if err != nil {
		slog.Error("Refresh job failed", "jobId", id, "error", err)
	} else {
		slog.Info("Refresh job completed", "jobId", id, "tracks", tracks)
	}
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return Status{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return *job, nil
}

// CancelJob cancels a job
func (m *Manager) CancelJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if !job.Active() {
		return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	job.Message = "Job cancelled by user"
	return nil
}

// ListJobs lists jobs, newest first, with pagination
func (m *Manager) ListJobs(page, pageSize int) *Response {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.order)
	response := &Response{
		Jobs:       []Status{},
		Page:       page,
		PageSize:   pageSize,
		TotalJobs:  total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	start := (page - 1) * pageSize
	for i := start; i < total && i < start+pageSize; i++ {
		response.Jobs = append(response.Jobs, *m.jobs[m.order[total-1-i]])
	}
	return response
}

// Shutdown cancels active jobs and waits for them to return.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, job := range m.jobs {
		if job.Active() {
			job.cancelFunc()
		}
	}
	m.mu.Unlock()
	m.wg.Wait()
}
