package job

import (
	"context"
	"time"
)

// Constants for job status
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Status represents the current state of a refresh job
type Status struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Progress  float64    `json:"progress"`
	Message   string     `json:"message"`
	Error     string     `json:"error,omitempty"`
	Tracks    int        `json:"tracks,omitempty"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	cancelFunc context.CancelFunc
}

// Active reports whether the job has not finished yet.
func (s *Status) Active() bool {
	return s.Status == StatusPending || s.Status == StatusProcessing
}

// Response represents a page of jobs
type Response struct {
	Jobs       []Status `json:"jobs"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalJobs  int      `json:"totalJobs"`
	TotalPages int      `json:"totalPages"`
}

// RunFunc performs the work of a job and returns the number of tracks loaded.
type RunFunc func(ctx context.Context) (int, error)
