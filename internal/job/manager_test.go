package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitForStatus(t *testing.T, m *Manager, id, status string) Status {
	t.Helper()
	var job Status
	require.Eventually(t, func() bool {
		var err error
		job, err = m.GetJob(id)
		return err == nil && job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestJobCompletes(t *testing.T) {
	manager := NewManager()
	defer manager.Shutdown()

	job, err := manager.Start(func(ctx context.Context) (int, error) {
		return 30, nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)

	done := waitForStatus(t, manager, job.ID, StatusCompleted)
	assert.Equal(t, 30, done.Tracks)
	assert.Equal(t, 100.0, done.Progress)
	assert.Equal(t, "Loaded 30 tracks", done.Message)
	require.NotNil(t, done.EndTime)
	assert.Empty(t, done.Error)
}

func TestJobFails(t *testing.T) {
	manager := NewManager()
	defer manager.Shutdown()

	job, err := manager.Start(func(ctx context.Context) (int, error) {
		return 0, errors.New("unexpected markup shape")
	})
	require.NoError(t, err)

	failed := waitForStatus(t, manager, job.ID, StatusFailed)
	assert.Equal(t, "unexpected markup shape", failed.Error)
}

func TestJobCompletesWithCacheError(t *testing.T) {
	manager := NewManager()
	defer manager.Shutdown()

	job, err := manager.Start(func(ctx context.Context) (int, error) {
		return 12, errors.New("failed to persist record cache")
	})
	require.NoError(t, err)

	done := waitForStatus(t, manager, job.ID, StatusCompleted)
	assert.Equal(t, 12, done.Tracks)
	assert.Contains(t, done.Error, "persist")
}

func TestOnlyOneActiveJob(t *testing.T) {
	manager := NewManager()
	defer manager.Shutdown()

	release := make(chan struct{})
	first, err := manager.Start(func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	require.NoError(t, err)

	_, err = manager.Start(func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	waitForStatus(t, manager, first.ID, StatusCompleted)

	_, err = manager.Start(func(ctx context.Context) (int, error) { return 1, nil })
	assert.NoError(t, err)
}

func TestCancelJob(t *testing.T) {
	manager := NewManager()
	defer manager.Shutdown()

	started := make(chan struct{})
	job, err := manager.Start(func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, manager.CancelJob(job.ID))

	cancelled := waitForStatus(t, manager, job.ID, StatusCancelled)
	assert.Equal(t, "Job cancelled by user", cancelled.Message)
	require.Eventually(t, func() bool {
		j, _ := manager.GetJob(job.ID)
		return j.EndTime != nil
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, manager.CancelJob(job.ID), ErrInvalidState)
	assert.ErrorIs(t, manager.CancelJob("missing"), ErrNotFound)
}

func TestGetJobNotFound(t *testing.T) {
	_, err := NewManager().GetJob("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListJobs(t *testing.T) {
	manager := NewManager()
	defer manager.Shutdown()

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := manager.Start(func(ctx context.Context) (int, error) { return i + 1, nil })
		require.NoError(t, err)
		waitForStatus(t, manager, job.ID, StatusCompleted)
		ids = append(ids, job.ID)
	}

	tests := []struct {
		name      string
		page      int
		pageSize  int
		wantIDs   []string
		wantPages int
	}{
		{name: "newest first", page: 1, pageSize: 10, wantIDs: []string{ids[2], ids[1], ids[0]}, wantPages: 1},
		{name: "second page", page: 2, pageSize: 2, wantIDs: []string{ids[0]}, wantPages: 2},
		{name: "past the end", page: 5, pageSize: 2, wantIDs: []string{}, wantPages: 2},
		{name: "invalid page size falls back", page: 0, pageSize: 1000, wantIDs: []string{ids[2], ids[1], ids[0]}, wantPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := manager.ListJobs(tt.page, tt.pageSize)
			got := make([]string, 0, len(response.Jobs))
			for _, j := range response.Jobs {
				got = append(got, j.ID)
			}
			assert.Equal(t, tt.wantIDs, got)
			assert.Equal(t, 3, response.TotalJobs)
			assert.Equal(t, tt.wantPages, response.TotalPages)
		})
	}
}

func TestShutdownCancelsActiveJobs(t *testing.T) {
	manager := NewManager()

	job, err := manager.Start(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)

	manager.Shutdown()

	j, err := manager.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, j.Status)
}
