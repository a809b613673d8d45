package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jaki95/mkw-records/internal/domain"
	"github.com/jaki95/mkw-records/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForJob(t *testing.T, s *Server, id, want string) job.Status {
	t.Helper()
	var status job.Status
	require.Eventually(t, func() bool {
		rr := doRequest(s, http.MethodGet, "/api/refresh/"+id, nil)
		if rr.Code != http.StatusOK {
			return false
		}
		status = decode[job.Status](t, rr)
		return status.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestStartRefresh(t *testing.T) {
	s, _ := newTestServer(t, &fakeLoader{corpus: testCorpus()})
	t.Cleanup(s.jobs.Shutdown)

	rr := doRequest(s, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)

	body := decode[map[string]string](t, rr)
	require.NotEmpty(t, body["jobId"])

	status := waitForJob(t, s, body["jobId"], job.StatusCompleted)
	assert.Equal(t, 2, status.Tracks)
	assert.Empty(t, status.Error)
}

func TestStartRefreshFailure(t *testing.T) {
	loader := &fakeLoader{refresh: func(context.Context) (*domain.Corpus, error) {
		return nil, fmt.Errorf("index unavailable")
	}}
	s, _ := newTestServer(t, loader)
	t.Cleanup(s.jobs.Shutdown)

	rr := doRequest(s, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)

	status := waitForJob(t, s, decode[map[string]string](t, rr)["jobId"], job.StatusFailed)
	assert.Contains(t, status.Error, "index unavailable")
}

func TestRefreshConflictAndCancel(t *testing.T) {
	started := make(chan struct{})
	loader := &fakeLoader{refresh: func(ctx context.Context) (*domain.Corpus, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	s, _ := newTestServer(t, loader)
	t.Cleanup(s.jobs.Shutdown)

	rr := doRequest(s, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	id := decode[map[string]string](t, rr)["jobId"]
	<-started

	rr = doRequest(s, http.MethodPost, "/api/refresh", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(s, http.MethodPost, "/api/refresh/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	waitForJob(t, s, id, job.StatusCancelled)

	rr = doRequest(s, http.MethodPost, "/api/refresh/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefreshJobNotFound(t *testing.T) {
	s, _ := newTestServer(t, &fakeLoader{corpus: testCorpus()})

	rr := doRequest(s, http.MethodGet, "/api/refresh/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(s, http.MethodPost, "/api/refresh/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListRefreshJobs(t *testing.T) {
	s, _ := newTestServer(t, &fakeLoader{corpus: testCorpus()})
	t.Cleanup(s.jobs.Shutdown)

	rr := doRequest(s, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	waitForJob(t, s, decode[map[string]string](t, rr)["jobId"], job.StatusCompleted)

	rr = doRequest(s, http.MethodGet, "/api/refresh?page=1&pageSize=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[job.Response](t, rr)
	assert.Len(t, resp.Jobs, 1)
	assert.Equal(t, 1, resp.TotalJobs)
	assert.Equal(t, 5, resp.PageSize)
}
