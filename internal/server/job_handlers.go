package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/mkw-records/internal/job"
)

// startRefresh godoc
// @Summary Rebuild the record corpus in the background
// @Tags Jobs
// @Produce json
// @Success 202 {object} MessageResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/refresh [post]
func (s *Server) startRefresh(c *gin.Context) {
	status, err := s.jobs.Start(func(ctx context.Context) (int, error) {
		corpus, err := s.corpus.Refresh(ctx)
		if corpus == nil {
			return 0, err
		}
		return len(corpus.Tracks), err
	})
	if err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Refresh started",
		"jobId":   status.ID,
	})
}

// getRefreshJob godoc
// @Summary Get refresh job status
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} job.Status
// @Failure 404 {object} ErrorResponse
// @Router /api/refresh/{id} [get]
func (s *Server) getRefreshJob(c *gin.Context) {
	status, err := s.jobs.GetJob(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// cancelRefreshJob godoc
// @Summary Cancel a refresh job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/refresh/{id}/cancel [post]
func (s *Server) cancelRefreshJob(c *gin.Context) {
	jobID := c.Param("id")

	if err := s.jobs.CancelJob(jobID); err != nil {
		switch {
		case errors.Is(err, job.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, job.ErrInvalidState):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%v: %s", err, jobID)})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Job cancelled"})
}

// listRefreshJobs godoc
// @Summary List refresh jobs
// @Tags Jobs
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} job.Response
// @Router /api/refresh [get]
func (s *Server) listRefreshJobs(c *gin.Context) {
	page := 1
	pageSize := job.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= job.MaxPageSize {
			pageSize = parsed
		}
	}

	c.JSON(http.StatusOK, s.jobs.ListJobs(page, pageSize))
}
