package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-letor/internal/engine"
	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/services"
)

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")

	jobManager, ok := api.engine.(services.JobManager)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Job management not supported by this engine"})
		return
	}

	job, err := jobManager.GetJob(jobID)
	if err != nil {
		SendJobNotFoundError(c, jobID)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler lists jobs. The dataset and status query parameters
// narrow the result.
func (api *API) ListJobsHandler(c *gin.Context) {
	dataset := c.Query("dataset")
	statusFilter, err := ParseJobStatus(c.Query("status"))
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error())
		return
	}

	jobManager, ok := api.engine.(services.JobManager)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Job management not supported by this engine"})
		return
	}

	jobs := jobManager.ListJobs(dataset, statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":    jobs,
		"dataset": dataset,
		"total":   len(jobs),
	})
}

// CancelJobHandler requests cancellation of a pending or running job
func (api *API) CancelJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")

	jobManager, ok := api.engine.(services.JobManager)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Job management not supported by this engine"})
		return
	}

	if err := jobManager.CancelJob(jobID); err != nil {
		if stderrors.Is(err, errors.ErrJobNotFound) {
			SendJobNotFoundError(c, jobID)
			return
		}
		SendError(c, http.StatusConflict, ErrorCodeJobFinished, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Cancellation requested for job '" + jobID + "'",
		"job_id":  jobID,
	})
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	engineWithMetrics, ok := api.engine.(*engine.Engine)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Job metrics not supported by this engine"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics":          engineWithMetrics.GetJobMetrics(),
		"success_rate":     engineWithMetrics.GetJobSuccessRate(),
		"current_workload": engineWithMetrics.GetCurrentWorkload(),
	})
}
