package jobs

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/internal/logging"
	"github.com/gcbaptista/go-letor/model"
)

// Manager handles background job execution and tracking
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*model.Job
	cancels  map[string]context.CancelFunc
	workers  chan struct{} // Limits concurrent jobs
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	metrics  *JobMetrics
	logger   *logging.Logger
}

// NewManager creates a new job manager with specified worker count
func NewManager(maxWorkers int, logger *logging.Logger) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = logging.Noop()
	}
	return &Manager{
		jobs:     make(map[string]*model.Job),
		cancels:  make(map[string]context.CancelFunc),
		workers:  make(chan struct{}, maxWorkers),
		stopChan: make(chan struct{}),
		metrics:  NewJobMetrics(),
		logger:   logger,
	}
}

// Start begins the job manager and starts background cleanup
func (m *Manager) Start() {
	m.logger.Info("job manager started", "max_workers", cap(m.workers))
	go m.cleanupRoutine()
}

// Stop cancels running jobs and waits for them to finish
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.mu.Lock()
		for _, cancel := range m.cancels {
			cancel()
		}
		m.mu.Unlock()
		m.wg.Wait()
		m.logger.Info("job manager stopped")
	})
}

// CreateJob creates a new job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, dataset string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		Dataset:   dataset,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.metrics.RecordJobCreated(jobType)
	m.logger.Info("job created", "job_id", job.ID, "type", job.Type, "dataset", job.Dataset)
	return job.ID
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns jobs for a dataset, or all jobs when dataset is empty,
// optionally filtered by status. Newest jobs come first.
func (m *Manager) ListJobs(dataset string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*model.Job{}
	for _, job := range m.jobs {
		if dataset != "" && job.Dataset != dataset {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		result = append(result, copyJob(job))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// copyJob returns a copy so callers never race with status updates
func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	return &jobCopy
}

// ExecuteJob runs a job function in a goroutine with proper tracking.
// The job stays pending until a worker slot is free.
func (m *Manager) ExecuteJob(jobID string, jobFunc func(ctx context.Context, job *model.Job) error) error {
	select {
	case <-m.stopChan:
		return fmt.Errorf("job manager is shutting down")
	default:
	}

	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return errors.NewJobNotFoundError(jobID)
	}
	if job.Status != model.JobStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}
	if _, running := m.cancels[jobID]; running {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is already scheduled", jobID)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancels[jobID] = cancel
	jobSnapshot := copyJob(job)
	m.wg.Add(1)
	m.mu.Unlock()

	logger := m.logger.WithJob(jobID)

	go func() {
		defer func() {
			cancel()
			m.mu.Lock()
			delete(m.cancels, jobID)
			m.mu.Unlock()
			m.wg.Done()
		}()

		// Acquire worker slot
		select {
		case m.workers <- struct{}{}:
		case <-ctx.Done():
			m.updateJobStatus(jobID, model.JobStatusCancelled, "job cancelled before it started")
			return
		}
		defer func() { <-m.workers }()

		m.updateJobStatus(jobID, model.JobStatusRunning, "")
		startTime := time.Now()

		err := jobFunc(ctx, jobSnapshot)
		executionTime := time.Since(startTime)

		switch {
		case err != nil && stderrors.Is(err, context.Canceled):
			m.updateJobStatus(jobID, model.JobStatusCancelled, err.Error())
			logger.Warn("job cancelled", "elapsed", executionTime)
		case err != nil:
			m.metrics.RecordJobFailed(jobSnapshot.Type)
			m.updateJobStatus(jobID, model.JobStatusFailed, err.Error())
			logger.Error("job failed", "elapsed", executionTime, "error", err)
		default:
			m.metrics.RecordJobCompleted(jobSnapshot.Type, executionTime)
			m.updateJobStatus(jobID, model.JobStatusCompleted, "")
			logger.Info("job completed", "elapsed", executionTime)
		}
	}()

	return nil
}

// CancelJob requests cancellation of a pending or running job
func (m *Manager) CancelJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return errors.NewJobNotFoundError(jobID)
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job with ID '%s' already finished (status: %s)", jobID, job.Status)
	}

	cancel, scheduled := m.cancels[jobID]
	if !scheduled {
		// Never handed to ExecuteJob, so nothing will pick it up.
		m.setStatusLocked(job, model.JobStatusCancelled, "job cancelled")
		return nil
	}
	m.setStatusLocked(job, model.JobStatusCancelling, "")
	cancel()
	return nil
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}

	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}

	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

// SetResult attaches the operation summary to a job
func (m *Manager) SetResult(jobID string, result any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists {
		job.Result = result
	}
}

// updateJobStatus updates the status of a job (internal method)
func (m *Manager) updateJobStatus(jobID string, status model.JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	// A cancel request wins over a late transition to running.
	if status == model.JobStatusRunning && job.Status == model.JobStatusCancelling {
		return
	}
	m.setStatusLocked(job, status, errorMsg)
}

func (m *Manager) setStatusLocked(job *model.Job, status model.JobStatus, errorMsg string) {
	oldStatus := job.Status
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	now := time.Now()
	if status == model.JobStatusRunning && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if status.IsTerminal() {
		job.CompletedAt = &now
	}

	m.metrics.RecordJobStatusChange(oldStatus, status)
}

// cleanupRoutine runs periodic job cleanup
func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(1 * time.Hour) // Cleanup every hour
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Clean up completed jobs older than 24 hours
			m.CleanupOldJobs(24 * time.Hour)
		case <-m.stopChan:
			return
		}
	}
}

// CleanupOldJobs removes completed jobs older than the specified duration
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0

	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.logger.Info("cleaned up old jobs", "count", cleaned)
	}
	return cleaned
}

// GetMetrics returns current job performance metrics
func (m *Manager) GetMetrics() JobMetricsData {
	return m.metrics.GetMetrics()
}

// GetJobSuccessRate returns the overall job success rate
func (m *Manager) GetJobSuccessRate() float64 {
	return m.metrics.GetSuccessRate()
}

// GetCurrentWorkload returns the number of currently active jobs
func (m *Manager) GetCurrentWorkload() int64 {
	return m.metrics.GetCurrentWorkload()
}
