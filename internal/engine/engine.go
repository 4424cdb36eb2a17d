package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/filter"
	"github.com/gcbaptista/go-letor/internal/grouping"
	"github.com/gcbaptista/go-letor/internal/jobs"
	"github.com/gcbaptista/go-letor/internal/logging"
	"github.com/gcbaptista/go-letor/internal/metrics"
	"github.com/gcbaptista/go-letor/internal/trainer"
	"github.com/gcbaptista/go-letor/model"
	"github.com/gcbaptista/go-letor/services"
	"github.com/gcbaptista/go-letor/store"
)

// TrainerFactory builds the trainer and evaluator used by Train.
type TrainerFactory func(settings config.TrainSettings) (services.Trainer, services.Evaluator)

// Options configures an Engine. Zero values are usable: no object store,
// no metrics, and a logger that discards output.
type Options struct {
	Resolver   *store.Resolver
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
	MaxWorkers int
	Trainers   TrainerFactory
}

// Engine runs dataset operations synchronously or as background jobs.
// It implements services.DatasetOperator, services.AsyncDatasetOperator
// and services.JobManager.
type Engine struct {
	resolver   *store.Resolver
	logger     *logging.Logger
	metrics    *metrics.Metrics
	jobManager *jobs.Manager
	trainers   TrainerFactory
}

// New creates an Engine and starts its job manager.
func New(opts Options) *Engine {
	if opts.Resolver == nil {
		opts.Resolver = &store.Resolver{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.MaxWorkers == 0 {
		opts.MaxWorkers = 4
	}
	if opts.Trainers == nil {
		opts.Trainers = func(s config.TrainSettings) (services.Trainer, services.Evaluator) {
			c := trainer.NewClient(s.Endpoint, s.Timeout)
			return c, c
		}
	}

	e := &Engine{
		resolver:   opts.Resolver,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		jobManager: jobs.NewManager(opts.MaxWorkers, opts.Logger),
		trainers:   opts.Trainers,
	}
	e.jobManager.Start()
	return e
}

// Close cancels running jobs and waits for them.
func (e *Engine) Close() {
	e.jobManager.Stop()
}

// GetJob retrieves a job by ID.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs lists jobs, optionally restricted to a dataset and a status.
func (e *Engine) ListJobs(dataset string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(dataset, status)
}

// CancelJob requests cancellation of a job.
func (e *Engine) CancelJob(jobID string) error {
	return e.jobManager.CancelJob(jobID)
}

// GetJobMetrics returns job counters.
func (e *Engine) GetJobMetrics() jobs.JobMetricsData {
	return e.jobManager.GetMetrics()
}

// GetJobSuccessRate returns the share of finished jobs that completed.
func (e *Engine) GetJobSuccessRate() float64 {
	return e.jobManager.GetJobSuccessRate()
}

// GetCurrentWorkload returns the number of jobs not yet finished.
func (e *Engine) GetCurrentWorkload() int64 {
	return e.jobManager.GetCurrentWorkload()
}

// progressFunc receives step updates; nil discards them.
type progressFunc func(current, total int, message string)

func (p progressFunc) report(current, total int, message string) {
	if p != nil {
		p(current, total, message)
	}
}

// loaded is a grouped input ready for partitioning.
type loaded struct {
	source       string
	featureCount int
	records      int
	groups       *grouping.Groups
}

// load reads input, applies the optional where expression, enforces a
// consistent feature count and groups the records in first-seen order.
func (e *Engine) load(ctx context.Context, logger *logging.Logger, op, input, where string) (*loaded, error) {
	start := time.Now()

	predicate, err := filter.Compile(where)
	if err != nil {
		return nil, err
	}
	src, err := e.resolver.Source(input)
	if err != nil {
		return nil, err
	}

	read := 0
	seq := store.Records(ctx, src)
	counted := func(yield func(model.Record, error) bool) {
		for r, err := range seq {
			if err == nil {
				read++
			}
			if !yield(r, err) {
				return
			}
		}
	}

	ds, err := store.Collect(src.Name(), predicate.Seq(counted))
	if err != nil {
		logger.LogRead(ctx, src.Name(), 0, 0, time.Since(start), err)
		return nil, fmt.Errorf("load %s: %w", src.Name(), err)
	}
	e.metrics.AddRecordsRead(op, read)
	e.metrics.AddRecordsFiltered(op, read-ds.Len())

	groups := grouping.GroupBy(ds.Records)
	logger.LogRead(ctx, src.Name(), ds.Len(), groups.Len(), time.Since(start), nil)
	if predicate != nil {
		logger.Debug("where expression applied", "where", predicate.String(), "kept", ds.Len(), "dropped", read-ds.Len())
	}

	return &loaded{
		source:       src.Name(),
		featureCount: ds.FeatureCount,
		records:      ds.Len(),
		groups:       groups,
	}, nil
}

// observe records the outcome of an operation.
func (e *Engine) observe(op string, start time.Time, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case ctxErr(err):
		result = metrics.ResultCanceled
	default:
		result = metrics.ResultError
	}
	e.metrics.ObserveOperation(op, result, time.Since(start))
}
