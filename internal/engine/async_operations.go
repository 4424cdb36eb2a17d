package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/filter"
	"github.com/gcbaptista/go-letor/model"
)

// SplitAsync validates settings and runs the split as a background job.
func (e *Engine) SplitAsync(settings config.SplitSettings) (string, error) {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return "", err
	}
	if _, err := filter.Compile(settings.Where); err != nil {
		return "", err
	}

	return e.startJob(model.JobTypeSplit, settings.Input, map[string]string{
		"operation":           "split",
		"output_dir":          settings.OutputDir,
		"test_fraction":       strconv.FormatFloat(settings.TestFraction, 'g', -1, 64),
		"validation_fraction": strconv.FormatFloat(settings.ValidationFraction, 'g', -1, 64),
		"seed":                strconv.FormatUint(settings.Seed, 10),
	}, func(ctx context.Context, job *model.Job) (any, error) {
		return e.split(ctx, settings, e.logger.WithOperation(op(job)).WithJob(job.ID), e.progress(job.ID))
	})
}

// FoldAsync validates settings and runs the fold as a background job.
func (e *Engine) FoldAsync(settings config.FoldSettings) (string, error) {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return "", err
	}
	if _, err := filter.Compile(settings.Where); err != nil {
		return "", err
	}

	return e.startJob(model.JobTypeFold, settings.Input, map[string]string{
		"operation":  "fold",
		"output_dir": settings.OutputDir,
		"folds":      strconv.Itoa(settings.Folds),
		"seed":       strconv.FormatUint(settings.Seed, 10),
	}, func(ctx context.Context, job *model.Job) (any, error) {
		return e.fold(ctx, settings, e.logger.WithOperation(op(job)).WithJob(job.ID), e.progress(job.ID))
	})
}

// TransformAsync validates settings and runs the conversion as a background job.
func (e *Engine) TransformAsync(settings config.TransformSettings) (string, error) {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return "", err
	}
	if _, err := filter.Compile(settings.Where); err != nil {
		return "", err
	}

	return e.startJob(model.JobTypeTransform, settings.Input, map[string]string{
		"operation": "transform",
		"output":    settings.Output,
	}, func(ctx context.Context, job *model.Job) (any, error) {
		return e.transform(ctx, settings, e.logger.WithOperation(op(job)).WithJob(job.ID), e.progress(job.ID))
	})
}

// TrainAsync validates settings and runs fit and evaluation as a background job.
func (e *Engine) TrainAsync(settings config.TrainSettings) (string, error) {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return "", err
	}

	return e.startJob(model.JobTypeTrain, settings.Train, map[string]string{
		"operation": "train",
		"endpoint":  settings.Endpoint,
	}, func(ctx context.Context, job *model.Job) (any, error) {
		return e.train(ctx, settings, e.logger.WithOperation(op(job)).WithJob(job.ID), e.progress(job.ID))
	})
}

// startJob registers a job and schedules run. A non-nil result is stored
// on the job once run succeeds.
func (e *Engine) startJob(jobType model.JobType, dataset string, metadata map[string]string, run func(ctx context.Context, job *model.Job) (any, error)) (string, error) {
	jobID := e.jobManager.CreateJob(jobType, dataset, metadata)

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		result, err := run(ctx, job)
		if err != nil {
			return err
		}
		e.jobManager.SetResult(job.ID, result)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start %s job: %w", jobType, err)
	}

	return jobID, nil
}

func (e *Engine) progress(jobID string) progressFunc {
	return func(current, total int, message string) {
		e.jobManager.UpdateJobProgress(jobID, current, total, message)
	}
}

func op(job *model.Job) string {
	return string(job.Type)
}
