package services

import (
	"context"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/model"
)

// DatasetOperator runs dataset operations synchronously
type DatasetOperator interface {
	Split(ctx context.Context, settings config.SplitSettings) (*model.PartitionSummary, error)
	Fold(ctx context.Context, settings config.FoldSettings) (*model.PartitionSummary, error)
	Transform(ctx context.Context, settings config.TransformSettings) (*model.TransformReport, error)
	Train(ctx context.Context, settings config.TrainSettings) (*model.TrainReport, error)
}

// AsyncDatasetOperator submits dataset operations as background jobs
type AsyncDatasetOperator interface {
	SplitAsync(settings config.SplitSettings) (string, error)         // Returns job ID
	FoldAsync(settings config.FoldSettings) (string, error)           // Returns job ID
	TransformAsync(settings config.TransformSettings) (string, error) // Returns job ID
	TrainAsync(settings config.TrainSettings) (string, error)         // Returns job ID
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(dataset string, status *model.JobStatus) []*model.Job
	CancelJob(jobID string) error
}

// Trainer fits a ranking model on a subset
type Trainer interface {
	Fit(ctx context.Context, subset model.Subset, hp model.Hyperparameters) (*model.TrainedModel, error)
}

// Evaluator computes ranking metrics for a trained model on a subset
type Evaluator interface {
	Evaluate(ctx context.Context, m *model.TrainedModel, subset model.Subset, truncationLevel int) (model.Metrics, error)
}
