package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/codec"
	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/internal/grouping"
	"github.com/gcbaptista/go-letor/internal/logging"
	"github.com/gcbaptista/go-letor/internal/trainer"
	"github.com/gcbaptista/go-letor/model"
	"github.com/gcbaptista/go-letor/store"
)

// Train fits a model on the train file through the external trainer and
// evaluates it on the validation and test files when they are given.
func (e *Engine) Train(ctx context.Context, settings config.TrainSettings) (*model.TrainReport, error) {
	return e.train(ctx, settings, e.logger.WithOperation(string(model.JobTypeTrain)), nil)
}

func (e *Engine) train(ctx context.Context, settings config.TrainSettings, logger *logging.Logger, progress progressFunc) (report *model.TrainReport, err error) {
	op := string(model.JobTypeTrain)
	start := time.Now()
	defer func() { e.observe(op, start, err) }()

	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	type input struct {
		name model.SubsetName
		path string
	}
	inputs := []input{{model.SubsetTrain, settings.Train}}
	if settings.Validation != "" {
		inputs = append(inputs, input{model.SubsetValidation, settings.Validation})
	}
	if settings.Test != "" {
		inputs = append(inputs, input{model.SubsetTest, settings.Test})
	}
	total := len(inputs) + 1

	var modelPath string
	if settings.ModelOutput != "" {
		if modelPath, err = e.resolver.LocalPath(settings.ModelOutput); err != nil {
			return nil, err
		}
	}

	subsets := make([]model.Subset, len(inputs))
	featureCount := 0
	for i, in := range inputs {
		progress.report(0, total, "reading "+string(in.name))
		src, err := e.resolver.Source(in.path)
		if err != nil {
			return nil, err
		}
		readStart := time.Now()
		ds, err := store.Load(ctx, src)
		if err != nil {
			logger.LogRead(ctx, src.Name(), 0, 0, time.Since(readStart), err)
			return nil, fmt.Errorf("load %s: %w", in.name, err)
		}
		if i == 0 {
			featureCount = ds.FeatureCount
		} else if ds.FeatureCount != featureCount {
			fe := errors.NewFormatError(strings.TrimSuffix(codec.Serialize(ds.Records[0]), "\n"), fmt.Sprintf("expected %d features, got %d", featureCount, ds.FeatureCount))
			return nil, fe.At(src.Name(), 0)
		}
		groups := grouping.GroupBy(ds.Records)
		logger.LogRead(ctx, src.Name(), ds.Len(), groups.Len(), time.Since(readStart), nil)
		e.metrics.AddRecordsRead(op, ds.Len())
		subsets[i] = model.Subset{Name: in.name, Groups: groups.All()}
	}

	fitter, evaluator := e.trainers(settings)

	progress.report(1, total, "fitting model")
	fitStart := time.Now()
	trained, err := fitter.Fit(ctx, subsets[0], model.Hyperparameters(settings.Hyperparameters))
	if err != nil {
		logger.Error("fit failed", "error", err)
		return nil, fmt.Errorf("fit: %w", err)
	}
	logger.Info("fit completed", "model_id", trained.ID, "elapsed", time.Since(fitStart))

	report = &model.TrainReport{Model: trained}
	for i, s := range subsets[1:] {
		progress.report(2+i, total, "evaluating "+string(s.Name))
		m, err := evaluator.Evaluate(ctx, trained, s, settings.TruncationLevel)
		if err != nil {
			logger.Error("evaluate failed", "subset", s.Name, "error", err)
			return nil, fmt.Errorf("evaluate %s: %w", s.Name, err)
		}
		logger.Info("evaluation completed", "subset", s.Name, "metrics", m)
		report.Evaluations = append(report.Evaluations, model.Evaluation{Subset: s.Name, Metrics: m})
	}

	if modelPath != "" {
		if err := trainer.SaveModel(modelPath, trained); err != nil {
			return nil, fmt.Errorf("save model: %w", err)
		}
		report.ModelPath = modelPath
		logger.Info("model saved", "path", modelPath)
	}

	progress.report(total, total, "done")
	return report, nil
}
