package engine

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/logging"
	"github.com/gcbaptista/go-letor/internal/partition"
	"github.com/gcbaptista/go-letor/model"
)

// Split reads settings.Input, splits it by group and writes train, test
// and validation files below settings.OutputDir.
func (e *Engine) Split(ctx context.Context, settings config.SplitSettings) (*model.PartitionSummary, error) {
	return e.split(ctx, settings, e.logger.WithOperation(string(model.JobTypeSplit)), nil)
}

func (e *Engine) split(ctx context.Context, settings config.SplitSettings, logger *logging.Logger, progress progressFunc) (summary *model.PartitionSummary, err error) {
	op := string(model.JobTypeSplit)
	start := time.Now()
	defer func() { e.observe(op, start, err) }()

	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	progress.report(0, 3, "reading input")
	in, err := e.load(ctx, logger, op, settings.Input, settings.Where)
	if err != nil {
		return nil, err
	}

	progress.report(1, 3, "assigning groups")
	opts := partition.SplitOptions{
		TestFraction:       settings.TestFraction,
		ValidationFraction: settings.ValidationFraction,
		Seed:               settings.Seed,
	}
	result, err := partition.SplitGroups(ctx, in.groups, opts, partition.NewRand(settings.Seed))
	if err != nil {
		logger.LogPartition(ctx, nil, settings.Seed, err)
		return nil, err
	}

	counts := make(map[string]int)
	var outputs []pendingSubset
	for _, s := range result.Subsets() {
		counts[string(s.Name)] = len(s.Groups)
		outputs = append(outputs, pendingSubset{name: string(s.Name) + ".txt", subset: s})
	}
	logger.LogPartition(ctx, counts, settings.Seed, nil)

	progress.report(2, 3, "writing subsets")
	summary = &model.PartitionSummary{
		Operation:    op,
		Source:       in.source,
		Seed:         settings.Seed,
		FeatureCount: in.featureCount,
		GroupCount:   in.groups.Len(),
		RecordCount:  in.records,
	}
	if err := e.writePartition(ctx, logger, op, settings.OutputDir, settings.Compression, outputs, summary); err != nil {
		return nil, err
	}

	progress.report(3, 3, "done")
	return summary, nil
}

// Fold reads settings.Input and writes k train/test pairs, one directory
// per fold, below settings.OutputDir.
func (e *Engine) Fold(ctx context.Context, settings config.FoldSettings) (*model.PartitionSummary, error) {
	return e.fold(ctx, settings, e.logger.WithOperation(string(model.JobTypeFold)), nil)
}

func (e *Engine) fold(ctx context.Context, settings config.FoldSettings, logger *logging.Logger, progress progressFunc) (summary *model.PartitionSummary, err error) {
	op := string(model.JobTypeFold)
	start := time.Now()
	defer func() { e.observe(op, start, err) }()

	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	progress.report(0, 3, "reading input")
	in, err := e.load(ctx, logger, op, settings.Input, settings.Where)
	if err != nil {
		return nil, err
	}
	if settings.Folds > in.groups.Len() {
		logger.Warn("more folds than groups, some test folds will be empty",
			"folds", settings.Folds,
			"groups", in.groups.Len(),
		)
	}

	progress.report(1, 3, "assigning groups")
	opts := partition.FoldOptions{Folds: settings.Folds, Seed: settings.Seed}
	folds, err := partition.FoldGroups(ctx, in.groups, opts, partition.NewRand(settings.Seed))
	if err != nil {
		logger.LogPartition(ctx, nil, settings.Seed, err)
		return nil, err
	}

	counts := make(map[string]int)
	var outputs []pendingSubset
	for _, f := range folds {
		dir := fmt.Sprintf("fold%d", f.Index+1)
		counts[dir+"_test"] = len(f.Test.Groups)
		foldNumber := f.Index + 1
		outputs = append(outputs,
			pendingSubset{name: path.Join(dir, "train.txt"), subset: f.Train, fold: &foldNumber},
			pendingSubset{name: path.Join(dir, "test.txt"), subset: f.Test, fold: &foldNumber},
		)
	}
	logger.LogPartition(ctx, counts, settings.Seed, nil)

	progress.report(2, 3, "writing folds")
	summary = &model.PartitionSummary{
		Operation:    op,
		Source:       in.source,
		Seed:         settings.Seed,
		FeatureCount: in.featureCount,
		GroupCount:   in.groups.Len(),
		RecordCount:  in.records,
	}
	if err := e.writePartition(ctx, logger, op, settings.OutputDir, settings.Compression, outputs, summary); err != nil {
		return nil, err
	}

	progress.report(3, 3, "done")
	return summary, nil
}
