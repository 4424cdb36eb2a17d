package engine

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/filter"
	"github.com/gcbaptista/go-letor/internal/logging"
	"github.com/gcbaptista/go-letor/internal/persistence"
	"github.com/gcbaptista/go-letor/internal/transform"
	"github.com/gcbaptista/go-letor/model"
	"github.com/gcbaptista/go-letor/store"
)

// Transform converts a delimited file into a LETOR file.
func (e *Engine) Transform(ctx context.Context, settings config.TransformSettings) (*model.TransformReport, error) {
	return e.transform(ctx, settings, e.logger.WithOperation(string(model.JobTypeTransform)), nil)
}

func (e *Engine) transform(ctx context.Context, settings config.TransformSettings, logger *logging.Logger, progress progressFunc) (report *model.TransformReport, err error) {
	op := string(model.JobTypeTransform)
	start := time.Now()
	defer func() { e.observe(op, start, err) }()

	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	predicate, err := filter.Compile(settings.Where)
	if err != nil {
		return nil, err
	}

	src, err := e.resolver.Source(settings.Input)
	if err != nil {
		return nil, err
	}
	progress.report(0, 2, "converting rows")

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	out, err := e.createFile(ctx, settings.Output)
	if err != nil {
		return nil, err
	}

	stats, err := transform.New(settings, predicate).Transform(ctx, rc, src.Name(), out)
	if err != nil {
		_ = out.Abort()
		logger.LogWrite(ctx, out.Location(), 0, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		_ = out.Abort()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", out.Location(), err)
	}

	logger.LogWrite(ctx, out.Location(), stats.Records, nil)
	e.metrics.AddRecordsRead(op, stats.Records)
	progress.report(2, 2, "done")

	return &model.TransformReport{
		Source:  src.Name(),
		Output:  out.Location(),
		Records: stats.Records,
		Groups:  stats.Groups,
	}, nil
}

// createFile opens a single output file. Compression follows the file
// extension, which is normalized to the canonical one.
func (e *Engine) createFile(ctx context.Context, location string) (store.Output, error) {
	compression := persistence.CompressionFromPath(location)

	var dir, base string
	if bucket, key, ok := store.ParseObjectLocation(location); ok {
		dir, base = "s3://"+bucket+"/"+path.Dir(key), path.Base(key)
	} else {
		dir, base = filepath.Dir(location), filepath.Base(location)
	}
	if compression != config.CompressionNone {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}

	sink, err := e.resolver.Sink(dir, compression)
	if err != nil {
		return nil, err
	}
	return sink.Create(ctx, base)
}
