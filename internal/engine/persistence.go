package engine

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/codec"
	"github.com/gcbaptista/go-letor/internal/logging"
	"github.com/gcbaptista/go-letor/model"
	"github.com/gcbaptista/go-letor/store"
)

const (
	summaryFile = "summary.json"

	// maxConcurrentWrites bounds open outputs while writing folds.
	maxConcurrentWrites = 4
)

// pendingSubset is a subset waiting to be written under name.
type pendingSubset struct {
	name   string
	subset model.Subset
	fold   *int
}

// writePartition writes every subset and the summary. Outputs are
// committed only after all of them were written; on any failure or
// cancellation every output is discarded.
func (e *Engine) writePartition(ctx context.Context, logger *logging.Logger, op, outputDir, compression string, subsets []pendingSubset, summary *model.PartitionSummary) error {
	sink, err := e.resolver.Sink(outputDir, compression)
	if err != nil {
		return err
	}
	summarySink, err := e.resolver.Sink(outputDir, config.CompressionNone)
	if err != nil {
		return err
	}

	outputs := make([]store.Output, len(subsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWrites)
	for i, p := range subsets {
		g.Go(func() error {
			out, err := sink.Create(gctx, p.name)
			if err != nil {
				return err
			}
			outputs[i] = out
			if err := writeSubset(gctx, out, p.subset); err != nil {
				logger.LogWrite(gctx, out.Location(), 0, err)
				return fmt.Errorf("write %s: %w", out.Location(), err)
			}
			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		abortAll(outputs)
		return err
	}

	for i, p := range subsets {
		summary.Subsets = append(summary.Subsets, model.SubsetSummary{
			Name:        p.subset.Name,
			Fold:        p.fold,
			Path:        outputs[i].Location(),
			GroupCount:  len(p.subset.Groups),
			RecordCount: p.subset.RecordCount(),
		})
	}

	summaryOut, err := summarySink.Create(ctx, summaryFile)
	if err != nil {
		abortAll(outputs)
		return err
	}
	outputs = append(outputs, summaryOut)

	enc := json.NewEncoder(summaryOut)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		abortAll(outputs)
		return fmt.Errorf("encode summary: %w", err)
	}

	if err := commitAll(outputs); err != nil {
		return err
	}

	for i, p := range subsets {
		logger.LogWrite(ctx, outputs[i].Location(), p.subset.RecordCount(), nil)
		e.metrics.AddSubset(op, string(p.subset.Name), len(p.subset.Groups), p.subset.RecordCount())
	}
	return nil
}

func writeSubset(ctx context.Context, out store.Output, subset model.Subset) error {
	w := codec.NewWriter(out)
	for _, g := range subset.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.WriteAll(g.Records); err != nil {
			return err
		}
	}
	return w.Flush()
}

// commitAll closes outputs in order. After the first failure every output
// is aborted, which removes the ones already committed.
func commitAll(outputs []store.Output) error {
	for _, out := range outputs {
		if err := out.Close(); err != nil {
			abortAll(outputs)
			return fmt.Errorf("commit %s: %w", out.Location(), err)
		}
	}
	return nil
}

func abortAll(outputs []store.Output) {
	for _, out := range outputs {
		if out != nil {
			_ = out.Abort()
		}
	}
}

func ctxErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
