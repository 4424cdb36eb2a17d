package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/ux"
)

func newSplitCmd(a *app) *cobra.Command {
	var flags config.SplitSettings

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a dataset into train, test and validation files by query group",
		Example: `  letor split -i train.txt -o out --test-fraction 0.2 --validation-fraction 0.1 --seed 42
  zcat data.txt.gz | letor split -i - -o out --test-fraction 0.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.file.Split
			override(cmd, "input", &s.Input, flags.Input)
			override(cmd, "output-dir", &s.OutputDir, flags.OutputDir)
			override(cmd, "test-fraction", &s.TestFraction, flags.TestFraction)
			override(cmd, "validation-fraction", &s.ValidationFraction, flags.ValidationFraction)
			override(cmd, "seed", &s.Seed, flags.Seed)
			override(cmd, "where", &s.Where, flags.Where)
			override(cmd, "compression", &s.Compression, flags.Compression)
			s.ApplyDefaults()
			if err := s.Validate(); err != nil {
				return err
			}

			ux.Print(a.stdout, ux.Options("split", []ux.Option{
				{Name: "input", Value: s.Input},
				{Name: "output dir", Value: s.OutputDir},
				{Name: "test fraction", Value: s.TestFraction},
				{Name: "validation fraction", Value: s.ValidationFraction},
				{Name: "seed", Value: s.Seed},
				{Name: "where", Value: s.Where},
				{Name: "compression", Value: s.Compression},
			}))

			eng, err := a.newEngine("", 1, nil)
			if err != nil {
				return err
			}
			defer eng.Close()

			summary, err := eng.Split(cmd.Context(), s)
			if err != nil {
				return err
			}
			ux.Print(a.stdout, ux.Partition(summary))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.Input, "input", "i", "", `Input LETOR file, s3://bucket/key, or "-" for stdin`)
	f.StringVarP(&flags.OutputDir, "output-dir", "o", "", "Directory or s3://bucket/prefix receiving the subsets")
	f.Float64Var(&flags.TestFraction, "test-fraction", 0, "Probability that a group lands in the test subset")
	f.Float64Var(&flags.ValidationFraction, "validation-fraction", 0, "Probability that a group lands in the validation subset")
	f.Uint64Var(&flags.Seed, "seed", 0, "Random seed")
	f.StringVar(&flags.Where, "where", "", `Record filter, e.g. "label > 0 && qid != 7"`)
	f.StringVar(&flags.Compression, "compression", "", "Output compression: none, gzip, zstd or lz4")
	return cmd
}

func newFoldCmd(a *app) *cobra.Command {
	var flags config.FoldSettings

	cmd := &cobra.Command{
		Use:     "fold",
		Short:   "Write K train/test pairs for cross-validation by query group",
		Example: `  letor fold -i train.txt -o cv -k 5 --seed 7`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.file.Fold
			override(cmd, "input", &s.Input, flags.Input)
			override(cmd, "output-dir", &s.OutputDir, flags.OutputDir)
			override(cmd, "folds", &s.Folds, flags.Folds)
			override(cmd, "seed", &s.Seed, flags.Seed)
			override(cmd, "where", &s.Where, flags.Where)
			override(cmd, "compression", &s.Compression, flags.Compression)
			s.ApplyDefaults()
			if err := s.Validate(); err != nil {
				return err
			}

			ux.Print(a.stdout, ux.Options("fold", []ux.Option{
				{Name: "input", Value: s.Input},
				{Name: "output dir", Value: s.OutputDir},
				{Name: "folds", Value: s.Folds},
				{Name: "seed", Value: s.Seed},
				{Name: "where", Value: s.Where},
				{Name: "compression", Value: s.Compression},
			}))

			eng, err := a.newEngine("", 1, nil)
			if err != nil {
				return err
			}
			defer eng.Close()

			summary, err := eng.Fold(cmd.Context(), s)
			if err != nil {
				return err
			}
			ux.Print(a.stdout, ux.Partition(summary))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.Input, "input", "i", "", `Input LETOR file, s3://bucket/key, or "-" for stdin`)
	f.StringVarP(&flags.OutputDir, "output-dir", "o", "", "Directory or s3://bucket/prefix receiving fold1..foldK")
	f.IntVarP(&flags.Folds, "folds", "k", config.DefaultFolds, "Number of folds, greater than 1")
	f.Uint64Var(&flags.Seed, "seed", 0, "Random seed")
	f.StringVar(&flags.Where, "where", "", "Record filter")
	f.StringVar(&flags.Compression, "compression", "", "Output compression: none, gzip, zstd or lz4")
	return cmd
}

func newTransformCmd(a *app) *cobra.Command {
	var flags config.TransformSettings

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Convert a delimited file into the LETOR format",
		Example: `  letor transform -i clicks.csv -o clicks.txt --label-column relevance \
      --group-column query_id --feature-columns bm25,pagerank --description-columns doc_id`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.file.Transform
			override(cmd, "input", &s.Input, flags.Input)
			override(cmd, "output", &s.Output, flags.Output)
			override(cmd, "label-column", &s.LabelColumn, flags.LabelColumn)
			override(cmd, "group-column", &s.GroupColumn, flags.GroupColumn)
			override(cmd, "feature-columns", &s.FeatureColumns, flags.FeatureColumns)
			override(cmd, "description-columns", &s.DescriptionColumns, flags.DescriptionColumns)
			override(cmd, "delimiter", &s.Delimiter, flags.Delimiter)
			override(cmd, "no-header", &s.NoHeader, flags.NoHeader)
			override(cmd, "where", &s.Where, flags.Where)
			s.ApplyDefaults()
			if err := s.Validate(); err != nil {
				return err
			}

			ux.Print(a.stdout, ux.Options("transform", []ux.Option{
				{Name: "input", Value: s.Input},
				{Name: "output", Value: s.Output},
				{Name: "label", Value: s.LabelColumn},
				{Name: "group", Value: s.GroupColumn},
				{Name: "features", Value: s.FeatureColumns},
				{Name: "description", Value: s.DescriptionColumns},
				{Name: "delimiter", Value: strconv.Quote(s.Delimiter)},
				{Name: "header", Value: !s.NoHeader},
				{Name: "where", Value: s.Where},
			}))

			eng, err := a.newEngine("", 1, nil)
			if err != nil {
				return err
			}
			defer eng.Close()

			report, err := eng.Transform(cmd.Context(), s)
			if err != nil {
				return err
			}
			ux.Print(a.stdout, ux.Options("transform complete", []ux.Option{
				{Name: "output", Value: report.Output},
				{Name: "records", Value: report.Records},
				{Name: "groups", Value: report.Groups},
			}))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.Input, "input", "i", "", `Delimited input file, s3://bucket/key, or "-" for stdin`)
	f.StringVarP(&flags.Output, "output", "o", "", "Output LETOR file; .gz, .zst and .lz4 select compression")
	f.StringVar(&flags.LabelColumn, "label-column", "", "Column holding the relevance label")
	f.StringVar(&flags.GroupColumn, "group-column", "", "Column holding the query group ID")
	f.StringSliceVar(&flags.FeatureColumns, "feature-columns", nil, "Feature columns, in output order")
	f.StringSliceVar(&flags.DescriptionColumns, "description-columns", nil, "Columns joined into the trailing comment")
	f.StringVar(&flags.Delimiter, "delimiter", ",", "Field delimiter")
	f.BoolVar(&flags.NoHeader, "no-header", false, "Input has no header row; columns are 0-based indices")
	f.StringVar(&flags.Where, "where", "", "Record filter applied to converted records")
	return cmd
}

func newTrainCmd(a *app) *cobra.Command {
	var flags config.TrainSettings
	var hyperparameters map[string]string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a model through the training service and evaluate it",
		Example: `  letor train --train out/train.txt --validation out/validation.txt \
      --endpoint http://localhost:9000 --hyperparameter learning_rate=0.05 --model-output ranker.gob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.file.Train
			override(cmd, "train", &s.Train, flags.Train)
			override(cmd, "validation", &s.Validation, flags.Validation)
			override(cmd, "test", &s.Test, flags.Test)
			override(cmd, "endpoint", &s.Endpoint, flags.Endpoint)
			override(cmd, "truncation-level", &s.TruncationLevel, flags.TruncationLevel)
			override(cmd, "model-output", &s.ModelOutput, flags.ModelOutput)
			override(cmd, "timeout", &s.Timeout, flags.Timeout)
			s.ApplyDefaults()
			for k, v := range hyperparameters {
				s.Hyperparameters[k] = parseHyperparameter(v)
			}
			if err := s.Validate(); err != nil {
				return err
			}

			ux.Print(a.stdout, ux.Options("train", []ux.Option{
				{Name: "train", Value: s.Train},
				{Name: "validation", Value: s.Validation},
				{Name: "test", Value: s.Test},
				{Name: "endpoint", Value: s.Endpoint},
				{Name: "truncation level", Value: s.TruncationLevel},
				{Name: "hyperparameters", Value: fmt.Sprint(s.Hyperparameters)},
				{Name: "model output", Value: s.ModelOutput},
			}))

			eng, err := a.newEngine("", 1, nil)
			if err != nil {
				return err
			}
			defer eng.Close()

			report, err := eng.Train(cmd.Context(), s)
			if err != nil {
				return err
			}

			opts := []ux.Option{
				{Name: "model", Value: report.Model.ID},
				{Name: "saved to", Value: report.ModelPath},
			}
			for _, ev := range report.Evaluations {
				opts = append(opts, ux.Option{Name: string(ev.Subset), Value: formatMetrics(ev.Metrics)})
			}
			ux.Print(a.stdout, ux.Options("train complete", opts))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.Train, "train", "", "Training LETOR file")
	f.StringVar(&flags.Validation, "validation", "", "Optional validation LETOR file")
	f.StringVar(&flags.Test, "test", "", "Optional test LETOR file")
	f.StringVar(&flags.Endpoint, "endpoint", "", "Base URL of the training service")
	f.IntVar(&flags.TruncationLevel, "truncation-level", 10, "Rank cut-off for gain metrics")
	f.StringVar(&flags.ModelOutput, "model-output", "", "Local path receiving the trained model")
	f.DurationVar(&flags.Timeout, "timeout", 10*time.Minute, "Timeout of each call to the training service")
	f.StringToStringVar(&hyperparameters, "hyperparameter", nil, "Hyperparameter passed to the trainer, as key=value (repeatable)")
	return cmd
}

// parseHyperparameter keeps numbers and booleans typed.
func parseHyperparameter(v string) any {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func formatMetrics(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.4f", k, m[k])
	}
	return strings.Join(parts, " ")
}
