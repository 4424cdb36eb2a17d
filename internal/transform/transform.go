// Package transform converts delimited text (CSV, TSV) into LETOR records.
package transform

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/codec"
	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/internal/filter"
	"github.com/gcbaptista/go-letor/model"
)

// Transformer maps CSV columns onto record fields.
type Transformer struct {
	settings config.TransformSettings
	where    *filter.Filter
}

// Stats reports what a transform produced.
type Stats struct {
	Records int `json:"records"`
	Groups  int `json:"groups"`
}

// New creates a Transformer. settings must already be validated; where
// may be nil.
func New(settings config.TransformSettings, where *filter.Filter) *Transformer {
	settings.ApplyDefaults()
	return &Transformer{settings: settings, where: where}
}

// columns holds resolved 0-based column positions.
type columns struct {
	label       int
	group       int
	features    []int
	description []int
}

func (c columns) max() int {
	m := max(c.label, c.group)
	for _, i := range c.features {
		m = max(m, i)
	}
	for _, i := range c.description {
		m = max(m, i)
	}
	return m
}

func (t *Transformer) resolve(header []string) (columns, error) {
	lookup := func(field, ref string) (int, error) {
		if t.settings.NoHeader {
			i, err := strconv.Atoi(ref)
			if err != nil || i < 0 {
				return 0, errors.NewConfigurationError(field, ref, "must be a 0-based column index when there is no header")
			}
			return i, nil
		}
		for i, name := range header {
			if strings.TrimSpace(name) == ref {
				return i, nil
			}
		}
		return 0, errors.NewConfigurationError(field, ref, "column not found in header")
	}

	var cols columns
	var err error
	if cols.label, err = lookup("label_column", t.settings.LabelColumn); err != nil {
		return cols, err
	}
	if cols.group, err = lookup("group_column", t.settings.GroupColumn); err != nil {
		return cols, err
	}
	for _, ref := range t.settings.FeatureColumns {
		i, err := lookup("feature_columns", ref)
		if err != nil {
			return cols, err
		}
		cols.features = append(cols.features, i)
	}
	for _, ref := range t.settings.DescriptionColumns {
		i, err := lookup("description_columns", ref)
		if err != nil {
			return cols, err
		}
		cols.description = append(cols.description, i)
	}
	return cols, nil
}

// Records lazily converts rows from r. source annotates errors. Iteration
// stops after yielding the first error.
func (t *Transformer) Records(ctx context.Context, r io.Reader, source string) iter.Seq2[model.Record, error] {
	seq := func(yield func(model.Record, error) bool) {
		reader := csv.NewReader(r)
		reader.Comma = []rune(t.settings.Delimiter)[0]
		reader.ReuseRecord = true
		reader.TrimLeadingSpace = true

		var header []string
		if !t.settings.NoHeader {
			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(model.Record{}, csvError(err, source))
				return
			}
			header = append([]string(nil), row...)
		}

		cols, err := t.resolve(header)
		if err != nil {
			yield(model.Record{}, err)
			return
		}

		for {
			if err := ctx.Err(); err != nil {
				yield(model.Record{}, err)
				return
			}
			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(model.Record{}, csvError(err, source))
				return
			}
			line, _ := reader.FieldPos(0)

			rec, err := convert(row, cols, t.settings.Delimiter)
			if err != nil {
				var fe *errors.FormatError
				if stderrors.As(err, &fe) {
					err = fe.At(source, line)
				}
				yield(model.Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
	return t.where.Seq(seq)
}

// Transform converts every row of r and writes LETOR lines to w.
func (t *Transformer) Transform(ctx context.Context, r io.Reader, source string, w io.Writer) (Stats, error) {
	var stats Stats
	out := codec.NewWriter(w)
	seen := make(map[uint64]struct{})

	for rec, err := range t.Records(ctx, r, source) {
		if err != nil {
			return stats, err
		}
		if err := out.Write(rec); err != nil {
			return stats, fmt.Errorf("write record: %w", err)
		}
		seen[rec.GroupID] = struct{}{}
	}
	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("flush output: %w", err)
	}

	stats.Records = out.Count()
	stats.Groups = len(seen)
	if stats.Records == 0 {
		return stats, errors.NewEmptyInputError(source)
	}
	return stats, nil
}

func convert(row []string, cols columns, delimiter string) (model.Record, error) {
	if len(row) <= cols.max() {
		return model.Record{}, errors.NewFormatError(strings.Join(row, delimiter),
			fmt.Sprintf("row has %d columns, need at least %d", len(row), cols.max()+1))
	}

	label, err := strconv.ParseUint(strings.TrimSpace(row[cols.label]), 10, 64)
	if err != nil {
		return model.Record{}, errors.NewFormatError(strings.Join(row, delimiter), "label is not an unsigned integer")
	}
	group, err := strconv.ParseUint(strings.TrimSpace(row[cols.group]), 10, 64)
	if err != nil {
		return model.Record{}, errors.NewFormatError(strings.Join(row, delimiter), "group id is not an unsigned integer")
	}

	features := make([]float64, len(cols.features))
	for j, i := range cols.features {
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return model.Record{}, errors.NewFormatError(strings.Join(row, delimiter),
				fmt.Sprintf("feature %d is not a number", j+1))
		}
		features[j] = v
	}

	var parts []string
	for _, i := range cols.description {
		if cell := strings.TrimSpace(row[i]); cell != "" {
			parts = append(parts, cell)
		}
	}

	return model.Record{
		Label:       label,
		GroupID:     group,
		Features:    features,
		Description: strings.Join(parts, " "),
	}, nil
}

func csvError(err error, source string) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return errors.NewFormatError("", pe.Err.Error()).At(source, pe.Line)
	}
	return fmt.Errorf("read %s: %w", source, err)
}
