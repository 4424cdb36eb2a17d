package filter

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-letor/internal/errors"
	testutil "github.com/gcbaptista/go-letor/internal/testing"
	"github.com/gcbaptista/go-letor/model"
)

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "syntax error", expr: "label >"},
		{name: "unknown variable", expr: "score > 1"},
		{name: "non boolean", expr: "label + 1"},
		{name: "string result", expr: "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile(tt.expr)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.True(t, stderrors.Is(err, errors.ErrConfiguration))

			var cfgErr *errors.ConfigurationError
			require.True(t, stderrors.As(err, &cfgErr))
			assert.Equal(t, "where", cfgErr.Field)
		})
	}
}

func TestCompile_EmptyMatchesEverything(t *testing.T) {
	f, err := Compile("")
	require.NoError(t, err)
	assert.Nil(t, f)

	ok, err := f.Match(model.Record{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", f.String())
}

func TestFilter_Match(t *testing.T) {
	record := model.Record{Label: 2, GroupID: 3, Features: []float64{0.75, 0.1}, Description: "doc-301 python tutorial"}

	tests := []struct {
		expr string
		want bool
	}{
		{"label > 0", true},
		{"label == 2 && qid == 3", true},
		{"qid != 3", false},
		{"features[0] >= 0.5", true},
		{"size(features) == 3", false},
		{"description.contains('python')", true},
		{"description.startsWith('doc-4')", false},
		{"label > 1.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := f.Match(record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_RuntimeErrorIsReported(t *testing.T) {
	f, err := Compile("features[5] > 0.0")
	require.NoError(t, err)

	_, err = f.Match(model.Record{GroupID: 1, Features: []float64{1}})
	assert.Error(t, err)
}

func TestFilter_IDsBeyondIntRangeAreRejected(t *testing.T) {
	f, err := Compile("qid >= 0 && label >= 0")
	require.NoError(t, err)

	tests := []struct {
		name   string
		record model.Record
		field  string
	}{
		{name: "group id", record: model.Record{Label: 1, GroupID: math.MaxInt64 + 1, Features: []float64{1}}, field: "qid"},
		{name: "label", record: model.Record{Label: math.MaxUint64, GroupID: 1, Features: []float64{1}}, field: "label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := f.Match(tt.record)
			require.Error(t, err)
			assert.False(t, match)
			assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

			var validationErr *errors.ValidationError
			require.True(t, stderrors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}

	match, err := f.Match(model.Record{Label: 0, GroupID: math.MaxInt64, Features: []float64{1}})
	require.NoError(t, err)
	assert.True(t, match)
}

func TestFilter_Seq(t *testing.T) {
	records := testutil.SampleRecords(t)
	f, err := Compile("qid == 2 && label >= 2")
	require.NoError(t, err)

	seq := func(yield func(model.Record, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}

	var got []model.Record
	for r, err := range f.Seq(seq) {
		require.NoError(t, err)
		got = append(got, r)
	}

	require.Len(t, got, 4)
	for _, r := range got {
		assert.Equal(t, uint64(2), r.GroupID)
		assert.GreaterOrEqual(t, r.Label, uint64(2))
	}
}
