package codec

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	letorerrors "github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected model.Record
	}{
		{
			name: "standard line with comment",
			line: "2 qid:10 1:0.5 2:1.25 3:-3 # docid = GX008 query = jaguar",
			expected: model.Record{
				Label:       2,
				GroupID:     10,
				Features:    []float64{0.5, 1.25, -3},
				Description: "docid = GX008 query = jaguar",
			},
		},
		{
			name:     "tabs and repeated spaces",
			line:     "0\tqid:3 \t 1:1\t\t2:2  ",
			expected: model.Record{Label: 0, GroupID: 3, Features: []float64{1, 2}},
		},
		{
			name:     "bare group id",
			line:     "1 42 1:0.1",
			expected: model.Record{Label: 1, GroupID: 42, Features: []float64{0.1}},
		},
		{
			name:     "group key is not validated",
			line:     "1 query:42 1:0.1",
			expected: model.Record{Label: 1, GroupID: 42, Features: []float64{0.1}},
		},
		{
			name:     "stated indices are ignored",
			line:     "3 qid:1 7:0.7 2:0.2 2:0.3",
			expected: model.Record{Label: 3, GroupID: 1, Features: []float64{0.7, 0.2, 0.3}},
		},
		{
			name:     "value after last colon",
			line:     "1 a:b:5 x:y:1.5",
			expected: model.Record{Label: 1, GroupID: 5, Features: []float64{1.5}},
		},
		{
			name:     "exponent notation",
			line:     "4 qid:1 1:1e-05 2:2.5E+3",
			expected: model.Record{Label: 4, GroupID: 1, Features: []float64{1e-05, 2500}},
		},
		{
			name:     "empty comment",
			line:     "1 qid:2 1:3 #",
			expected: model.Record{Label: 1, GroupID: 2, Features: []float64{3}},
		},
		{
			name:     "large label",
			line:     "18446744073709551615 qid:0 1:0",
			expected: model.Record{Label: math.MaxUint64, GroupID: 0, Features: []float64{0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rec)
		})
	}
}

func TestParse_FormatErrors(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason string
	}{
		{name: "empty line", line: "", reason: "empty record"},
		{name: "whitespace only", line: "  \t ", reason: "empty record"},
		{name: "comment only", line: "# just a comment", reason: "empty record"},
		{name: "non-numeric label", line: "x qid:1 1:2.0", reason: "label"},
		{name: "negative label", line: "-1 qid:1 1:2.0", reason: "label"},
		{name: "fractional label", line: "1.5 qid:1 1:2.0", reason: "label"},
		{name: "missing group", line: "1", reason: "missing group id"},
		{name: "non-numeric group", line: "1 qid:abc 1:2.0", reason: "group id"},
		{name: "negative group", line: "1 qid:-4 1:2.0", reason: "group id"},
		{name: "no features", line: "4 qid:1", reason: "no features"},
		{name: "no features with comment", line: "4 qid:1 # doc", reason: "no features"},
		{name: "feature without colon", line: "1 qid:1 0.5", reason: "index:value"},
		{name: "non-numeric feature", line: "1 qid:1 1:abc", reason: "not a number"},
		{name: "empty feature value", line: "1 qid:1 1:", reason: "not a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, letorerrors.ErrFormat), "expected ErrFormat, got %v", err)

			var formatErr *letorerrors.FormatError
			require.True(t, errors.As(err, &formatErr))
			assert.Contains(t, formatErr.Reason, tt.reason)
			assert.Equal(t, tt.line, formatErr.Line)
		})
	}
}

func TestSerialize(t *testing.T) {
	tests := []struct {
		name     string
		record   model.Record
		expected string
	}{
		{
			name:     "without description",
			record:   model.Record{Label: 1, GroupID: 7, Features: []float64{0.5, 2, -1.25}},
			expected: "1 qid:7 1:0.5 2:2 3:-1.25\n",
		},
		{
			name:     "with description",
			record:   model.Record{Label: 0, GroupID: 1, Features: []float64{1}, Description: "doc-1 red shoes"},
			expected: "0 qid:1 1:1 # doc-1 red shoes\n",
		},
		{
			name:     "shortest float representation",
			record:   model.Record{Label: 2, GroupID: 3, Features: []float64{0.1, 1e-7, 123456789}},
			expected: "2 qid:3 1:0.1 2:1e-07 3:1.23456789e+08\n",
		},
		{
			name:     "multi-line description is flattened",
			record:   model.Record{Label: 1, GroupID: 1, Features: []float64{1}, Description: "a\nb"},
			expected: "1 qid:1 1:1 # a b\n",
		},
		{
			name:     "surrounding whitespace is trimmed",
			record:   model.Record{Label: 1, GroupID: 2, Features: []float64{1}, Description: "  lead and trail\t"},
			expected: "1 qid:2 1:1 # lead and trail\n",
		},
		{
			name:     "blank description is omitted",
			record:   model.Record{Label: 1, GroupID: 2, Features: []float64{1}, Description: "   "},
			expected: "1 qid:2 1:1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Serialize(tt.record))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	records := []model.Record{
		{Label: 0, GroupID: 1, Features: []float64{0.1, 0.2, 0.3}},
		{Label: 4, GroupID: 99, Features: []float64{math.Pi, -math.E, 1e300, 5e-324}, Description: "docid=7 query=pi"},
		{Label: 2, GroupID: 0, Features: []float64{0}, Description: "#hash inside"},
		{Label: 1, GroupID: 12, Features: []float64{math.Inf(1), math.Inf(-1)}},
		{Label: 3, GroupID: 5, Features: []float64{2}, Description: " lead"},
		{Label: 3, GroupID: 5, Features: []float64{2}, Description: "   "},
	}

	for _, want := range records {
		line := Serialize(want)
		got, err := Parse(strings.TrimSuffix(line, "\n"))
		require.NoError(t, err, "line %q", line)

		assert.Equal(t, want.Label, got.Label)
		assert.Equal(t, want.GroupID, got.GroupID)
		assert.Equal(t, strings.TrimSpace(want.Description), got.Description)
		require.Len(t, got.Features, len(want.Features))
		for i := range want.Features {
			assert.Equal(t, want.Features[i], got.Features[i], "feature %d", i)
		}
	}
}

func TestIsSkippable(t *testing.T) {
	assert.True(t, IsSkippable(""))
	assert.True(t, IsSkippable("   \t"))
	assert.True(t, IsSkippable("#comment only"))
	assert.True(t, IsSkippable("   # indented comment"))
	assert.False(t, IsSkippable("1 qid:1 1:1"))
	assert.False(t, IsSkippable("x"))
}
