package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	letorerrors "github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/model"
)

func TestReader_SkipsBlankAndCommentLines(t *testing.T) {
	input := strings.Join([]string{
		"# header comment",
		"",
		"1 qid:1 1:0.1 2:0.2",
		"   ",
		"\t# indented comment",
		"0 qid:1 1:0.3 2:0.4 # doc2",
		"2 qid:2 1:0.5 2:0.6",
	}, "\n")

	records, err := ReadAll(strings.NewReader(input), "inline")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, uint64(1), records[0].Label)
	assert.Equal(t, "doc2", records[1].Description)
	assert.Equal(t, uint64(2), records[2].GroupID)
}

func TestReader_FailsFastOnMalformedLine(t *testing.T) {
	input := "1 qid:1 1:0.1\n\nx qid:1 1:2.0\n1 qid:2 1:0.3\n"
	reader := NewReader(strings.NewReader(input), "train.txt")

	rec, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.GroupID)

	_, err = reader.Read()
	require.Error(t, err)
	assert.True(t, errors.Is(err, letorerrors.ErrFormat))

	var formatErr *letorerrors.FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, 3, formatErr.LineNumber)
	assert.Equal(t, "train.txt", formatErr.Source)
	assert.Equal(t, "x qid:1 1:2.0", formatErr.Line)

	// The reader stays failed; the valid line after the error is never yielded.
	_, err = reader.Read()
	assert.True(t, errors.Is(err, letorerrors.ErrFormat))
}

func TestReader_NoFeatureLineIsAnError(t *testing.T) {
	_, err := ReadAll(strings.NewReader("4 qid:1\n"), "")
	assert.True(t, errors.Is(err, letorerrors.ErrFormat))
}

func TestReader_EOF(t *testing.T) {
	reader := NewReader(strings.NewReader("# only a comment\n\n"), "")
	_, err := reader.Read()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, reader.Line())

	_, err = reader.Read()
	assert.Equal(t, io.EOF, err)
}

func TestReader_AllStopsAtFirstError(t *testing.T) {
	input := "1 qid:1 1:1\n1 qid:1 bad\n1 qid:1 1:1\n"
	reader := NewReader(strings.NewReader(input), "")

	var yielded int
	var lastErr error
	for _, err := range reader.All() {
		yielded++
		lastErr = err
	}
	assert.Equal(t, 2, yielded)
	assert.True(t, errors.Is(lastErr, letorerrors.ErrFormat))
}

func TestReader_LongLines(t *testing.T) {
	features := make([]float64, 20000)
	for i := range features {
		features[i] = float64(i) + 0.5
	}
	line := Serialize(model.Record{Label: 1, GroupID: 1, Features: features})
	require.Greater(t, len(line), 64*1024)

	records, err := ReadAll(strings.NewReader(line), "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Features, 20000)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	records := []model.Record{
		{Label: 1, GroupID: 1, Features: []float64{0.5}},
		{Label: 0, GroupID: 2, Features: []float64{1, 2}, Description: "d"},
	}
	require.NoError(t, w.WriteAll(records))

	// Nothing reaches the destination before Flush for small outputs.
	assert.Equal(t, 0, buf.Len())
	require.NoError(t, w.Flush())

	assert.Equal(t, "1 qid:1 1:0.5\n0 qid:2 1:1 2:2 # d\n", buf.String())
	assert.Equal(t, 2, w.Count())

	back, err := ReadAll(&buf, "")
	require.NoError(t, err)
	assert.Equal(t, records, back)
}
