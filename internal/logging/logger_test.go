package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-letor/config"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingSettings{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.WithOperation("split").WithJob("job-1").LogRead(context.Background(), "all.txt", 25, 3, 0, nil)
	logger.LogWrite(context.Background(), "train.txt", 10, nil) // debug, filtered out

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "read completed", entry["msg"])
	assert.Equal(t, "split", entry["operation"])
	assert.Equal(t, "job-1", entry["job_id"])
	assert.Equal(t, float64(25), entry["records"])
}

func TestLogPartition_Error(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingSettings{Format: "text"}, &buf)
	require.NoError(t, err)

	logger.LogPartition(context.Background(), nil, 7, errors.New("boom"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "partition failed")
	assert.Contains(t, buf.String(), "seed=7")
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New(config.LoggingSettings{Format: "xml"}, nil)
	assert.Error(t, err)
}
