package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-letor/internal/errors"
	testutil "github.com/gcbaptista/go-letor/internal/testing"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSplitCommand(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteFile(t, dir, "sample.txt", testutil.SampleLETOR)
	out := filepath.Join(dir, "out")

	stdout, _, err := run(t, "", "split", "-i", input, "-o", out, "--test-fraction", "0.3", "--seed", "4")
	require.NoError(t, err)

	assert.Contains(t, stdout, "test fraction")
	assert.Contains(t, stdout, "25 records in 3 groups")
	assert.FileExists(t, filepath.Join(out, "train.txt"))
	assert.FileExists(t, filepath.Join(out, "test.txt"))
	assert.NoFileExists(t, filepath.Join(out, "validation.txt"))
}

func TestSplitCommand_Stdin(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	_, _, err := run(t, testutil.SampleLETOR, "split", "-i", "-", "-o", out, "--validation-fraction", "0.5", "--compression", "zstd")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "train.txt.zst"))
	assert.FileExists(t, filepath.Join(out, "validation.txt.zst"))
}

func TestSplitCommand_InvalidFractions(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteFile(t, dir, "sample.txt", testutil.SampleLETOR)

	_, _, err := run(t, "", "split", "-i", input, "-o", filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfiguration)
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestFoldCommand_ZeroFolds(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteFile(t, dir, "sample.txt", testutil.SampleLETOR)
	out := filepath.Join(dir, "cv")

	stdout, _, err := run(t, "", "fold", "-i", input, "-o", out, "--folds", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfiguration)
	assert.NotContains(t, stdout, "fold1")
	assert.NoDirExists(t, out)
}

func TestFoldCommand_DefaultFolds(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteFile(t, dir, "sample.txt", testutil.SampleLETOR)
	out := filepath.Join(dir, "cv")

	_, _, err := run(t, "", "fold", "-i", input, "-o", out)
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		assert.FileExists(t, filepath.Join(out, "fold"+strconv.Itoa(i), "test.txt"))
	}
	assert.NoDirExists(t, filepath.Join(out, "fold6"))
}

func TestFoldCommand_ConfigFileWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteFile(t, dir, "sample.txt", testutil.SampleLETOR)
	cfg := testutil.WriteFile(t, dir, "letor.yaml", `
logging:
  level: warn
fold:
  input: `+input+`
  output_dir: `+filepath.Join(dir, "cv")+`
  folds: 2
  seed: 3
`)

	stdout, _, err := run(t, "", "--config", cfg, "fold", "--folds", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fold3/test")

	for i := 1; i <= 3; i++ {
		assert.DirExists(t, filepath.Join(dir, "cv", "fold"+strconv.Itoa(i)))
	}
	assert.NoDirExists(t, filepath.Join(dir, "cv", "fold4"))
}

func TestTransformCommand(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteFile(t, dir, "clicks.tsv", "1\t2\t0.5\n1\t0\t0.25\n")
	output := filepath.Join(dir, "clicks.txt")

	stdout, _, err := run(t, "", "transform", "-i", input, "-o", output,
		"--no-header", "--delimiter", "\t",
		"--group-column", "0", "--label-column", "1", "--feature-columns", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "transform complete")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "2 qid:1 1:0.5\n0 qid:1 1:0.25\n", string(data))
}

func TestUnknownLogLevel(t *testing.T) {
	_, _, err := run(t, "", "--log-level", "loud", "fold")
	assert.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestParseHyperparameter(t *testing.T) {
	assert.Equal(t, int64(200), parseHyperparameter("200"))
	assert.Equal(t, 0.05, parseHyperparameter("0.05"))
	assert.Equal(t, true, parseHyperparameter("true"))
	assert.Equal(t, "lambdarank", parseHyperparameter("lambdarank"))
}
