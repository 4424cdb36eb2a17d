// Package testing provides fixtures and helpers for testing dataset operations.
package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-letor/internal/codec"
	"github.com/gcbaptista/go-letor/model"
	"github.com/gcbaptista/go-letor/services"
)

// SampleLETOR is a 25-row, 3-query dataset with 5 features per record.
const SampleLETOR = `# sample ranking dataset
2 qid:1 1:0.71 2:0.36 3:0.12 4:0.90 5:0.05 # doc-101 cheap flights
1 qid:1 1:0.55 2:0.21 3:0.33 4:0.70 5:0.10 # doc-102 cheap flights
0 qid:1 1:0.12 2:0.08 3:0.41 4:0.20 5:0.64 # doc-103 cheap flights
3 qid:1 1:0.93 2:0.77 3:0.05 4:0.98 5:0.01 # doc-104 cheap flights
0 qid:1 1:0.02 2:0.11 3:0.58 4:0.14 5:0.72 # doc-105 cheap flights
1 qid:1 1:0.48 2:0.30 3:0.27 4:0.61 5:0.19 # doc-106 cheap flights
2 qid:1 1:0.66 2:0.52 3:0.16 4:0.83 5:0.07 # doc-107 cheap flights
0 qid:1 1:0.09 2:0.04 3:0.63 4:0.11 5:0.81 # doc-108 cheap flights

4 qid:2 1:0.99 2:0.88 3:0.02 4:0.95 5:0.00 # doc-201 jaguar speed
0 qid:2 1:0.15 2:0.19 3:0.44 4:0.25 5:0.55 # doc-202 jaguar speed
1 qid:2 1:0.40 2:0.35 3:0.30 4:0.52 5:0.22 # doc-203 jaguar speed
2 qid:2 1:0.62 2:0.58 3:0.18 4:0.74 5:0.09 # doc-204 jaguar speed
0 qid:2 1:0.05 2:0.07 3:0.70 4:0.08 5:0.90 # doc-205 jaguar speed
3 qid:2 1:0.85 2:0.80 3:0.06 4:0.91 5:0.03 # doc-206 jaguar speed
1 qid:2 1:0.37 2:0.29 3:0.35 4:0.47 5:0.26 # doc-207 jaguar speed
0 qid:2 1:0.21 2:0.13 3:0.52 4:0.30 5:0.61 # doc-208 jaguar speed
2 qid:2 1:0.59 2:0.49 3:0.20 4:0.69 5:0.12 # doc-209 jaguar speed

1 qid:3 1:0.44 2:0.31 3:0.29 4:0.58 5:0.20 # doc-301 python tutorial
0 qid:3 1:0.18 2:0.16 3:0.49 4:0.27 5:0.58 # doc-302 python tutorial
3 qid:3 1:0.88 2:0.74 3:0.08 4:0.93 5:0.02 # doc-303 python tutorial
2 qid:3 1:0.69 2:0.55 3:0.15 4:0.79 5:0.08 # doc-304 python tutorial
0 qid:3 1:0.07 2:0.10 3:0.66 4:0.12 5:0.85 # doc-305 python tutorial
1 qid:3 1:0.51 2:0.40 3:0.24 4:0.63 5:0.17 # doc-306 python tutorial
0 qid:3 1:0.25 2:0.18 3:0.47 4:0.33 5:0.52 # doc-307 python tutorial
2 qid:3 1:0.73 2:0.61 3:0.13 4:0.81 5:0.06 # doc-308 python tutorial
`

// SampleRecords parses SampleLETOR.
func SampleRecords(t *testing.T) []model.Record {
	t.Helper()
	records, err := codec.ReadAll(strings.NewReader(SampleLETOR), "sample")
	require.NoError(t, err, "Failed to parse sample dataset")
	require.Len(t, records, 25)
	return records
}

// MakeGroups builds records for groups of the given sizes. Group IDs are
// 1-based in the order given; every record has featureCount features.
func MakeGroups(sizes []int, featureCount int) []model.Record {
	var records []model.Record
	for gi, size := range sizes {
		for j := 0; j < size; j++ {
			features := make([]float64, featureCount)
			for f := range features {
				features[f] = float64(gi*100+j) + float64(f)/10
			}
			records = append(records, model.Record{
				Label:       uint64(j % 5),
				GroupID:     uint64(gi + 1),
				Features:    features,
				Description: fmt.Sprintf("doc-%d-%d", gi+1, j),
			})
		}
	}
	return records
}

// UniformGroups builds n groups of size records each.
func UniformGroups(n, size int) []model.Record {
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = size
	}
	return MakeGroups(sizes, 3)
}

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ReadRecords parses a LETOR file.
func ReadRecords(t *testing.T, path string) []model.Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := codec.ReadAll(f, path)
	require.NoError(t, err)
	return records
}

// DistinctGroupIDs returns group IDs of records in first-seen order.
func DistinctGroupIDs(records []model.Record) []uint64 {
	seen := make(map[uint64]bool)
	var ids []uint64
	for _, r := range records {
		if !seen[r.GroupID] {
			seen[r.GroupID] = true
			ids = append(ids, r.GroupID)
		}
	}
	return ids
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
		LogProgress:  false,
	}
}

// WaitForJob polls a job until it reaches a terminal status or times out
func WaitForJob(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not finish within %v timeout", jobID, opts.Timeout)
			return nil
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			if opts.LogProgress && job.Progress != nil {
				t.Logf("Job %s progress: %d/%d - %s", jobID, job.Progress.Current, job.Progress.Total, job.Progress.Message)
			}
			if job.Status.IsTerminal() {
				return job
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed (error: %s)", job.Error)
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}
