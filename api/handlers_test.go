package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/engine"
	"github.com/gcbaptista/go-letor/internal/metrics"
	testutil "github.com/gcbaptista/go-letor/internal/testing"
	"github.com/gcbaptista/go-letor/model"
	"github.com/gcbaptista/go-letor/store"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *engine.Engine) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "sample.txt", testutil.SampleLETOR)

	registry := prometheus.NewRegistry()
	eng := engine.New(engine.Options{
		Resolver: &store.Resolver{Root: dir},
		Metrics:  metrics.New(registry),
	})
	t.Cleanup(eng.Close)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, eng, RouteOptions{Registry: registry, MaxRequestBytes: 4096})
	return router, eng
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealthCheckHandler(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body map[string]any
	decodeBody(t, w, &body)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("Expected a request ID header")
	}
}

func TestSplitHandler(t *testing.T) {
	router, eng := setupTestRouter(t)

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{
			name: "valid split",
			requestBody: map[string]any{
				"input": "sample.txt", "output_dir": "out", "test_fraction": 0.2, "validation_fraction": 0.2, "seed": 7,
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeInvalidJSON,
		},
		{
			name:           "fractions sum to one",
			requestBody:    map[string]any{"input": "sample.txt", "output_dir": "out", "test_fraction": 0.5, "validation_fraction": 0.5},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "input escapes data directory",
			requestBody:    map[string]any{"input": "../sample.txt", "output_dir": "out", "test_fraction": 0.2},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "bad where expression",
			requestBody:    map[string]any{"input": "sample.txt", "output_dir": "out", "test_fraction": 0.2, "where": "label >"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/datasets/_split", tt.requestBody)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusAccepted {
				var body map[string]string
				decodeBody(t, w, &body)
				job := testutil.WaitForJob(t, eng, body["job_id"], testutil.DefaultJobPollingOptions())
				testutil.AssertJobCompleted(t, job, model.JobTypeSplit)
				return
			}

			var apiErr APIError
			decodeBody(t, w, &apiErr)
			if apiErr.Code != tt.expectedCode {
				t.Errorf("Expected code %s, got %s", tt.expectedCode, apiErr.Code)
			}
			if apiErr.RequestID == "" {
				t.Error("Expected the request ID in the error body")
			}
		})
	}
}

func TestSplitHandler_ValidationDetails(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/datasets/_split", map[string]any{
		"input": "sample.txt", "output_dir": "out", "test_fraction": 1.5,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}

	var apiErr APIError
	decodeBody(t, w, &apiErr)
	found := false
	for _, d := range apiErr.Details {
		if d.Field == "test_fraction" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a test_fraction detail, got %+v", apiErr.Details)
	}
}

func TestFoldHandler(t *testing.T) {
	router, eng := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/datasets/_fold", map[string]any{
		"input": "sample.txt", "output_dir": "cv", "folds": 3,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	decodeBody(t, w, &body)
	testutil.WaitForJob(t, eng, body["job_id"], testutil.DefaultJobPollingOptions())

	w = doRequest(router, http.MethodGet, "/jobs/"+body["job_id"], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var job struct {
		Status model.JobStatus         `json:"status"`
		Result *model.PartitionSummary `json:"result"`
	}
	decodeBody(t, w, &job)
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("Expected completed job, got %s", job.Status)
	}
	if job.Result == nil || len(job.Result.Subsets) != 6 {
		t.Errorf("Expected 6 subsets in the job result, got %+v", job.Result)
	}

	for _, k := range []int{0, 1} {
		w = doRequest(router, http.MethodPost, "/datasets/_fold", map[string]any{
			"input": "sample.txt", "output_dir": "cv", "folds": k,
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %d folds, got %d", k, w.Code)
		}
	}
}

func TestFoldHandler_DefaultFolds(t *testing.T) {
	router, eng := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/datasets/_fold", map[string]any{
		"input": "sample.txt", "output_dir": "cv",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	decodeBody(t, w, &body)
	job := testutil.WaitForJob(t, eng, body["job_id"], testutil.DefaultJobPollingOptions())
	if job.Metadata["folds"] != strconv.Itoa(config.DefaultFolds) {
		t.Errorf("Expected %d folds, got %q", config.DefaultFolds, job.Metadata["folds"])
	}
}

func TestTransformAndTrainHandlers_Validation(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/datasets/_transform", map[string]any{
		"input": "a.csv", "output": "/tmp/a.txt", "label_column": "l", "group_column": "g", "feature_columns": []string{"f"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an absolute output, got %d", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/datasets/_train", map[string]any{
		"train": "sample.txt", "endpoint": "not a url",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a bad endpoint, got %d", w.Code)
	}
}

func TestRequestTooLarge(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := `{"input": "sample.txt", "output_dir": "` + strings.Repeat("x", 8192) + `"}`
	w := doRequest(router, http.MethodPost, "/datasets/_split", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected status 413, got %d: %s", w.Code, w.Body.String())
	}
}

func TestJobHandlers(t *testing.T) {
	router, eng := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/jobs/does-not-exist", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/jobs/does-not-exist/_cancel", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when cancelling an unknown job, got %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/jobs?status=done", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an unknown status, got %d", w.Code)
	}

	jobID, err := eng.SplitAsync(testSplitSettings())
	if err != nil {
		t.Fatalf("Failed to start split: %v", err)
	}
	testutil.WaitForJob(t, eng, jobID, testutil.JobPollingOptions{Timeout: 5 * time.Second, PollInterval: 10 * time.Millisecond})

	w = doRequest(router, http.MethodGet, "/jobs?dataset=sample.txt&status=completed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var list struct {
		Total int `json:"total"`
	}
	decodeBody(t, w, &list)
	if list.Total != 1 {
		t.Errorf("Expected 1 job, got %d", list.Total)
	}

	w = doRequest(router, http.MethodPost, "/jobs/"+jobID+"/_cancel", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 when cancelling a finished job, got %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/jobs/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var m struct {
		Metrics struct {
			JobsCompleted int64 `json:"jobs_completed"`
		} `json:"metrics"`
	}
	decodeBody(t, w, &m)
	if m.Metrics.JobsCompleted != 1 {
		t.Errorf("Expected 1 completed job, got %d", m.Metrics.JobsCompleted)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, eng := setupTestRouter(t)

	jobID, err := eng.SplitAsync(testSplitSettings())
	if err != nil {
		t.Fatalf("Failed to start split: %v", err)
	}
	testutil.WaitForJob(t, eng, jobID, testutil.DefaultJobPollingOptions())

	w := doRequest(router, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	for _, name := range []string{"letor_operations_total", "letor_records_read_total", "letor_groups_assigned_total"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("Expected %s in metrics output", name)
		}
	}
}

func testSplitSettings() config.SplitSettings {
	return config.SplitSettings{Input: "sample.txt", OutputDir: "out", TestFraction: 0.3, Seed: 1}
}
