// Package trainer talks to an external learning-to-rank training service.
//
// The service exposes two JSON endpoints:
//
//	POST {endpoint}/fit       {"data": "<LETOR text>", "hyperparameters": {...}}
//	                          -> {"model_id": "...", "artifact": "<base64>", "feature_count": N}
//	POST {endpoint}/evaluate  {"artifact": "<base64>", "data": "<LETOR text>", "truncation_level": K}
//	                          -> {"metrics": {"ndcg@10": 0.71, ...}}
//
// Records travel as LETOR text so the service can reuse its own reader.
package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gcbaptista/go-letor/internal/codec"
	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/model"
)

// Client is an HTTP/JSON trainer and evaluator.
type Client struct {
	Endpoint string
	Client   *http.Client
}

// NewClient creates a Client. A zero timeout means 10 minutes; training
// calls are long.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Client:   &http.Client{Timeout: timeout},
	}
}

type fitRequest struct {
	Data            string                `json:"data"`
	Hyperparameters model.Hyperparameters `json:"hyperparameters,omitempty"`
}

type fitResponse struct {
	ModelID      string `json:"model_id"`
	Artifact     []byte `json:"artifact"`
	FeatureCount int    `json:"feature_count"`
}

type evaluateRequest struct {
	Artifact        []byte `json:"artifact"`
	Data            string `json:"data"`
	TruncationLevel int    `json:"truncation_level"`
}

type evaluateResponse struct {
	Metrics model.Metrics `json:"metrics"`
}

// Fit trains a model on subset.
func (c *Client) Fit(ctx context.Context, subset model.Subset, hp model.Hyperparameters) (*model.TrainedModel, error) {
	records := subset.Records()
	if len(records) == 0 {
		return nil, errors.NewEmptyInputError(string(subset.Name))
	}

	var resp fitResponse
	if err := c.call(ctx, "/fit", fitRequest{Data: encode(records), Hyperparameters: hp}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Artifact) == 0 {
		return nil, fmt.Errorf("fit: response carries no model artifact")
	}

	featureCount := resp.FeatureCount
	if featureCount == 0 {
		featureCount = records[0].FeatureCount()
	}
	return &model.TrainedModel{
		ID:              resp.ModelID,
		Hyperparameters: hp,
		FeatureCount:    featureCount,
		Artifact:        resp.Artifact,
		TrainedAt:       time.Now().UTC(),
	}, nil
}

// Evaluate scores a trained model on subset, cutting gain metrics off at
// truncationLevel.
func (c *Client) Evaluate(ctx context.Context, m *model.TrainedModel, subset model.Subset, truncationLevel int) (model.Metrics, error) {
	if truncationLevel < 1 {
		return nil, errors.NewConfigurationError("truncation_level", truncationLevel, "must be >= 1")
	}
	records := subset.Records()
	if len(records) == 0 {
		return nil, errors.NewEmptyInputError(string(subset.Name))
	}

	var resp evaluateResponse
	req := evaluateRequest{Artifact: m.Artifact, Data: encode(records), TruncationLevel: truncationLevel}
	if err := c.call(ctx, "/evaluate", req, &resp); err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}

func (c *Client) call(ctx context.Context, path string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("rpc error %s: status=%d, read body failed: %w", path, resp.StatusCode, err)
		}
		return fmt.Errorf("rpc error %s: status=%d, body=%s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

func encode(records []model.Record) string {
	var buf []byte
	for _, r := range records {
		buf = codec.AppendRecord(buf, r)
	}
	return string(buf)
}
