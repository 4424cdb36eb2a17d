package model

import "time"

// Hyperparameters are passed through to the external trainer untouched.
type Hyperparameters map[string]any

// Metrics are the evaluator's per-rank-position gain metrics, keyed by the
// names the evaluator reports (e.g. "ndcg@10").
type Metrics map[string]float64

// TrainedModel is an opaque model artifact returned by the external trainer.
type TrainedModel struct {
	ID              string          `json:"id"`
	Hyperparameters Hyperparameters `json:"hyperparameters,omitempty"`
	FeatureCount    int             `json:"feature_count"`
	Artifact        []byte          `json:"artifact"`
	TrainedAt       time.Time       `json:"trained_at"`
}

// Evaluation pairs a subset name with the metrics computed on it.
type Evaluation struct {
	Subset  SubsetName `json:"subset"`
	Metrics Metrics    `json:"metrics"`
}

// TrainReport is the outcome of a fit followed by optional evaluations.
type TrainReport struct {
	Model       *TrainedModel `json:"model"`
	ModelPath   string        `json:"model_path,omitempty"`
	Evaluations []Evaluation  `json:"evaluations,omitempty"`
}
