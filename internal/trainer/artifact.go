package trainer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gcbaptista/go-letor/internal/persistence"
	"github.com/gcbaptista/go-letor/model"
)

// modelFile is the gob layout of a saved model. Hyperparameters are kept
// as JSON because gob cannot encode arbitrary interface values without
// registering every concrete type.
type modelFile struct {
	ID              string
	Hyperparameters []byte
	FeatureCount    int
	Artifact        []byte
	TrainedAt       time.Time
}

// SaveModel writes m to path atomically.
func SaveModel(path string, m *model.TrainedModel) error {
	hp, err := json.Marshal(m.Hyperparameters)
	if err != nil {
		return fmt.Errorf("encode hyperparameters: %w", err)
	}
	return persistence.SaveGob(path, modelFile{
		ID:              m.ID,
		Hyperparameters: hp,
		FeatureCount:    m.FeatureCount,
		Artifact:        m.Artifact,
		TrainedAt:       m.TrainedAt,
	})
}

// LoadModel reads a model saved by SaveModel.
func LoadModel(path string) (*model.TrainedModel, error) {
	var f modelFile
	if err := persistence.LoadGob(path, &f); err != nil {
		return nil, err
	}

	var hp model.Hyperparameters
	if len(f.Hyperparameters) > 0 {
		if err := json.Unmarshal(f.Hyperparameters, &hp); err != nil {
			return nil, fmt.Errorf("decode hyperparameters: %w", err)
		}
	}
	return &model.TrainedModel{
		ID:              f.ID,
		Hyperparameters: hp,
		FeatureCount:    f.FeatureCount,
		Artifact:        f.Artifact,
		TrainedAt:       f.TrainedAt,
	}, nil
}
