package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration. Every section is optional; command
// line flags override whatever a section sets.
type File struct {
	Logging     LoggingSettings     `json:"logging" yaml:"logging"`
	Server      ServerSettings      `json:"server" yaml:"server"`
	ObjectStore ObjectStoreSettings `json:"object_store" yaml:"object_store"`
	Split       SplitSettings       `json:"split" yaml:"split"`
	Fold        FoldSettings        `json:"fold" yaml:"fold"`
	Transform   TransformSettings   `json:"transform" yaml:"transform"`
	Train       TrainSettings       `json:"train" yaml:"train"`
}

// NewFile returns a configuration with section defaults that must be told
// apart from explicit zero values. Files are decoded over it.
func NewFile() *File {
	return &File{Fold: NewFoldSettings()}
}

// LoadFile reads a YAML (or, by extension, JSON) configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := NewFile()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}

	cfg.ObjectStore.ApplyEnv()
	return cfg, nil
}
