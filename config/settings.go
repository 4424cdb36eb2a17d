// Package config provides configuration structures for dataset operations.
// It defines split, fold, transform, train and server settings, their
// defaults and their validation.
package config

import (
	"os"
	"strings"
	"time"
)

// Supported output compressions. The empty value means "infer from the
// output path" for single files and "none" for directories.
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// SplitSettings configures a fractional train/test/validation split.
type SplitSettings struct {
	Input              string  `json:"input" yaml:"input" validate:"required"`           // LETOR file, s3://bucket/key, or "-" for stdin
	OutputDir          string  `json:"output_dir" yaml:"output_dir" validate:"required"` // Directory (or s3://bucket/prefix) receiving train/test/validation files
	TestFraction       float64 `json:"test_fraction" yaml:"test_fraction"`               // Probability that a group lands in test
	ValidationFraction float64 `json:"validation_fraction" yaml:"validation_fraction"`   // Probability that a group lands in validation
	Seed               uint64  `json:"seed" yaml:"seed"`                                 // Seed of the request-owned generator
	Where              string  `json:"where,omitempty" yaml:"where,omitempty"`           // Optional CEL record filter applied before grouping
	Compression        string  `json:"compression,omitempty" yaml:"compression,omitempty" validate:"omitempty,oneof=none gzip zstd lz4"`
}

// Validate checks the settings before any data is read.
func (s *SplitSettings) Validate() error {
	if err := validateStruct(s); err != nil {
		return err
	}
	return ValidateSplitFractions(s.TestFraction, s.ValidationFraction)
}

// ApplyDefaults applies default values to the split settings
func (s *SplitSettings) ApplyDefaults() {
	if s.Compression == "" {
		s.Compression = CompressionNone
	}
}

// DefaultFolds is the fold count used when a request or file leaves it out.
const DefaultFolds = 5

// FoldSettings configures a K-fold cross-validation partition. Folds is
// never defaulted by ApplyDefaults: an explicit 0 must fail validation, so
// callers decoding partial input start from NewFoldSettings.
type FoldSettings struct {
	Input       string `json:"input" yaml:"input" validate:"required"`
	OutputDir   string `json:"output_dir" yaml:"output_dir" validate:"required"`
	Folds       int    `json:"folds" yaml:"folds"` // Number of folds, must be greater than 1
	Seed        uint64 `json:"seed" yaml:"seed"`
	Where       string `json:"where,omitempty" yaml:"where,omitempty"`
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty" validate:"omitempty,oneof=none gzip zstd lz4"`
}

// Validate checks the settings before any data is read.
func (s *FoldSettings) Validate() error {
	if err := validateStruct(s); err != nil {
		return err
	}
	return ValidateFoldCount(s.Folds)
}

// NewFoldSettings returns fold settings carrying DefaultFolds, ready to
// have a request or file decoded over them.
func NewFoldSettings() FoldSettings {
	return FoldSettings{Folds: DefaultFolds}
}

// ApplyDefaults applies default values to the fold settings
func (s *FoldSettings) ApplyDefaults() {
	if s.Compression == "" {
		s.Compression = CompressionNone
	}
}

// TransformSettings maps CSV columns onto LETOR records.
// Columns are referenced by header name, or by 0-based index when NoHeader is set.
type TransformSettings struct {
	Input              string   `json:"input" yaml:"input" validate:"required"`
	Output             string   `json:"output" yaml:"output" validate:"required"`
	LabelColumn        string   `json:"label_column" yaml:"label_column" validate:"required"`
	GroupColumn        string   `json:"group_column" yaml:"group_column" validate:"required"`
	FeatureColumns     []string `json:"feature_columns" yaml:"feature_columns" validate:"min=1,dive,required"`
	DescriptionColumns []string `json:"description_columns,omitempty" yaml:"description_columns,omitempty" validate:"dive,required"`
	Delimiter          string   `json:"delimiter,omitempty" yaml:"delimiter,omitempty" validate:"omitempty,len=1"`
	NoHeader           bool     `json:"no_header,omitempty" yaml:"no_header,omitempty"`
	Where              string   `json:"where,omitempty" yaml:"where,omitempty"`
}

// Validate checks the transform settings.
func (s *TransformSettings) Validate() error {
	return validateStruct(s)
}

// ApplyDefaults applies default values to the transform settings
func (s *TransformSettings) ApplyDefaults() {
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	if s.FeatureColumns == nil {
		s.FeatureColumns = []string{}
	}
}

// TrainSettings configures a fit/evaluate round trip against the external trainer.
type TrainSettings struct {
	Train           string         `json:"train" yaml:"train" validate:"required"`
	Validation      string         `json:"validation,omitempty" yaml:"validation,omitempty"`
	Test            string         `json:"test,omitempty" yaml:"test,omitempty"`
	Endpoint        string         `json:"endpoint" yaml:"endpoint" validate:"required,url"` // Base URL of the training service
	Hyperparameters map[string]any `json:"hyperparameters,omitempty" yaml:"hyperparameters,omitempty"`
	TruncationLevel int            `json:"truncation_level" yaml:"truncation_level" validate:"gte=1"` // Rank cut-off for gain metrics
	ModelOutput     string         `json:"model_output,omitempty" yaml:"model_output,omitempty"`
	Timeout         time.Duration  `json:"timeout" yaml:"timeout" validate:"gt=0"`
}

// Validate checks the train settings.
func (s *TrainSettings) Validate() error {
	return validateStruct(s)
}

// ApplyDefaults applies default values to the train settings
func (s *TrainSettings) ApplyDefaults() {
	if s.TruncationLevel == 0 {
		s.TruncationLevel = 10
	}
	if s.Timeout == 0 {
		s.Timeout = 10 * time.Minute
	}
	if s.Hyperparameters == nil {
		s.Hyperparameters = map[string]any{}
	}
}

// ServerSettings configures the HTTP job server.
type ServerSettings struct {
	Port            string `json:"port" yaml:"port" validate:"required,numeric"`
	DataDir         string `json:"data_dir" yaml:"data_dir" validate:"required"` // Root for relative dataset paths in requests
	MaxWorkers      int    `json:"max_workers" yaml:"max_workers" validate:"gte=1"`
	MaxRequestBytes int64  `json:"max_request_bytes" yaml:"max_request_bytes" validate:"gte=1024"`
}

// Validate checks the server settings.
func (s *ServerSettings) Validate() error {
	return validateStruct(s)
}

// ApplyDefaults applies default values to the server settings
func (s *ServerSettings) ApplyDefaults() {
	if s.Port == "" {
		s.Port = "8080"
	}
	if s.DataDir == "" {
		s.DataDir = "./letor_data"
	}
	if s.MaxWorkers == 0 {
		s.MaxWorkers = 4
	}
	if s.MaxRequestBytes == 0 {
		s.MaxRequestBytes = 1 << 20
	}
}

// ObjectStoreSettings configures access to an S3-compatible object store
// for s3:// inputs and outputs.
type ObjectStoreSettings struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"-" yaml:"secret_key"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

// ApplyEnv fills unset fields from LETOR_S3_* environment variables.
func (s *ObjectStoreSettings) ApplyEnv() {
	setFromEnv(&s.Endpoint, "LETOR_S3_ENDPOINT")
	setFromEnv(&s.AccessKey, "LETOR_S3_ACCESS_KEY")
	setFromEnv(&s.SecretKey, "LETOR_S3_SECRET_KEY")
	setFromEnv(&s.Region, "LETOR_S3_REGION")
	if v, ok := os.LookupEnv("LETOR_S3_USE_SSL"); ok && !s.UseSSL {
		s.UseSSL = strings.EqualFold(v, "true") || v == "1"
	}
}

// Configured reports whether an object store endpoint is set.
func (s *ObjectStoreSettings) Configured() bool {
	return s.Endpoint != ""
}

func setFromEnv(field *string, key string) {
	if *field != "" {
		return
	}
	if v, ok := os.LookupEnv(key); ok {
		*field = v
	}
}

// LoggingSettings configures the structured logger.
type LoggingSettings struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// ApplyDefaults applies default values to the logging settings
func (s *LoggingSettings) ApplyDefaults() {
	if s.Level == "" {
		s.Level = "info"
	}
	if s.Format == "" {
		s.Format = "text"
	}
}

// Validate checks the logging settings.
func (s *LoggingSettings) Validate() error {
	return validateStruct(s)
}
