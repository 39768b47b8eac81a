// Package config loads the pipeline policy configuration.
//
// Endpoints and credentials come from environment variables (see the
// individual client packages); this file carries the tunable policy knobs of
// the ETL itself, loaded from an optional YAML file and validated with struct
// tags.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type PipelineConfig struct {
	// StageRetries is the per-stage retry budget for retriable errors.
	StageRetries int `yaml:"stageRetries" validate:"gte=0,lte=10"`
	// StageBackoffInitial is the starting delay of the exponential backoff.
	StageBackoffInitial time.Duration `yaml:"stageBackoffInitial"`

	CheckServiceCodeUniqueness bool `yaml:"checkServiceCodeUniqueness"`
	SkipTrackInserts           bool `yaml:"skipTrackInserts"`
}

type RoutingConfig struct {
	BaseURL string        `yaml:"baseURL" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"omitempty"`
}

type StorageConfig struct {
	// StatementTimeout is applied to every database session.
	StatementTimeout time.Duration `yaml:"statementTimeout"`
	// CredentialMaxAge forces a connection credential refresh once a
	// credential is older than this. Rotated credentials are valid for 15
	// minutes; the 30 second margin keeps in-flight statements off the cliff.
	CredentialMaxAge time.Duration `yaml:"credentialMaxAge"`
}

type AppConfig struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Routing  RoutingConfig  `yaml:"routing"`
	Storage  StorageConfig  `yaml:"storage"`
}

var Config AppConfig

func defaults() AppConfig {
	return AppConfig{
		Pipeline: PipelineConfig{
			StageRetries:        3,
			StageBackoffInitial: 2 * time.Second,
		},
		Routing: RoutingConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 60 * time.Second,
		},
		Storage: StorageConfig{
			StatementTimeout: 5 * time.Minute,
			CredentialMaxAge: 15*time.Minute - 30*time.Second,
		},
	}
}

// Load reads the policy file at path, falling back to defaults when path is
// empty or the file does not exist.
func Load(path string) error {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return err
		}
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}

	Config = cfg

	return nil
}

func init() {
	Config = defaults()
}
