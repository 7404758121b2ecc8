package services

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Staging    StagingConfig    `yaml:"staging"`
	Provider   ProviderConfig   `yaml:"provider"`
	Validation ValidationConfig `yaml:"validation"`
	Storage    StorageConfig    `yaml:"storage"`
	// Provenance signatures checked against upload EXIF data, purely for
	// the debug payload.
	ProvenanceSignatures []ProvenanceSignature `yaml:"provenance_signatures"`
}

type ServerConfig struct {
	Port        int    `yaml:"port" validate:"min=1,max=65535"`
	BodyLimitMB int    `yaml:"body_limit_mb" validate:"min=1"`
	CORSOrigins string `yaml:"cors_origins"`
}

type StagingConfig struct {
	Dir string `yaml:"dir" validate:"required"`
	// Retain keeps staged files after the provider call; useful when
	// debugging provider-side fetch failures.
	Retain bool `yaml:"retain"`
}

type ProviderConfig struct {
	BaseURL        string `yaml:"base_url" validate:"required,url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=1"`
}

func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type ValidationConfig struct {
	MinWidth  int `yaml:"min_width" validate:"min=0"`
	MinHeight int `yaml:"min_height" validate:"min=0"`
}

type StorageConfig struct {
	// Provider is "local" or "s3" (R2-compatible endpoints included).
	Provider string `yaml:"provider" validate:"oneof=local s3 r2"`
	// PublicBaseURL is the absolute base under which staged files are
	// reachable by the detection provider.
	PublicBaseURL string   `yaml:"public_base_url" validate:"required,url"`
	S3            S3Config `yaml:"s3"`
}

type ProvenanceSignature struct {
	Key      string   `yaml:"key"`
	Value    string   `yaml:"value,omitempty"`
	Contains []string `yaml:"contains,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			BodyLimitMB: 10,
			CORSOrigins: "*",
		},
		Staging: StagingConfig{
			Dir: "uploads",
		},
		Provider: ProviderConfig{
			BaseURL:        "https://api.aiornot.com/v1/reports/url",
			TimeoutSeconds: 30,
		},
		Validation: ValidationConfig{
			MinWidth:  256,
			MinHeight: 256,
		},
		Storage: StorageConfig{
			Provider:      "local",
			PublicBaseURL: "http://localhost:8080",
		},
		ProvenanceSignatures: []ProvenanceSignature{
			{
				Key:   "DigitalSourceType",
				Value: "http://cv.iptc.org/newscodes/digitalsourcetype/trainedAlgorithmicMedia",
			},
			{
				Key:      "Software",
				Contains: []string{"Midjourney", "DALL-E", "Stable Diffusion", "Flux"},
			},
		},
	}
}

// LoadConfig reads the YAML config at path, falling back to complete
// defaults when the file does not exist. Values absent from the file keep
// their defaults. The provider API key may also arrive via the
// PROVIDER_API_KEY environment variable; it is resolved here once so
// nothing downstream reads ambient process state.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if config.Provider.APIKey == "" {
		config.Provider.APIKey = os.Getenv("PROVIDER_API_KEY")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
