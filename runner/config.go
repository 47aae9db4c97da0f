package runner

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds run-level settings. The documentation policy values live
// here; the classifier only consumes them.
type Config struct {
	// Root is the repository root or any path inside it.
	Root string `yaml:"root"`
	// Extensions restricts processing to the listed file extensions; empty
	// means every supported language.
	Extensions []string `yaml:"extensions"`
	// Concurrency bounds how many files are processed in parallel.
	Concurrency int `yaml:"concurrency"`
	// SignatureOnly documents modified functions only when the signature changed.
	SignatureOnly bool `yaml:"signature_only"`
	// InlineComments also requests line annotations inside function bodies.
	InlineComments bool `yaml:"inline_comments"`
	// StatusPath is the SQLite status store location.
	StatusPath string `yaml:"status_path"`

	Generator GeneratorConfig `yaml:"generator"`
}

// GeneratorConfig holds the external generator connection and retry policy.
type GeneratorConfig struct {
	Host           string `yaml:"host"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxAttempts    int    `yaml:"max_attempts"`
	BackoffMillis  int    `yaml:"backoff_millis"`
}

// Timeout returns the per-call generator timeout.
func (g GeneratorConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Backoff returns the initial retry delay.
func (g GeneratorConfig) Backoff() time.Duration {
	return time.Duration(g.BackoffMillis) * time.Millisecond
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() *Config {
	return &Config{
		Root:        ".",
		Concurrency: 4,
		StatusPath:  ".docpatch/status.db",
		Generator: GeneratorConfig{
			Host:           "http://localhost:11434",
			Model:          "qwen2.5:7b",
			TimeoutSeconds: 120,
			MaxAttempts:    3,
			BackoffMillis:  300,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return config, nil
}
