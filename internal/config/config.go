// Copyright Contributors to the KubeOpenCode project

// Package config loads and validates the controller's mounted configuration
// file (/config/config.yaml by default).
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/5dlabs/orchestrator/internal/orcherr"
)

// ImagePullSecret names a Secret used to pull the agent image.
type ImagePullSecret struct {
	Name string `json:"name"`
}

// JobConfig controls batch Job execution limits.
type JobConfig struct {
	ActiveDeadlineSeconds int64 `json:"activeDeadlineSeconds"`
}

// AgentImageConfig identifies the agent container image.
type AgentImageConfig struct {
	Repository        string            `json:"repository"`
	Tag               string            `json:"tag"`
	ImagePullSecrets  []ImagePullSecret `json:"imagePullSecrets,omitempty"`
}

// AgentConfig groups agent-container settings.
type AgentConfig struct {
	Image AgentImageConfig `json:"image"`
}

// SecretsConfig identifies where the agent's model API key lives.
type SecretsConfig struct {
	APIKeySecretName string `json:"apiKeySecretName"`
	APIKeySecretKey  string `json:"apiKeySecretKey"`
}

// PermissionsConfig controls whether templates use a custom allow/deny list.
type PermissionsConfig struct {
	AgentToolsOverride bool     `json:"agentToolsOverride"`
	Allow              []string `json:"allow,omitempty"`
	Deny               []string `json:"deny,omitempty"`
}

// TelemetryConfig is surfaced to templates verbatim.
type TelemetryConfig struct {
	Enabled       bool   `json:"enabled"`
	OtlpEndpoint  string `json:"otlpEndpoint,omitempty"`
	OtlpProtocol  string `json:"otlpProtocol,omitempty"`
	LogsEndpoint  string `json:"logsEndpoint,omitempty"`
	LogsProtocol  string `json:"logsProtocol,omitempty"`
}

// StorageConfig controls workspace volume provisioning.
type StorageConfig struct {
	StorageClassName string `json:"storageClassName,omitempty"`
	WorkspaceSize    string `json:"workspaceSize,omitempty"`
}

// CleanupConfig controls deferred cleanup behavior.
type CleanupConfig struct {
	Enabled                  bool  `json:"enabled"`
	CompletedJobDelayMinutes int64 `json:"completedJobDelayMinutes"`
	FailedJobDelayMinutes    int64 `json:"failedJobDelayMinutes"`
	DeleteConfigMap          bool  `json:"deleteConfigMap"`
}

// Config is the full controller configuration, loaded once at startup.
type Config struct {
	Job         JobConfig         `json:"job"`
	Agent       AgentConfig       `json:"agent"`
	Secrets     SecretsConfig     `json:"secrets"`
	Permissions PermissionsConfig `json:"permissions"`
	Telemetry   TelemetryConfig   `json:"telemetry"`
	Storage     StorageConfig     `json:"storage"`
	Cleanup     CleanupConfig     `json:"cleanup"`
}

const (
	defaultCompletedDelayMinutes = 5
	defaultFailedDelayMinutes    = 60

	// sentinelValue marks an image tag/repository as not-yet-configured;
	// a config shipped with this placeholder fails validation rather than
	// silently deploying an unusable image.
	sentinelValue = "CHANGEME"
)

// Load reads and parses the YAML file at path, applies defaults, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file %s: %v", orcherr.ErrSerialization, path, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Cleanup.CompletedJobDelayMinutes <= 0 {
		cfg.Cleanup.CompletedJobDelayMinutes = defaultCompletedDelayMinutes
	}
	if cfg.Cleanup.FailedJobDelayMinutes <= 0 {
		cfg.Cleanup.FailedJobDelayMinutes = defaultFailedDelayMinutes
	}
}

// Validate checks required fields, naming the offending dotted path on failure.
func (c *Config) Validate() error {
	if c.Agent.Image.Repository == "" || c.Agent.Image.Repository == sentinelValue {
		return fmt.Errorf("%w: agent.image.repository is required and must not be %q", orcherr.ErrConfiguration, sentinelValue)
	}
	if c.Agent.Image.Tag == "" || c.Agent.Image.Tag == sentinelValue {
		return fmt.Errorf("%w: agent.image.tag is required and must not be %q", orcherr.ErrConfiguration, sentinelValue)
	}
	return nil
}
