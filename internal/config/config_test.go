// Copyright Contributors to the KubeOpenCode project

//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
agent:
  image:
    repository: quay.io/acme/agent
    tag: v1.2.3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cleanup.CompletedJobDelayMinutes != defaultCompletedDelayMinutes {
		t.Errorf("CompletedJobDelayMinutes = %d, want default %d", cfg.Cleanup.CompletedJobDelayMinutes, defaultCompletedDelayMinutes)
	}
	if cfg.Cleanup.FailedJobDelayMinutes != defaultFailedDelayMinutes {
		t.Errorf("FailedJobDelayMinutes = %d, want default %d", cfg.Cleanup.FailedJobDelayMinutes, defaultFailedDelayMinutes)
	}
}

func TestLoadRejectsMissingImage(t *testing.T) {
	path := writeConfig(t, `
job:
  activeDeadlineSeconds: 3600
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing agent image, got nil")
	}
}

func TestLoadRejectsSentinelTag(t *testing.T) {
	path := writeConfig(t, `
agent:
  image:
    repository: quay.io/acme/agent
    tag: CHANGEME
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for sentinel tag, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
